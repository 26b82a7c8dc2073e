package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"bsfilter-bot/internal/model"
	"bsfilter-bot/internal/store"
)

func rec(id, name string) model.FileRecord {
	return model.FileRecord{UniqueID: id, FileID: "fid-" + id, FileName: name}
}

func TestRefreshLoadsStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_ = st.PutFile(ctx, rec("a", "Movie.A.mkv"))
	_ = st.PutFile(ctx, rec("b", "Movie.B.mkv"))

	c := New(st, slog.Default())
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestAddDeduplicatesAndPersists(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := New(st, slog.Default())

	added, err := c.Add(ctx, rec("a", "Movie.A.mkv"))
	if err != nil || !added {
		t.Fatalf("first Add = (%v, %v), want (true, nil)", added, err)
	}
	added, err = c.Add(ctx, rec("a", "Movie.A.Again.mkv"))
	if err != nil || added {
		t.Fatalf("duplicate Add = (%v, %v), want (false, nil)", added, err)
	}

	// Persisted exactly once.
	stored, err := st.GetFile(ctx, "a")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if stored.FileName != "Movie.A.mkv" {
		t.Errorf("stored FileName = %q, duplicate must not overwrite", stored.FileName)
	}
}

func TestAddRejectsMalformed(t *testing.T) {
	c := New(store.NewMemory(), slog.Default())
	_, err := c.Add(context.Background(), model.FileRecord{FileName: "x"})
	if err == nil {
		t.Fatal("Add of record without unique_id should fail")
	}
}

func TestGetFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := New(st, slog.Default())

	// Written by another process: in store, not in mirror.
	_ = st.PutFile(ctx, rec("remote", "Remote.mkv"))

	got, err := c.Get(ctx, "remote")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UniqueID != "remote" {
		t.Errorf("Get returned %+v", got)
	}

	_, err = c.Get(ctx, "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	c := New(st, slog.Default())
	_, _ = c.Add(ctx, rec("a", "A.mkv"))
	_, _ = c.Add(ctx, rec("b", "B.mkv"))

	snapshot := c.Snapshot()

	removed, err := c.Remove(ctx, "a")
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", removed, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len after remove = %d", c.Len())
	}
	if _, err := st.GetFile(ctx, "a"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("store still has removed record")
	}

	// A snapshot taken before the removal is unchanged.
	if len(snapshot) != 2 || snapshot[0].UniqueID != "a" {
		t.Errorf("earlier snapshot mutated: %+v", snapshot)
	}

	removed, err = c.Remove(ctx, "a")
	if err != nil || removed {
		t.Errorf("second Remove = (%v, %v), want (false, nil)", removed, err)
	}
}
