package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bsfilter-bot/internal/model"
)

// fakeRTDB emulates the Firebase REST surface: GET/PUT/DELETE on
// {path}.json, JSON null for absent paths, subtree objects for parents.
type fakeRTDB struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func newFakeRTDB() *fakeRTDB {
	return &fakeRTDB{data: make(map[string]json.RawMessage)}
}

func (f *fakeRTDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(strings.Trim(r.URL.Path, "/"), ".json")
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		if raw, ok := f.data[path]; ok {
			_, _ = w.Write(raw)
			return
		}
		// Parent path: collect children into an object.
		children := make(map[string]json.RawMessage)
		for k, v := range f.data {
			if strings.HasPrefix(k, path+"/") {
				children[strings.TrimPrefix(k, path+"/")] = v
			}
		}
		if len(children) == 0 {
			_, _ = w.Write([]byte("null"))
			return
		}
		_ = json.NewEncoder(w).Encode(children)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.data[path] = body
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.data, path)
		_, _ = w.Write([]byte("null"))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestFirebase(t *testing.T) (*Firebase, *fakeRTDB) {
	t.Helper()
	db := newFakeRTDB()
	srv := httptest.NewServer(db)
	t.Cleanup(srv.Close)
	return NewFirebase(srv.URL, "", slog.Default()), db
}

func TestFirebaseFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	fb, _ := newTestFirebase(t)

	rec := model.FileRecord{FileName: "Movie.mkv", FileSize: 1 << 20, FileID: "f1", UniqueID: "u1"}
	if err := fb.PutFile(ctx, rec); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	got, err := fb.GetFile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if got.FileName != "Movie.mkv" || got.Caption != "Movie.mkv" {
		t.Errorf("GetFile = %+v", got)
	}

	files, err := fb.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("ListFiles = %d records", len(files))
	}

	if err := fb.DeleteFile(ctx, "u1"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := fb.GetFile(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetFile after delete = %v, want ErrNotFound", err)
	}
}

func TestFirebaseListFilesDropsMalformed(t *testing.T) {
	ctx := context.Background()
	fb, db := newTestFirebase(t)

	db.data["files/good"] = json.RawMessage(`{"file_name":"A.mkv","file_id":"f","unique_id":"good"}`)
	db.data["files/bad"] = json.RawMessage(`{"file_name":"B.mkv"}`)

	files, err := fb.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].UniqueID != "good" {
		t.Errorf("ListFiles = %+v, want only the valid record", files)
	}
}

func TestFirebaseEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	fb, _ := newTestFirebase(t)

	files, err := fb.ListFiles(ctx)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("ListFiles on empty db = %+v", files)
	}
	n, err := fb.CountUsers(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountUsers = (%d, %v)", n, err)
	}
}

func TestFirebaseUsers(t *testing.T) {
	ctx := context.Background()
	fb, db := newTestFirebase(t)

	if err := fb.PutUser(ctx, 42); err != nil {
		t.Fatalf("PutUser: %v", err)
	}
	// Non-positive IDs are ignored, not persisted.
	if err := fb.PutUser(ctx, 0); err != nil {
		t.Fatalf("PutUser(0): %v", err)
	}
	db.data["users/not-a-number"] = json.RawMessage(`{"active":true}`)

	ids, err := fb.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != 42 {
		t.Errorf("ListUserIDs = %v, want [42]", ids)
	}
}

func TestFirebaseDeleteTasks(t *testing.T) {
	ctx := context.Background()
	fb, _ := newTestFirebase(t)

	task := model.DeleteTask{ChatID: 5, MessageID: 9, DeleteTime: 100}
	if err := fb.PutDeleteTask(ctx, task); err != nil {
		t.Fatalf("PutDeleteTask: %v", err)
	}
	tasks, err := fb.ListDeleteTasks(ctx)
	if err != nil {
		t.Fatalf("ListDeleteTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Key() != "5_9" {
		t.Fatalf("ListDeleteTasks = %+v", tasks)
	}
	if err := fb.RemoveDeleteTask(ctx, tasks[0].Key()); err != nil {
		t.Fatalf("RemoveDeleteTask: %v", err)
	}
	tasks, _ = fb.ListDeleteTasks(ctx)
	if len(tasks) != 0 {
		t.Errorf("task still present after removal: %+v", tasks)
	}
}
