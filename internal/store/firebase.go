package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bsfilter-bot/internal/model"
)

// Firebase talks to a Firebase Realtime Database over its REST surface:
// GET/PUT/DELETE {base}/{path}.json. No SDK is needed for the path-addressed
// get/set/delete calls the bot performs.
type Firebase struct {
	baseURL string
	auth    string
	hc      *http.Client
	logger  *slog.Logger
}

func NewFirebase(baseURL, auth string, logger *slog.Logger) *Firebase {
	return &Firebase{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		hc:      &http.Client{Timeout: 9 * time.Second},
		logger:  logger.With(slog.String("component", "firebase")),
	}
}

func (f *Firebase) ListFiles(ctx context.Context) ([]model.FileRecord, error) {
	var snapshot map[string]model.FileRecord
	if err := f.get(ctx, "files", &snapshot); err != nil {
		return nil, err
	}
	records := make([]model.FileRecord, 0, len(snapshot))
	for key, rec := range snapshot {
		if err := rec.Validate(); err != nil {
			f.logger.Warn("dropping malformed file record", slog.String("key", key), slog.Any("error", err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (f *Firebase) GetFile(ctx context.Context, uniqueID string) (*model.FileRecord, error) {
	var rec *model.FileRecord
	if err := f.get(ctx, "files/"+url.PathEscape(uniqueID), &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (f *Firebase) PutFile(ctx context.Context, rec model.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return f.put(ctx, "files/"+url.PathEscape(rec.UniqueID), rec)
}

func (f *Firebase) DeleteFile(ctx context.Context, uniqueID string) error {
	return f.delete(ctx, "files/"+url.PathEscape(uniqueID))
}

func (f *Firebase) PutUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	return f.put(ctx, "users/"+strconv.FormatInt(userID, 10), model.UserRecord{Active: true})
}

func (f *Firebase) ListUserIDs(ctx context.Context) ([]int64, error) {
	var snapshot map[string]model.UserRecord
	if err := f.get(ctx, "users", &snapshot); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(snapshot))
	for key := range snapshot {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			f.logger.Warn("dropping malformed user key", slog.String("key", key))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *Firebase) CountUsers(ctx context.Context) (int, error) {
	ids, err := f.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (f *Firebase) PutDeleteTask(ctx context.Context, task model.DeleteTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	return f.put(ctx, "delete_queue/"+task.Key(), task)
}

func (f *Firebase) ListDeleteTasks(ctx context.Context) ([]model.DeleteTask, error) {
	var snapshot map[string]model.DeleteTask
	if err := f.get(ctx, "delete_queue", &snapshot); err != nil {
		return nil, err
	}
	tasks := make([]model.DeleteTask, 0, len(snapshot))
	for key, task := range snapshot {
		if err := task.Validate(); err != nil {
			f.logger.Warn("dropping malformed delete task", slog.String("key", key), slog.Any("error", err))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (f *Firebase) RemoveDeleteTask(ctx context.Context, key string) error {
	return f.delete(ctx, "delete_queue/"+key)
}

func (f *Firebase) Close(ctx context.Context) error { return nil }

func (f *Firebase) endpoint(path string) string {
	u := f.baseURL + "/" + path + ".json"
	if f.auth != "" {
		u += "?auth=" + url.QueryEscape(f.auth)
	}
	return u
}

func (f *Firebase) get(ctx context.Context, path string, out any) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint(path), nil)
	resp, err := f.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("firebase get %s status %d: %s", path, resp.StatusCode, string(body))
	}
	// Firebase returns the JSON literal null for an absent path.
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *Firebase) put(ctx context.Context, path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPut, f.endpoint(path), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("firebase put %s status %d: %s", path, resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (f *Firebase) delete(ctx context.Context, path string) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodDelete, f.endpoint(path), nil)
	resp, err := f.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("firebase delete %s status %d: %s", path, resp.StatusCode, string(body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
