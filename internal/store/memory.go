package store

import (
	"context"
	"sort"
	"sync"

	"bsfilter-bot/internal/model"
)

// Memory is an in-process Store used by tests and local development runs.
// It mirrors the remote namespace semantics: keyed overwrites, no queries.
type Memory struct {
	mu    sync.Mutex
	files map[string]model.FileRecord
	users map[int64]model.UserRecord
	tasks map[string]model.DeleteTask
}

func NewMemory() *Memory {
	return &Memory{
		files: make(map[string]model.FileRecord),
		users: make(map[int64]model.UserRecord),
		tasks: make(map[string]model.DeleteTask),
	}
}

func (m *Memory) ListFiles(ctx context.Context) ([]model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for k := range m.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.FileRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.files[k])
	}
	return out, nil
}

func (m *Memory) GetFile(ctx context.Context, uniqueID string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.files[uniqueID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *Memory) PutFile(ctx context.Context, rec model.FileRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[rec.UniqueID] = rec
	return nil
}

func (m *Memory) DeleteFile(ctx context.Context, uniqueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, uniqueID)
	return nil
}

func (m *Memory) PutUser(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = model.UserRecord{Active: true}
	return nil
}

func (m *Memory) ListUserIDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *Memory) PutDeleteTask(ctx context.Context, task model.DeleteTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.Key()] = task
	return nil
}

func (m *Memory) ListDeleteTasks(ctx context.Context) ([]model.DeleteTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.tasks))
	for k := range m.tasks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.DeleteTask, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.tasks[k])
	}
	return out, nil
}

func (m *Memory) RemoveDeleteTask(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, key)
	return nil
}

func (m *Memory) Close(ctx context.Context) error { return nil }
