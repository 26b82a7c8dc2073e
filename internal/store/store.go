// Package store is the boundary to the remote key-value database that owns
// the durable state: indexed files, known users and the delete queue.
//
// Persisted namespace, shared by both backends:
//
//	files/{unique_id}         -> FileRecord
//	users/{user_id}           -> UserRecord
//	delete_queue/{chat}_{msg} -> DeleteTask
package store

import (
	"context"
	"errors"

	"bsfilter-bot/internal/model"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("store: not found")

type Store interface {
	// Files
	ListFiles(ctx context.Context) ([]model.FileRecord, error)
	GetFile(ctx context.Context, uniqueID string) (*model.FileRecord, error)
	PutFile(ctx context.Context, rec model.FileRecord) error
	DeleteFile(ctx context.Context, uniqueID string) error

	// Users
	PutUser(ctx context.Context, userID int64) error
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int, error)

	// Delete queue
	PutDeleteTask(ctx context.Context, task model.DeleteTask) error
	ListDeleteTasks(ctx context.Context) ([]model.DeleteTask, error)
	RemoveDeleteTask(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
