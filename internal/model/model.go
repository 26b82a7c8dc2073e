// Package model holds the typed records persisted in the remote store.
// Remote data is validated here at the read boundary so malformed entries
// fail fast instead of leaking empty fields into handlers.
package model

import (
	"errors"
	"fmt"
)

// FileRecord is one indexed media file. Records are immutable once created;
// the only mutation the system performs is administrative deletion.
type FileRecord struct {
	FileName string `json:"file_name" bson:"file_name"`
	FileSize int64  `json:"file_size" bson:"file_size"`
	FileID   string `json:"file_id" bson:"file_id"`
	UniqueID string `json:"unique_id" bson:"unique_id"`
	Caption  string `json:"caption" bson:"caption"`
}

func (f *FileRecord) Validate() error {
	if f.UniqueID == "" {
		return errors.New("file record: empty unique_id")
	}
	if f.FileID == "" {
		return errors.New("file record: empty file_id")
	}
	if f.FileName == "" {
		return errors.New("file record: empty file_name")
	}
	if f.Caption == "" {
		f.Caption = f.FileName
	}
	return nil
}

// DeleteTask is a scheduled deletion of an ephemeral message.
// DeleteTime is epoch seconds.
type DeleteTask struct {
	ChatID     int64 `json:"chat_id" bson:"chat_id"`
	MessageID  int   `json:"message_id" bson:"message_id"`
	DeleteTime int64 `json:"delete_time" bson:"delete_time"`
}

// Key is the store key for the task, shared by both backends.
func (t *DeleteTask) Key() string {
	return fmt.Sprintf("%d_%d", t.ChatID, t.MessageID)
}

func (t *DeleteTask) Validate() error {
	if t.ChatID == 0 || t.MessageID == 0 {
		return errors.New("delete task: empty chat_id or message_id")
	}
	return nil
}

// UserRecord is a minimal presence marker, used for broadcast and stats.
type UserRecord struct {
	Active bool `json:"active" bson:"active"`
}

// FormatSize renders a byte count the way the bot shows it in captions
// and buttons.
func FormatSize(size int64) string {
	if size <= 0 {
		return "0B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	val := float64(size)
	i := 0
	for val >= 1024 && i < len(units)-1 {
		val /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", val, units[i])
}
