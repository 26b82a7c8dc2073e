package model

import "testing"

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0B"},
		{-5, "0B"},
		{512, "512.00 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1 << 20, "1.00 MB"},
		{1<<30 + 1<<29, "1.50 GB"},
		{1 << 40, "1.00 TB"},
		{1 << 50, "1024.00 TB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFileRecordValidate(t *testing.T) {
	rec := FileRecord{FileName: "Movie.mkv", FileID: "f", UniqueID: "u"}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rec.Caption != "Movie.mkv" {
		t.Errorf("Caption = %q, want filename default", rec.Caption)
	}

	for _, bad := range []FileRecord{
		{FileID: "f", UniqueID: "u"},
		{FileName: "x", UniqueID: "u"},
		{FileName: "x", FileID: "f"},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%+v) should fail", bad)
		}
	}
}

func TestDeleteTaskKey(t *testing.T) {
	task := DeleteTask{ChatID: -100123, MessageID: 42}
	if got := task.Key(); got != "-100123_42" {
		t.Errorf("Key = %q", got)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	bad := DeleteTask{MessageID: 1}
	if err := bad.Validate(); err == nil {
		t.Error("Validate without chat_id should fail")
	}
}
