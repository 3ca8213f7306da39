package queue

import (
	"time"

	"reverie/pkg/model"
)

// EntryTask is the queue payload for one journal entry.
// Text entries carry the text inline; voice entries carry the
// Telegram file reference the worker downloads.
type EntryTask struct {
	TaskID    string          `json:"task_id"`
	ChatID    int64           `json:"chat_id"`
	MessageID int64           `json:"message_id"`
	Kind      model.EntryKind `json:"kind"`
	Text      string          `json:"text,omitempty"`
	FileID    string          `json:"file_id,omitempty"`
	Duration  int             `json:"duration,omitempty"`
	FileSize  int64           `json:"file_size,omitempty"`
	MimeType  string          `json:"mime_type,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
