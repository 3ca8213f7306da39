package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// EntryKind tells the worker how to source the entry text
type EntryKind string

const (
	EntryKindText  EntryKind = "text"
	EntryKindVoice EntryKind = "voice"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusFailed     TaskStatus = "failed"
)

// MaxTaskAttempts is the attempt ceiling before a task is abandoned
const MaxTaskAttempts = 3

// JSONB represents a JSONB field for PostgreSQL
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Task represents one journal entry processing task
type Task struct {
	ID        string     `json:"id" db:"id"`
	ChatID    int64      `json:"chat_id" db:"chat_id"`
	MessageID int64      `json:"message_id" db:"message_id"`
	Kind      EntryKind  `json:"kind" db:"kind"`
	FileID    *string    `json:"file_id,omitempty" db:"file_id"`
	Status    TaskStatus `json:"status" db:"status"`
	Attempts  int        `json:"attempts" db:"attempts"`
	ErrorText *string    `json:"error_text,omitempty" db:"error_text"`
	Meta      JSONB      `json:"meta" db:"meta"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Entry is the normalized journal record produced by the pipeline
type Entry struct {
	ID              string    `json:"id" db:"id"`
	TaskID          string    `json:"task_id" db:"task_id"`
	ChatID          int64     `json:"chat_id" db:"chat_id"`
	Language        string    `json:"language" db:"language"`
	Title           string    `json:"title" db:"title"`
	PolishedContent string    `json:"polished_content" db:"polished_content"`
	Feedback        string    `json:"feedback" db:"feedback"`
	SourceText      string    `json:"source_text" db:"source_text"`
	AudioKey        *string   `json:"audio_key,omitempty" db:"audio_key"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// IsCompleted returns true if the task is in a final state
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusDone || t.Status == TaskStatusFailed
}

// CanRetry returns true if the task can be retried
func (t *Task) CanRetry() bool {
	return t.Status == TaskStatusFailed && t.Attempts < MaxTaskAttempts
}

// IncrementAttempts increases the attempt counter
func (t *Task) IncrementAttempts() {
	t.Attempts++
}

// SetError sets the task status to failed with error message
func (t *Task) SetError(errorText string) {
	t.Status = TaskStatusFailed
	t.ErrorText = &errorText
	t.UpdatedAt = time.Now()
}

// SetCompleted sets the task status to done
func (t *Task) SetCompleted() {
	t.Status = TaskStatusDone
	t.UpdatedAt = time.Now()
}

// SetInProgress sets the task status to in progress
func (t *Task) SetInProgress() {
	t.Status = TaskStatusInProgress
	t.UpdatedAt = time.Now()
}
