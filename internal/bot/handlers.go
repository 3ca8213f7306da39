package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"reverie/internal/queue"
	"reverie/pkg/logger"
	"reverie/pkg/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

// minTextRunes mirrors the pipeline's minimum so obviously empty
// entries are rejected before a task is created.
const minTextRunes = 5

const recentEntriesLimit = 5

func (b *Bot) handleText(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Text == "" {
		return nil
	}

	if !b.isActive(msg.Chat.ID) {
		logger.Info("Ignoring text entry from inactive chat",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID))
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if utf8.RuneCountInString(text) < minTextRunes {
		return c.Reply("Could you add a little more detail? A few words are enough.")
	}

	if !b.limiter.Allow() {
		return c.Reply("Please slow down a little and try again in a moment.")
	}

	task := model.Task{
		ID:        uuid.New().String(),
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		Kind:      model.EntryKindText,
		Status:    model.TaskStatusQueued,
		Meta: model.JSONB{
			"text_length": utf8.RuneCountInString(text),
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	return b.enqueue(c, &task, &queue.EntryTask{
		TaskID:    task.ID,
		ChatID:    task.ChatID,
		MessageID: task.MessageID,
		Kind:      model.EntryKindText,
		Text:      text,
		CreatedAt: task.CreatedAt,
	})
}

func (b *Bot) handleVoice(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Voice == nil {
		return nil
	}

	if !b.isActive(msg.Chat.ID) {
		logger.Info("Ignoring voice entry from inactive chat",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Int("message_id", msg.ID))
		return nil
	}

	if !b.limiter.Allow() {
		return c.Reply("Please slow down a little and try again in a moment.")
	}

	fileID := msg.Voice.FileID
	task := model.Task{
		ID:        uuid.New().String(),
		ChatID:    msg.Chat.ID,
		MessageID: int64(msg.ID),
		Kind:      model.EntryKindVoice,
		FileID:    &fileID,
		Status:    model.TaskStatusQueued,
		Meta: model.JSONB{
			"voice_duration": msg.Voice.Duration,
			"file_size":      msg.Voice.FileSize,
			"mime_type":      msg.Voice.MIME,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	return b.enqueue(c, &task, &queue.EntryTask{
		TaskID:    task.ID,
		ChatID:    task.ChatID,
		MessageID: task.MessageID,
		Kind:      model.EntryKindVoice,
		FileID:    fileID,
		Duration:  msg.Voice.Duration,
		FileSize:  int64(msg.Voice.FileSize),
		MimeType:  msg.Voice.MIME,
		CreatedAt: task.CreatedAt,
	})
}

// enqueue persists the task and hands it to the worker queue.
func (b *Bot) enqueue(c tele.Context, task *model.Task, entryTask *queue.EntryTask) error {
	if err := c.Reply("Writing it down..."); err != nil {
		logger.Error("Failed to send processing message", zap.Error(err))
	}

	ctx := context.Background()
	if err := b.storage.CreateTask(ctx, task); err != nil {
		logger.Error("Failed to create task in database",
			zap.Error(err),
			zap.String("task_id", task.ID))
		return c.Reply("Something went wrong saving your entry. Please try again.")
	}

	logger.Info("Task created in database",
		zap.String("task_id", task.ID),
		zap.String("kind", string(task.Kind)),
		zap.Int64("chat_id", task.ChatID))

	if err := b.q.PublishTask(entryTask); err != nil {
		logger.Error("Failed to publish task to queue",
			zap.Error(err),
			zap.String("task_id", task.ID))
		return c.Reply("Something went wrong saving your entry. Please try again.")
	}

	logger.Info("Task published to queue",
		zap.String("task_id", task.ID))

	return nil
}

// handleRecent lists the newest finished entries for the chat
func (b *Bot) handleRecent(c tele.Context) error {
	chatID := c.Chat().ID
	ctx := context.Background()

	entries, err := b.storage.ListRecentEntries(ctx, chatID, recentEntriesLimit)
	if err != nil {
		logger.Error("Failed to list recent entries",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		return c.Send("Could not load your recent entries. Please try again.")
	}

	if len(entries) == 0 {
		return c.Send("No entries yet. Send a text or a voice note to create your first one.")
	}

	return c.Send(formatRecent(entries))
}

func formatRecent(entries []*model.Entry) string {
	var sb strings.Builder
	sb.WriteString("Your recent entries:\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("\n%s - %s\n%s\n",
			e.CreatedAt.Format("Jan 2"), e.Title, e.PolishedContent))
	}
	return sb.String()
}
