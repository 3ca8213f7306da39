package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"reverie/internal/pipeline"
	"reverie/internal/queue"
	"reverie/pkg/cache"
	"reverie/pkg/logger"
	"reverie/pkg/model"
	"reverie/pkg/resilience"

	"github.com/google/uuid"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"
)

// Store is the slice of storage the processor needs.
type Store interface {
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	CreateEntry(ctx context.Context, entry *model.Entry) error
}

// ObjectStore archives the original voice payload.
type ObjectStore interface {
	UploadAudio(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	AudioKey(taskID, extension string) string
}

// Normalizer turns a raw entry into the finished journal artifact.
type Normalizer interface {
	NormalizeText(ctx context.Context, text string) (*pipeline.Result, error)
	NormalizeAudio(ctx context.Context, data []byte, filename string) (*pipeline.Result, error)
}

// processedTaskTTL keeps the dedup marker long enough to cover any
// redelivery window.
const processedTaskTTL = 24 * time.Hour

type Processor struct {
	db         Store
	s3         ObjectStore
	pipe       Normalizer
	bot        *tele.Bot
	cache      cache.Cache
	httpClient *http.Client
	retryCfg   *resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
}

// NewProcessor creates a new worker processor
func NewProcessor(
	db Store,
	s3 ObjectStore,
	pipe Normalizer,
	bot *tele.Bot,
	redisCache cache.Cache,
) *Processor {
	return &Processor{
		db:    db,
		s3:    s3,
		pipe:  pipe,
		bot:   bot,
		cache: redisCache,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		retryCfg: resilience.DefaultRetryConfig(),
		breaker:  resilience.NewCircuitBreaker(5, 30*time.Second),
	}
}

// ProcessTask processes one journal entry task from the queue.
// A returned error requeues the delivery, so only transient failures
// on tasks with attempts left propagate out.
func (p *Processor) ProcessTask(taskData []byte) error {
	var entryTask queue.EntryTask
	if err := json.Unmarshal(taskData, &entryTask); err != nil {
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	logger.Info("Processing entry task",
		zap.String("task_id", entryTask.TaskID),
		zap.String("kind", string(entryTask.Kind)),
		zap.Int64("chat_id", entryTask.ChatID))

	ctx := context.Background()

	// Duplicate deliveries are possible after a requeue; skip tasks
	// that already went through.
	if done, err := p.cache.Exists(ctx, cache.ProcessedTaskKey(entryTask.TaskID)); err == nil && done {
		logger.Info("Skipping already processed task",
			zap.String("task_id", entryTask.TaskID))
		return nil
	}

	task, err := p.db.GetTaskByID(ctx, entryTask.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get task from db: %w", err)
	}

	if task.Status == model.TaskStatusDone {
		logger.Info("Task already completed, skipping",
			zap.String("task_id", task.ID))
		return nil
	}

	task.SetInProgress()
	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update task status", zap.Error(err))
	}

	var (
		result   *pipeline.Result
		audioKey *string
	)

	switch entryTask.Kind {
	case model.EntryKindVoice:
		result, audioKey, err = p.processVoice(ctx, task, &entryTask)
	default:
		result, err = p.pipe.NormalizeText(ctx, entryTask.Text)
	}

	if err != nil {
		return p.handleTaskError(ctx, task, err)
	}

	entry := &model.Entry{
		ID:              uuid.New().String(),
		TaskID:          task.ID,
		ChatID:          task.ChatID,
		Language:        result.DetectedLanguage,
		Title:           result.Title,
		PolishedContent: result.PolishedContent,
		Feedback:        result.Feedback,
		SourceText:      result.SourceText,
		AudioKey:        audioKey,
		CreatedAt:       time.Now(),
	}

	if err := p.db.CreateEntry(ctx, entry); err != nil {
		return p.handleTaskError(ctx, task, fmt.Errorf("failed to save entry: %w", err))
	}

	if err := p.cache.SetWithTTL(ctx, cache.EntryCacheKey(task.ID), entry, processedTaskTTL); err != nil {
		logger.Error("Failed to cache entry", zap.Error(err))
	}
	if err := p.cache.SetWithTTL(ctx, cache.ProcessedTaskKey(task.ID), "1", processedTaskTTL); err != nil {
		logger.Error("Failed to mark task processed", zap.Error(err))
	}

	task.SetCompleted()
	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update task status to done", zap.Error(err))
	}

	if err := p.sendResultToUser(task.ChatID, task.MessageID, formatEntry(entry)); err != nil {
		logger.Error("Failed to send result to user", zap.Error(err))
		// Task is completed either way.
	}

	logger.Info("Task completed successfully",
		zap.String("task_id", task.ID),
		zap.String("language", entry.Language))

	return nil
}

// processVoice downloads the voice note and hands it to the audio flow.
func (p *Processor) processVoice(ctx context.Context, task *model.Task, entryTask *queue.EntryTask) (*pipeline.Result, *string, error) {
	fileData, err := p.downloadTelegramFile(entryTask.FileID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download file: %w", err)
	}

	logger.Info("File downloaded from Telegram",
		zap.String("task_id", task.ID),
		zap.Int("size", len(fileData)))

	return p.runVoiceFlow(ctx, task, fileData)
}

// runVoiceFlow archives the payload and normalizes it. Archiving is
// best effort: a storage failure must not block the entry. Transient
// provider failures are retried with backoff; input errors are not.
func (p *Processor) runVoiceFlow(ctx context.Context, task *model.Task, fileData []byte) (*pipeline.Result, *string, error) {
	var audioKey *string
	key := p.s3.AudioKey(task.ID, ".ogg")
	if _, err := p.s3.UploadAudio(ctx, key, bytes.NewReader(fileData), "audio/ogg"); err != nil {
		logger.Error("Failed to archive audio",
			zap.Error(err),
			zap.String("task_id", task.ID))
	} else {
		audioKey = &key
	}

	// The breaker fails fast when the speech provider is down instead
	// of burning a full retry cycle per delivery. Only provider-health
	// errors count toward opening it; a run of bad voice notes must not
	// lock out healthy users.
	var result *pipeline.Result
	err := resilience.Retry(ctx, p.retryCfg, func() error {
		return p.breaker.ExecuteFiltered(func() error {
			var nerr error
			result, nerr = p.pipe.NormalizeAudio(ctx, fileData, key)
			return nerr
		}, pipeline.IsRetryable)
	}, pipeline.IsRetryable)
	if err != nil {
		return nil, audioKey, err
	}

	return result, audioKey, nil
}

// downloadTelegramFile downloads file from Telegram
func (p *Processor) downloadTelegramFile(fileID string) ([]byte, error) {
	file, err := p.bot.FileByID(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	fileURL := p.bot.URL + "/file/bot" + p.bot.Token + "/" + file.FilePath

	resp, err := p.httpClient.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}

	return data, nil
}

// formatEntry renders the finished entry as one Telegram message.
func formatEntry(entry *model.Entry) string {
	return fmt.Sprintf("%s\n\n%s\n\n%s", entry.Title, entry.PolishedContent, entry.Feedback)
}

// sendResultToUser sends the finished entry back as a reply
func (p *Processor) sendResultToUser(chatID, replyToMessageID int64, text string) error {
	chat := &tele.Chat{ID: chatID}

	_, err := p.bot.Send(chat, text, &tele.SendOptions{
		ReplyTo: &tele.Message{ID: int(replyToMessageID)},
	})

	return err
}

// handleTaskError records the failure and decides whether the delivery
// should be requeued. Input errors are final: the user is told what to
// fix and the task is not retried.
func (p *Processor) handleTaskError(ctx context.Context, task *model.Task, taskErr error) error {
	logger.Error("Task processing error",
		zap.String("task_id", task.ID),
		zap.Error(taskErr))

	task.SetError(taskErr.Error())
	task.IncrementAttempts()

	if err := p.db.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to update task error", zap.Error(err))
	}

	if pipeline.IsInputError(taskErr) {
		p.notifyUser(task, userMessageFor(taskErr))
		return nil
	}

	if task.CanRetry() {
		return taskErr
	}

	p.notifyUser(task, userMessageFor(taskErr))
	return nil
}

func (p *Processor) notifyUser(task *model.Task, message string) {
	chat := &tele.Chat{ID: task.ChatID}
	if _, err := p.bot.Send(chat, message, &tele.SendOptions{
		ReplyTo: &tele.Message{ID: int(task.MessageID)},
	}); err != nil {
		logger.Error("Failed to notify user about task failure",
			zap.Error(err),
			zap.String("task_id", task.ID))
	}
}

// userMessageFor translates a processing error into something the
// author can act on.
func userMessageFor(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrInputTooShort):
		return "Could you add a little more detail? A few words are enough."
	case errors.Is(err, pipeline.ErrAudioTooSmall), errors.Is(err, pipeline.ErrEmptyTranscript):
		return "I couldn't hear anything in that voice note. Could you try recording it again?"
	case errors.Is(err, pipeline.ErrUnsupportedFormat):
		return "I couldn't read that audio format. A regular Telegram voice note works best."
	case errors.Is(err, pipeline.ErrPayloadTooLarge):
		return "That voice note is too long for me to process. Could you split it into shorter ones?"
	default:
		return "Something went wrong while processing your entry. Please try again later."
	}
}
