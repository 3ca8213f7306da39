package bot

import (
	"context"
	"time"

	"reverie/internal/config"
	"reverie/internal/queue"
	"reverie/pkg/cache"
	"reverie/pkg/logger"
	"reverie/pkg/model"
	"reverie/pkg/resilience"

	tele "gopkg.in/telebot.v4"

	"go.uber.org/zap"
)

type QueuePublisher interface {
	Publish(queueName string, body []byte) error
	PublishTask(task *queue.EntryTask) error
}

// Store is the slice of storage the bot needs: it creates tasks and
// reads back finished entries, nothing else.
type Store interface {
	CreateTask(ctx context.Context, task *model.Task) error
	ListRecentEntries(ctx context.Context, chatID int64, limit int) ([]*model.Entry, error)
}

// entriesPerMinute caps how fast a single bot instance accepts new
// entries, protecting the generation provider from bursts.
const entriesPerMinute = 20

type Bot struct {
	cfg     *config.Config
	tb      *tele.Bot
	q       QueuePublisher
	storage Store
	cache   cache.Cache
	limiter *resilience.RateLimiter
}

func NewBot(cfg *config.Config, db Store, q QueuePublisher, redisCache cache.Cache) (*Bot, error) {
	logger.Info("Starting bot initialization")

	pref := tele.Settings{
		Token: cfg.Telegram.Token,
		Poller: &tele.LongPoller{
			Timeout: 10 * time.Second,
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	logger.Info("Bot created successfully")

	bot := &Bot{
		cfg:     cfg,
		tb:      tb,
		storage: db,
		q:       q,
		cache:   redisCache,
		limiter: resilience.NewRateLimiter(entriesPerMinute, time.Minute/entriesPerMinute),
	}

	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle("/stop", b.handleStop)
	b.tb.Handle("/recent", b.handleRecent)
	b.tb.Handle(tele.OnText, b.handleText)
	b.tb.Handle(tele.OnVoice, b.handleVoice)
}

// handleStart enables journaling for the chat
func (b *Bot) handleStart(c tele.Context) error {
	chatID := c.Chat().ID
	ctx := context.Background()

	key := cache.ChatActiveCacheKey(chatID)
	if err := b.cache.SetWithTTL(ctx, key, "true", 30*24*time.Hour); err != nil {
		logger.Error("Failed to save chat active state to cache", zap.Error(err))
	}

	logger.Info("Journal activated for chat",
		zap.Int64("chat_id", chatID))

	return c.Send("Journal activated. Send a text or a voice note whenever you want to capture your day.")
}

// handleStop disables journaling for the chat
func (b *Bot) handleStop(c tele.Context) error {
	chatID := c.Chat().ID
	ctx := context.Background()

	key := cache.ChatActiveCacheKey(chatID)
	if err := b.cache.Delete(ctx, key); err != nil {
		logger.Error("Failed to delete chat active state from cache", zap.Error(err))
	}

	logger.Info("Journal deactivated for chat",
		zap.Int64("chat_id", chatID))

	return c.Send("Journal paused.\nSend /start to resume.")
}

// isActive reports whether journaling is enabled for the chat
func (b *Bot) isActive(chatID int64) bool {
	ctx := context.Background()
	key := cache.ChatActiveCacheKey(chatID)

	var value string
	err := b.cache.Get(ctx, key, &value)
	if err != nil {
		return false
	}

	return value == "true"
}

func (b *Bot) Start() {
	b.tb.Start()
	logger.Info("Bot started")
}

func (b *Bot) Stop() {
	b.tb.Stop()
	logger.Info("Bot stopped")
}
