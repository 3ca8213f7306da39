package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"

	"reverie/pkg/logger"
	"reverie/pkg/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage opens a pool, verifies the connection and applies migrations
func NewPostgresStorage(databaseURL string) (*PostgresStorage, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database migrations completed successfully")

	return &PostgresStorage{pool: pool}, nil
}

func migrationsURL() (string, error) {
	migrationsPath, err := filepath.Abs("migrations")
	if err != nil {
		return "", fmt.Errorf("failed to get migrations path: %w", err)
	}

	// file URL works on both Windows and Unix
	if runtime.GOOS == "windows" {
		u := &url.URL{
			Scheme: "file",
			Path:   filepath.ToSlash(migrationsPath),
		}
		return u.String(), nil
	}
	return fmt.Sprintf("file://%s", migrationsPath), nil
}

func runMigrations(databaseURL string) error {
	srcURL, err := migrationsURL()
	if err != nil {
		return err
	}

	logger.Info("Running migrations", zap.String("path", srcURL))

	db := stdlib.OpenDB(*parseConfig(databaseURL))
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(srcURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// ResetMigrations drops all tables and re-runs migrations (for development)
func ResetMigrations(databaseURL string) error {
	logger.Warn("Resetting database - this will drop all data!")

	srcURL, err := migrationsURL()
	if err != nil {
		return err
	}

	db := stdlib.OpenDB(*parseConfig(databaseURL))
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(srcURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}

	logger.Info("Database dropped successfully")

	if err := m.Up(); err != nil {
		return fmt.Errorf("failed to run migrations after reset: %w", err)
	}

	logger.Info("Database reset and migrations applied successfully")
	return nil
}

func parseConfig(databaseURL string) *pgx.ConnConfig {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		logger.Fatal("Failed to parse database URL", zap.Error(err))
	}
	return config
}

// Close closes the database connection pool
func (s *PostgresStorage) Close() {
	s.pool.Close()
}

// CreateTask inserts a new task into the database
func (s *PostgresStorage) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (
			id, chat_id, message_id, kind, file_id, status,
			attempts, error_text, meta, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err := s.pool.Exec(ctx, query,
		task.ID,
		task.ChatID,
		task.MessageID,
		task.Kind,
		task.FileID,
		task.Status,
		task.Attempts,
		task.ErrorText,
		task.Meta,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTaskByID retrieves a task by its ID
func (s *PostgresStorage) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	query := `
		SELECT id, chat_id, message_id, kind, file_id, status,
		       attempts, error_text, meta, created_at, updated_at
		FROM tasks
		WHERE id = $1`

	var task model.Task
	row := s.pool.QueryRow(ctx, query, id)

	err := row.Scan(
		&task.ID,
		&task.ChatID,
		&task.MessageID,
		&task.Kind,
		&task.FileID,
		&task.Status,
		&task.Attempts,
		&task.ErrorText,
		&task.Meta,
		&task.CreatedAt,
		&task.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("task not found")
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return &task, nil
}

// UpdateTask updates a full task
func (s *PostgresStorage) UpdateTask(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET chat_id = $2, message_id = $3, kind = $4, file_id = $5, status = $6,
		    attempts = $7, error_text = $8, meta = $9, updated_at = $10
		WHERE id = $1`

	result, err := s.pool.Exec(ctx, query,
		task.ID,
		task.ChatID,
		task.MessageID,
		task.Kind,
		task.FileID,
		task.Status,
		task.Attempts,
		task.ErrorText,
		task.Meta,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

// GetQueuedTasks retrieves tasks waiting for processing, oldest first
func (s *PostgresStorage) GetQueuedTasks(ctx context.Context, limit int) ([]*model.Task, error) {
	query := `
		SELECT id, chat_id, message_id, kind, file_id, status,
		       attempts, error_text, meta, created_at, updated_at
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, model.TaskStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get queued tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		var task model.Task
		err := rows.Scan(
			&task.ID,
			&task.ChatID,
			&task.MessageID,
			&task.Kind,
			&task.FileID,
			&task.Status,
			&task.Attempts,
			&task.ErrorText,
			&task.Meta,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// CreateEntry inserts a normalized journal entry
func (s *PostgresStorage) CreateEntry(ctx context.Context, entry *model.Entry) error {
	query := `
		INSERT INTO entries (
			id, task_id, chat_id, language, title, polished_content,
			feedback, source_text, audio_key, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.ChatID,
		entry.Language,
		entry.Title,
		entry.PolishedContent,
		entry.Feedback,
		entry.SourceText,
		entry.AudioKey,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

// GetEntryByTaskID retrieves the entry produced for a task
func (s *PostgresStorage) GetEntryByTaskID(ctx context.Context, taskID string) (*model.Entry, error) {
	query := `
		SELECT id, task_id, chat_id, language, title, polished_content,
		       feedback, source_text, audio_key, created_at
		FROM entries
		WHERE task_id = $1`

	var entry model.Entry
	row := s.pool.QueryRow(ctx, query, taskID)

	err := row.Scan(
		&entry.ID,
		&entry.TaskID,
		&entry.ChatID,
		&entry.Language,
		&entry.Title,
		&entry.PolishedContent,
		&entry.Feedback,
		&entry.SourceText,
		&entry.AudioKey,
		&entry.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("entry not found")
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return &entry, nil
}

// ListRecentEntries returns the newest entries for a chat
func (s *PostgresStorage) ListRecentEntries(ctx context.Context, chatID int64, limit int) ([]*model.Entry, error) {
	query := `
		SELECT id, task_id, chat_id, language, title, polished_content,
		       feedback, source_text, audio_key, created_at
		FROM entries
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.Entry
	for rows.Next() {
		var entry model.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.ChatID,
			&entry.Language,
			&entry.Title,
			&entry.PolishedContent,
			&entry.Feedback,
			&entry.SourceText,
			&entry.AudioKey,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}
