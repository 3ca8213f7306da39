package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"reverie/internal/queue"
	"reverie/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateTask(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockStorage) ListRecentEntries(ctx context.Context, chatID int64, limit int) ([]*model.Entry, error) {
	args := m.Called(ctx, chatID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Entry), args.Error(1)
}

// Mock Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(queueName string, body []byte) error {
	args := m.Called(queueName, body)
	return args.Error(0)
}

func (m *MockQueue) PublishTask(task *queue.EntryTask) error {
	args := m.Called(task)
	return args.Error(0)
}

// MockCache mocks RedisCache
type MockCache struct {
	mock.Mock
	data map[string]interface{}
}

func NewMockCache() *MockCache {
	return &MockCache{
		data: make(map[string]interface{}),
	}
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	if args.Error(0) == nil {
		m.data[key] = value
	}
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	if args.Error(0) == nil {
		delete(m.data, key)
	}
	return args.Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestBot_IsActive(t *testing.T) {
	tests := []struct {
		name     string
		chatID   int64
		setup    func(*MockCache)
		expected bool
	}{
		{
			name:   "chat is active",
			chatID: 123,
			setup: func(mc *MockCache) {
				mc.On("Get", mock.Anything, "chat:active:123", mock.Anything).
					Run(func(args mock.Arguments) {
						dest := args.Get(2).(*string)
						*dest = "true"
					}).
					Return(nil)
			},
			expected: true,
		},
		{
			name:   "chat is inactive (key not found)",
			chatID: 456,
			setup: func(mc *MockCache) {
				mc.On("Get", mock.Anything, "chat:active:456", mock.Anything).
					Return(errors.New("key not found"))
			},
			expected: false,
		},
		{
			name:   "stale value is not active",
			chatID: 789,
			setup: func(mc *MockCache) {
				mc.On("Get", mock.Anything, "chat:active:789", mock.Anything).
					Run(func(args mock.Arguments) {
						dest := args.Get(2).(*string)
						*dest = "false"
					}).
					Return(nil)
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCache := NewMockCache()
			tt.setup(mockCache)

			b := &Bot{
				cache: mockCache,
			}

			result := b.isActive(tt.chatID)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFormatRecent(t *testing.T) {
	entries := []*model.Entry{
		{
			Title:           "A Walk in the Park",
			PolishedContent: "The weather was lovely, so I went for a long walk.",
			CreatedAt:       time.Date(2026, time.March, 14, 20, 0, 0, 0, time.UTC),
		},
		{
			Title:           "公园散步",
			PolishedContent: "今天天气很好，我去了公园。",
			CreatedAt:       time.Date(2026, time.March, 13, 21, 0, 0, 0, time.UTC),
		},
	}

	out := formatRecent(entries)
	assert.Contains(t, out, "Mar 14 - A Walk in the Park")
	assert.Contains(t, out, "The weather was lovely")
	assert.Contains(t, out, "Mar 13 - 公园散步")
	assert.Contains(t, out, "今天天气很好，我去了公园。")
}

func TestTask_Lifecycle(t *testing.T) {
	fileID := "file-123"
	task := &model.Task{
		ID:        "test-id",
		ChatID:    123,
		MessageID: 1,
		Kind:      model.EntryKindVoice,
		FileID:    &fileID,
		Status:    model.TaskStatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	task.SetInProgress()
	assert.Equal(t, model.TaskStatusInProgress, task.Status)

	task.SetCompleted()
	assert.Equal(t, model.TaskStatusDone, task.Status)
	assert.True(t, task.IsCompleted())
}

func TestTask_SetFailed(t *testing.T) {
	task := &model.Task{
		ID:        "test-id",
		Status:    model.TaskStatusInProgress,
		Attempts:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	errorMsg := "test error"
	task.SetError(errorMsg)
	task.IncrementAttempts()

	assert.Equal(t, model.TaskStatusFailed, task.Status)
	assert.NotNil(t, task.ErrorText)
	assert.Equal(t, errorMsg, *task.ErrorText)
	assert.True(t, task.CanRetry())

	task.Attempts = model.MaxTaskAttempts
	assert.False(t, task.CanRetry())
}

func TestStorageIntegration_CreateTask(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	mockStorage := new(MockStorage)
	task := &model.Task{
		ID:        "test-task-123",
		MessageID: 1,
		ChatID:    123,
		Kind:      model.EntryKindText,
		Status:    model.TaskStatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	ctx := context.Background()

	mockStorage.On("CreateTask", ctx, task).Return(nil)

	err := mockStorage.CreateTask(ctx, task)
	assert.NoError(t, err)

	mockStorage.AssertExpectations(t)
}

func TestQueueIntegration_PublishTask(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	mockQueue := new(MockQueue)
	entryTask := &queue.EntryTask{
		TaskID:    "task-123",
		ChatID:    123,
		MessageID: 1,
		Kind:      model.EntryKindText,
		Text:      "today was a good day",
		CreatedAt: time.Now(),
	}

	mockQueue.On("PublishTask", entryTask).Return(nil)

	err := mockQueue.PublishTask(entryTask)
	assert.NoError(t, err)

	mockQueue.AssertExpectations(t)
}

func TestQueueIntegration_PublishTaskError(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	mockQueue := new(MockQueue)
	entryTask := &queue.EntryTask{
		TaskID: "task-123",
	}

	expectedError := errors.New("queue connection failed")
	mockQueue.On("PublishTask", entryTask).Return(expectedError)

	err := mockQueue.PublishTask(entryTask)
	assert.Error(t, err)
	assert.Equal(t, expectedError, err)

	mockQueue.AssertExpectations(t)
}
