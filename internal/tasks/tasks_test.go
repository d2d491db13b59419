package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/kafka"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock структуры

type MockClaimer struct {
	mock.Mock
}

func (m *MockClaimer) ClaimTask(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimer) ReleaseTask(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	args := m.Called(ctx, topic, key, payload)
	return args.Error(0)
}

type MockRechecker struct {
	mock.Mock
}

func (m *MockRechecker) RecheckRentalUnits(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

const topic = "booking_tasks"

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// Тест 1: Первая постановка задачи публикует её в топик
func TestScheduler_Schedule_Published(t *testing.T) {
	mockClaims := &MockClaimer{}
	mockProducer := &MockProducer{}
	scheduler := NewScheduler(mockClaims, mockProducer, topic, nil)
	scheduler.now = func() time.Time { return now }
	ctx := context.Background()
	task := kafka.NewAssignUnitsTask(42, now.Add(5*time.Minute))

	// Настройка моков
	mockClaims.On("ClaimTask", ctx, "booking.assign.units.42", 6*time.Minute).Return(true, nil).Once()
	mockProducer.On("Publish", ctx, topic, "booking.assign.units.42", task).Return(nil).Once()

	// Выполнение
	scheduled, err := scheduler.Schedule(ctx, task)

	// Проверки
	require.NoError(t, err)
	assert.True(t, scheduled)
	mockClaims.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

// Тест 2: Повторная постановка того же ключа ничего не публикует
func TestScheduler_Schedule_Coalesced(t *testing.T) {
	mockClaims := &MockClaimer{}
	mockProducer := &MockProducer{}
	scheduler := NewScheduler(mockClaims, mockProducer, topic, nil)
	ctx := context.Background()

	mockClaims.On("ClaimTask", ctx, "booking.assign.units.42", mock.Anything).Return(false, nil).Once()

	scheduled, err := scheduler.Schedule(ctx, kafka.NewAssignUnitsTask(42, time.Now()))

	require.NoError(t, err)
	assert.False(t, scheduled)
	mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Тест 3: Ошибка публикации освобождает ключ
func TestScheduler_Schedule_PublishError(t *testing.T) {
	mockClaims := &MockClaimer{}
	mockProducer := &MockProducer{}
	scheduler := NewScheduler(mockClaims, mockProducer, topic, nil)
	ctx := context.Background()

	mockClaims.On("ClaimTask", ctx, "booking.assign.units.42", mock.Anything).Return(true, nil).Once()
	mockProducer.On("Publish", ctx, topic, "booking.assign.units.42", mock.Anything).Return(errors.New("broker down")).Once()
	mockClaims.On("ReleaseTask", mock.Anything, "booking.assign.units.42").Return(nil).Once()

	scheduled, err := scheduler.Schedule(ctx, kafka.NewAssignUnitsTask(42, time.Now()))

	assert.Error(t, err)
	assert.False(t, scheduled)
	mockClaims.AssertExpectations(t)
}

// Тест 4: Просроченная задача выполняется сразу
func TestRunner_Run_Due(t *testing.T) {
	mockClaims := &MockClaimer{}
	mockRechecker := &MockRechecker{}
	runner := NewRunner(mockClaims, &MockProducer{}, topic, time.Second, nil)
	runner.now = func() time.Time { return now }
	runner.Register(kafka.TaskAssignUnits, AssignUnits(mockRechecker))
	ctx := context.Background()

	mockClaims.On("ReleaseTask", ctx, "booking.assign.units.42").Return(nil).Once()
	mockRechecker.On("RecheckRentalUnits", ctx, int64(42)).Return(&domain.Booking{ID: 42}, nil).Once()

	err := runner.Run(ctx, kafka.NewAssignUnitsTask(42, now.Add(-time.Minute)))

	require.NoError(t, err)
	mockClaims.AssertExpectations(t)
	mockRechecker.AssertExpectations(t)
}

// Тест 5: Задача на будущее возвращается в топик после ожидания
func TestRunner_Run_NotDue(t *testing.T) {
	mockProducer := &MockProducer{}
	mockRechecker := &MockRechecker{}
	runner := NewRunner(&MockClaimer{}, mockProducer, topic, time.Millisecond, nil)
	runner.now = func() time.Time { return now }
	runner.Register(kafka.TaskAssignUnits, AssignUnits(mockRechecker))
	ctx := context.Background()
	task := kafka.NewAssignUnitsTask(42, now.Add(time.Hour))

	mockProducer.On("Publish", ctx, topic, task.Key, task).Return(nil).Once()

	err := runner.Run(ctx, task)

	require.NoError(t, err)
	mockProducer.AssertExpectations(t)
	mockRechecker.AssertNotCalled(t, "RecheckRentalUnits", mock.Anything, mock.Anything)
}

// Тест 6: Занятая блокировка откладывает задачу
func TestRunner_Run_LockedIsPostponed(t *testing.T) {
	mockClaims := &MockClaimer{}
	mockProducer := &MockProducer{}
	mockRechecker := &MockRechecker{}
	runner := NewRunner(mockClaims, mockProducer, topic, time.Second, nil)
	runner.now = func() time.Time { return now }
	runner.Register(kafka.TaskAssignUnits, AssignUnits(mockRechecker))
	ctx := context.Background()

	mockClaims.On("ReleaseTask", ctx, mock.Anything).Return(nil).Once()
	mockClaims.On("ClaimTask", ctx, "booking.assign.units.42", time.Second+claimMargin).Return(true, nil).Once()
	mockRechecker.On("RecheckRentalUnits", ctx, int64(42)).Return(nil, fmt.Errorf("center 1: %w", domain.ErrLocked)).Once()
	mockProducer.On("Publish", ctx, topic, "booking.assign.units.42", mock.MatchedBy(func(task kafka.TaskMessage) bool {
		return task.RunAt.Equal(now.Add(time.Second))
	})).Return(nil).Once()

	err := runner.Run(ctx, kafka.NewAssignUnitsTask(42, now))

	require.NoError(t, err)
	mockProducer.AssertExpectations(t)
	mockClaims.AssertExpectations(t)
}

// Тест 6b: Если ключ уже заявлен новой задачей, отложенная не публикуется
func TestRunner_Run_LockedMergesIntoPendingTask(t *testing.T) {
	mockClaims := &MockClaimer{}
	mockProducer := &MockProducer{}
	mockRechecker := &MockRechecker{}
	runner := NewRunner(mockClaims, mockProducer, topic, time.Second, nil)
	runner.now = func() time.Time { return now }
	runner.Register(kafka.TaskAssignUnits, AssignUnits(mockRechecker))
	ctx := context.Background()

	mockClaims.On("ReleaseTask", ctx, mock.Anything).Return(nil).Once()
	mockClaims.On("ClaimTask", ctx, "booking.assign.units.42", mock.Anything).Return(false, nil).Once()
	mockRechecker.On("RecheckRentalUnits", ctx, int64(42)).Return(nil, domain.ErrLocked).Once()

	err := runner.Run(ctx, kafka.NewAssignUnitsTask(42, now))

	require.NoError(t, err)
	mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// memoryClaims keeps claims in a map, ignoring their TTL.
type memoryClaims map[string]bool

func (m memoryClaims) ClaimTask(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m[key] {
		return false, nil
	}
	m[key] = true
	return true, nil
}

func (m memoryClaims) ReleaseTask(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

// Тест 6c: Пока отложенная задача ждёт в топике, повторная постановка объединяется с ней
func TestScheduler_CoalescesWithPostponedTask(t *testing.T) {
	claims := memoryClaims{}
	mockProducer := &MockProducer{}
	mockRechecker := &MockRechecker{}
	ctx := context.Background()

	scheduler := NewScheduler(claims, mockProducer, topic, nil)
	scheduler.now = func() time.Time { return now }
	runner := NewRunner(claims, mockProducer, topic, time.Second, nil)
	runner.now = func() time.Time { return now }
	runner.Register(kafka.TaskAssignUnits, AssignUnits(mockRechecker))

	mockProducer.On("Publish", ctx, topic, "booking.assign.units.42", mock.Anything).Return(nil)
	mockRechecker.On("RecheckRentalUnits", ctx, int64(42)).Return(nil, domain.ErrLocked).Once()

	published, err := scheduler.Schedule(ctx, kafka.NewAssignUnitsTask(42, now))
	require.NoError(t, err)
	require.True(t, published)

	require.NoError(t, runner.Run(ctx, kafka.NewAssignUnitsTask(42, now)))

	published, err = scheduler.Schedule(ctx, kafka.NewAssignUnitsTask(42, now))
	require.NoError(t, err)

	// Проверки
	assert.False(t, published)
	mockProducer.AssertNumberOfCalls(t, "Publish", 2)
}

// Тест 7: Неизвестный обработчик и битые сообщения пропускаются
func TestRunner_HandleMessage(t *testing.T) {
	runner := NewRunner(&MockClaimer{}, &MockProducer{}, topic, time.Second, nil)
	ctx := context.Background()

	assert.NoError(t, runner.HandleMessage(ctx, kafkaGo.Message{Value: []byte("{not json")}))

	payload, err := json.Marshal(kafka.TaskMessage{Key: "x", Handler: "unknown"})
	require.NoError(t, err)
	assert.NoError(t, runner.HandleMessage(ctx, kafkaGo.Message{Value: payload}))

	assert.Error(t, runner.Run(ctx, kafka.TaskMessage{Key: "x", Handler: "unknown"}))
}

// Тест 8: Отменённый контекст останавливает потребителя
func TestRunner_HandleMessage_Cancelled(t *testing.T) {
	runner := NewRunner(&MockClaimer{}, &MockProducer{}, topic, time.Hour, nil)
	runner.Register(kafka.TaskAssignUnits, AssignUnits(&MockRechecker{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload, err := json.Marshal(kafka.NewAssignUnitsTask(42, time.Now().Add(time.Minute)))
	require.NoError(t, err)

	err = runner.HandleMessage(ctx, kafkaGo.Message{Value: payload})
	assert.ErrorIs(t, err, context.Canceled)
}
