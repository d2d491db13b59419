package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock структуры

type MockCatalogRepository struct {
	mock.Mock
	repository.CatalogRepository
}

func (m *MockCatalogRepository) ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error) {
	args := m.Called(ctx, centerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RentalUnit), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error) {
	args := m.Called(ctx, centerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RentalUnit), args.Error(1)
}

func (m *MockCache) SetRentalUnits(ctx context.Context, centerID int64, units []domain.RentalUnit, ttl time.Duration) error {
	args := m.Called(ctx, centerID, units, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidateRentalUnits(ctx context.Context, centerID int64) error {
	args := m.Called(ctx, centerID)
	return args.Error(0)
}

var units = []domain.RentalUnit{
	{ID: 1, CenterID: 1, Name: "Chalet", Capacity: 12, IsAccomodation: true},
	{ID: 2, CenterID: 1, Name: "Chambre 1", Capacity: 2, IsAccomodation: true, ParentID: domain.ID(1)},
}

// Тест 1: Кэш пустой - читаем из репозитория и кладём в кэш
func TestCatalogService_ListRentalUnits_CacheMiss(t *testing.T) {
	mockRepo := &MockCatalogRepository{}
	mockCache := &MockCache{}
	service := NewCatalogService(mockRepo, mockCache, time.Minute, nil)
	ctx := context.Background()

	// Настройка моков
	mockCache.On("GetRentalUnits", ctx, int64(1)).Return(nil, nil).Once()
	mockRepo.On("ListRentalUnits", ctx, int64(1)).Return(units, nil).Once()
	mockCache.On("SetRentalUnits", ctx, int64(1), units, time.Minute).Return(nil).Once()

	// Выполнение
	result, err := service.ListRentalUnits(ctx, 1)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, units, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

// Тест 2: Кэш заполнен - репозиторий не вызывается
func TestCatalogService_ListRentalUnits_CacheHit(t *testing.T) {
	mockRepo := &MockCatalogRepository{}
	mockCache := &MockCache{}
	service := NewCatalogService(mockRepo, mockCache, time.Minute, nil)
	ctx := context.Background()

	mockCache.On("GetRentalUnits", ctx, int64(1)).Return(units, nil).Once()

	result, err := service.ListRentalUnits(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, units, result)
	mockRepo.AssertNotCalled(t, "ListRentalUnits", mock.Anything, mock.Anything)
	mockCache.AssertNotCalled(t, "SetRentalUnits", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Тест 3: Ошибка кэша не мешает чтению из репозитория
func TestCatalogService_ListRentalUnits_CacheError(t *testing.T) {
	mockRepo := &MockCatalogRepository{}
	mockCache := &MockCache{}
	service := NewCatalogService(mockRepo, mockCache, time.Minute, nil)
	ctx := context.Background()

	mockCache.On("GetRentalUnits", ctx, int64(1)).Return(nil, errors.New("redis down")).Once()
	mockRepo.On("ListRentalUnits", ctx, int64(1)).Return(units, nil).Once()
	mockCache.On("SetRentalUnits", ctx, int64(1), units, time.Minute).Return(errors.New("redis down")).Once()

	result, err := service.ListRentalUnits(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, units, result)
	mockCache.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

// Тест 4: Ошибка репозитория пробрасывается, в кэш ничего не пишется
func TestCatalogService_ListRentalUnits_RepositoryError(t *testing.T) {
	mockRepo := &MockCatalogRepository{}
	mockCache := &MockCache{}
	service := NewCatalogService(mockRepo, mockCache, time.Minute, nil)
	ctx := context.Background()

	expectedErr := errors.New("database error")
	mockCache.On("GetRentalUnits", ctx, int64(1)).Return(nil, nil).Once()
	mockRepo.On("ListRentalUnits", ctx, int64(1)).Return(nil, expectedErr).Once()

	result, err := service.ListRentalUnits(ctx, 1)

	assert.Nil(t, result)
	assert.Equal(t, expectedErr, err)
	mockCache.AssertNotCalled(t, "SetRentalUnits", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Тест 5: Без кэша работает только репозиторий
func TestCatalogService_NoCache(t *testing.T) {
	mockRepo := &MockCatalogRepository{}
	service := NewCatalogService(mockRepo, nil, time.Minute, nil)
	ctx := context.Background()

	mockRepo.On("ListRentalUnits", ctx, int64(1)).Return(units, nil).Once()

	result, err := service.ListRentalUnits(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, units, result)
	assert.NoError(t, service.Invalidate(ctx, 1))
	mockRepo.AssertExpectations(t)
}

// Тест 6: Остальные справочники читаются напрямую
func TestCatalogService_ReadThrough(t *testing.T) {
	store := repository.NewMemoryStore()
	store.PutCenter(domain.Center{ID: 1, Name: "Villers"})
	store.PutRentalUnit(units[0])
	mockCache := &MockCache{}
	service := NewCatalogService(store, mockCache, time.Minute, nil)
	ctx := context.Background()

	center, err := service.GetCenter(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Villers", center.Name)

	_, err = service.GetProduct(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mockCache.On("InvalidateRentalUnits", ctx, int64(1)).Return(nil).Once()
	require.NoError(t, service.Invalidate(ctx, 1))
	mockCache.AssertExpectations(t)
}
