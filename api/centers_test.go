package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockCenterCatalog is a mock implementation of CenterCatalog
type MockCenterCatalog struct {
	mock.Mock
}

func (m *MockCenterCatalog) GetCenter(ctx context.Context, id int64) (*domain.Center, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Center), args.Error(1)
}

func (m *MockCenterCatalog) ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error) {
	args := m.Called(ctx, centerID)
	return args.Get(0).([]domain.RentalUnit), args.Error(1)
}

func (m *MockCenterCatalog) Invalidate(ctx context.Context, centerID int64) error {
	args := m.Called(ctx, centerID)
	return args.Error(0)
}

func TestCenterHandler_rentalUnits(t *testing.T) {
	mockCatalog := &MockCenterCatalog{}
	handler := NewCenterHandler(mockCatalog)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/centers/1/rental-units", nil)

	units := []domain.RentalUnit{
		{ID: 1, CenterID: 1, Name: "Chalet", Capacity: 12},
		{ID: 2, CenterID: 1, Name: "Room 1", Capacity: 2, ParentID: domain.ID(1)},
	}
	mockCatalog.On("ListRentalUnits", c.Request.Context(), int64(1)).Return(units, nil)

	handler.rentalUnits(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []domain.RentalUnit
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response, 2)
	assert.Equal(t, "Room 1", response[1].Name)

	mockCatalog.AssertExpectations(t)
}

func TestCenterHandler_get(t *testing.T) {
	mockCatalog := &MockCenterCatalog{}
	handler := NewCenterHandler(mockCatalog)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Request = httptest.NewRequest("GET", "/centers/1", nil)

	mockCatalog.On("GetCenter", c.Request.Context(), int64(1)).Return(&domain.Center{ID: 1, Name: "Les Pins"}, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Les Pins")
	mockCatalog.AssertExpectations(t)
}

func TestCenterHandler_get_NotFound(t *testing.T) {
	mockCatalog := &MockCenterCatalog{}
	handler := NewCenterHandler(mockCatalog)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	c.Request = httptest.NewRequest("GET", "/centers/2", nil)

	mockCatalog.On("GetCenter", c.Request.Context(), int64(2)).Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockCatalog.AssertExpectations(t)
}

func TestCenterHandler_invalidate(t *testing.T) {
	mockCatalog := &MockCenterCatalog{}
	handler := NewCenterHandler(mockCatalog)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.Register(router.Group("/api/centers"))

	mockCatalog.On("Invalidate", mock.Anything, int64(1)).Return(nil).Once()
	mockCatalog.On("Invalidate", mock.Anything, int64(3)).Return(errors.New("redis down")).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/centers/1/rental-units/cache", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/centers/3/rental-units/cache", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	mockCatalog.AssertExpectations(t)
}
