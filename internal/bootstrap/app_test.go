package bootstrap

import (
	"context"
	"testing"

	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		Booking: config.BookingConfig{
			AssignmentLockTTLSeconds: 10,
			RecheckDelaySeconds:      300,
			RentalUnitsCacheTTL:      60,
			GenericCategories:        map[string]int64{"GA": 1, "GG": 2},
		},
	}
}

// Тест 1: Движок на памяти без Redis и Kafka
func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Pool)
	assert.Nil(t, app.Cache)
	assert.Nil(t, app.Producer)
	assert.Nil(t, app.Scheduler)
	require.NotNil(t, app.Bookings)
	require.NotNil(t, app.Catalog)

	_, err = app.Bookings.GetBooking(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Тест 2: Планировщик появляется только при наличии Redis и топика задач
func TestNewApp_Scheduler(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}
	cfg.Kafka.TasksTopic = "booking_tasks"

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Cache)
	assert.NotNil(t, app.Producer)
	assert.NotNil(t, app.Scheduler)
}
