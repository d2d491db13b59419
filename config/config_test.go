package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
http:
  address: ":8080"
grpc:
  address: ":9090"
database:
  host: "${TEST_DB_HOST}"
  port: 5432
  user: "discope"
  password: "secret"
  name: "discope"
  ssl_mode: "disable"
kafka:
  brokers: ["localhost:9092"]
  booking_events_topic: "booking_events"
  tasks_topic: "booking_tasks"
booking:
  assignment_lock_ttl_seconds: 10
  recheck_delay_seconds: 300
  rental_units_cache_ttl_seconds: 60
  generic_categories:
    GA: 1
    GG: 2
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")

	cfg, err := LoadConfig(writeConfig(t, sample))

	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "host=db.internal port=5432 user=discope password=secret dbname=discope sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "development", cfg.Log.Environment)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
	assert.Equal(t, 10*time.Second, cfg.Booking.AssignmentLockTTL())
	assert.Equal(t, 5*time.Minute, cfg.Booking.RecheckDelay())
	assert.Equal(t, time.Minute, cfg.Booking.RentalUnitsTTL())
	assert.Equal(t, 5*time.Second, cfg.Worker.TaskPoll())
	assert.Equal(t, map[string]int64{"GA": 1, "GG": 2}, cfg.Booking.GenericCategories)
}

func TestLoadConfig_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"Missing http address", `grpc: {address: ":9090"}`},
		{"Unknown storage driver", sample + "storage: {driver: sqlite}\n"},
		{"Bad yaml", "http: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:    HTTPConfig{Address: ":8080"},
			GRPC:    GRPCConfig{Address: ":9090"},
			Storage: StorageConfig{Driver: StorageDriverMemory},
			Booking: BookingConfig{AssignmentLockTTLSeconds: 1, RecheckDelaySeconds: 1, RentalUnitsCacheTTL: 1},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Booking.RecheckDelaySeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Booking.GenericCategories = map[string]int64{"GX": 3}
	assert.Error(t, cfg.Validate())
}
