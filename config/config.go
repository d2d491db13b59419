package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	SSLMode        string `yaml:"ssl_mode"`
	MigrationsPath string `yaml:"migrations_path"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	TasksTopic         string   `yaml:"tasks_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	AssignmentLockTTLSeconds int `yaml:"assignment_lock_ttl_seconds"`
	RecheckDelaySeconds      int `yaml:"recheck_delay_seconds"`
	RentalUnitsCacheTTL      int `yaml:"rental_units_cache_ttl_seconds"`
	MaxCombinations          int `yaml:"max_combinations"`
	// GenericCategories maps a sojourn type (GA, GG) to its discount and autosale list category.
	GenericCategories map[string]int64 `yaml:"generic_categories"`
}

func (b BookingConfig) AssignmentLockTTL() time.Duration {
	return time.Duration(b.AssignmentLockTTLSeconds) * time.Second
}

func (b BookingConfig) RecheckDelay() time.Duration {
	return time.Duration(b.RecheckDelaySeconds) * time.Second
}

func (b BookingConfig) RentalUnitsTTL() time.Duration {
	return time.Duration(b.RentalUnitsCacheTTL) * time.Second
}

type WorkerConfig struct {
	// TaskPollSeconds is how long a task that is not due yet waits before it is retried.
	TaskPollSeconds int `yaml:"task_poll_seconds"`
}

func (w WorkerConfig) TaskPoll() time.Duration {
	return time.Duration(w.TaskPollSeconds) * time.Second
}

type LogConfig struct {
	Environment string `yaml:"environment"`
}

// LoadConfig reads the YAML file at path. Variables from a .env file next to the
// process, when present, are loaded first and ${VAR} references are expanded.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
	if c.Log.Environment == "" {
		c.Log.Environment = "development"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "migrations"
	}
	if c.Worker.TaskPollSeconds == 0 {
		c.Worker.TaskPollSeconds = 5
	}
}

func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address is required")
	}
	if c.GRPC.Address == "" {
		return errors.New("grpc.address is required")
	}
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Booking.AssignmentLockTTLSeconds <= 0 {
		return errors.New("booking.assignment_lock_ttl_seconds must be positive")
	}
	if c.Booking.RecheckDelaySeconds <= 0 {
		return errors.New("booking.recheck_delay_seconds must be positive")
	}
	if c.Booking.RentalUnitsCacheTTL <= 0 {
		return errors.New("booking.rental_units_cache_ttl_seconds must be positive")
	}
	for sojournType := range c.Booking.GenericCategories {
		if sojournType != "GA" && sojournType != "GG" {
			return fmt.Errorf("unknown sojourn type %q in booking.generic_categories", sojournType)
		}
	}
	return nil
}
