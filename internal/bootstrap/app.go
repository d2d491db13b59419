package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/cache"
	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/kafka"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/Domenick1991/discope/internal/service/assignment"
	"github.com/Domenick1991/discope/internal/service/booking"
	"github.com/Domenick1991/discope/internal/service/catalog"
	"github.com/Domenick1991/discope/internal/service/consumption"
	"github.com/Domenick1991/discope/internal/service/discount"
	"github.com/Domenick1991/discope/internal/service/pricing"
	"github.com/Domenick1991/discope/internal/tasks"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const publishAttempts = 3

type bookingStore interface {
	repository.BookingRepository
	repository.ConsumptionRepository
}

// App holds the engine and the infrastructure it was wired with. The HTTP server and the
// task worker share it.
type App struct {
	Pool      *pgxpool.Pool
	Cache     *cache.RedisCache
	Producer  *kafka.Producer
	Scheduler *tasks.Scheduler
	Catalog   *catalog.CatalogService
	Bookings  *booking.BookingService

	closers []func() error
	logger  *zap.Logger
}

// NewApp connects the configured storage, Redis and Kafka, then builds the booking engine.
// Redis and Kafka are optional: without them the engine runs with no cache, no assignment
// lock and no deferred recheck.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{logger: logger}

	var (
		store       bookingStore
		catalogRepo repository.CatalogRepository
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		store, catalogRepo = mem, mem
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		app.Pool = pool
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
		store, catalogRepo = repository.NewBookingRepository(pool), repository.NewCatalogRepository(pool)
	}

	var (
		unitsCache catalog.RentalUnitCache
		locker     assignment.Locker
	)
	if cfg.Redis.Addr != "" {
		app.Cache = cache.NewRedisCache(cfg.Redis)
		if err := app.Cache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, assignment locks may fail", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		app.closers = append(app.closers, app.Cache.Close)
		unitsCache, locker = app.Cache, app.Cache
	}

	if len(cfg.Kafka.Brokers) > 0 {
		app.Producer = kafka.NewProducer(cfg.Kafka.Brokers, logger.Named("kafka"))
		if err := app.Producer.CheckConnection(ctx); err != nil {
			logger.Warn("kafka unavailable, events will be retried on publish", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		app.closers = append(app.closers, app.Producer.Close)
		if app.Cache != nil && cfg.Kafka.TasksTopic != "" {
			app.Scheduler = tasks.NewScheduler(app.Cache, app.Producer, cfg.Kafka.TasksTopic, logger.Named("tasks"))
		}
	}

	app.Catalog = catalog.NewCatalogService(catalogRepo, unitsCache, cfg.Booking.RentalUnitsTTL(), logger.Named("catalog"))

	generic := make(map[domain.SojournType]int64, len(cfg.Booking.GenericCategories))
	for k, v := range cfg.Booking.GenericCategories {
		generic[domain.SojournType(k)] = v
	}
	prices := pricing.NewResolver(app.Catalog, logger.Named("pricing"))
	engine := booking.Engine{
		Prices:    prices,
		Discounts: discount.NewResolver(app.Catalog, store, prices, discount.Options{GenericCategories: generic}, logger.Named("discount")),
		Assigner: assignment.NewAssigner(app.Catalog, store, locker, store, assignment.Options{
			LockTTL:         cfg.Booking.AssignmentLockTTL(),
			MaxCombinations: cfg.Booking.MaxCombinations,
		}, logger.Named("assignment")),
		Expander: consumption.NewExpander(app.Catalog, logger.Named("consumption")),
	}

	opts := []booking.BookingServiceOption{booking.WithLogger(logger.Named("booking"))}
	if app.Producer != nil {
		opts = append(opts, booking.WithProducer(kafka.Retrying{Producer: app.Producer, Attempts: publishAttempts}, cfg.Kafka.BookingEventsTopic))
	}
	if app.Scheduler != nil {
		opts = append(opts, booking.WithScheduler(app.Scheduler, cfg.Booking.RecheckDelay()))
	}
	app.Bookings = booking.NewBookingService(store, store, app.Catalog, engine, opts...)

	return app, nil
}

// Close releases the connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", zap.Error(err))
		}
	}
}
