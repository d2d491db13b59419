package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/kafka"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/Domenick1991/discope/internal/service/assignment"
	"github.com/Domenick1991/discope/internal/service/consumption"
	"github.com/Domenick1991/discope/internal/service/discount"
	"github.com/Domenick1991/discope/internal/service/pricing"
	"go.uber.org/zap"
)

const daySeconds = 24 * 60 * 60

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, bookingID int64, input UpdateBookingInput) (*domain.Booking, error)
	CreateGroup(ctx context.Context, bookingID int64, input CreateGroupInput) (*domain.Booking, error)
	UpdateGroup(ctx context.Context, bookingID, groupID int64, input UpdateGroupInput) (*domain.Booking, error)
	DeleteGroup(ctx context.Context, bookingID, groupID int64) (*domain.Booking, error)
	AddLine(ctx context.Context, bookingID, groupID int64, input AddLineInput) (*domain.Booking, error)
	UpdateLine(ctx context.Context, bookingID, lineID int64, input UpdateLineInput) (*domain.Booking, error)
	DeleteLine(ctx context.Context, bookingID, lineID int64) (*domain.Booking, error)
	CreateAdapter(ctx context.Context, bookingID, groupID int64, input AdapterInput) (*domain.Booking, error)
	UpdateAdapter(ctx context.Context, bookingID, adapterID int64, input UpdateAdapterInput) (*domain.Booking, error)
	RegenerateConsumptions(ctx context.Context, bookingID int64) (*domain.Booking, error)
	ListConsumptions(ctx context.Context, bookingID int64) ([]domain.Consumption, error)
	UpdateStatusFromFundings(ctx context.Context, bookingID int64, input FundingsInput) (*domain.Booking, error)
	RecheckRentalUnits(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

type Catalog interface {
	GetCenter(ctx context.Context, id int64) (*domain.Center, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductModel(ctx context.Context, id int64) (*domain.ProductModel, error)
	GetAgeRange(ctx context.Context, id int64) (*domain.AgeRange, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Scheduler defers a task. Scheduling a key that is already pending returns false.
type Scheduler interface {
	Schedule(ctx context.Context, task kafka.TaskMessage) (bool, error)
}

// Engine groups the resolvers a cascade runs.
type Engine struct {
	Prices    *pricing.Resolver
	Discounts *discount.Resolver
	Assigner  *assignment.Assigner
	Expander  *consumption.Expander
}

type BookingService struct {
	bookings     repository.BookingRepository
	consumptions repository.ConsumptionRepository
	catalog      Catalog
	prices       *pricing.Resolver
	discounts    *discount.Resolver
	assigner     *assignment.Assigner
	expander     *consumption.Expander
	producer     Producer
	eventsTopic  string
	scheduler    Scheduler
	recheckDelay time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithProducer(producer Producer, topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

// WithScheduler enables the deferred rental unit recheck after an assignment shortfall.
func WithScheduler(scheduler Scheduler, delay time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.scheduler = scheduler
		s.recheckDelay = delay
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	consumptions repository.ConsumptionRepository,
	catalog Catalog,
	engine Engine,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		consumptions: consumptions,
		catalog:      catalog,
		prices:       engine.Prices,
		discounts:    engine.Discounts,
		assigner:     engine.Assigner,
		expander:     engine.Expander,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.CustomerID <= 0 {
		return nil, domain.NewValidationError("customer_id", domain.ReasonInvalidValue)
	}
	if _, err := s.catalog.GetCenter(ctx, input.CenterID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("center_id", domain.ReasonInvalidValue)
		}
		return nil, fmt.Errorf("get center %d: %w", input.CenterID, err)
	}
	id, err := s.bookings.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("next id: %w", err)
	}
	booking := &domain.Booking{
		ID:               id,
		CustomerID:       input.CustomerID,
		CenterID:         input.CenterID,
		Status:           domain.BookingStatusQuote,
		Description:      input.Description,
		PaymentReference: input.PaymentReference,
	}
	if err := s.bookings.Save(ctx, booking, nil); err != nil {
		return nil, fmt.Errorf("save booking: %w", err)
	}
	s.logger.Info("booking created", zap.Int64("booking_id", booking.ID), zap.Int64("center_id", booking.CenterID))
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.bookings.Get(ctx, bookingID)
}

func (s *BookingService) ListConsumptions(ctx context.Context, bookingID int64) ([]domain.Consumption, error) {
	if _, err := s.bookings.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.consumptions.ListByBooking(ctx, bookingID)
}

func (s *BookingService) UpdateBooking(ctx context.Context, bookingID int64, input UpdateBookingInput) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "update_booking", func(b *domain.Booking, p *plan) error {
		if err := checkBookingUpdate(b, input); err != nil {
			return err
		}
		if input.CenterID != nil && *input.CenterID != b.CenterID {
			if _, err := s.catalog.GetCenter(ctx, *input.CenterID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.NewValidationError("center_id", domain.ReasonInvalidValue)
				}
				return fmt.Errorf("get center %d: %w", *input.CenterID, err)
			}
			b.CenterID = *input.CenterID
			for _, g := range b.Groups {
				p.groupChanged(g.ID)
			}
		}
		if input.CustomerID != nil && *input.CustomerID != b.CustomerID {
			b.CustomerID = *input.CustomerID
			// customer history feeds the discount conditions
			for _, g := range b.Groups {
				p.pricingChanged(g.ID)
			}
		}
		if input.Description != nil {
			b.Description = *input.Description
		}
		if input.PaymentReference != nil {
			b.PaymentReference = *input.PaymentReference
		}
		return nil
	})
}

func (s *BookingService) RegenerateConsumptions(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "regenerate_consumptions", func(b *domain.Booking, p *plan) error {
		if b.Status == domain.BookingStatusCancelled {
			return notAllowed("status")
		}
		p.regenerateAll()
		return nil
	})
}

// RecheckRentalUnits retries the assignment of groups left short of rental units.
func (s *BookingService) RecheckRentalUnits(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, "recheck_rental_units", func(b *domain.Booking, p *plan) error {
		for _, g := range b.Groups {
			if g.AssignmentShortfall > 0 {
				p.group(g.ID, stepAssignment)
			}
		}
		return nil
	})
}

// mutate loads the booking, applies a trigger, runs the cascade it planned and saves the
// aggregate once. Nothing is persisted when any of it fails. The assignment lock taken
// by the cascade is held until the save returned.
func (s *BookingService) mutate(ctx context.Context, bookingID int64, trigger string, apply func(*domain.Booking, *plan) error) (*domain.Booking, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	previous := booking.Status

	p := newPlan()
	if err := apply(booking, p); err != nil {
		s.rejected(trigger, booking, err)
		return nil, err
	}

	c := &cascade{BookingService: s, booking: booking, plan: p}
	defer c.release()
	if err := c.run(ctx); err != nil {
		s.rejected(trigger, booking, err)
		return nil, err
	}
	set, err := c.consumptionSet(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.bookings.Save(ctx, booking, set); err != nil {
		return nil, fmt.Errorf("save booking %d: %w", booking.ID, err)
	}

	if c.recheck {
		s.scheduleRecheck(ctx, booking.ID)
	}
	if booking.Status != previous {
		event := kafka.NewBookingEvent(kafka.EventStatusChanged, booking)
		event.PreviousStatus = string(previous)
		if err := s.publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Int64("booking_id", booking.ID), zap.Error(err))
		}
	}
	if set != nil {
		event := kafka.NewBookingEvent(kafka.EventConsumptionsRegenerated, booking)
		event.Consumptions = len(set.Items)
		if err := s.publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", event.Type), zap.Int64("booking_id", booking.ID), zap.Error(err))
		}
	}
	return booking, nil
}

func (s *BookingService) rejected(trigger string, booking *domain.Booking, err error) {
	if verr, ok := domain.AsValidationError(err); ok {
		s.logger.Info("update rejected",
			zap.String("trigger", trigger),
			zap.Int64("booking_id", booking.ID),
			zap.Any("reasons", map[string]string(verr)),
		)
		return
	}
	s.logger.Warn("update failed", zap.String("trigger", trigger), zap.Int64("booking_id", booking.ID), zap.Error(err))
}

func (s *BookingService) scheduleRecheck(ctx context.Context, bookingID int64) {
	if s.scheduler == nil {
		return
	}
	task := kafka.NewAssignUnitsTask(bookingID, s.now().Add(s.recheckDelay))
	scheduled, err := s.scheduler.Schedule(ctx, task)
	if err != nil {
		s.logger.Error("failed to schedule rental units recheck", zap.Int64("booking_id", bookingID), zap.Error(err))
		return
	}
	s.logger.Info("rental units recheck",
		zap.Int64("booking_id", bookingID),
		zap.String("key", task.Key),
		zap.Bool("scheduled", scheduled),
	)
}

func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) error {
	if s.producer == nil || s.eventsTopic == "" {
		return nil
	}
	return s.producer.Publish(ctx, s.eventsTopic, strconv.FormatInt(event.BookingID, 10), event)
}

var _ BookingUseCase = (*BookingService)(nil)
