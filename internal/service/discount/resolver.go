// Package discount matches discount and autosale lists against a sojourn and turns the
// matching rules into price adapters or extra lines.
package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/Domenick1991/discope/internal/service/pricing"
	"github.com/Domenick1991/discope/internal/service/rules"
	"go.uber.org/zap"
)

// BookingCounter counts the past bookings of a customer.
type BookingCounter interface {
	CountCustomerBookings(ctx context.Context, customerID int64, from, to time.Time) (int, error)
}

type Options struct {
	// GenericCategories maps each sojourn type to its list category (GA, GG).
	GenericCategories map[domain.SojournType]int64
}

type Resolver struct {
	catalog repository.CatalogRepository
	counter BookingCounter
	prices  *pricing.Resolver
	opts    Options
	logger  *zap.Logger
}

func NewResolver(catalog repository.CatalogRepository, counter BookingCounter, prices *pricing.Resolver, opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, counter: counter, prices: prices, opts: opts, logger: logger}
}

// ListCategory substitutes the sojourn type category when the center points at the
// other generic category.
func (r *Resolver) ListCategory(base int64, sojournType domain.SojournType) int64 {
	own, ok := r.opts.GenericCategories[sojournType]
	if !ok || own == base {
		return base
	}
	for _, generic := range r.opts.GenericCategories {
		if generic == base {
			return own
		}
	}
	return base
}

// Scope carries the headcount figures operands are built from.
type Scope struct {
	CustomerID int64
	Date       time.Time
	NbPers     int
	NbNights   int
	NbChildren int
	CategoryID int64
}

func GroupScope(booking *domain.Booking, group *domain.Group, categoryID int64) Scope {
	return Scope{
		CustomerID: booking.CustomerID,
		Date:       group.DateFrom,
		NbPers:     group.NbPers,
		NbNights:   group.NbNights(),
		NbChildren: group.NbChildren,
		CategoryID: categoryID,
	}
}

func BookingScope(booking *domain.Booking, categoryID int64) Scope {
	s := Scope{
		CustomerID: booking.CustomerID,
		Date:       booking.DateFrom,
		NbNights:   booking.NbNights(),
		CategoryID: categoryID,
	}
	for _, g := range booking.Groups {
		if g.IsAutosale {
			continue
		}
		s.NbPers += g.NbPers
		s.NbChildren += g.NbChildren
	}
	return s
}

// Operands builds the values discount and autosale conditions refer to.
func (r *Resolver) Operands(ctx context.Context, s Scope) (rules.Operands, error) {
	ops := rules.Operands{
		"nb_pers":     rules.Int(s.NbPers),
		"nb_nights":   rules.Int(s.NbNights),
		"nb_children": rules.Int(s.NbChildren),
		"nb_adults":   rules.Int(s.NbPers - s.NbChildren),
	}

	for months, name := range map[int]string{24: "count_booking_24", 12: "count_booking_12"} {
		n, err := r.counter.CountCustomerBookings(ctx, s.CustomerID, s.Date.AddDate(0, -months, 0), s.Date)
		if err != nil {
			return nil, fmt.Errorf("count bookings: %w", err)
		}
		ops[name] = rules.Int(n)
	}

	season, err := r.catalog.FindSeasonPeriod(ctx, s.CategoryID, s.Date)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		r.logger.Debug("no season period", zap.Int64("category_id", s.CategoryID), zap.Time("date", s.Date))
	case err != nil:
		return nil, fmt.Errorf("find season: %w", err)
	default:
		ops["season"] = rules.Int64(season.SeasonTypeID)
	}
	return ops, nil
}
