// Package consumption expands groups into the day level records used by the planning.
package consumption

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/assignment"
	"github.com/Domenick1991/discope/internal/service/quantity"
	"go.uber.org/zap"
)

const daySeconds = 24 * 60 * 60

type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductModel(ctx context.Context, id int64) (*domain.ProductModel, error)
	GetAgeRange(ctx context.Context, id int64) (*domain.AgeRange, error)
	ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error)
}

type Expander struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewExpander(catalog Catalog, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{catalog: catalog, logger: logger}
}

// Booking expands every group of the booking.
func (e *Expander) Booking(ctx context.Context, booking *domain.Booking) ([]domain.Consumption, error) {
	units, err := e.catalog.ListRentalUnits(ctx, booking.CenterID)
	if err != nil {
		return nil, fmt.Errorf("list rental units: %w", err)
	}
	h := assignment.NewHierarchy(units)

	var out []domain.Consumption
	for _, g := range booking.Groups {
		items, err := e.group(ctx, booking, g, h)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// Group expands a single group.
func (e *Expander) Group(ctx context.Context, booking *domain.Booking, group *domain.Group) ([]domain.Consumption, error) {
	units, err := e.catalog.ListRentalUnits(ctx, booking.CenterID)
	if err != nil {
		return nil, fmt.Errorf("list rental units: %w", err)
	}
	return e.group(ctx, booking, group, assignment.NewHierarchy(units))
}

func (e *Expander) group(ctx context.Context, booking *domain.Booking, group *domain.Group, h *assignment.Hierarchy) ([]domain.Consumption, error) {
	x := expansion{booking: booking, group: group, h: h, seen: make(map[blockKey]bool)}

	for _, spm := range group.SPMs {
		model, err := e.catalog.GetProductModel(ctx, spm.ProductModelID)
		if err != nil {
			return nil, fmt.Errorf("get product model %d: %w", spm.ProductModelID, err)
		}
		line := lineFor(group, spm.ProductModelID)
		for _, spma := range spm.Assignments {
			x.rentalUnit(model, line, spma)
		}
	}

	for _, line := range group.Lines {
		model, err := e.catalog.GetProductModel(ctx, line.ProductModelID)
		if err != nil {
			e.logger.Warn("consumption skipped for unknown product model",
				zap.Int64("line_id", line.ID), zap.Int64("product_model_id", line.ProductModelID), zap.Error(err))
			continue
		}
		if model.IsRentalUnit || !(model.IsSchedulable || model.IsMeal) {
			continue
		}
		product, err := e.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product %d: %w", line.ProductID, err)
		}
		description := ""
		if model.IsMeal {
			description = e.mealDescription(ctx, group)
		}
		x.schedulable(model, product, line, description)
	}

	sort.SliceStable(x.out, func(i, j int) bool {
		if !x.out[i].Date.Equal(x.out[j].Date) {
			return x.out[i].Date.Before(x.out[j].Date)
		}
		return x.out[i].ScheduleFrom < x.out[j].ScheduleFrom
	})
	return x.out, nil
}

type blockKey struct {
	date time.Time
	unit int64
	typ  domain.ConsumptionType
}

type expansion struct {
	booking *domain.Booking
	group   *domain.Group
	h       *assignment.Hierarchy
	seen    map[blockKey]bool
	out     []domain.Consumption
}

func (x *expansion) offset(model *domain.ProductModel) int {
	if x.group.IsSojourn {
		return model.ScheduleOffset
	}
	return 0
}

// rentalUnit holds the unit from arrival until the checkout morning.
func (x *expansion) rentalUnit(model *domain.ProductModel, line *domain.Line, spma *domain.SPMA) {
	days := x.group.NbNights() + 1
	checkout := x.group.TimeTo
	if checkout <= 0 {
		checkout = daySeconds
	}
	offset := x.offset(model)

	for i := 0; i < days; i++ {
		from, to := x.group.TimeFrom, checkout
		if to <= from {
			from, to = 0, daySeconds
		}
		if model.IsAccomodation {
			from, to = 0, daySeconds
			if i == 0 {
				from = x.group.TimeFrom
			}
			if i == days-1 {
				to = checkout
			}
		}
		date := x.group.DateFrom.AddDate(0, 0, i+offset)

		book := x.base(date, from, to, line)
		book.RentalUnitID = domain.ID(spma.RentalUnitID)
		book.Qty = spma.Qty
		book.Type = domain.ConsumptionTypeBook
		book.IsAccomodation = spma.IsAccomodation
		x.out = append(x.out, book)

		for _, id := range x.h.Descendants(spma.RentalUnitID) {
			x.block(book, id, domain.ConsumptionTypeLink)
		}
		for _, id := range x.h.Ascendants(spma.RentalUnitID) {
			typ := domain.ConsumptionTypeLink
			if u, ok := x.h.Unit(id); ok && u.CanPartialRent {
				typ = domain.ConsumptionTypePart
			}
			x.block(book, id, typ)
		}
	}
}

func (x *expansion) block(book domain.Consumption, unitID int64, typ domain.ConsumptionType) {
	key := blockKey{date: book.Date, unit: unitID, typ: typ}
	if x.seen[key] {
		return
	}
	x.seen[key] = true
	c := book
	c.RentalUnitID = domain.ID(unitID)
	c.Type = typ
	c.Qty = 1
	x.out = append(x.out, c)
}

// schedulable spreads a line over its repetitions, honouring day variations.
func (x *expansion) schedulable(model *domain.ProductModel, product *domain.Product, line *domain.Line, description string) {
	nbProducts := quantity.NbRepeat(product, x.group)
	if nbProducts <= 0 {
		return
	}
	nbTimes := 1
	if model.QtyAccountingMethod == domain.QtyAccountingPerson {
		nbTimes = quantity.Occupancy(product, x.group)
	}

	daily := make([]int, nbProducts)
	for i := range daily {
		daily[i] = nbTimes
	}
	if nbTimes*nbProducts != line.Qty {
		if len(line.QtyVars) == nbProducts {
			for i := range daily {
				daily[i] = max(0, nbTimes+line.QtyVars[i])
			}
		} else {
			base, rest := line.Qty/nbProducts, line.Qty%nbProducts
			for i := range daily {
				daily[i] = base
				if i < rest {
					daily[i]++
				}
			}
		}
	}

	from, to := model.ScheduleFrom, model.ScheduleTo
	if to <= from {
		from, to = 0, daySeconds
	}
	offset := x.offset(model)
	for i, qty := range daily {
		if qty == 0 {
			continue
		}
		c := x.base(x.group.DateFrom.AddDate(0, 0, i+offset), from, to, line)
		c.Qty = qty
		c.Type = domain.ConsumptionTypeBook
		c.IsMeal = model.IsMeal
		c.Description = description
		x.out = append(x.out, c)
	}
}

func (x *expansion) base(date time.Time, from, to int, line *domain.Line) domain.Consumption {
	c := domain.Consumption{
		BookingID:    x.booking.ID,
		GroupID:      x.group.ID,
		CenterID:     x.booking.CenterID,
		Date:         date,
		ScheduleFrom: from,
		ScheduleTo:   to,
	}
	if line != nil {
		c.LineID = domain.ID(line.ID)
		c.ProductID = domain.ID(line.ProductID)
	}
	return c
}

func lineFor(group *domain.Group, productModelID int64) *domain.Line {
	for _, l := range group.Lines {
		if l.ProductModelID == productModelID {
			return l
		}
	}
	return nil
}

// mealDescription lists the age range breakdown and the meal preferences of a group.
func (e *Expander) mealDescription(ctx context.Context, group *domain.Group) string {
	var parts []string
	for _, a := range group.AgeRanges {
		name := fmt.Sprintf("#%d", a.AgeRangeID)
		if ar, err := e.catalog.GetAgeRange(ctx, a.AgeRangeID); err == nil {
			name = ar.Name
		}
		parts = append(parts, fmt.Sprintf("%d x %s", a.Qty, name))
	}
	var prefs []string
	for _, p := range group.MealPreferences {
		if p.Qty > 0 {
			prefs = append(prefs, fmt.Sprintf("%d x %s", p.Qty, p.Type))
		}
	}
	if len(prefs) > 0 {
		parts = append(parts, strings.Join(prefs, ", "))
	}
	return strings.Join(parts, "; ")
}
