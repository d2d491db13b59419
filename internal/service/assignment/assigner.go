package assignment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/quantity"
	"go.uber.org/zap"
)

// Catalog is the read side the assigner needs.
type Catalog interface {
	GetCenter(ctx context.Context, id int64) (*domain.Center, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductModel(ctx context.Context, id int64) (*domain.ProductModel, error)
	ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error)
}

type Occupancy interface {
	ListOverlapping(ctx context.Context, centerID int64, from, to time.Time, excludeBookingID int64) ([]domain.Consumption, error)
}

// Locker serialises search-and-assign runs on a center and date range.
type Locker interface {
	AcquireAssignmentLock(ctx context.Context, centerID int64, from, to time.Time, ttl time.Duration) (bool, error)
	ReleaseAssignmentLock(ctx context.Context, centerID int64, from, to time.Time) error
}

type IDGenerator interface {
	NextID(ctx context.Context) (int64, error)
}

type Options struct {
	LockTTL         time.Duration
	MaxCombinations int
}

type Assigner struct {
	catalog   Catalog
	occupancy Occupancy
	locker    Locker
	ids       IDGenerator
	opts      Options
	logger    *zap.Logger
}

func NewAssigner(catalog Catalog, occupancy Occupancy, locker Locker, ids IDGenerator, opts Options, logger *zap.Logger) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.MaxCombinations <= 0 {
		opts.MaxCombinations = DefaultMaxCombinations
	}
	return &Assigner{catalog: catalog, occupancy: occupancy, locker: locker, ids: ids, opts: opts, logger: logger}
}

// Result reports what an assignment pass could not place.
type Result struct {
	Skipped   bool
	Shortfall int
}

// Lock takes the assignment lock on every day of [from, to] at a center. The caller
// holds it until the assignments it computed are saved, then calls release.
func (a *Assigner) Lock(ctx context.Context, centerID int64, from, to time.Time) (release func(), err error) {
	if a.locker == nil {
		return func() {}, nil
	}
	ok, err := a.locker.AcquireAssignmentLock(ctx, centerID, from, to, a.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire assignment lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("center %d is being assigned: %w", centerID, domain.ErrLocked)
	}
	return func() {
		if err := a.locker.ReleaseAssignmentLock(context.WithoutCancel(ctx), centerID, from, to); err != nil {
			a.logger.Warn("release assignment lock", zap.Int64("center_id", centerID), zap.Error(err))
		}
	}, nil
}

// AssignGroup rebuilds the SPM/SPMA records of a group. Groups with locked assignments
// and centers whose office assigns rental units by hand are left untouched. The caller
// must hold Lock over the group's days until the result is persisted.
func (a *Assigner) AssignGroup(ctx context.Context, booking *domain.Booking, group *domain.Group) (Result, error) {
	if group.HasLockedRentalUnits || group.IsAutosale {
		return Result{Skipped: true}, nil
	}
	center, err := a.catalog.GetCenter(ctx, booking.CenterID)
	if err != nil {
		return Result{}, fmt.Errorf("get center %d: %w", booking.CenterID, err)
	}
	if center.Office.RentalUnitsManualAssignment {
		return Result{Skipped: true}, nil
	}

	units, err := a.catalog.ListRentalUnits(ctx, center.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list rental units: %w", err)
	}
	h := NewHierarchy(units)

	busy, err := a.busyUnits(ctx, booking, group, h)
	if err != nil {
		return Result{}, err
	}

	p := pass{
		Assigner: a,
		group:    group,
		units:    units,
		h:        h,
		busy:     busy,
		used:     make(map[int64]bool),
		pool:     group.NbPers,
	}
	group.SPMs = nil
	for _, line := range orderedLines(group.Lines) {
		if err := p.assignLine(ctx, line); err != nil {
			return Result{}, err
		}
	}
	group.AssignmentShortfall = p.shortfall

	if p.shortfall > 0 {
		a.logger.Warn("rental units shortfall",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("group_id", group.ID),
			zap.Int("shortfall", p.shortfall),
		)
	}
	return Result{Shortfall: p.shortfall}, nil
}

// busyUnits collects units held by other bookings or by overlapping groups of the same
// booking, with everything their hierarchy blocks.
func (a *Assigner) busyUnits(ctx context.Context, booking *domain.Booking, group *domain.Group, h *Hierarchy) (map[int64]bool, error) {
	busy := make(map[int64]bool)
	taken, err := a.occupancy.ListOverlapping(ctx, booking.CenterID, group.Start(), group.End(), booking.ID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping consumptions: %w", err)
	}
	for _, c := range taken {
		if c.RentalUnitID != nil {
			busy[*c.RentalUnitID] = true
		}
	}
	for _, other := range booking.Groups {
		if other.ID == group.ID || !other.Start().Before(group.End()) || !group.Start().Before(other.End()) {
			continue
		}
		for _, spm := range other.SPMs {
			for _, spma := range spm.Assignments {
				for _, id := range h.Blocked(spma.RentalUnitID) {
					busy[id] = true
				}
			}
		}
	}
	return busy, nil
}

type pass struct {
	*Assigner
	group     *domain.Group
	units     []domain.RentalUnit
	h         *Hierarchy
	busy      map[int64]bool
	used      map[int64]bool
	pool      int
	shortfall int
}

func (p *pass) assignLine(ctx context.Context, line *domain.Line) error {
	if line.ProductModelID == 0 {
		return nil
	}
	model, err := p.catalog.GetProductModel(ctx, line.ProductModelID)
	if err != nil {
		return fmt.Errorf("get product model %d: %w", line.ProductModelID, err)
	}
	if !model.IsRentalUnit {
		return nil
	}
	product, err := p.catalog.GetProduct(ctx, line.ProductID)
	if err != nil {
		return fmt.Errorf("get product %d: %w", line.ProductID, err)
	}

	candidates := p.candidates(model)

	if !model.IsAccomodation && model.QtyAccountingMethod != domain.QtyAccountingPerson {
		count := line.Qty / max(1, quantity.NbRepeat(product, p.group))
		count = max(1, count)
		picked := candidates
		if len(picked) > count {
			picked = picked[:count]
		}
		p.shortfall += count - len(picked)
		return p.record(ctx, model, picked, 0)
	}

	need := quantity.Occupancy(product, p.group)
	if model.IsAccomodation {
		need = min(need, p.pool)
		// a unit sold as a whole takes its full capacity from the headcount
		p.pool = max(0, p.pool-max(need, capacityOf(model)))
	}
	if need <= 0 {
		return nil
	}

	picked, complete := Match(candidates, need, p.opts.MaxCombinations)
	if !complete {
		covered := 0
		for _, u := range picked {
			covered += u.Capacity
		}
		p.shortfall += need - covered
	}
	return p.record(ctx, model, picked, need)
}

// candidates filters center units by accommodation flag, assignment mode and availability.
func (p *pass) candidates(model *domain.ProductModel) []domain.RentalUnit {
	var out []domain.RentalUnit
	for _, u := range p.units {
		if u.IsAccomodation != model.IsAccomodation || p.busy[u.ID] || p.used[u.ID] {
			continue
		}
		switch model.AssignmentMode {
		case domain.AssignmentModeUnit:
			if model.RentalUnitID == nil || *model.RentalUnitID != u.ID {
				continue
			}
		case domain.AssignmentModeCategory:
			if model.RentalUnitCategoryID == nil || u.CategoryID == nil || *model.RentalUnitCategoryID != *u.CategoryID {
				continue
			}
		}
		out = append(out, u)
	}
	return out
}

// record stores picked units on the group's SPM. For person based lines need is spread
// over the units by capacity; zero need stores one per unit.
func (p *pass) record(ctx context.Context, model *domain.ProductModel, picked []domain.RentalUnit, need int) error {
	if len(picked) == 0 {
		return nil
	}
	spm := p.group.SPM(model.ID)
	if spm == nil {
		id, err := p.ids.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		spm = &domain.SPM{ID: id, GroupID: p.group.ID, ProductModelID: model.ID, IsAccomodation: model.IsAccomodation}
		p.group.SPMs = append(p.group.SPMs, spm)
	}

	remaining := need
	for _, u := range picked {
		qty := 1
		if need > 0 {
			qty = max(0, min(u.Capacity, remaining))
			remaining -= qty
		}
		id, err := p.ids.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		spm.Assignments = append(spm.Assignments, &domain.SPMA{
			ID:             id,
			SPMID:          spm.ID,
			RentalUnitID:   u.ID,
			Qty:            qty,
			IsAccomodation: u.IsAccomodation,
		})
		for _, blocked := range p.h.Blocked(u.ID) {
			p.used[blocked] = true
		}
	}
	spm.RefreshQty()
	return nil
}

// orderedLines puts lines sold per accommodation first so they draw from the headcount
// before per person lines.
func orderedLines(lines []*domain.Line) []*domain.Line {
	out := append([]*domain.Line(nil), lines...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].QtyAccountingMethod == domain.QtyAccountingAccomodation &&
			out[j].QtyAccountingMethod != domain.QtyAccountingAccomodation
	})
	return out
}

func capacityOf(model *domain.ProductModel) int {
	if model.QtyAccountingMethod != domain.QtyAccountingAccomodation {
		return 0
	}
	return model.Capacity
}
