package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/Domenick1991/discope/internal/service/discount"
	"github.com/Domenick1991/discope/internal/service/pricing"
	"github.com/Domenick1991/discope/internal/service/quantity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const autosaleGroupName = "Autosales"

// cascade runs a plan against one booking aggregate.
type cascade struct {
	*BookingService
	booking *domain.Booking
	plan    *plan
	recheck bool
	unlock  func()
}

func (c *cascade) run(ctx context.Context) error {
	if err := c.lockAssignments(ctx); err != nil {
		return err
	}
	synced := false
	for _, call := range c.plan.ordered() {
		if call.step >= stepBookingAutosales && !synced {
			syncBooking(c.booking)
			synced = true
		}
		c.logger.Debug("cascade step",
			zap.Int64("booking_id", c.booking.ID),
			zap.Stringer("step", call.step),
			zap.Int64("group_id", call.group),
			zap.Int64("line_id", call.line),
		)
		if err := c.exec(ctx, call); err != nil {
			return fmt.Errorf("%s: %w", call.step, err)
		}
	}
	syncBooking(c.booking)
	return nil
}

func (c *cascade) exec(ctx context.Context, call call) error {
	switch call.step {
	case stepBookingAutosales:
		return c.bookingAutosales(ctx)
	case stepTotals:
		pricing.ComputeBooking(c.booking)
		return nil
	}

	g := c.booking.Group(call.group)
	if g == nil {
		return nil
	}
	switch call.step {
	case stepPack:
		return c.expandPack(ctx, g)
	case stepLineFlags:
		for _, l := range c.scope(g, call.line) {
			if err := c.lineFlags(ctx, l); err != nil {
				return err
			}
		}
	case stepQty:
		return c.quantities(ctx, g)
	case stepPrice:
		if call.line == 0 {
			if err := c.packPrice(ctx, g); err != nil {
				return err
			}
		}
		for _, l := range c.scope(g, call.line) {
			if err := c.linePrice(ctx, g, l); err != nil {
				return err
			}
		}
	case stepAutosales:
		return c.groupAutosales(ctx, g)
	case stepAdapters:
		return c.adapters(ctx, g)
	case stepAssignment:
		return c.assign(ctx, g)
	case stepMealPreferences:
		return refreshMealPreferences(g)
	}
	return nil
}

// scope returns the single targeted line, or every line of the group.
func (c *cascade) scope(g *domain.Group, lineID int64) []*domain.Line {
	if lineID == 0 {
		return g.Lines
	}
	if l := g.Line(lineID); l != nil {
		return []*domain.Line{l}
	}
	return nil
}

// expandPack replaces the group content with the lines of its pack.
func (c *cascade) expandPack(ctx context.Context, g *domain.Group) error {
	if g.PackID == nil {
		g.HasPack = false
		return nil
	}
	pack, err := c.catalog.GetProduct(ctx, *g.PackID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError("pack_id", domain.ReasonUnknownProduct)
	}
	if err != nil {
		return fmt.Errorf("get pack %d: %w", *g.PackID, err)
	}
	if !pack.IsPack {
		return domain.NewValidationError("pack_id", domain.ReasonInvalidValue)
	}

	lines := make([]*domain.Line, 0, len(pack.PackLines))
	for i, pl := range pack.PackLines {
		id, err := c.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		lines = append(lines, &domain.Line{
			ID:        id,
			GroupID:   g.ID,
			Order:     i + 1,
			ProductID: pl.ProductID,
			HasOwnQty: pl.HasOwnQty,
			Qty:       pl.OwnQty,
			IsExtra:   g.IsExtra,
		})
	}
	g.Lines = lines
	g.HasPack = true
	g.IsLocked = pack.PackIsLocked
	pruneAdapters(g)
	pruneSPMs(g)
	return nil
}

// lineFlags copies the product model settings onto the line.
func (c *cascade) lineFlags(ctx context.Context, l *domain.Line) error {
	product, err := c.catalog.GetProduct(ctx, l.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("line product not found", zap.Int64("line_id", l.ID), zap.Int64("product_id", l.ProductID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get product %d: %w", l.ProductID, err)
	}
	model, err := c.catalog.GetProductModel(ctx, product.ProductModelID)
	if errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn("product model not found", zap.Int64("line_id", l.ID), zap.Int64("product_model_id", product.ProductModelID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get product model %d: %w", product.ProductModelID, err)
	}
	l.ProductModelID = model.ID
	l.IsRentalUnit = model.IsRentalUnit
	l.IsAccomodation = model.IsAccomodation
	l.IsMeal = model.IsMeal
	l.QtyAccountingMethod = model.QtyAccountingMethod
	if l.QtyAccountingMethod == "" {
		l.QtyAccountingMethod = domain.QtyAccountingUnit
	}
	return nil
}

// product loads the product and model of a line. Missing records come back as nil.
func (c *cascade) product(ctx context.Context, productID, modelID int64) (*domain.Product, *domain.ProductModel, error) {
	product, err := c.catalog.GetProduct(ctx, productID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	if modelID == 0 {
		modelID = product.ProductModelID
	}
	model, err := c.catalog.GetProductModel(ctx, modelID)
	if errors.Is(err, domain.ErrNotFound) {
		return product, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get product model %d: %w", modelID, err)
	}
	return product, model, nil
}

func (c *cascade) lineQty(ctx context.Context, g *domain.Group, l *domain.Line) error {
	product, model, err := c.product(ctx, l.ProductID, l.ProductModelID)
	if err != nil {
		return err
	}
	l.QtyVars = quantity.SyncQtyVars(l.QtyVars, quantity.NbRepeat(product, g))
	l.Qty = quantity.LineQty(l, product, model, g)
	return nil
}

func (c *cascade) quantities(ctx context.Context, g *domain.Group) error {
	for _, l := range g.Lines {
		if err := c.lineQty(ctx, g, l); err != nil {
			return err
		}
	}
	if !g.HasPack || g.PackID == nil {
		g.PackQty = 0
		return nil
	}
	pack, model, err := c.product(ctx, *g.PackID, 0)
	if err != nil {
		return err
	}
	g.PackQty = quantity.LineQty(&domain.Line{}, pack, model, g)
	return nil
}

func (c *cascade) linePrice(ctx context.Context, g *domain.Group, l *domain.Line) error {
	res, err := c.prices.ResolveLine(ctx, c.booking, g, l)
	if err != nil {
		return err
	}
	pricing.ApplyToLine(l, res)
	return nil
}

func (c *cascade) packPrice(ctx context.Context, g *domain.Group) error {
	if !g.HasPack {
		g.PriceState = ""
		g.IsTBC = false
		g.UnitPrice = decimal.Zero
		g.VatRate = decimal.Zero
		return nil
	}
	res, err := c.prices.ResolvePack(ctx, c.booking, g)
	if err != nil {
		return err
	}
	pricing.ApplyToGroup(g, res)
	return nil
}

// groupAutosales rebuilds the autosale lines appended at the end of a group.
func (c *cascade) groupAutosales(ctx context.Context, g *domain.Group) error {
	if g.IsAutosale {
		return nil
	}
	added, err := c.discounts.GroupAutosales(ctx, c.booking, g)
	if err != nil {
		return err
	}
	lines := make([]*domain.Line, 0, len(g.Lines)+len(added))
	for _, l := range g.Lines {
		if !l.IsAutosale {
			lines = append(lines, l)
		}
	}
	g.Lines = lines
	if err := c.attach(ctx, g, added); err != nil {
		return err
	}
	pruneAdapters(g)
	pruneSPMs(g)
	return nil
}

// attach gives ids to new lines and appends them with their flags and quantities.
func (c *cascade) attach(ctx context.Context, g *domain.Group, lines []*domain.Line) error {
	for _, l := range lines {
		id, err := c.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		l.ID = id
		l.GroupID = g.ID
		l.Order = len(g.Lines) + 1
		l.IsExtra = g.IsExtra
		if err := c.lineFlags(ctx, l); err != nil {
			return err
		}
		if err := c.lineQty(ctx, g, l); err != nil {
			return err
		}
		g.Lines = append(g.Lines, l)
	}
	return nil
}

func (c *cascade) adapters(ctx context.Context, g *domain.Group) error {
	computed, err := c.discounts.GroupAdapters(ctx, c.booking, g)
	if err != nil {
		return err
	}
	for _, a := range computed {
		id, err := c.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		a.ID = id
	}
	discount.ReplaceAdapters(g, computed)
	return nil
}

// lockAssignments takes the assignment lock over the days of every group the plan
// reassigns. The lock outlives the cascade: release runs once the booking is saved.
func (c *cascade) lockAssignments(ctx context.Context) error {
	var from, to time.Time
	for _, call := range c.plan.ordered() {
		if call.step != stepAssignment {
			continue
		}
		g := c.booking.Group(call.group)
		if g == nil || g.HasLockedRentalUnits || g.IsAutosale {
			continue
		}
		if from.IsZero() || g.Start().Before(from) {
			from = g.Start()
		}
		if to.IsZero() || g.End().After(to) {
			to = g.End()
		}
	}
	if from.IsZero() {
		return nil
	}
	release, err := c.assigner.Lock(ctx, c.booking.CenterID, from, to)
	if err != nil {
		return err
	}
	c.unlock = release
	return nil
}

func (c *cascade) release() {
	if c.unlock != nil {
		c.unlock()
		c.unlock = nil
	}
}

func (c *cascade) assign(ctx context.Context, g *domain.Group) error {
	res, err := c.assigner.AssignGroup(ctx, c.booking, g)
	if err != nil {
		return err
	}
	if res.Skipped {
		return nil
	}
	if res.Shortfall > 0 {
		c.recheck = true
	}
	if g.HasConsumptions {
		c.plan.regenerate(g.ID)
	}
	return nil
}

// bookingAutosales maintains the dedicated group holding booking scoped autosales. The
// group only exists while at least one rule matches.
func (c *cascade) bookingAutosales(ctx context.Context) error {
	b := c.booking
	ag := b.AutosaleGroup()
	created := ag == nil
	if created {
		ag = &domain.Group{BookingID: b.ID, Name: autosaleGroupName, IsAutosale: true}
	}
	ag.DateFrom, ag.DateTo = b.DateFrom, b.DateTo
	ag.NbPers = b.NbPers

	var lines []*domain.Line
	if hasRegularGroups(b) {
		found, err := c.discounts.BookingAutosales(ctx, b, ag)
		if err != nil {
			return err
		}
		lines = found
	}
	if len(lines) == 0 {
		if !created {
			b.RemoveGroup(ag.ID)
		}
		return nil
	}

	if created {
		id, err := c.bookings.NextID(ctx)
		if err != nil {
			return fmt.Errorf("next id: %w", err)
		}
		ag.ID = id
		ag.Order = len(b.Groups) + 1
		b.Groups = append(b.Groups, ag)
	}
	ag.Lines = nil
	ag.Adapters = nil
	return c.attach(ctx, ag, lines)
}

// consumptionSet expands the groups queued for regeneration.
func (c *cascade) consumptionSet(ctx context.Context) (*repository.ConsumptionSet, error) {
	if !c.plan.hasConsumptions() {
		return nil, nil
	}
	if c.plan.allConsumptions {
		items, err := c.expander.Booking(ctx, c.booking)
		if err != nil {
			return nil, fmt.Errorf("expand consumptions: %w", err)
		}
		for _, g := range c.booking.Groups {
			g.HasConsumptions = true
		}
		return &repository.ConsumptionSet{Items: items}, nil
	}

	ids := make([]int64, 0, len(c.plan.consumptions))
	for id := range c.plan.consumptions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	set := &repository.ConsumptionSet{GroupIDs: ids}
	for _, id := range ids {
		g := c.booking.Group(id)
		if g == nil {
			continue
		}
		items, err := c.expander.Group(ctx, c.booking, g)
		if err != nil {
			return nil, fmt.Errorf("expand consumptions of group %d: %w", id, err)
		}
		set.Items = append(set.Items, items...)
		g.HasConsumptions = true
	}
	return set, nil
}

// refreshMealPreferences gives the "regular" diet whatever the other diets leave.
func refreshMealPreferences(g *domain.Group) error {
	if err := checkMealPreferences(g); err != nil {
		return err
	}
	regular := g.NbPers
	for _, p := range g.MealPreferences {
		if p.Type != domain.MealPreferenceRegular {
			regular -= p.Qty
		}
	}
	for i := range g.MealPreferences {
		if g.MealPreferences[i].Type == domain.MealPreferenceRegular {
			g.MealPreferences[i].Qty = regular
			return nil
		}
	}
	if regular > 0 {
		g.MealPreferences = append(g.MealPreferences, domain.MealPreference{Type: domain.MealPreferenceRegular, Qty: regular})
	}
	return nil
}

func hasRegularGroups(b *domain.Booking) bool {
	for _, g := range b.Groups {
		if !g.IsAutosale {
			return true
		}
	}
	return false
}

// syncBooking propagates group dates and headcount to the booking.
func syncBooking(b *domain.Booking) {
	b.SyncDates()
	n := 0
	for _, g := range b.Groups {
		if !g.IsAutosale {
			n += g.NbPers
		}
	}
	b.NbPers = n
}

// pruneAdapters drops adapters pointing at lines that no longer exist.
func pruneAdapters(g *domain.Group) {
	adapters := g.Adapters[:0]
	for _, a := range g.Adapters {
		if a.IsGroupLevel() || g.Line(*a.LineID) != nil {
			adapters = append(adapters, a)
		}
	}
	g.Adapters = adapters
}

// pruneSPMs drops rental unit groupings no line uses anymore.
func pruneSPMs(g *domain.Group) {
	used := make(map[int64]bool, len(g.Lines))
	for _, l := range g.Lines {
		used[l.ProductModelID] = true
	}
	spms := g.SPMs[:0]
	for _, s := range g.SPMs {
		if used[s.ProductModelID] {
			spms = append(spms, s)
		}
	}
	g.SPMs = spms
}
