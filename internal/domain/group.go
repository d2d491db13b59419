package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SojournType selects the discount and season rule sets of a group.
type SojournType string

const (
	SojournTypeGA SojournType = "GA"
	SojournTypeGG SojournType = "GG"
)

type AgeRangeAssignment struct {
	AgeRangeID int64 `json:"age_range_id"`
	Qty        int   `json:"qty"`
	IsChild    bool  `json:"is_child"`
}

// MealPreference splits the group headcount by diet. "regular" absorbs the remainder.
type MealPreference struct {
	Type string `json:"type"`
	Qty  int    `json:"qty"`
}

const MealPreferenceRegular = "regular"

// Group is a homogeneous stay segment of a booking (sojourn, event or plain group).
type Group struct {
	ID                   int64                `json:"id"`
	BookingID            int64                `json:"booking_id"`
	Name                 string               `json:"name"`
	Order                int                  `json:"order"`
	DateFrom             time.Time            `json:"date_from"`
	DateTo               time.Time            `json:"date_to"`
	TimeFrom             int                  `json:"time_from"`
	TimeTo               int                  `json:"time_to"`
	NbPers               int                  `json:"nb_pers"`
	NbChildren           int                  `json:"nb_children"`
	IsSojourn            bool                 `json:"is_sojourn"`
	IsEvent              bool                 `json:"is_event"`
	IsAutosale           bool                 `json:"is_autosale"`
	IsExtra              bool                 `json:"is_extra"`
	IsLocked             bool                 `json:"is_locked"`
	HasPack              bool                 `json:"has_pack"`
	PackID               *int64               `json:"pack_id,omitempty"`
	RateClassID          int64                `json:"rate_class_id"`
	SojournType          SojournType          `json:"sojourn_type"`
	UnitPrice            decimal.Decimal      `json:"unit_price"`
	VatRate              decimal.Decimal      `json:"vat_rate"`
	PackQty              int                  `json:"pack_qty"`
	PriceState           PriceState           `json:"price_state"`
	IsTBC                bool                 `json:"is_tbc"`
	Total                decimal.Decimal      `json:"total"`
	Price                decimal.Decimal      `json:"price"`
	HasLockedRentalUnits bool                 `json:"has_locked_rental_units"`
	HasConsumptions      bool                 `json:"has_consumptions"`
	AssignmentShortfall  int                  `json:"assignment_shortfall"`
	AgeRanges            []AgeRangeAssignment `json:"age_range_assignments"`
	MealPreferences      []MealPreference     `json:"meal_preferences"`
	Lines                []*Line              `json:"lines"`
	Adapters             []*PriceAdapter      `json:"price_adapters"`
	SPMs                 []*SPM               `json:"sojourn_product_models"`
}

func (g *Group) NbNights() int {
	return nightsBetween(g.DateFrom, g.DateTo)
}

// Start and End place the group on the timeline using its check-in and check-out times.
func (g *Group) Start() time.Time {
	return g.DateFrom.Add(time.Duration(g.TimeFrom) * time.Second)
}

func (g *Group) End() time.Time {
	return g.DateTo.Add(time.Duration(g.TimeTo) * time.Second)
}

func (g *Group) Line(id int64) *Line {
	for _, l := range g.Lines {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (g *Group) RemoveLine(id int64) {
	lines := g.Lines[:0]
	for _, l := range g.Lines {
		if l.ID != id {
			lines = append(lines, l)
		}
	}
	g.Lines = lines
}

// AgeRangeQty returns the assigned qty of an age range, and whether it is assigned at all.
func (g *Group) AgeRangeQty(ageRangeID int64) (int, bool) {
	for _, a := range g.AgeRanges {
		if a.AgeRangeID == ageRangeID {
			return a.Qty, true
		}
	}
	return 0, false
}

func (g *Group) NbAdults() int {
	return g.NbPers - g.NbChildren
}

// RefreshNbChildren derives nb_children from age range assignments.
func (g *Group) RefreshNbChildren() {
	n := 0
	for _, a := range g.AgeRanges {
		if a.IsChild {
			n += a.Qty
		}
	}
	g.NbChildren = n
}

// DetachPack clears the pack reference explicitly.
func (g *Group) DetachPack() {
	g.PackID = nil
	g.HasPack = false
}

// ManualAdapters keeps only adapters created by a user.
func (g *Group) ManualAdapters() []*PriceAdapter {
	var out []*PriceAdapter
	for _, a := range g.Adapters {
		if a.IsManual {
			out = append(out, a)
		}
	}
	return out
}

func (g *Group) SPM(productModelID int64) *SPM {
	for _, s := range g.SPMs {
		if s.ProductModelID == productModelID {
			return s
		}
	}
	return nil
}

func (g *Group) Clone() *Group {
	c := *g
	if g.PackID != nil {
		id := *g.PackID
		c.PackID = &id
	}
	c.AgeRanges = append([]AgeRangeAssignment(nil), g.AgeRanges...)
	c.MealPreferences = append([]MealPreference(nil), g.MealPreferences...)
	c.Lines = make([]*Line, len(g.Lines))
	for i, l := range g.Lines {
		c.Lines[i] = l.Clone()
	}
	c.Adapters = make([]*PriceAdapter, len(g.Adapters))
	for i, a := range g.Adapters {
		c.Adapters[i] = a.Clone()
	}
	c.SPMs = make([]*SPM, len(g.SPMs))
	for i, s := range g.SPMs {
		c.SPMs[i] = s.Clone()
	}
	return &c
}

// SPM (sojourn product model) aggregates the rental unit assignments of one product model.
type SPM struct {
	ID             int64   `json:"id"`
	GroupID        int64   `json:"group_id"`
	ProductModelID int64   `json:"product_model_id"`
	Qty            int     `json:"qty"`
	IsAccomodation bool    `json:"is_accomodation"`
	Assignments    []*SPMA `json:"rental_unit_assignments"`
}

func (s *SPM) RefreshQty() {
	n := 0
	for _, a := range s.Assignments {
		n += a.Qty
	}
	s.Qty = n
}

func (s *SPM) Clone() *SPM {
	c := *s
	c.Assignments = make([]*SPMA, len(s.Assignments))
	for i, a := range s.Assignments {
		cp := *a
		c.Assignments[i] = &cp
	}
	return &c
}

// SPMA assigns one rental unit to an SPM.
type SPMA struct {
	ID             int64 `json:"id"`
	SPMID          int64 `json:"spm_id"`
	RentalUnitID   int64 `json:"rental_unit_id"`
	Qty            int   `json:"qty"`
	IsAccomodation bool  `json:"is_accomodation"`
}
