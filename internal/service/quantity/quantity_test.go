package quantity

import (
	"testing"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestComputeLineQty(t *testing.T) {
	testCases := []struct {
		name         string
		method       domain.QtyAccountingMethod
		nbRepeat     int
		nbPers       int
		repeatable   bool
		accomodation bool
		capacity     int
		expected     int
	}{
		{"accomodation repeatable over capacity", domain.QtyAccountingAccomodation, 3, 5, true, true, 2, 9},
		{"accomodation repeatable within capacity", domain.QtyAccountingAccomodation, 3, 2, true, true, 4, 3},
		{"accomodation repeatable unlimited capacity", domain.QtyAccountingAccomodation, 3, 12, true, true, 0, 3},
		{"accomodation single", domain.QtyAccountingAccomodation, 3, 7, false, true, 3, 3},
		{"accomodation single unlimited", domain.QtyAccountingAccomodation, 3, 7, false, true, 0, 1},
		{"person repeatable accomodation", domain.QtyAccountingPerson, 2, 5, true, true, 2, 6},
		{"person repeatable service", domain.QtyAccountingPerson, 2, 5, true, false, 0, 10},
		{"person single", domain.QtyAccountingPerson, 4, 5, false, false, 0, 5},
		{"unit", domain.QtyAccountingUnit, 4, 5, true, false, 0, 4},
		{"unknown method falls back to unit", "", 2, 5, true, false, 0, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeLineQty(tc.method, tc.nbRepeat, tc.nbPers, tc.repeatable, tc.accomodation, tc.capacity)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestComputeLineQty_AccomodationOverCapacityProperty(t *testing.T) {
	for nbRepeat := 1; nbRepeat <= 5; nbRepeat++ {
		for capacity := 1; capacity <= 6; capacity++ {
			for nbPers := capacity + 1; nbPers <= 20; nbPers++ {
				expected := nbRepeat * ((nbPers + capacity - 1) / capacity)
				got := ComputeLineQty(domain.QtyAccountingAccomodation, nbRepeat, nbPers, true, true, capacity)
				assert.Equal(t, expected, got, "repeat=%d pers=%d capacity=%d", nbRepeat, nbPers, capacity)
			}
		}
	}
}

func sojourn(nights int) *domain.Group {
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Group{
		IsSojourn: true,
		DateFrom:  from,
		DateTo:    from.AddDate(0, 0, nights),
		NbPers:    5,
	}
}

func TestNbRepeat(t *testing.T) {
	assert.Equal(t, 3, NbRepeat(nil, sojourn(3)))
	assert.Equal(t, 1, NbRepeat(nil, sojourn(0)))

	event := sojourn(2)
	event.IsSojourn = false
	event.IsEvent = true
	assert.Equal(t, 3, NbRepeat(nil, event))

	plain := sojourn(4)
	plain.IsSojourn = false
	assert.Equal(t, 1, NbRepeat(nil, plain))

	fixed := &domain.Product{HasDuration: true, Duration: 2}
	assert.Equal(t, 2, NbRepeat(fixed, sojourn(6)))
}

func TestLineQty_SojournScenario(t *testing.T) {
	// 3 ночи, вместимость 2, 5 человек => 3 x ceil(5/2) = 9
	group := sojourn(3)
	model := &domain.ProductModel{
		QtyAccountingMethod: domain.QtyAccountingAccomodation,
		IsAccomodation:      true,
		IsRepeatable:        true,
		Capacity:            2,
	}
	line := &domain.Line{}
	assert.Equal(t, 9, LineQty(line, &domain.Product{}, model, group))
}

func TestLineQty_OwnQtyAndVariations(t *testing.T) {
	group := sojourn(3)
	model := &domain.ProductModel{QtyAccountingMethod: domain.QtyAccountingPerson, IsRepeatable: true}

	own := &domain.Line{HasOwnQty: true, Qty: 42}
	assert.Equal(t, 42, LineQty(own, &domain.Product{}, model, group))

	varied := &domain.Line{QtyVars: domain.QtyVars{0, -2, 1}}
	assert.Equal(t, 5*3-1, LineQty(varied, &domain.Product{}, model, group))
}

func TestLineQty_AgeRangeOccupancy(t *testing.T) {
	group := sojourn(2)
	group.AgeRanges = []domain.AgeRangeAssignment{{AgeRangeID: 1, Qty: 3}, {AgeRangeID: 2, Qty: 2}}
	model := &domain.ProductModel{QtyAccountingMethod: domain.QtyAccountingPerson, IsRepeatable: true}
	product := &domain.Product{AgeRangeID: domain.ID(2)}

	assert.Equal(t, 4, LineQty(&domain.Line{}, product, model, group))
}

func TestSyncQtyVars(t *testing.T) {
	assert.Equal(t, domain.QtyVars{1, 0, 0}, SyncQtyVars(domain.QtyVars{1}, 3))
	assert.Equal(t, domain.QtyVars{1, 2}, SyncQtyVars(domain.QtyVars{1, 2, 3}, 2))
	assert.Empty(t, SyncQtyVars(nil, 3))
	assert.Equal(t, domain.QtyVars{}, SyncQtyVars(domain.QtyVars{1}, 0))
}

func TestApplyQtyVars_NeverNegative(t *testing.T) {
	assert.Equal(t, 0, ApplyQtyVars(2, domain.QtyVars{-5}))
	assert.Equal(t, 4, ApplyQtyVars(2, domain.QtyVars{1, 1}))
}
