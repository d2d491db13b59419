package booking

import "sort"

// step is one recomputation of the cascade. Steps run in declaration order, which is a
// topological order of their dependencies: a step only reads what earlier steps wrote.
type step int

const (
	stepPack step = iota
	stepLineFlags
	stepQty
	stepPrice
	stepAutosales
	stepAdapters
	stepAssignment
	stepMealPreferences
	stepBookingAutosales
	stepTotals
)

var stepNames = [...]string{
	stepPack:             "pack",
	stepLineFlags:        "line_flags",
	stepQty:              "qty",
	stepPrice:            "price",
	stepAutosales:        "autosales",
	stepAdapters:         "adapters",
	stepAssignment:       "assignment",
	stepMealPreferences:  "meal_preferences",
	stepBookingAutosales: "booking_autosales",
	stepTotals:           "totals",
}

func (s step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return "unknown"
}

// call is a queued recomputation. A zero line targets the whole group, a zero group the
// whole booking.
type call struct {
	step  step
	group int64
	line  int64
}

// plan collects the recomputations requested by a trigger. Requesting the same call
// twice queues it once.
type plan struct {
	calls map[call]struct{}

	// groups whose consumptions are rebuilt (or cleared when the group is gone)
	consumptions    map[int64]struct{}
	allConsumptions bool
}

func newPlan() *plan {
	return &plan{
		calls:        make(map[call]struct{}),
		consumptions: make(map[int64]struct{}),
	}
}

func (p *plan) group(groupID int64, steps ...step) {
	for _, s := range steps {
		p.calls[call{step: s, group: groupID}] = struct{}{}
	}
}

func (p *plan) line(groupID, lineID int64, steps ...step) {
	for _, s := range steps {
		p.calls[call{step: s, group: groupID, line: lineID}] = struct{}{}
	}
}

func (p *plan) booking(steps ...step) {
	p.group(0, steps...)
}

func (p *plan) regenerate(groupID int64) {
	p.consumptions[groupID] = struct{}{}
}

func (p *plan) regenerateAll() {
	p.allConsumptions = true
}

func (p *plan) hasConsumptions() bool {
	return p.allConsumptions || len(p.consumptions) > 0
}

// ordered returns the queued calls by step, group then line. A line call is dropped when
// the same step is queued for its whole group.
func (p *plan) ordered() []call {
	out := make([]call, 0, len(p.calls))
	for c := range p.calls {
		if c.line != 0 {
			if _, ok := p.calls[call{step: c.step, group: c.group}]; ok {
				continue
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].step != out[j].step {
			return out[i].step < out[j].step
		}
		if out[i].group != out[j].group {
			return out[i].group < out[j].group
		}
		return out[i].line < out[j].line
	})
	return out
}

// Cascades of the named triggers.

// groupChanged covers date, time, pack and nb_pers changes.
func (p *plan) groupChanged(groupID int64) {
	p.group(groupID, stepPrice, stepQty, stepAutosales, stepAdapters, stepAssignment, stepMealPreferences)
	p.booking(stepBookingAutosales, stepTotals)
}

// pricingChanged covers rate class and sojourn type changes.
func (p *plan) pricingChanged(groupID int64) {
	p.group(groupID, stepAutosales, stepAdapters)
	p.booking(stepBookingAutosales, stepTotals)
}

func (p *plan) lineProductChanged(groupID, lineID int64) {
	p.line(groupID, lineID, stepLineFlags, stepPrice)
	p.group(groupID, stepQty, stepAdapters, stepAssignment)
	p.booking(stepTotals)
}

func (p *plan) lineQtyChanged(groupID int64) {
	p.group(groupID, stepQty, stepAssignment)
	p.booking(stepTotals)
}
