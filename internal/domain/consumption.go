package domain

import "time"

type ConsumptionType string

const (
	ConsumptionTypeBook ConsumptionType = "book"
	ConsumptionTypeLink ConsumptionType = "link"
	ConsumptionTypePart ConsumptionType = "part"
	ConsumptionTypeOOO  ConsumptionType = "ooo"
)

// Consumption is one scheduled day of occupancy, or a block derived from it.
type Consumption struct {
	ID             int64           `json:"id"`
	BookingID      int64           `json:"booking_id"`
	GroupID        int64           `json:"group_id"`
	CenterID       int64           `json:"center_id"`
	Date           time.Time       `json:"date"`
	ScheduleFrom   int             `json:"schedule_from"`
	ScheduleTo     int             `json:"schedule_to"`
	RentalUnitID   *int64          `json:"rental_unit_id,omitempty"`
	LineID         *int64          `json:"booking_line_id,omitempty"`
	ProductID      *int64          `json:"product_id,omitempty"`
	Qty            int             `json:"qty"`
	Type           ConsumptionType `json:"type"`
	IsAccomodation bool            `json:"is_accomodation"`
	IsMeal         bool            `json:"is_meal"`
	Description    string          `json:"description,omitempty"`
}

// Start and End return absolute instants of the scheduled window.
func (c Consumption) Start() time.Time {
	return c.Date.Add(time.Duration(c.ScheduleFrom) * time.Second)
}

func (c Consumption) End() time.Time {
	return c.Date.Add(time.Duration(c.ScheduleTo) * time.Second)
}

// Overlaps is true when the consumption window intersects [from, to).
func (c Consumption) Overlaps(from, to time.Time) bool {
	return c.Start().Before(to) && from.Before(c.End())
}
