package domain

// Office holds the back-office preferences shared by the centers it manages.
type Office struct {
	ID                          int64 `json:"id"`
	RentalUnitsManualAssignment bool  `json:"rentalunits_manual_assignment"`
	FreebiesManualAssignment    bool  `json:"freebies_manual_assignment"`
}

type Center struct {
	ID                     int64  `json:"id"`
	Name                   string `json:"name"`
	PriceListCategoryID    int64  `json:"price_list_category_id"`
	DiscountListCategoryID int64  `json:"discount_list_category_id"`
	AutosaleListCategoryID int64  `json:"autosale_list_category_id"`
	SeasonCategoryID       int64  `json:"season_category_id"`
	Office                 Office `json:"office"`
}

// AssignmentMode is the product model rental_unit_assignement setting.
type AssignmentMode string

const (
	AssignmentModeAuto     AssignmentMode = "auto"
	AssignmentModeCategory AssignmentMode = "category"
	AssignmentModeUnit     AssignmentMode = "unit"
)

type ProductModel struct {
	ID                   int64               `json:"id"`
	Name                 string              `json:"name"`
	IsRentalUnit         bool                `json:"is_rental_unit"`
	IsAccomodation       bool                `json:"is_accomodation"`
	IsMeal               bool                `json:"is_meal"`
	IsSchedulable        bool                `json:"is_schedulable"`
	IsRepeatable         bool                `json:"is_repeatable"`
	QtyAccountingMethod  QtyAccountingMethod `json:"qty_accounting_method"`
	Capacity             int                 `json:"capacity"`
	ScheduleOffset       int                 `json:"schedule_offset"`
	ScheduleFrom         int                 `json:"schedule_from"`
	ScheduleTo           int                 `json:"schedule_to"`
	AssignmentMode       AssignmentMode      `json:"rental_unit_assignement"`
	RentalUnitCategoryID *int64              `json:"rental_unit_category_id,omitempty"`
	RentalUnitID         *int64              `json:"rental_unit_id,omitempty"`
}

type PackLine struct {
	ProductID int64 `json:"product_id"`
	HasOwnQty bool  `json:"has_own_qty"`
	OwnQty    int   `json:"own_qty"`
}

type Product struct {
	ID             int64      `json:"id"`
	SKU            string     `json:"sku"`
	Label          string     `json:"label"`
	ProductModelID int64      `json:"product_model_id"`
	AgeRangeID     *int64     `json:"age_range_id,omitempty"`
	HasDuration    bool       `json:"has_duration"`
	Duration       int        `json:"duration"`
	IsPack         bool       `json:"is_pack"`
	PackIsLocked   bool       `json:"pack_is_locked"`
	PackLines      []PackLine `json:"pack_lines,omitempty"`
}

// FixedDuration returns the product's own repetition count when it defines one.
func (p *Product) FixedDuration() (int, bool) {
	if p.HasDuration && p.Duration > 0 {
		return p.Duration, true
	}
	return 0, false
}

type RentalUnit struct {
	ID             int64   `json:"id"`
	CenterID       int64   `json:"center_id"`
	Name           string  `json:"name"`
	Capacity       int     `json:"capacity"`
	CategoryID     *int64  `json:"category_id,omitempty"`
	IsAccomodation bool    `json:"is_accomodation"`
	CanPartialRent bool    `json:"can_partial_rent"`
	ParentID       *int64  `json:"parent_id,omitempty"`
	ChildrenIDs    []int64 `json:"children_ids,omitempty"`
}

type AgeRange struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	AgeFrom int    `json:"age_from"`
	AgeTo   int    `json:"age_to"`
	IsChild bool   `json:"is_child"`
}
