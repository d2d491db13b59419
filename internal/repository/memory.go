package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
)

// MemoryStore keeps bookings, consumptions and the catalog in process memory.
// It backs the "memory" storage driver and the engine tests.
type MemoryStore struct {
	mu sync.RWMutex

	seq          int64
	bookings     map[int64]*domain.Booking
	consumptions []domain.Consumption

	centers       map[int64]domain.Center
	products      map[int64]domain.Product
	productModels map[int64]domain.ProductModel
	ageRanges     map[int64]domain.AgeRange
	rentalUnits   map[int64]domain.RentalUnit
	priceLists    map[int64]domain.PriceList
	prices        []domain.Price
	discountLists []domain.DiscountList
	autosaleLists []domain.AutosaleList
	seasons       []domain.SeasonPeriod
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seq:           1000,
		bookings:      make(map[int64]*domain.Booking),
		centers:       make(map[int64]domain.Center),
		products:      make(map[int64]domain.Product),
		productModels: make(map[int64]domain.ProductModel),
		ageRanges:     make(map[int64]domain.AgeRange),
		rentalUnits:   make(map[int64]domain.RentalUnit),
		priceLists:    make(map[int64]domain.PriceList),
	}
}

// Seeding helpers.

func (s *MemoryStore) PutCenter(c domain.Center) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers[c.ID] = c
}

func (s *MemoryStore) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *MemoryStore) PutProductModel(m domain.ProductModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productModels[m.ID] = m
}

func (s *MemoryStore) PutAgeRange(a domain.AgeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ageRanges[a.ID] = a
}

func (s *MemoryStore) PutRentalUnit(u domain.RentalUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rentalUnits[u.ID] = u
}

func (s *MemoryStore) PutPriceList(l domain.PriceList, prices ...domain.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priceLists[l.ID] = l
	for _, p := range prices {
		p.PriceListID = l.ID
		s.prices = append(s.prices, p)
	}
}

func (s *MemoryStore) PutDiscountList(l domain.DiscountList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discountLists = append(s.discountLists, l)
}

func (s *MemoryStore) PutAutosaleList(l domain.AutosaleList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosaleLists = append(s.autosaleLists, l)
}

func (s *MemoryStore) PutSeasonPeriod(p domain.SeasonPeriod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons = append(s.seasons, p)
}

// PutConsumption records a consumption owned by another booking or a repair.
func (s *MemoryStore) PutConsumption(c domain.Consumption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	c.ID = s.seq
	s.consumptions = append(s.consumptions, c)
}

// CatalogRepository

func (s *MemoryStore) GetCenter(_ context.Context, id int64) (*domain.Center, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.centers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetProductModel(_ context.Context, id int64) (*domain.ProductModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.productModels[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) GetAgeRange(_ context.Context, id int64) (*domain.AgeRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.ageRanges[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) ListRentalUnits(_ context.Context, centerID int64) ([]domain.RentalUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	units := make([]domain.RentalUnit, 0)
	for _, u := range s.rentalUnits {
		if u.CenterID == centerID {
			units = append(units, u)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })
	return units, nil
}

func (s *MemoryStore) FindPriceLists(_ context.Context, categoryID int64, date time.Time, statuses []domain.PriceListStatus) ([]domain.PriceList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lists := make([]domain.PriceList, 0)
	for _, l := range s.priceLists {
		if l.CategoryID != categoryID || !l.Covers(date) || !hasStatus(statuses, l.Status) {
			continue
		}
		lists = append(lists, l)
	}
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].Duration() != lists[j].Duration() {
			return lists[i].Duration() < lists[j].Duration()
		}
		return lists[i].ID < lists[j].ID
	})
	return lists, nil
}

func (s *MemoryStore) FindPrice(_ context.Context, priceListID, productID int64) (*domain.Price, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.prices {
		if p.PriceListID == priceListID && p.ProductID == productID {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) FindDiscountList(_ context.Context, categoryID, rateClassID int64, date time.Time) (*domain.DiscountList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.discountLists {
		if l.CategoryID == categoryID && l.RateClassID == rateClassID && within(date, l.ValidFrom, l.ValidUntil) {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) FindAutosaleList(_ context.Context, categoryID int64, date time.Time) (*domain.AutosaleList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.autosaleLists {
		if l.CategoryID == categoryID && within(date, l.ValidFrom, l.ValidUntil) {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryStore) FindSeasonPeriod(_ context.Context, categoryID int64, date time.Time) (*domain.SeasonPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.seasons {
		if p.CategoryID == categoryID && within(date, p.DateFrom, p.DateTo) {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

// BookingRepository

func (s *MemoryStore) Get(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, booking *domain.Booking, set *ConsumptionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	s.bookings[booking.ID] = booking.Clone()
	if set == nil {
		return nil
	}

	kept := s.consumptions[:0]
	for _, c := range s.consumptions {
		if c.BookingID == booking.ID && c.Type != domain.ConsumptionTypeOOO && inScope(set.GroupIDs, c.GroupID) {
			continue
		}
		kept = append(kept, c)
	}
	s.consumptions = kept
	for _, c := range set.Items {
		s.seq++
		c.ID = s.seq
		s.consumptions = append(s.consumptions, c)
	}
	return nil
}

func (s *MemoryStore) NextID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *MemoryStore) CountCustomerBookings(_ context.Context, customerID int64, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, b := range s.bookings {
		if b.CustomerID != customerID || !countable(b.Status) {
			continue
		}
		if within(b.DateFrom, from, to) {
			n++
		}
	}
	return n, nil
}

// ConsumptionRepository

func (s *MemoryStore) ListByBooking(_ context.Context, bookingID int64) ([]domain.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Consumption, 0)
	for _, c := range s.consumptions {
		if c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListOverlapping(_ context.Context, centerID int64, from, to time.Time, excludeBookingID int64) ([]domain.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Consumption, 0)
	for _, c := range s.consumptions {
		if c.CenterID != centerID || c.RentalUnitID == nil {
			continue
		}
		if c.BookingID == excludeBookingID && c.Type != domain.ConsumptionTypeOOO {
			continue
		}
		if c.Overlaps(from, to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func hasStatus(statuses []domain.PriceListStatus, status domain.PriceListStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func within(date, from, to time.Time) bool {
	return !date.Before(from) && !date.After(to)
}

func inScope(groupIDs []int64, groupID int64) bool {
	if len(groupIDs) == 0 {
		return true
	}
	for _, id := range groupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

func countable(status domain.BookingStatus) bool {
	switch status {
	case domain.BookingStatusQuote, domain.BookingStatusOption, domain.BookingStatusCancelled:
		return false
	}
	return true
}

var (
	_ CatalogRepository     = (*MemoryStore)(nil)
	_ BookingRepository     = (*MemoryStore)(nil)
	_ ConsumptionRepository = (*MemoryStore)(nil)
)
