package discount

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/repository"
	"github.com/Domenick1991/discope/internal/service/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingCounter struct {
	mock.Mock
}

func (m *MockBookingCounter) CountCustomerBookings(ctx context.Context, customerID int64, from, to time.Time) (int, error) {
	args := m.Called(ctx, customerID, from, to)
	return args.Int(0), args.Error(1)
}

const (
	categoryGA = 71
	categoryGG = 72
)

var arrival = time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCounter(n int) *MockBookingCounter {
	counter := &MockBookingCounter{}
	counter.On("CountCustomerBookings", mock.Anything, int64(5), mock.Anything, mock.Anything).Return(n, nil)
	return counter
}

func newStore() *repository.MemoryStore {
	store := repository.NewMemoryStore()
	store.PutCenter(domain.Center{ID: 1, PriceListCategoryID: 9, DiscountListCategoryID: categoryGA, AutosaleListCategoryID: 81})
	store.PutProduct(domain.Product{ID: 100, ProductModelID: 1000})
	store.PutProduct(domain.Product{ID: 101, ProductModelID: 1001})
	store.PutProduct(domain.Product{ID: 102, ProductModelID: 1002, AgeRangeID: domain.ID(3)})
	return store
}

func newResolver(store *repository.MemoryStore, counter BookingCounter) *Resolver {
	opts := Options{GenericCategories: map[domain.SojournType]int64{
		domain.SojournTypeGA: categoryGA,
		domain.SojournTypeGG: categoryGG,
	}}
	return NewResolver(store, counter, pricing.NewResolver(store, nil), opts, nil)
}

func fixture() (*domain.Booking, *domain.Group) {
	group := &domain.Group{
		ID:          20,
		BookingID:   10,
		DateFrom:    arrival,
		DateTo:      arrival.AddDate(0, 0, 3),
		NbPers:      12,
		IsSojourn:   true,
		SojournType: domain.SojournTypeGA,
		RateClassID: 4,
		Lines: []*domain.Line{
			{ID: 30, GroupID: 20, ProductID: 100, IsAccomodation: true, QtyAccountingMethod: domain.QtyAccountingAccomodation},
			{ID: 31, GroupID: 20, ProductID: 101, IsMeal: true, QtyAccountingMethod: domain.QtyAccountingPerson},
		},
	}
	booking := &domain.Booking{ID: 10, CustomerID: 5, CenterID: 1, Groups: []*domain.Group{group}}
	return booking, group
}

func percentFor(adapters []*domain.PriceAdapter, lineID int64) decimal.Decimal {
	total := decimal.Zero
	for _, a := range adapters {
		if a.Type != domain.AdapterTypePercent {
			continue
		}
		if a.LineID == nil || *a.LineID == lineID {
			total = total.Add(a.Value)
		}
	}
	return total
}

func TestGroupAdapters_RateMaxCap(t *testing.T) {
	store := newStore()
	store.PutDiscountList(domain.DiscountList{
		ID: 1, CategoryID: categoryGA, RateClassID: 4,
		ValidFrom: arrival.AddDate(0, -1, 0), ValidUntil: arrival.AddDate(0, 1, 0),
		RateMin: dec("0.05"), RateMax: dec("0.3"),
		Discounts: []domain.Discount{
			{ID: 11, Type: domain.AdapterTypePercent, Value: dec("0.1"), Scope: domain.DiscountScopeBooking,
				Conditions: []domain.Condition{{Operand: "nb_pers", Operator: ">=", Value: "10"}}},
			{ID: 12, Type: domain.AdapterTypePercent, Value: dec("0.2"), Scope: domain.DiscountScopeLine},
		},
	})
	counter := newCounter(0)
	booking, group := fixture()

	adapters, err := newResolver(store, counter).GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)

	// Минимальная скидка всегда присутствует
	require.NotEmpty(t, adapters)
	assert.Nil(t, adapters[0].LineID)
	assert.True(t, dec("0.05").Equal(adapters[0].Value))
	assert.Nil(t, adapters[0].DiscountID)

	for _, lineID := range []int64{30, 31} {
		rate := percentFor(adapters, lineID)
		assert.True(t, rate.LessThanOrEqual(dec("0.3")), "line %d rate %s", lineID, rate)
		assert.True(t, rate.Equal(dec("0.3")), "line %d rate %s", lineID, rate)
	}
	for _, a := range adapters {
		assert.False(t, a.IsManual)
		assert.Equal(t, int64(1), *a.DiscountListID)
	}
	counter.AssertExpectations(t)
}

func TestGroupAdapters_Idempotent(t *testing.T) {
	store := newStore()
	store.PutDiscountList(domain.DiscountList{
		ID: 1, CategoryID: categoryGA, RateClassID: 4,
		ValidFrom: arrival, ValidUntil: arrival.AddDate(0, 1, 0),
		RateMax: dec("0.5"),
		Discounts: []domain.Discount{
			{ID: 12, Type: domain.AdapterTypePercent, Value: dec("0.1"), Scope: domain.DiscountScopeLine},
			{ID: 13, Type: domain.AdapterTypeAmount, Value: dec("15"), Scope: domain.DiscountScopeBooking},
		},
	})
	resolver := newResolver(store, newCounter(1))
	booking, group := fixture()

	first, err := resolver.GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)
	second, err := resolver.GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestGroupAdapters_CustomerHistoryCondition(t *testing.T) {
	store := newStore()
	store.PutDiscountList(domain.DiscountList{
		ID: 1, CategoryID: categoryGA, RateClassID: 4,
		ValidFrom: arrival, ValidUntil: arrival.AddDate(0, 1, 0),
		Discounts: []domain.Discount{
			{ID: 14, Type: domain.AdapterTypePercent, Value: dec("0.05"), Scope: domain.DiscountScopeBooking,
				Conditions: []domain.Condition{{Operand: "count_booking_24", Operator: ">", Value: "2"}}},
		},
	})
	booking, group := fixture()

	loyal, err := newResolver(store, newCounter(3)).GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)
	assert.Len(t, loyal, 1)

	newcomer, err := newResolver(store, newCounter(1)).GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)
	assert.Empty(t, newcomer)
}

func TestGroupAdapters_SeasonOperandMissing(t *testing.T) {
	store := newStore()
	store.PutDiscountList(domain.DiscountList{
		ID: 1, CategoryID: categoryGA, RateClassID: 4,
		ValidFrom: arrival, ValidUntil: arrival.AddDate(0, 1, 0),
		Discounts: []domain.Discount{
			{ID: 15, Type: domain.AdapterTypePercent, Value: dec("0.05"), Scope: domain.DiscountScopeBooking,
				Conditions: []domain.Condition{{Operand: "season", Operator: "=", Value: "2"}}},
		},
	})
	booking, group := fixture()
	resolver := newResolver(store, newCounter(0))

	adapters, err := resolver.GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)
	assert.Empty(t, adapters)

	store.PutSeasonPeriod(domain.SeasonPeriod{ID: 1, CategoryID: categoryGA, SeasonTypeID: 2, DateFrom: arrival.AddDate(0, -1, 0), DateTo: arrival.AddDate(0, 1, 0)})
	adapters, err = resolver.GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)
	assert.Len(t, adapters, 1)
}

func TestGroupAdapters_Freebies(t *testing.T) {
	list := domain.DiscountList{
		ID: 1, CategoryID: categoryGA, RateClassID: 4,
		ValidFrom: arrival, ValidUntil: arrival.AddDate(0, 1, 0),
		Discounts: []domain.Discount{
			{ID: 16, Type: domain.AdapterTypeFreebie, Value: dec("1"), ValueMax: "nb_children", Scope: domain.DiscountScopeLine},
		},
	}

	t.Run("scaled and capped", func(t *testing.T) {
		store := newStore()
		store.PutDiscountList(list)
		booking, group := fixture()
		group.NbChildren = 2

		adapters, err := newResolver(store, newCounter(0)).GroupAdapters(context.Background(), booking, group)
		require.NoError(t, err)

		// Для строки проживания бесплатные единицы не применяются
		require.Len(t, adapters, 1)
		assert.Equal(t, int64(31), *adapters[0].LineID)
		assert.True(t, dec("2").Equal(adapters[0].Value))
	})

	t.Run("office manual freebies", func(t *testing.T) {
		store := newStore()
		store.PutCenter(domain.Center{ID: 1, DiscountListCategoryID: categoryGA, Office: domain.Office{FreebiesManualAssignment: true}})
		store.PutDiscountList(list)
		booking, group := fixture()

		adapters, err := newResolver(store, newCounter(0)).GroupAdapters(context.Background(), booking, group)
		require.NoError(t, err)
		assert.Empty(t, adapters)
	})
}

func TestGroupAdapters_Eligibility(t *testing.T) {
	store := newStore()
	list := domain.DiscountList{
		ID: 1, CategoryID: categoryGG, RateClassID: 4,
		ValidFrom: arrival, ValidUntil: arrival.AddDate(0, 1, 0),
		Discounts: []domain.Discount{
			{ID: 17, Type: domain.AdapterTypePercent, Value: dec("0.1"), Scope: domain.DiscountScopeLine},
			{ID: 18, Type: domain.AdapterTypePercent, Value: dec("0.1"), Scope: domain.DiscountScopeLine, AgeRangeIDs: []int64{3}},
		},
	}
	store.PutDiscountList(list)
	booking, group := fixture()
	group.SojournType = domain.SojournTypeGG
	group.Lines = append(group.Lines, &domain.Line{ID: 32, GroupID: 20, ProductID: 102, IsAccomodation: true})

	adapters, err := newResolver(store, newCounter(0)).GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)

	byLine := make(map[int64][]int64)
	for _, a := range adapters {
		byLine[*a.LineID] = append(byLine[*a.LineID], *a.DiscountID)
	}
	assert.Equal(t, map[int64][]int64{30: {17}, 32: {17, 18}}, byLine)

	group.IsLocked = true
	adapters, err = newResolver(store, newCounter(0)).GroupAdapters(context.Background(), booking, group)
	require.NoError(t, err)
	assert.Empty(t, adapters)
}

func TestListCategory(t *testing.T) {
	resolver := newResolver(newStore(), nil)

	assert.Equal(t, int64(categoryGG), resolver.ListCategory(categoryGA, domain.SojournTypeGG))
	assert.Equal(t, int64(categoryGA), resolver.ListCategory(categoryGA, domain.SojournTypeGA))
	assert.Equal(t, int64(99), resolver.ListCategory(99, domain.SojournTypeGG))
	assert.Equal(t, int64(categoryGA), resolver.ListCategory(categoryGA, ""))
}

func TestReplaceAdapters_KeepsManual(t *testing.T) {
	_, group := fixture()
	manual := &domain.PriceAdapter{ID: 1, IsManual: true, Type: domain.AdapterTypeAmount, Value: dec("5")}
	group.Adapters = []*domain.PriceAdapter{manual, {ID: 2, Type: domain.AdapterTypePercent, Value: dec("0.1")}}

	ReplaceAdapters(group, []*domain.PriceAdapter{{Type: domain.AdapterTypePercent, Value: dec("0.2")}})

	require.Len(t, group.Adapters, 2)
	assert.Same(t, manual, group.Adapters[0])
	assert.Equal(t, int64(20), group.Adapters[1].GroupID)
	assert.Equal(t, int64(10), group.Adapters[1].BookingID)
}

func TestAutosales(t *testing.T) {
	store := newStore()
	store.PutProduct(domain.Product{ID: 200, ProductModelID: 2000})
	store.PutProduct(domain.Product{ID: 201, ProductModelID: 2001})
	store.PutProduct(domain.Product{ID: 202, ProductModelID: 2002})
	store.PutPriceList(domain.PriceList{ID: 1, CategoryID: 9, DateFrom: arrival.AddDate(0, -1, 0), DateTo: arrival.AddDate(0, 1, 0), Status: domain.PriceListStatusPublished},
		domain.Price{ID: 1, ProductID: 200, Price: dec("2.5"), VatRate: dec("0.06")},
		domain.Price{ID: 2, ProductID: 202, Price: dec("1.2"), VatRate: dec("0.06")})
	store.PutAutosaleList(domain.AutosaleList{
		ID: 1, CategoryID: 81, ValidFrom: arrival.AddDate(0, -1, 0), ValidUntil: arrival.AddDate(0, 1, 0),
		Lines: []domain.AutosaleLine{
			{ID: 1, ProductID: 200, Scope: domain.DiscountScopeGroup, Conditions: []domain.Condition{{Operand: "nb_nights", Operator: ">=", Value: "2"}}},
			{ID: 2, ProductID: 201, Scope: domain.DiscountScopeGroup},
			{ID: 3, ProductID: 202, Scope: domain.DiscountScopeBooking, HasOwnQty: true, Qty: 1},
		},
	})
	resolver := newResolver(store, newCounter(0))
	booking, group := fixture()

	t.Run("group scope", func(t *testing.T) {
		lines, err := resolver.GroupAutosales(context.Background(), booking, group)
		require.NoError(t, err)

		// Строка без цены отбрасывается
		require.Len(t, lines, 1)
		assert.Equal(t, int64(200), lines[0].ProductID)
		assert.True(t, lines[0].IsAutosale)
		assert.Equal(t, domain.PriceStateResolved, lines[0].PriceState)
		assert.True(t, dec("2.5").Equal(lines[0].UnitPrice))
	})

	t.Run("booking scope", func(t *testing.T) {
		autosale := &domain.Group{ID: 21, BookingID: 10, IsAutosale: true, DateFrom: arrival, DateTo: arrival.AddDate(0, 0, 3)}
		booking.DateFrom, booking.DateTo = arrival, arrival.AddDate(0, 0, 3)

		lines, err := resolver.BookingAutosales(context.Background(), booking, autosale)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, int64(202), lines[0].ProductID)
		assert.Equal(t, 1, lines[0].Qty)
		assert.True(t, lines[0].HasOwnQty)
		assert.Equal(t, int64(21), lines[0].GroupID)
	})
}
