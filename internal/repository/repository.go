package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
)

// CatalogRepository reads reference data. Lookups that find nothing return domain.ErrNotFound.
type CatalogRepository interface {
	GetCenter(ctx context.Context, id int64) (*domain.Center, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductModel(ctx context.Context, id int64) (*domain.ProductModel, error)
	GetAgeRange(ctx context.Context, id int64) (*domain.AgeRange, error)
	ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error)
	// FindPriceLists returns lists covering date, narrowest window first.
	FindPriceLists(ctx context.Context, categoryID int64, date time.Time, statuses []domain.PriceListStatus) ([]domain.PriceList, error)
	FindPrice(ctx context.Context, priceListID, productID int64) (*domain.Price, error)
	FindDiscountList(ctx context.Context, categoryID, rateClassID int64, date time.Time) (*domain.DiscountList, error)
	FindAutosaleList(ctx context.Context, categoryID int64, date time.Time) (*domain.AutosaleList, error)
	FindSeasonPeriod(ctx context.Context, categoryID int64, date time.Time) (*domain.SeasonPeriod, error)
}

// ConsumptionSet replaces the consumptions of a booking when saved along with it.
// An empty GroupIDs means the whole booking.
type ConsumptionSet struct {
	GroupIDs []int64
	Items    []domain.Consumption
}

type BookingRepository interface {
	Get(ctx context.Context, id int64) (*domain.Booking, error)
	// Save persists the aggregate, and the consumption set when given, atomically.
	Save(ctx context.Context, booking *domain.Booking, consumptions *ConsumptionSet) error
	NextID(ctx context.Context) (int64, error)
	// CountCustomerBookings ignores quotes, options and cancelled bookings.
	CountCustomerBookings(ctx context.Context, customerID int64, from, to time.Time) (int, error)
}

type ConsumptionRepository interface {
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Consumption, error)
	// ListOverlapping returns consumptions of other bookings (and repairs) at the center
	// intersecting [from, to).
	ListOverlapping(ctx context.Context, centerID int64, from, to time.Time, excludeBookingID int64) ([]domain.Consumption, error)
}
