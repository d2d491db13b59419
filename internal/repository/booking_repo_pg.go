package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGBookingRepository stores each booking as one JSONB document with its searchable
// header columns next to it. Consumptions live in their own table and are replaced in the
// same transaction as the booking.
type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Get(ctx context.Context, id int64) (*domain.Booking, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM bookings WHERE id=$1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var b domain.Booking
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode booking %d: %w", id, err)
	}
	return &b, nil
}

func (r *PGBookingRepository) Save(ctx context.Context, booking *domain.Booking, set *ConsumptionSet) error {
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	data, err := json.Marshal(booking)
	if err != nil {
		return fmt.Errorf("encode booking %d: %w", booking.ID, err)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO bookings (id, customer_id, center_id, status, date_from, date_to, nb_pers, price, paid_amount, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			customer_id=EXCLUDED.customer_id, center_id=EXCLUDED.center_id, status=EXCLUDED.status,
			date_from=EXCLUDED.date_from, date_to=EXCLUDED.date_to, nb_pers=EXCLUDED.nb_pers,
			price=EXCLUDED.price, paid_amount=EXCLUDED.paid_amount, data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		booking.ID, booking.CustomerID, booking.CenterID, booking.Status, booking.DateFrom, booking.DateTo, booking.NbPers,
		booking.Price, booking.PaidAmount, data, booking.CreatedAt, booking.UpdatedAt); err != nil {
		return fmt.Errorf("upsert booking %d: %w", booking.ID, err)
	}

	if set != nil {
		if err := replaceConsumptions(ctx, tx, booking.ID, set); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// replaceConsumptions drops the booking's consumptions in scope (repairs excepted) and
// copies the new set in.
func replaceConsumptions(ctx context.Context, tx pgx.Tx, bookingID int64, set *ConsumptionSet) error {
	groupIDs := set.GroupIDs
	if groupIDs == nil {
		groupIDs = []int64{}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM consumptions
		WHERE booking_id=$1 AND type <> $2 AND (cardinality($3::bigint[]) = 0 OR group_id = ANY($3))`,
		bookingID, domain.ConsumptionTypeOOO, groupIDs); err != nil {
		return fmt.Errorf("delete consumptions of booking %d: %w", bookingID, err)
	}
	if len(set.Items) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(set.Items))
	for _, c := range set.Items {
		rows = append(rows, []any{
			c.BookingID, c.GroupID, c.CenterID, c.Date, c.ScheduleFrom, c.ScheduleTo, c.Start(), c.End(),
			c.RentalUnitID, c.LineID, c.ProductID, c.Qty, string(c.Type), c.IsAccomodation, c.IsMeal, c.Description,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"consumptions"}, consumptionColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy consumptions of booking %d: %w", bookingID, err)
	}
	return nil
}

var consumptionColumns = []string{
	"booking_id", "group_id", "center_id", "date", "schedule_from", "schedule_to", "starts_at", "ends_at",
	"rental_unit_id", "line_id", "product_id", "qty", "type", "is_accomodation", "is_meal", "description",
}

func (r *PGBookingRepository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('discope_ids')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return id, nil
}

func (r *PGBookingRepository) CountCustomerBookings(ctx context.Context, customerID int64, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE customer_id=$1 AND status NOT IN ($2, $3, $4) AND date_from >= $5 AND date_from <= $6`,
		customerID, domain.BookingStatusQuote, domain.BookingStatusOption, domain.BookingStatusCancelled, from, to).Scan(&n)
	return n, err
}

func (r *PGBookingRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Consumption, error) {
	rows, err := r.db.Query(ctx, `SELECT `+consumptionSelect+` FROM consumptions
		WHERE booking_id=$1 ORDER BY date, schedule_from, id`, bookingID)
	if err != nil {
		return nil, err
	}
	return collectConsumptions(rows)
}

func (r *PGBookingRepository) ListOverlapping(ctx context.Context, centerID int64, from, to time.Time, excludeBookingID int64) ([]domain.Consumption, error) {
	rows, err := r.db.Query(ctx, `SELECT `+consumptionSelect+` FROM consumptions
		WHERE center_id=$1 AND rental_unit_id IS NOT NULL
			AND starts_at < $3 AND ends_at > $2
			AND (booking_id <> $4 OR type = $5)`,
		centerID, from, to, excludeBookingID, domain.ConsumptionTypeOOO)
	if err != nil {
		return nil, err
	}
	return collectConsumptions(rows)
}

const consumptionSelect = `id, booking_id, group_id, center_id, date, schedule_from, schedule_to,
	rental_unit_id, line_id, product_id, qty, type, is_accomodation, is_meal, description`

func collectConsumptions(rows pgx.Rows) ([]domain.Consumption, error) {
	defer rows.Close()
	out := make([]domain.Consumption, 0)
	for rows.Next() {
		var c domain.Consumption
		var typ string
		if err := rows.Scan(&c.ID, &c.BookingID, &c.GroupID, &c.CenterID, &c.Date, &c.ScheduleFrom, &c.ScheduleTo,
			&c.RentalUnitID, &c.LineID, &c.ProductID, &c.Qty, &typ, &c.IsAccomodation, &c.IsMeal, &c.Description); err != nil {
			return nil, err
		}
		c.Type = domain.ConsumptionType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

var (
	_ BookingRepository     = (*PGBookingRepository)(nil)
	_ ConsumptionRepository = (*PGBookingRepository)(nil)
)
