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

// PGCatalogRepository reads the reference data maintained by the back office.
// Rows keep the full record in a JSONB column; the other columns only serve lookups.
type PGCatalogRepository struct {
	db *pgxpool.Pool
}

func NewCatalogRepository(db *pgxpool.Pool) *PGCatalogRepository {
	return &PGCatalogRepository{db: db}
}

func (r *PGCatalogRepository) GetCenter(ctx context.Context, id int64) (*domain.Center, error) {
	var c domain.Center
	if err := r.one(ctx, &c, `SELECT data FROM centers WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("center %d: %w", id, err)
	}
	return &c, nil
}

func (r *PGCatalogRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	if err := r.one(ctx, &p, `SELECT data FROM products WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	return &p, nil
}

func (r *PGCatalogRepository) GetProductModel(ctx context.Context, id int64) (*domain.ProductModel, error) {
	var m domain.ProductModel
	if err := r.one(ctx, &m, `SELECT data FROM product_models WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("product model %d: %w", id, err)
	}
	return &m, nil
}

func (r *PGCatalogRepository) GetAgeRange(ctx context.Context, id int64) (*domain.AgeRange, error) {
	var a domain.AgeRange
	if err := r.one(ctx, &a, `SELECT data FROM age_ranges WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("age range %d: %w", id, err)
	}
	return &a, nil
}

func (r *PGCatalogRepository) ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error) {
	rows, err := r.db.Query(ctx, `SELECT data FROM rental_units WHERE center_id=$1 ORDER BY id`, centerID)
	if err != nil {
		return nil, err
	}
	return collectJSON[domain.RentalUnit](rows)
}

func (r *PGCatalogRepository) FindPriceLists(ctx context.Context, categoryID int64, date time.Time, statuses []domain.PriceListStatus) ([]domain.PriceList, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := r.db.Query(ctx, `SELECT id, category_id, date_from, date_to, status FROM price_lists
		WHERE category_id=$1 AND date_from <= $2 AND date_to >= $2 AND status = ANY($3)
		ORDER BY date_to - date_from, id`, categoryID, date, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := make([]domain.PriceList, 0)
	for rows.Next() {
		var l domain.PriceList
		var status string
		if err := rows.Scan(&l.ID, &l.CategoryID, &l.DateFrom, &l.DateTo, &status); err != nil {
			return nil, err
		}
		l.Status = domain.PriceListStatus(status)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

func (r *PGCatalogRepository) FindPrice(ctx context.Context, priceListID, productID int64) (*domain.Price, error) {
	var p domain.Price
	err := r.db.QueryRow(ctx, `SELECT id, price_list_id, product_id, price, vat_rate FROM prices
		WHERE price_list_id=$1 AND product_id=$2`, priceListID, productID).
		Scan(&p.ID, &p.PriceListID, &p.ProductID, &p.Price, &p.VatRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGCatalogRepository) FindDiscountList(ctx context.Context, categoryID, rateClassID int64, date time.Time) (*domain.DiscountList, error) {
	var l domain.DiscountList
	err := r.one(ctx, &l, `SELECT data FROM discount_lists
		WHERE category_id=$1 AND rate_class_id=$2 AND valid_from <= $3 AND valid_until >= $3
		ORDER BY id LIMIT 1`, categoryID, rateClassID, date)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PGCatalogRepository) FindAutosaleList(ctx context.Context, categoryID int64, date time.Time) (*domain.AutosaleList, error) {
	var l domain.AutosaleList
	err := r.one(ctx, &l, `SELECT data FROM autosale_lists
		WHERE category_id=$1 AND valid_from <= $2 AND valid_until >= $2
		ORDER BY id LIMIT 1`, categoryID, date)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PGCatalogRepository) FindSeasonPeriod(ctx context.Context, categoryID int64, date time.Time) (*domain.SeasonPeriod, error) {
	var p domain.SeasonPeriod
	err := r.one(ctx, &p, `SELECT data FROM season_periods
		WHERE category_id=$1 AND date_from <= $2 AND date_to >= $2
		ORDER BY id LIMIT 1`, categoryID, date)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// one decodes the single JSONB column returned by query into dst.
func (r *PGCatalogRepository) one(ctx context.Context, dst any, query string, args ...any) error {
	var data []byte
	err := r.db.QueryRow(ctx, query, args...).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func collectJSON[T any](rows pgx.Rows) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

var _ CatalogRepository = (*PGCatalogRepository)(nil)
