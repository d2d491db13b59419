// Package catalog serves the reference data the engine reads, keeping the rental units of
// each center in a read-through cache.
package catalog

import (
	"context"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/repository"
	"go.uber.org/zap"
)

type RentalUnitCache interface {
	GetRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error)
	SetRentalUnits(ctx context.Context, centerID int64, units []domain.RentalUnit, ttl time.Duration) error
	InvalidateRentalUnits(ctx context.Context, centerID int64) error
}

// CatalogService wraps a catalog repository; everything but rental units is read through.
type CatalogService struct {
	repository.CatalogRepository
	cache    RentalUnitCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewCatalogService(repo repository.CatalogRepository, cache RentalUnitCache, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{CatalogRepository: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// ListRentalUnits answers from the cache when it can. Cache failures fall back to the
// repository.
func (s *CatalogService) ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRentalUnits(ctx, centerID)
		if err != nil {
			s.logger.Warn("rental units cache read failed", zap.Int64("center_id", centerID), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	units, err := s.CatalogRepository.ListRentalUnits(ctx, centerID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRentalUnits(ctx, centerID, units, s.cacheTTL); err != nil {
			s.logger.Warn("rental units cache write failed", zap.Int64("center_id", centerID), zap.Error(err))
		}
	}
	return units, nil
}

// Invalidate drops the cached rental units of a center after the inventory changed.
func (s *CatalogService) Invalidate(ctx context.Context, centerID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateRentalUnits(ctx, centerID)
}

var _ repository.CatalogRepository = (*CatalogService)(nil)
