package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/gin-gonic/gin"
)

// CenterCatalog is the part of the catalog service the planning screens read.
type CenterCatalog interface {
	GetCenter(ctx context.Context, id int64) (*domain.Center, error)
	ListRentalUnits(ctx context.Context, centerID int64) ([]domain.RentalUnit, error)
	Invalidate(ctx context.Context, centerID int64) error
}

type CenterHandler struct {
	catalog CenterCatalog
}

func NewCenterHandler(catalog CenterCatalog) *CenterHandler {
	return &CenterHandler{catalog: catalog}
}

func (h *CenterHandler) Register(router *gin.RouterGroup) {
	router.GET("/:id", h.get)
	router.GET("/:id/rental-units", h.rentalUnits)
	router.DELETE("/:id/rental-units/cache", h.invalidate)
}

func (h *CenterHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	center, err := h.catalog.GetCenter(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "center not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, center)
}

func (h *CenterHandler) rentalUnits(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	units, err := h.catalog.ListRentalUnits(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, units)
}

func (h *CenterHandler) invalidate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.Invalidate(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
