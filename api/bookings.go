package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/discope/internal/domain"
	"github.com/Domenick1991/discope/internal/service/booking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service booking.BookingUseCase
	logger  *zap.Logger
}

type bookingResponse struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	CenterID         int64           `json:"center_id"`
	Status           string          `json:"status"`
	DateFrom         string          `json:"date_from,omitempty"`
	DateTo           string          `json:"date_to,omitempty"`
	NbPers           int             `json:"nb_pers"`
	Price            string          `json:"price"`
	PaidAmount       string          `json:"paid_amount"`
	IsLocked         bool            `json:"is_locked"`
	Description      string          `json:"description"`
	PaymentReference string          `json:"payment_reference"`
	Groups           []*domain.Group `json:"groups"`
}

type consumptionsResponse struct {
	BookingID    int64                `json:"booking_id"`
	Consumptions []domain.Consumption `json:"consumptions"`
}

func NewBookingHandler(service booking.BookingUseCase, logger *zap.Logger) *BookingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingHandler{service: service, logger: logger}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.POST("/:id/status/fundings", h.updateStatusFromFundings)
	router.POST("/:id/consumptions", h.regenerateConsumptions)
	router.GET("/:id/consumptions", h.listConsumptions)
	router.POST("/:id/groups", h.createGroup)
	router.PATCH("/:id/groups/:group_id", h.updateGroup)
	router.DELETE("/:id/groups/:group_id", h.deleteGroup)
	router.POST("/:id/groups/:group_id/lines", h.addLine)
	router.PATCH("/:id/lines/:line_id", h.updateLine)
	router.DELETE("/:id/lines/:line_id", h.deleteLine)
	router.POST("/:id/groups/:group_id/adapters", h.createAdapter)
	router.PATCH("/:id/adapters/:adapter_id", h.updateAdapter)
	router.POST("/:id/rental-units/recheck", h.recheckRentalUnits)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req booking.CreateBookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.service.GetBooking(c.Request.Context(), id))
}

func (h *BookingHandler) update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req booking.UpdateBookingInput
	if !bind(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateBooking(c.Request.Context(), id, req))
}

func (h *BookingHandler) updateStatusFromFundings(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req booking.FundingsInput
	if !bind(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateStatusFromFundings(c.Request.Context(), id, req))
}

func (h *BookingHandler) regenerateConsumptions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.service.RegenerateConsumptions(c.Request.Context(), id))
}

func (h *BookingHandler) listConsumptions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.service.ListConsumptions(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, consumptionsResponse{BookingID: id, Consumptions: items})
}

func (h *BookingHandler) createGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req booking.CreateGroupInput
	if !bind(c, &req) {
		return
	}
	b, err := h.service.CreateGroup(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) updateGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	var req booking.UpdateGroupInput
	if !bind(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateGroup(c.Request.Context(), id, groupID, req))
}

func (h *BookingHandler) deleteGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	h.respond(c)(h.service.DeleteGroup(c.Request.Context(), id, groupID))
}

func (h *BookingHandler) addLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	var req booking.AddLineInput
	if !bind(c, &req) {
		return
	}
	b, err := h.service.AddLine(c.Request.Context(), id, groupID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) updateLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "line_id")
	if !ok {
		return
	}
	var req booking.UpdateLineInput
	if !bind(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateLine(c.Request.Context(), id, lineID, req))
}

func (h *BookingHandler) deleteLine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	lineID, ok := pathID(c, "line_id")
	if !ok {
		return
	}
	h.respond(c)(h.service.DeleteLine(c.Request.Context(), id, lineID))
}

func (h *BookingHandler) createAdapter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	groupID, ok := pathID(c, "group_id")
	if !ok {
		return
	}
	var req booking.AdapterInput
	if !bind(c, &req) {
		return
	}
	b, err := h.service.CreateAdapter(c.Request.Context(), id, groupID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) updateAdapter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	adapterID, ok := pathID(c, "adapter_id")
	if !ok {
		return
	}
	var req booking.UpdateAdapterInput
	if !bind(c, &req) {
		return
	}
	h.respond(c)(h.service.UpdateAdapter(c.Request.Context(), id, adapterID, req))
}

func (h *BookingHandler) recheckRentalUnits(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c)(h.service.RecheckRentalUnits(c.Request.Context(), id))
}

// respond writes the booking returned by a cascade trigger, or the error it failed with.
func (h *BookingHandler) respond(c *gin.Context) func(*domain.Booking, error) {
	return func(b *domain.Booking, err error) {
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(b))
	}
}

func (h *BookingHandler) fail(c *gin.Context, err error) {
	if v, ok := domain.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": map[string]string(v)})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("booking request failed",
			zap.String("method", c.Request.Method), zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:               b.ID,
		CustomerID:       b.CustomerID,
		CenterID:         b.CenterID,
		Status:           string(b.Status),
		NbPers:           b.NbPers,
		Price:            b.Price.String(),
		PaidAmount:       b.PaidAmount.String(),
		IsLocked:         b.IsLocked,
		Description:      b.Description,
		PaymentReference: b.PaymentReference,
		Groups:           b.Groups,
	}
	if !b.DateFrom.IsZero() {
		resp.DateFrom = b.DateFrom.Format(time.DateOnly)
		resp.DateTo = b.DateTo.Format(time.DateOnly)
	}
	if resp.Groups == nil {
		resp.Groups = []*domain.Group{}
	}
	return resp
}
