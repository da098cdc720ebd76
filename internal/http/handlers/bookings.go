package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/baybe/cleanbook/internal/config"
	"github.com/baybe/cleanbook/internal/domain/booking"
	"github.com/baybe/cleanbook/internal/http/middlewares"
)

type BookingStore interface {
	Create(ctx context.Context, userID string, req booking.CreateBookingRequest) (booking.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]booking.Booking, error)
	GetByID(ctx context.Context, id string) (booking.Booking, error)
	UpdateStatus(ctx context.Context, id, userID, status string) (booking.Booking, error)
}

type BookingsHandler struct {
	repo BookingStore
	log  *slog.Logger
}

func NewBookingsHandler(repo BookingStore, log *slog.Logger) *BookingsHandler {
	return &BookingsHandler{repo: repo, log: log}
}

func (h *BookingsHandler) CreateBooking(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	var req booking.CreateBookingRequest

	if !BindJSON(ctx, &req, "Invalid booking details") {
		return
	}

	// a booking is always filed under the caller's own email
	if !strings.EqualFold(u.Email, req.Email) {
		RespondForbidden(ctx, "Email does not match logged-in user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.Create(cctx, u.ID, req)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "create booking", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"booking": b,
	})
}

func (h *BookingsHandler) ListBookings(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	bookings, err := h.repo.ListByUser(cctx, u.ID)

	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "list bookings", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (h *BookingsHandler) GetBooking(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	id := ctx.Param("id")

	if uuid.Validate(id) != nil {
		RespondNotFound(ctx, "Booking not found")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			RespondNotFound(ctx, "Booking not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "get booking", "err", err)
		RespondInternal(ctx)
		return
	}

	if b.UserID != u.ID {
		RespondForbidden(ctx, "Not allowed to view this booking")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"booking": b})
}

// UpdateBookingStatus requires ownership. Every mutation path checks the
// owner; there is no ownerless update route.
func (h *BookingsHandler) UpdateBookingStatus(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	id := ctx.Param("id")

	if uuid.Validate(id) != nil {
		RespondNotFound(ctx, "Booking not found")
		return
	}

	var req booking.UpdateStatusRequest

	if !BindJSON(ctx, &req, "Please provide a status") {
		return
	}

	if !booking.ValidStatus(req.Status) {
		RespondBadRequest(ctx, "Invalid status")
		return
	}

	h.changeStatus(ctx, u.ID, id, req.Status, "Status updated")
}

// CancelBooking marks a booking cancelled rather than deleting the row, so
// history stays intact.
func (h *BookingsHandler) CancelBooking(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Not authorized")
		return
	}

	id := ctx.Param("id")

	if uuid.Validate(id) != nil {
		RespondNotFound(ctx, "Booking not found")
		return
	}

	h.changeStatus(ctx, u.ID, id, booking.StatusCancelled, "Booking cancelled")
}

func (h *BookingsHandler) changeStatus(ctx *gin.Context, userID, id, status, message string) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	current, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			RespondNotFound(ctx, "Booking not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "update booking", "err", err)
		RespondInternal(ctx)
		return
	}

	if current.UserID != userID {
		RespondForbidden(ctx, "Not allowed to update this booking")
		return
	}

	b, err := h.repo.UpdateStatus(cctx, id, userID, status)

	if err != nil {
		// UpdateStatus is owner-scoped, so a vanished row reads as not found
		if errors.Is(err, booking.ErrNotFound) {
			RespondNotFound(ctx, "Booking not found")
			return
		}

		h.log.ErrorContext(ctx.Request.Context(), "update booking", "err", err)
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
		"booking": b,
	})
}
