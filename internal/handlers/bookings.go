package handlers

import (
	"net/http"

	"skybook/internal/models"

	"github.com/gin-gonic/gin"
)

// Booking handlers

// CreateBooking - POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Create(c.Request.Context(), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// ListBookings - GET /api/bookings
// Admin listing with optional free-text query and status filter.
func (h *Handlers) ListBookings(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var q models.ListBookingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookings, err := h.services.Bookings.List(c.Request.Context(), id, q)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// ListMyBookings - GET /api/bookings/mine
func (h *Handlers) ListMyBookings(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	bookings, err := h.services.Bookings.Mine(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookingID(c)
	if !ok {
		return
	}

	booking, err := h.services.Bookings.Get(c.Request.Context(), id, bid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateBooking - PUT /api/bookings/:id
// Reconciles the passenger list while the booking is still pending.
func (h *Handlers) UpdateBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookingID(c)
	if !ok {
		return
	}

	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := h.services.Bookings.Update(c.Request.Context(), id, bid, &req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking updated successfully.",
		"booking": booking,
	})
}

// DeleteBooking - DELETE /api/bookings/:id
func (h *Handlers) DeleteBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookingID(c)
	if !ok {
		return
	}

	if err := h.services.Bookings.Delete(c.Request.Context(), id, bid); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking deleted successfully."})
}

// ConfirmBooking - PUT /api/bookings/:id/confirm
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookingID(c)
	if !ok {
		return
	}

	booking, err := h.services.Bookings.Confirm(c.Request.Context(), id, bid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking confirmed successfully.",
		"booking": booking,
	})
}

// CancelBooking - PUT /api/bookings/:id/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookingID(c)
	if !ok {
		return
	}

	receipt, err := h.services.Bookings.Cancel(c.Request.Context(), id, bid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// ReviewBooking - GET /api/bookings/:id/review
func (h *Handlers) ReviewBooking(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	bid, ok := bookingID(c)
	if !ok {
		return
	}

	review, err := h.services.Bookings.Review(c.Request.Context(), id, bid)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}
