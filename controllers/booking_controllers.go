package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dineboard/restaurant-dashboard/events"
	"github.com/dineboard/restaurant-dashboard/models"
	"github.com/dineboard/restaurant-dashboard/projection"
	"github.com/dineboard/restaurant-dashboard/reservation"
	"github.com/dineboard/restaurant-dashboard/utils"
)

// BookingController exposes the reservation coordinator over HTTP. The three
// failure kinds map to distinct status codes so the dashboard can show each
// differently: 400 fix-your-input, 409 pick-another-slot, 503 try-again.
type BookingController struct {
	Coordinator *reservation.Coordinator
	Projection  *projection.Projection
}

func NewBookingController(coord *reservation.Coordinator, proj *projection.Projection) *BookingController {
	return &BookingController{Coordinator: coord, Projection: proj}
}

// GetAllBookings lists bookings from the cached snapshot, newest slot first,
// each joined with its table for the table number column.
func (bc *BookingController) GetAllBookings(c *gin.Context) {
	bookings, err := bc.Projection.Bookings()
	if err != nil {
		utils.RespondError(c, http.StatusServiceUnavailable, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of bookings", bookings)
}

// CreateBooking books a table through the coordinator's atomic create.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req reservation.BookingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	booking, err := bc.Coordinator.CreateBooking(req)
	if err != nil {
		bc.respondCoordinatorError(c, err)
		return
	}

	bc.refreshProjection()
	events.BroadcastBookingUpdate(booking)
	events.BroadcastDashboardUpdate(bc.Projection.Stats())

	utils.InfoLogger.Printf("Booking %s created for %s (%s %s)",
		booking.ID, booking.CustomerName, booking.Date, booking.Time)
	utils.RespondJSON(c, http.StatusCreated, "Booking confirmed", booking)
}

// SeatBooking marks the party as arrived: confirmed -> seated.
func (bc *BookingController) SeatBooking(c *gin.Context) {
	bc.transition(c, "Booking seated", bc.Coordinator.SeatBooking)
}

// CancelBooking cancels a confirmed or seated booking.
func (bc *BookingController) CancelBooking(c *gin.Context) {
	bc.transition(c, "Booking cancelled", bc.Coordinator.CancelBooking)
}

// CompleteBooking closes out a seated booking.
func (bc *BookingController) CompleteBooking(c *gin.Context) {
	bc.transition(c, "Booking completed", bc.Coordinator.CompleteBooking)
}

func (bc *BookingController) transition(c *gin.Context, message string,
	op func(string) (*models.Booking, error)) {

	booking, err := op(c.Param("booking_id"))
	if err != nil {
		bc.respondCoordinatorError(c, err)
		return
	}

	bc.refreshProjection()
	events.BroadcastBookingUpdate(booking)
	events.BroadcastDashboardUpdate(bc.Projection.Stats())

	utils.InfoLogger.Printf("%s: %s", message, booking.ID)
	utils.RespondJSON(c, http.StatusOK, message, booking)
}

// refreshProjection refetches the snapshot after a successful write. A
// failure is logged but not returned: the stale snapshot stays readable and
// the load state reports the error to subsequent reads.
func (bc *BookingController) refreshProjection() {
	if err := bc.Projection.Refresh(); err != nil {
		utils.ErrorLogger.Printf("Error refreshing projection: %v", err)
	}
}

func (bc *BookingController) respondCoordinatorError(c *gin.Context, err error) {
	switch {
	case reservation.IsValidation(err):
		utils.RespondError(c, http.StatusBadRequest, err)
	case reservation.IsConflict(err):
		utils.RespondError(c, http.StatusConflict, err)
	default:
		utils.RespondError(c, http.StatusServiceUnavailable, err)
	}
}
