package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentme/internal/app/commands"
	"rentme/internal/app/dto"
	bookingapp "rentme/internal/app/handlers/booking"
	"rentme/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createBookingRequest struct {
	PropertyID string `json:"property_id"`
	stayRequest
	Guests int `json:"guests"`
}

func (h BookingHandler) Create(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	in, out, err := req.days()
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		PropertyID:      req.PropertyID,
		GuestID:         p.ID,
		CheckIn:         in,
		CheckOut:        out,
		Guests:          req.Guests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *bookingapp.RequestBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Confirm captures the booking total. Settled payments reported by the
// processor arrive through the payment results consumer instead.
func (h BookingHandler) Confirm(c *gin.Context) {
	h.status(c, bookingapp.ConfirmBookingPaymentCommand{BookingID: c.Param("id")})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	var cmd bookingapp.CancelBookingCommand
	if c.Request.ContentLength > 0 && !bindJSON(c, &cmd) {
		return
	}
	cmd.BookingID = c.Param("id")
	h.status(c, cmd)
}

func (h BookingHandler) Complete(c *gin.Context) {
	h.status(c, bookingapp.CompleteBookingCommand{BookingID: c.Param("id")})
}

func (h BookingHandler) status(c *gin.Context, cmd commands.Command) {
	result, err := h.Commands.Dispatch(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type MeHandler struct {
	Queries queries.Bus
}

func (h MeHandler) ListBookings(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	query := bookingapp.ListGuestBookingsQuery{GuestID: p.ID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type HostHandler struct {
	Queries queries.Bus
}

func (h HostHandler) ListBookings(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	query := bookingapp.ListHostBookingsQuery{HostID: p.ID, Status: c.Query("status")}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostHandler) Earnings(c *gin.Context) {
	p, ok := currentPrincipal(c)
	if !ok {
		return
	}
	query := bookingapp.HostEarningsQuery{HostID: p.ID}
	result, err := queries.Ask[bookingapp.HostEarningsQuery, dto.HostEarnings](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var (
	_ BookingHTTP = BookingHandler{}
	_ MeHTTP      = MeHandler{}
	_ HostHTTP    = HostHandler{}
)
