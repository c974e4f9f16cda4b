package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentme/internal/app/access"
	availabilityapp "rentme/internal/app/handlers/availability"
	bookingapp "rentme/internal/app/handlers/booking"
	pricingapp "rentme/internal/app/handlers/pricing"
	propertyapp "rentme/internal/app/handlers/properties"
	"rentme/internal/app/middleware"
	"rentme/internal/app/policies"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainbooking "rentme/internal/domain/booking"
	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
	dbmongo "rentme/internal/infra/db/mongo"
	"rentme/internal/infra/db/postgres"
	"rentme/internal/infra/obs"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorTable is matched in order with errors.Is.
var errorTable = []errorMapping{
	{daterange.ErrInvalidRange, http.StatusBadRequest, "invalid_range", "check-out must be after check-in"},
	{middleware.ErrValidation, http.StatusBadRequest, "validation_failed", ""},
	{errInvalidRequest, http.StatusBadRequest, "invalid_request", ""},
	{money.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount", ""},
	{money.ErrInvalidCurrency, http.StatusBadRequest, "invalid_currency", ""},
	{money.ErrCurrencyMismatch, http.StatusBadRequest, "currency_mismatch", ""},
	{propertyapp.ErrInvalidDecimal, http.StatusBadRequest, "invalid_rate", ""},
	{domainproperty.ErrGuestCapacity, http.StatusBadRequest, "invalid_pricing", ""},
	{domainproperty.ErrBaseRate, http.StatusBadRequest, "invalid_pricing", ""},
	{domainproperty.ErrCleaningFee, http.StatusBadRequest, "invalid_pricing", ""},
	{domainproperty.ErrFeeRate, http.StatusBadRequest, "invalid_pricing", ""},
	{domainproperty.ErrTitleRequired, http.StatusBadRequest, "invalid_property", ""},
	{domainpricing.ErrInvalidMultiplier, http.StatusBadRequest, "invalid_rule", ""},
	{domainpricing.ErrRuleNameRequired, http.StatusBadRequest, "invalid_rule", ""},
	{domainpricing.ErrInvalidGuests, http.StatusBadRequest, "invalid_guests", ""},
	{domainbooking.ErrInvalidGuests, http.StatusBadRequest, "invalid_guests", ""},

	{access.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "authentication required"},
	{access.ErrForbidden, http.StatusForbidden, "forbidden", "insufficient permissions"},
	{bookingapp.ErrGuestMismatch, http.StatusForbidden, "forbidden", ""},
	{bookingapp.ErrBookingNotOwned, http.StatusForbidden, "forbidden", ""},
	{bookingapp.ErrPaymentRefNotAllowed, http.StatusForbidden, "forbidden", ""},

	{domainproperty.ErrPropertyNotFound, http.StatusNotFound, "property_not_found", "property not found"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found", "booking not found"},
	{domainpricing.ErrRuleNotFound, http.StatusNotFound, "rule_not_found", "seasonal rule not found"},
	{domainavailability.ErrBlockNotFound, http.StatusNotFound, "block_not_found", "block not found"},
	{pricingapp.ErrRuleNotOwned, http.StatusNotFound, "rule_not_found", "seasonal rule not found"},
	{availabilityapp.ErrBlockNotOwned, http.StatusNotFound, "block_not_found", "block not found"},

	{domainavailability.ErrDateConflict, http.StatusConflict, "date_conflict", "the requested dates are no longer available"},
	{uow.ErrCalendarContention, http.StatusConflict, "date_conflict", "the requested dates are no longer available"},
	{policies.ErrLockNotAcquired, http.StatusConflict, "calendar_busy", "the calendar is being updated, try again"},
	{postgres.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update", "the resource was changed by another request, try again"},
	{dbmongo.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update", "the resource was changed by another request, try again"},
	{domainbooking.ErrInvalidState, http.StatusConflict, "invalid_state", ""},
	{middleware.ErrIdempotencyKeyReuse, http.StatusConflict, "idempotency_key_reuse", ""},

	{domainpricing.ErrCapacityExceeded, http.StatusUnprocessableEntity, "capacity_exceeded", ""},
	{domainbooking.ErrStayNotFinished, http.StatusUnprocessableEntity, "stay_not_finished", ""},
	{availabilityapp.ErrNoCalendarFeed, http.StatusUnprocessableEntity, "no_calendar_feed", ""},
	{policies.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined", "payment was declined"},
}

var errInvalidRequest = errors.New("invalid request")

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps err onto a status and a user facing message.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, code, message := classify(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message, RequestID: obs.RequestID(c.Request.Context())})
}

func classify(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusInternalServerError, "internal", "internal error"
}
