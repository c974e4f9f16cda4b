package ginserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentme/internal/app/access"
	"rentme/internal/app/bootstrap"
	"rentme/internal/app/dto"
	bookingapp "rentme/internal/app/handlers/booking"
	"rentme/internal/app/uow"
	domainavailability "rentme/internal/domain/availability"
	domainpricing "rentme/internal/domain/pricing"
	dbmongo "rentme/internal/infra/db/mongo"
	"rentme/internal/infra/db/postgres"
	"rentme/internal/infra/obs"
	"rentme/internal/infra/payments"
	"rentme/internal/infra/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	buses := bootstrap.NewBuses(bootstrap.Dependencies{
		UoW:         memory.Factory{Store: store},
		Outbox:      memory.NewOutbox(store),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Locker:      memory.NewLocker(),
		Payments:    payments.NewSandbox(0),
		Clock:       func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
		Logger:      logger,
	})
	return NewRouter(obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Property:     PropertyHandler{Commands: buses.Commands, Queries: buses.Queries},
		Pricing:      PricingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Availability: AvailabilityHandler{Commands: buses.Commands, Queries: buses.Queries},
		Booking:      BookingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Me:           MeHandler{Queries: buses.Queries},
		Host:         HostHandler{Queries: buses.Queries},
		Identity:     Identity(),
	})
}

type caller struct {
	id    string
	roles string
}

var (
	host  = caller{"host-1", "host"}
	alice = caller{"alice", "guest"}
	bob   = caller{"bob", "guest"}
)

func do(t *testing.T, r http.Handler, who *caller, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(headerUserID, who.id)
		req.Header.Set(headerUserRoles, who.roles)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func propertyBody() map[string]any {
	return map[string]any{
		"title": "Harbour flat",
		"pricing": map[string]any{
			"currency":         "USD",
			"base_rate":        "100.00",
			"cleaning_fee":     "50.00",
			"service_fee_rate": "0.15",
			"tax_rate":         "0.0625",
			"guest_capacity":   4,
		},
	}
}

func createProperty(t *testing.T, r http.Handler) string {
	t.Helper()
	rec := do(t, r, &host, http.MethodPost, "/api/v1/properties", propertyBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.Property](t, rec).ID
}

func book(t *testing.T, r http.Handler, who caller, propertyID, in, out string, guests int, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, r, &who, http.MethodPost, "/api/v1/bookings", map[string]any{
		"property_id": propertyID,
		"check_in":    in,
		"check_out":   out,
		"guests":      guests,
	}, headers...)
}

func TestQuoteEndpoint(t *testing.T) {
	r := newTestRouter(t)
	id := createProperty(t, r)

	rec := do(t, r, nil, http.MethodGet, "/api/v1/properties/"+id+"/quote?check_in=2025-07-01&check_out=2025-07-04&guests=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[dto.Quote](t, rec)
	assert.Equal(t, "419.69", q.Total.Display)
	assert.Len(t, q.Nights, 3)
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	id := createProperty(t, r)

	rec := book(t, r, alice, id, "2025-07-01", "2025-07-04", 2, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[bookingapp.RequestBookingResult](t, rec)
	assert.Equal(t, "PENDING", created.Status)

	replay := book(t, r, alice, id, "2025-07-01", "2025-07-04", 2, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, created.BookingID, decode[bookingapp.RequestBookingResult](t, replay).BookingID)

	rec = book(t, r, bob, id, "2025-07-03", "2025-07-05", 2)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "date_conflict", decode[errorResponse](t, rec).Error)

	// a client supplied reference is ignored, the total is captured
	rec = do(t, r, &alice, http.MethodPost, "/api/v1/bookings/"+created.BookingID+"/confirm", map[string]any{"payment_ref": "i-promise-i-paid"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CONFIRMED", decode[dto.BookingStatusResult](t, rec).Status)

	rec = do(t, r, &alice, http.MethodGet, "/api/v1/bookings/"+created.BookingID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	booking := decode[dto.Booking](t, rec)
	assert.NotEqual(t, "i-promise-i-paid", booking.PaymentRef)
	assert.True(t, strings.HasPrefix(booking.PaymentRef, "pay_"), booking.PaymentRef)

	rec = do(t, r, &bob, http.MethodGet, "/api/v1/bookings/"+created.BookingID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, r, &host, http.MethodGet, "/api/v1/host/bookings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)

	rec = do(t, r, &alice, http.MethodGet, "/api/v1/me/bookings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)
}

func TestCapacityMapsToUnprocessable(t *testing.T) {
	r := newTestRouter(t)
	id := createProperty(t, r)

	rec := book(t, r, alice, id, "2025-07-01", "2025-07-04", 6)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "capacity_exceeded", decode[errorResponse](t, rec).Error)
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter(t)
	id := createProperty(t, r)

	cases := []struct {
		name string
		rec  *httptest.ResponseRecorder
		code string
	}{
		{"reversed dates", book(t, r, alice, id, "2025-07-04", "2025-07-01", 2), "invalid_range"},
		{"malformed date", book(t, r, alice, id, "July 1st", "2025-07-04", 2), "invalid_request"},
		{"guests not a number", do(t, r, nil, http.MethodGet, "/api/v1/properties/"+id+"/quote?check_in=2025-07-01&check_out=2025-07-04&guests=two", nil), "invalid_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, tc.rec.Code)
			assert.Equal(t, tc.code, decode[errorResponse](t, tc.rec).Error)
		})
	}
}

func TestIdentityIsRequired(t *testing.T) {
	r := newTestRouter(t)
	id := createProperty(t, r)

	rec := book(t, r, caller{}, id, "2025-07-01", "2025-07-04", 2)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the system role cannot be claimed from outside
	rec = do(t, r, &caller{"mallory", "system"}, http.MethodPost, "/api/v1/properties", propertyBody())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownPropertyIsNotFound(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, nil, http.MethodGet, "/api/v1/properties/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "property_not_found", body.Error)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body.RequestID)
	assert.NotEmpty(t, body.RequestID)
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t)
	assert.Equal(t, http.StatusOK, do(t, r, nil, http.MethodGet, "/livez", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, nil, http.MethodGet, "/readyz", nil).Code)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&domainavailability.DateConflictError{}, http.StatusConflict},
		{fmt.Errorf("commit: %w", uow.ErrCalendarContention), http.StatusConflict},
		{&domainpricing.CapacityExceededError{Guests: 5, Capacity: 2}, http.StatusUnprocessableEntity},
		{access.ErrForbidden, http.StatusForbidden},
		{bookingapp.ErrPaymentRefNotAllowed, http.StatusForbidden},
		{fmt.Errorf("save booking: %w", postgres.ErrConcurrentUpdate), http.StatusConflict},
		{fmt.Errorf("save booking: %w", dbmongo.ErrConcurrentUpdate), http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _, _ := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}
