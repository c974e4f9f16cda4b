package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainbooking "rentme/internal/domain/booking"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
	"rentme/internal/domain/shared/money"
)

const bookingColumns = `id, property_id, guest_id, check_in, check_out, guests, quote, status, payment_status,
	payment_ref, policy_id, free_cancellation_until, pre_check_in_penalty_percent, post_check_in_penalty_percent,
	cancel_reason, refund_minor, refund_currency, created_at, updated_at, version`

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id))
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, domainbooking.ErrBookingNotFound)
	}
	return b, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	quote, err := encodeQuote(b.Quote)
	if err != nil {
		return fmt.Errorf("postgres: encode quote: %w", err)
	}
	var freeUntil *time.Time
	if !b.Policy.FreeCancellationUntil.IsZero() {
		t := b.Policy.FreeCancellationUntil
		freeUntil = &t
	}
	q := conn(ctx, r.pool)
	if b.Version == 0 {
		_, err := q.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1)`,
			string(b.ID), string(b.PropertyID), b.GuestID, b.Range.CheckIn, b.Range.CheckOut, b.Guests, quote,
			string(b.Status), string(b.PaymentStatus), b.PaymentRef, b.Policy.PolicyID, freeUntil,
			b.Policy.PreCheckInPenaltyPercent, b.Policy.PostCheckInPenaltyPercent, b.CancelReason,
			b.Refund.Amount, b.Refund.Currency, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		b.Version = 1
		return nil
	}
	tag, err := q.Exec(ctx, `UPDATE bookings SET status = $3, payment_status = $4, payment_ref = $5,
		cancel_reason = $6, refund_minor = $7, refund_currency = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2`,
		string(b.ID), b.Version, string(b.Status), string(b.PaymentStatus), b.PaymentRef,
		b.CancelReason, b.Refund.Amount, b.Refund.Currency, b.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	b.Version++
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE guest_id = $1 ORDER BY check_in, id`, guestID)
}

func (r *BookingRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE property_id = $1 ORDER BY check_in, id`, string(id))
}

func (r *BookingRepository) ListOccupying(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE property_id = $1 AND status IN ($2, $3) ORDER BY check_in, id`,
		string(id), string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed))
}

func (r *BookingRepository) list(ctx context.Context, sql string, args ...any) ([]*domainbooking.Booking, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainbooking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*domainbooking.Booking, error) {
	var (
		b                     domainbooking.Booking
		id, propertyID        string
		checkIn, checkOut     time.Time
		quote                 []byte
		status, paymentStatus string
		freeUntil             *time.Time
		refundAmount          int64
		refundCurrency        string
	)
	err := row.Scan(&id, &propertyID, &b.GuestID, &checkIn, &checkOut, &b.Guests, &quote, &status, &paymentStatus,
		&b.PaymentRef, &b.Policy.PolicyID, &freeUntil, &b.Policy.PreCheckInPenaltyPercent, &b.Policy.PostCheckInPenaltyPercent,
		&b.CancelReason, &refundAmount, &refundCurrency, &b.CreatedAt, &b.UpdatedAt, &b.Version)
	if err != nil {
		return nil, err
	}
	q, err := decodeQuote(quote)
	if err != nil {
		return nil, fmt.Errorf("postgres: decode quote of booking %s: %w", id, err)
	}
	b.ID = domainbooking.BookingID(id)
	b.PropertyID = domainproperty.PropertyID(propertyID)
	b.Range = daterange.DateRange{CheckIn: asDay(checkIn), CheckOut: asDay(checkOut)}
	b.Quote = q
	b.Status = domainbooking.Status(status)
	b.PaymentStatus = domainbooking.PaymentStatus(paymentStatus)
	if freeUntil != nil {
		b.Policy.FreeCancellationUntil = freeUntil.UTC()
	}
	b.Refund = money.Money{Amount: refundAmount, Currency: refundCurrency}
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return &b, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
