package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "rentme/internal/domain/booking"
	domainproperty "rentme/internal/domain/property"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}}},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID})
}

func (r *BookingRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"property_id": string(id)})
}

func (r *BookingRepository) ListOccupying(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{
		"property_id": string(id),
		"status":      bson.M{"$in": bson.A{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}},
	})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type policyDocument struct {
	PolicyID                  string `bson:"policy_id"`
	FreeCancellationUntil     int64  `bson:"free_cancellation_until"`
	PreCheckInPenaltyPercent  int    `bson:"pre_check_in_penalty_percent"`
	PostCheckInPenaltyPercent int    `bson:"post_check_in_penalty_percent"`
}

type bookingDocument struct {
	ID            string         `bson:"_id"`
	PropertyID    string         `bson:"property_id"`
	GuestID       string         `bson:"guest_id"`
	Range         rangeDocument  `bson:"range"`
	Guests        int            `bson:"guests"`
	Quote         quoteDocument  `bson:"quote"`
	Status        string         `bson:"status"`
	PaymentStatus string         `bson:"payment_status"`
	PaymentRef    string         `bson:"payment_ref"`
	Policy        policyDocument `bson:"policy"`
	CancelReason  string         `bson:"cancel_reason"`
	Refund        moneyDocument  `bson:"refund"`
	CreatedAt     int64          `bson:"created_at"`
	UpdatedAt     int64          `bson:"updated_at"`
	Version       int64          `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:            string(b.ID),
		PropertyID:    string(b.PropertyID),
		GuestID:       b.GuestID,
		Range:         newRangeDocument(b.Range),
		Guests:        b.Guests,
		Quote:         newQuoteDocument(b.Quote),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PaymentRef:    b.PaymentRef,
		Policy: policyDocument{
			PolicyID:                  b.Policy.PolicyID,
			FreeCancellationUntil:     b.Policy.FreeCancellationUntil.UnixMilli(),
			PreCheckInPenaltyPercent:  b.Policy.PreCheckInPenaltyPercent,
			PostCheckInPenaltyPercent: b.Policy.PostCheckInPenaltyPercent,
		},
		CancelReason: b.CancelReason,
		Refund:       newMoneyDocument(b.Refund),
		CreatedAt:    b.CreatedAt.UnixMilli(),
		UpdatedAt:    b.UpdatedAt.UnixMilli(),
		Version:      b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:            domainbooking.BookingID(d.ID),
		PropertyID:    domainproperty.PropertyID(d.PropertyID),
		GuestID:       d.GuestID,
		Range:         d.Range.toRange(),
		Guests:        d.Guests,
		Quote:         d.Quote.toQuote(),
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentRef:    d.PaymentRef,
		Policy: domainbooking.CancellationPolicySnapshot{
			PolicyID:                  d.Policy.PolicyID,
			FreeCancellationUntil:     timestampToTime(d.Policy.FreeCancellationUntil),
			PreCheckInPenaltyPercent:  d.Policy.PreCheckInPenaltyPercent,
			PostCheckInPenaltyPercent: d.Policy.PostCheckInPenaltyPercent,
		},
		CancelReason: d.CancelReason,
		Refund:       d.Refund.toMoney(),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
		Version:      d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
