package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproperty "rentme/internal/domain/property"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("agg_property")}
}

func (r *PropertyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "host_id", Value: 1}}})
	return err
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	doc := newPropertyDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

func (r *PropertyRepository) ListByHost(ctx context.Context, host domainproperty.HostID) ([]*domainproperty.Property, error) {
	return r.find(ctx, bson.M{"host_id": string(host)})
}

func (r *PropertyRepository) ListWithCalendarFeed(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.find(ctx, bson.M{"calendar_feed_url": bson.M{"$nin": bson.A{"", nil}}})
}

func (r *PropertyRepository) find(ctx context.Context, filter bson.M) ([]*domainproperty.Property, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []propertyDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainproperty.Property, 0, len(docs))
	for _, d := range docs {
		p, err := d.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

type propertyDocument struct {
	ID                   string        `bson:"_id"`
	HostID               string        `bson:"host_id"`
	Title                string        `bson:"title"`
	BaseRate             moneyDocument `bson:"base_rate"`
	CleaningFee          moneyDocument `bson:"cleaning_fee"`
	ServiceFeeRate       string        `bson:"service_fee_rate"`
	TaxRate              string        `bson:"tax_rate"`
	GuestCapacity        int           `bson:"guest_capacity"`
	CancellationPolicyID string        `bson:"cancellation_policy_id"`
	CalendarFeedURL      string        `bson:"calendar_feed_url"`
	CreatedAt            int64         `bson:"created_at"`
	UpdatedAt            int64         `bson:"updated_at"`
	Version              int64         `bson:"version"`
}

func newPropertyDocument(p *domainproperty.Property) propertyDocument {
	return propertyDocument{
		ID:                   string(p.ID),
		HostID:               string(p.Host),
		Title:                p.Title,
		BaseRate:             newMoneyDocument(p.Pricing.BaseRate),
		CleaningFee:          newMoneyDocument(p.Pricing.CleaningFee),
		ServiceFeeRate:       p.Pricing.ServiceFeeRate.String(),
		TaxRate:              p.Pricing.TaxRate.String(),
		GuestCapacity:        p.Pricing.GuestCapacity,
		CancellationPolicyID: p.CancellationPolicyID,
		CalendarFeedURL:      p.CalendarFeedURL,
		CreatedAt:            p.CreatedAt.UnixMilli(),
		UpdatedAt:            p.UpdatedAt.UnixMilli(),
		Version:              p.Version,
	}
}

func (d propertyDocument) toAggregate() (*domainproperty.Property, error) {
	serviceRate, err := parseDecimal("service_fee_rate", d.ServiceFeeRate)
	if err != nil {
		return nil, err
	}
	taxRate, err := parseDecimal("tax_rate", d.TaxRate)
	if err != nil {
		return nil, err
	}
	return &domainproperty.Property{
		ID:    domainproperty.PropertyID(d.ID),
		Host:  domainproperty.HostID(d.HostID),
		Title: d.Title,
		Pricing: domainproperty.Pricing{
			BaseRate:       d.BaseRate.toMoney(),
			CleaningFee:    d.CleaningFee.toMoney(),
			ServiceFeeRate: serviceRate,
			TaxRate:        taxRate,
			GuestCapacity:  d.GuestCapacity,
		},
		CancellationPolicyID: d.CancellationPolicyID,
		CalendarFeedURL:      d.CalendarFeedURL,
		CreatedAt:            timestampToTime(d.CreatedAt),
		UpdatedAt:            timestampToTime(d.UpdatedAt),
		Version:              d.Version,
	}, nil
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
