package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "rentme/internal/domain/availability"
	domainproperty "rentme/internal/domain/property"
)

type BlockRepository struct {
	col *mongo.Collection
}

func NewBlockRepository(db *mongo.Database) *BlockRepository {
	return &BlockRepository{col: db.Collection("calendar_blocks")}
}

func (r *BlockRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "range.check_in", Value: 1}}})
	return err
}

func (r *BlockRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainavailability.Block, error) {
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(id)}, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []blockDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainavailability.Block, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *BlockRepository) ByID(ctx context.Context, id domainavailability.BlockID) (*domainavailability.Block, error) {
	var doc blockDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrBlockNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BlockRepository) Save(ctx context.Context, b *domainavailability.Block) error {
	doc := blockDocument{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		Range:      newRangeDocument(b.Range),
		Kind:       string(b.Kind),
		Reason:     b.Reason,
		Reference:  b.Reference,
		CreatedBy:  b.CreatedBy,
		CreatedAt:  b.CreatedAt.UnixMilli(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *BlockRepository) Delete(ctx context.Context, id domainavailability.BlockID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainavailability.ErrBlockNotFound
	}
	return nil
}

type blockDocument struct {
	ID         string        `bson:"_id"`
	PropertyID string        `bson:"property_id"`
	Range      rangeDocument `bson:"range"`
	Kind       string        `bson:"kind"`
	Reason     string        `bson:"reason"`
	Reference  string        `bson:"reference"`
	CreatedBy  string        `bson:"created_by"`
	CreatedAt  int64         `bson:"created_at"`
}

func (d blockDocument) toAggregate() *domainavailability.Block {
	return &domainavailability.Block{
		ID:         domainavailability.BlockID(d.ID),
		PropertyID: domainproperty.PropertyID(d.PropertyID),
		Range:      d.Range.toRange(),
		Kind:       domainavailability.EntryKind(d.Kind),
		Reason:     d.Reason,
		Reference:  d.Reference,
		CreatedBy:  d.CreatedBy,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
}

var _ domainavailability.BlockRepository = (*BlockRepository)(nil)
