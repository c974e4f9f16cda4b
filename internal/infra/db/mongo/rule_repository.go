package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
)

type SeasonalRuleRepository struct {
	col *mongo.Collection
}

func NewSeasonalRuleRepository(db *mongo.Database) *SeasonalRuleRepository {
	return &SeasonalRuleRepository{col: db.Collection("seasonal_rules")}
}

func (r *SeasonalRuleRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "property_id", Value: 1}}})
	return err
}

func (r *SeasonalRuleRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]domainpricing.SeasonalRule, error) {
	cur, err := r.col.Find(ctx, bson.M{"property_id": string(id)}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []ruleDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainpricing.SeasonalRule, 0, len(docs))
	for _, d := range docs {
		rule, err := d.toRule()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r *SeasonalRuleRepository) ByID(ctx context.Context, id domainpricing.RuleID) (domainpricing.SeasonalRule, error) {
	var doc ruleDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainpricing.SeasonalRule{}, domainpricing.ErrRuleNotFound
		}
		return domainpricing.SeasonalRule{}, err
	}
	return doc.toRule()
}

func (r *SeasonalRuleRepository) Save(ctx context.Context, rule domainpricing.SeasonalRule) error {
	doc := ruleDocument{
		ID:         string(rule.ID),
		PropertyID: string(rule.PropertyID),
		Name:       rule.Name,
		Range:      newRangeDocument(rule.Range),
		Multiplier: rule.Multiplier.String(),
		CreatedAt:  rule.CreatedAt.UnixMilli(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *SeasonalRuleRepository) Delete(ctx context.Context, id domainpricing.RuleID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainpricing.ErrRuleNotFound
	}
	return nil
}

type ruleDocument struct {
	ID         string        `bson:"_id"`
	PropertyID string        `bson:"property_id"`
	Name       string        `bson:"name"`
	Range      rangeDocument `bson:"range"`
	Multiplier string        `bson:"multiplier"`
	CreatedAt  int64         `bson:"created_at"`
}

func (d ruleDocument) toRule() (domainpricing.SeasonalRule, error) {
	multiplier, err := parseDecimal("multiplier", d.Multiplier)
	if err != nil {
		return domainpricing.SeasonalRule{}, err
	}
	return domainpricing.SeasonalRule{
		ID:         domainpricing.RuleID(d.ID),
		PropertyID: domainproperty.PropertyID(d.PropertyID),
		Name:       d.Name,
		Range:      d.Range.toRange(),
		Multiplier: multiplier,
		CreatedAt:  timestampToTime(d.CreatedAt),
	}, nil
}

var _ domainpricing.RuleRepository = (*SeasonalRuleRepository)(nil)
