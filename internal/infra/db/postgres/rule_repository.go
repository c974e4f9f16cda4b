package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainpricing "rentme/internal/domain/pricing"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

const ruleColumns = `id, property_id, name, start_date, end_date, multiplier, created_at`

type SeasonalRuleRepository struct {
	pool *pgxpool.Pool
}

func NewSeasonalRuleRepository(pool *pgxpool.Pool) *SeasonalRuleRepository {
	return &SeasonalRuleRepository{pool: pool}
}

func (r *SeasonalRuleRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]domainpricing.SeasonalRule, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+ruleColumns+` FROM seasonal_rules WHERE property_id = $1 ORDER BY start_date, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domainpricing.SeasonalRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *SeasonalRuleRepository) ByID(ctx context.Context, id domainpricing.RuleID) (domainpricing.SeasonalRule, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+ruleColumns+` FROM seasonal_rules WHERE id = $1`, string(id))
	rule, err := scanRule(row)
	if err != nil {
		return domainpricing.SeasonalRule{}, notFound(err, domainpricing.ErrRuleNotFound)
	}
	return rule, nil
}

func (r *SeasonalRuleRepository) Save(ctx context.Context, rule domainpricing.SeasonalRule) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `INSERT INTO seasonal_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date, multiplier = EXCLUDED.multiplier`,
		string(rule.ID), string(rule.PropertyID), rule.Name, rule.Range.CheckIn, rule.Range.CheckOut,
		rule.Multiplier.String(), rule.CreatedAt)
	return translate(err)
}

func (r *SeasonalRuleRepository) Delete(ctx context.Context, id domainpricing.RuleID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM seasonal_rules WHERE id = $1`, string(id))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domainpricing.ErrRuleNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (domainpricing.SeasonalRule, error) {
	var (
		rule              domainpricing.SeasonalRule
		id, propertyID    string
		multiplier        string
		checkIn, checkOut time.Time
	)
	if err := row.Scan(&id, &propertyID, &rule.Name, &checkIn, &checkOut, &multiplier, &rule.CreatedAt); err != nil {
		return domainpricing.SeasonalRule{}, err
	}
	rule.ID = domainpricing.RuleID(id)
	rule.PropertyID = domainproperty.PropertyID(propertyID)
	rule.Range = daterange.DateRange{CheckIn: asDay(checkIn), CheckOut: asDay(checkOut)}
	m, err := parseDecimal("multiplier", multiplier)
	if err != nil {
		return domainpricing.SeasonalRule{}, err
	}
	rule.Multiplier = m
	rule.CreatedAt = rule.CreatedAt.UTC()
	return rule, nil
}

var _ domainpricing.RuleRepository = (*SeasonalRuleRepository)(nil)
