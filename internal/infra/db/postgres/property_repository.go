package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/money"
)

const propertyColumns = `id, host_id, title, base_rate_minor, cleaning_fee_minor, currency,
	service_fee_rate, tax_rate, guest_capacity, cancellation_policy_id, calendar_feed_url,
	created_at, updated_at, version`

type PropertyRepository struct {
	pool *pgxpool.Pool
}

func NewPropertyRepository(pool *pgxpool.Pool) *PropertyRepository {
	return &PropertyRepository{pool: pool}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, string(id))
	p, err := scanProperty(row)
	if err != nil {
		return nil, notFound(err, domainproperty.ErrPropertyNotFound)
	}
	return p, nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	q := conn(ctx, r.pool)
	pr := p.Pricing
	if p.Version == 0 {
		_, err := q.Exec(ctx, `INSERT INTO properties (`+propertyColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 1)`,
			string(p.ID), string(p.Host), p.Title, pr.BaseRate.Amount, pr.CleaningFee.Amount, pr.BaseRate.Currency,
			pr.ServiceFeeRate.String(), pr.TaxRate.String(), pr.GuestCapacity, p.CancellationPolicyID, p.CalendarFeedURL,
			p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		p.Version = 1
		return nil
	}
	tag, err := q.Exec(ctx, `UPDATE properties SET title = $3, base_rate_minor = $4, cleaning_fee_minor = $5,
		currency = $6, service_fee_rate = $7, tax_rate = $8, guest_capacity = $9, cancellation_policy_id = $10,
		calendar_feed_url = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2`,
		string(p.ID), p.Version, p.Title, pr.BaseRate.Amount, pr.CleaningFee.Amount, pr.BaseRate.Currency,
		pr.ServiceFeeRate.String(), pr.TaxRate.String(), pr.GuestCapacity, p.CancellationPolicyID, p.CalendarFeedURL,
		p.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentUpdate
	}
	p.Version++
	return nil
}

func (r *PropertyRepository) ListByHost(ctx context.Context, host domainproperty.HostID) ([]*domainproperty.Property, error) {
	return r.list(ctx, `SELECT `+propertyColumns+` FROM properties WHERE host_id = $1 ORDER BY created_at`, string(host))
}

func (r *PropertyRepository) ListWithCalendarFeed(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.list(ctx, `SELECT `+propertyColumns+` FROM properties WHERE calendar_feed_url <> '' ORDER BY id`)
}

func (r *PropertyRepository) list(ctx context.Context, sql string, args ...any) ([]*domainproperty.Property, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainproperty.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProperty(row pgx.Row) (*domainproperty.Property, error) {
	var (
		p                    domainproperty.Property
		id, host             string
		base, cleaning       int64
		currency             string
		serviceRate, taxRate string
	)
	err := row.Scan(&id, &host, &p.Title, &base, &cleaning, &currency, &serviceRate, &taxRate,
		&p.Pricing.GuestCapacity, &p.CancellationPolicyID, &p.CalendarFeedURL, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if err != nil {
		return nil, err
	}
	p.ID = domainproperty.PropertyID(id)
	p.Host = domainproperty.HostID(host)
	p.Pricing.BaseRate = money.Money{Amount: base, Currency: currency}
	p.Pricing.CleaningFee = money.Money{Amount: cleaning, Currency: currency}
	if p.Pricing.ServiceFeeRate, err = parseDecimal("service_fee_rate", serviceRate); err != nil {
		return nil, err
	}
	if p.Pricing.TaxRate, err = parseDecimal("tax_rate", taxRate); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
