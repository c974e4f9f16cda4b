package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainavailability "rentme/internal/domain/availability"
	domainproperty "rentme/internal/domain/property"
	"rentme/internal/domain/shared/daterange"
)

const blockColumns = `id, property_id, check_in, check_out, kind, reason, reference, created_by, created_at`

type BlockRepository struct {
	pool *pgxpool.Pool
}

func NewBlockRepository(pool *pgxpool.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) ListByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainavailability.Block, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+blockColumns+` FROM calendar_blocks WHERE property_id = $1 ORDER BY check_in, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domainavailability.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BlockRepository) ByID(ctx context.Context, id domainavailability.BlockID) (*domainavailability.Block, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+blockColumns+` FROM calendar_blocks WHERE id = $1`, string(id))
	b, err := scanBlock(row)
	if err != nil {
		return nil, notFound(err, domainavailability.ErrBlockNotFound)
	}
	return b, nil
}

func (r *BlockRepository) Save(ctx context.Context, b *domainavailability.Block) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `INSERT INTO calendar_blocks (`+blockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET check_in = EXCLUDED.check_in, check_out = EXCLUDED.check_out,
			kind = EXCLUDED.kind, reason = EXCLUDED.reason, reference = EXCLUDED.reference`,
		string(b.ID), string(b.PropertyID), b.Range.CheckIn, b.Range.CheckOut, string(b.Kind),
		b.Reason, b.Reference, b.CreatedBy, b.CreatedAt)
	return translate(err)
}

func (r *BlockRepository) Delete(ctx context.Context, id domainavailability.BlockID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM calendar_blocks WHERE id = $1`, string(id))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domainavailability.ErrBlockNotFound
	}
	return nil
}

func scanBlock(row pgx.Row) (*domainavailability.Block, error) {
	var (
		b                 domainavailability.Block
		id, propertyID    string
		kind              string
		checkIn, checkOut time.Time
	)
	if err := row.Scan(&id, &propertyID, &checkIn, &checkOut, &kind, &b.Reason, &b.Reference, &b.CreatedBy, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.ID = domainavailability.BlockID(id)
	b.PropertyID = domainproperty.PropertyID(propertyID)
	b.Range = daterange.DateRange{CheckIn: asDay(checkIn), CheckOut: asDay(checkOut)}
	b.Kind = domainavailability.EntryKind(kind)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

var _ domainavailability.BlockRepository = (*BlockRepository)(nil)
