package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eagleapps/user-service/internal/domain/repository"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the allocator needs, so
// a counter can be advanced either standalone or inside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SequenceRepository hands out strictly increasing integers per prefix from
// a durable counter row. The increment is a single upsert-and-return
// statement: concurrent allocators on the same prefix can never observe the
// same value, and the counter survives restarts.
type SequenceRepository struct {
	pool *pgxpool.Pool
}

func NewSequenceRepository(pool *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{pool: pool}
}

func (r *SequenceRepository) Next(ctx context.Context, prefix string) (int64, error) {
	return nextValue(ctx, r.pool, prefix)
}

// NextTx advances the counter within an existing transaction, so an id
// allocation rolls back together with the write that needed it.
func (r *SequenceRepository) NextTx(ctx context.Context, tx pgx.Tx, prefix string) (int64, error) {
	return nextValue(ctx, tx, prefix)
}

func nextValue(ctx context.Context, q querier, prefix string) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `
		INSERT INTO feedbackapp.id_sequence (prefix, last_value)
		VALUES ($1, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET last_value = feedbackapp.id_sequence.last_value + 1
		RETURNING last_value
	`, prefix).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

var _ repository.SequenceAllocator = (*SequenceRepository)(nil)
