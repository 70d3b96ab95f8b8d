package share

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/muhammadolammi/resumezk/internal/database"
)

// Postgres stores records in the shares table.
type Postgres struct {
	q *database.Queries
}

func NewPostgres(q *database.Queries) *Postgres {
	return &Postgres{q: q}
}

func (p *Postgres) Put(ctx context.Context, rec Record) error {
	return p.q.CreateShare(ctx, database.CreateShareParams{
		ID:        rec.ID,
		Payload:   rec.Payload,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	})
}

func (p *Postgres) Get(ctx context.Context, id string) (Record, error) {
	row, err := p.q.GetShare(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:        row.ID,
		Payload:   row.Payload,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	return p.q.DeleteShare(ctx, id)
}

func (p *Postgres) Sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := p.q.DeleteExpiredShares(ctx, now)
	return int(n), err
}
