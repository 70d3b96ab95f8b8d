package database

import (
	"context"
	"encoding/json"
	"time"
)

const createShare = `-- name: CreateShare :exec
INSERT INTO shares (id, payload, created_at, expires_at)
VALUES ($1, $2, $3, $4)
`

type CreateShareParams struct {
	ID        string
	Payload   json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (q *Queries) CreateShare(ctx context.Context, arg CreateShareParams) error {
	_, err := q.db.ExecContext(ctx, createShare,
		arg.ID,
		string(arg.Payload),
		arg.CreatedAt,
		arg.ExpiresAt,
	)
	return err
}

const getShare = `-- name: GetShare :one
SELECT id, payload, created_at, expires_at FROM shares WHERE id=$1
`

func (q *Queries) GetShare(ctx context.Context, id string) (Share, error) {
	row := q.db.QueryRowContext(ctx, getShare, id)
	var i Share
	err := row.Scan(
		&i.ID,
		&i.Payload,
		&i.CreatedAt,
		&i.ExpiresAt,
	)
	return i, err
}

const deleteShare = `-- name: DeleteShare :exec
DELETE FROM shares WHERE id=$1
`

func (q *Queries) DeleteShare(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteShare, id)
	return err
}

const deleteExpiredShares = `-- name: DeleteExpiredShares :execrows
DELETE FROM shares WHERE expires_at < $1
`

func (q *Queries) DeleteExpiredShares(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredShares, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
