package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

const createParseJob = `-- name: CreateParseJob :one
INSERT INTO parse_jobs (id, original_filename, mime, size_bytes, object_key)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, original_filename, mime, size_bytes, object_key, status, result, error, created_at, updated_at
`

type CreateParseJobParams struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	ObjectKey        string
}

func (q *Queries) CreateParseJob(ctx context.Context, arg CreateParseJobParams) (ParseJob, error) {
	row := q.db.QueryRowContext(ctx, createParseJob,
		arg.ID,
		arg.OriginalFilename,
		arg.Mime,
		arg.SizeBytes,
		arg.ObjectKey,
	)
	return scanParseJob(row)
}

const getParseJob = `-- name: GetParseJob :one
SELECT id, original_filename, mime, size_bytes, object_key, status, result, error, created_at, updated_at FROM parse_jobs WHERE id=$1
`

func (q *Queries) GetParseJob(ctx context.Context, id uuid.UUID) (ParseJob, error) {
	row := q.db.QueryRowContext(ctx, getParseJob, id)
	return scanParseJob(row)
}

const updateParseJobStatus = `-- name: UpdateParseJobStatus :exec
UPDATE parse_jobs
SET status=$1, updated_at=CURRENT_TIMESTAMP
WHERE id=$2
`

type UpdateParseJobStatusParams struct {
	Status string
	ID     uuid.UUID
}

func (q *Queries) UpdateParseJobStatus(ctx context.Context, arg UpdateParseJobStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateParseJobStatus, arg.Status, arg.ID)
	return err
}

const finishParseJob = `-- name: FinishParseJob :exec
UPDATE parse_jobs
SET status=$1, result=$2, error=$3, updated_at=CURRENT_TIMESTAMP
WHERE id=$4
`

type FinishParseJobParams struct {
	Status string
	Result json.RawMessage
	Error  sql.NullString
	ID     uuid.UUID
}

func (q *Queries) FinishParseJob(ctx context.Context, arg FinishParseJobParams) error {
	_, err := q.db.ExecContext(ctx, finishParseJob,
		arg.Status,
		nullJSON(arg.Result),
		arg.Error,
		arg.ID,
	)
	return err
}

func scanParseJob(row *sql.Row) (ParseJob, error) {
	var i ParseJob
	var result []byte
	err := row.Scan(
		&i.ID,
		&i.OriginalFilename,
		&i.Mime,
		&i.SizeBytes,
		&i.ObjectKey,
		&i.Status,
		&result,
		&i.Error,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if len(result) > 0 {
		i.Result = json.RawMessage(result)
	}
	return i, err
}

// lib/pq sends []byte as bytea, so JSON columns get text.
func nullJSON(b json.RawMessage) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
