package database

import (
	"context"
	"database/sql"
)

const createOrUpdateCommitment = `-- name: CreateOrUpdateCommitment :exec
INSERT INTO commitments (
content_hash, merkle_root, partition_version, tx_hash)
VALUES ($1, $2, $3, $4)
ON CONFLICT (content_hash)
DO UPDATE SET
    merkle_root = EXCLUDED.merkle_root,
    partition_version = EXCLUDED.partition_version,
    tx_hash = COALESCE(EXCLUDED.tx_hash, commitments.tx_hash),
    updated_at = CURRENT_TIMESTAMP
`

type CreateOrUpdateCommitmentParams struct {
	ContentHash      string
	MerkleRoot       string
	PartitionVersion string
	TxHash           sql.NullString
}

func (q *Queries) CreateOrUpdateCommitment(ctx context.Context, arg CreateOrUpdateCommitmentParams) error {
	_, err := q.db.ExecContext(ctx, createOrUpdateCommitment,
		arg.ContentHash,
		arg.MerkleRoot,
		arg.PartitionVersion,
		arg.TxHash,
	)
	return err
}

const getCommitment = `-- name: GetCommitment :one
SELECT content_hash, merkle_root, partition_version, tx_hash, created_at, updated_at FROM commitments WHERE content_hash=$1
`

func (q *Queries) GetCommitment(ctx context.Context, contentHash string) (Commitment, error) {
	row := q.db.QueryRowContext(ctx, getCommitment, contentHash)
	var i Commitment
	err := row.Scan(
		&i.ContentHash,
		&i.MerkleRoot,
		&i.PartitionVersion,
		&i.TxHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
