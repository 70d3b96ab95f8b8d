package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Share struct {
	ID        string
	Payload   json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

type ParseJob struct {
	ID               uuid.UUID
	OriginalFilename string
	Mime             string
	SizeBytes        int64
	ObjectKey        string
	Status           string
	Result           json.RawMessage
	Error            sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Commitment struct {
	ContentHash      string
	MerkleRoot       string
	PartitionVersion string
	TxHash           sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
