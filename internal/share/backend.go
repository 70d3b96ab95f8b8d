package share

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one shared snapshot. Records are never modified after
// creation, only deleted.
type Record struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

func (r Record) clone() Record {
	r.Payload = append(json.RawMessage(nil), r.Payload...)
	return r
}

// Backend persists records for a Store.
//
// Contract:
// - Get MUST return ErrNotFound when the id is absent.
// - Get MUST return a complete record or an error, never a partial one.
// - Sweep MUST remove exactly the records with ExpiresAt before now.
// - Delete of an absent id is not an error.
type Backend interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// storedRecord is the serialized form used by key-value backends. The
// payload is kept as bytes so it comes back exactly as it was given.
type storedRecord struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func encodeRecord(r Record) ([]byte, error) {
	return json.Marshal(storedRecord{
		ID:        r.ID,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	})
}

func decodeRecord(b []byte) (Record, error) {
	var s storedRecord
	if err := json.Unmarshal(b, &s); err != nil {
		return Record{}, err
	}
	return Record{
		ID:        s.ID,
		Payload:   json.RawMessage(s.Payload),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}, nil
}
