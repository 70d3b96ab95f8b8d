// Package share manages time-boxed, link-shareable résumé snapshots.
//
// A share id is a capability: whoever holds it can read the snapshot until
// it expires. No other authorization is applied.
package share

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/clock"
	"github.com/muhammadolammi/resumezk/internal/metrics"
)

// DefaultTTL is how long a share stays resolvable.
const DefaultTTL = 7 * 24 * time.Hour

// idBytes is the entropy of a share id.
const idBytes = 16

type Store struct {
	backend Backend
	ttl     time.Duration
	clock   clock.TimeSource
	newID   func() (string, error)
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

type Option func(*Store)

func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

func WithClock(ts clock.TimeSource) Option {
	return func(s *Store) { s.clock = ts }
}

// WithIDSource replaces the random id generator.
func WithIDSource(fn func() (string, error)) Option {
	return func(s *Store) { s.newID = fn }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		clock:   clock.System,
		newID:   RandomID,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime given to new records.
func (s *Store) TTL() time.Duration { return s.ttl }

// RandomID returns 128 random bits, hex-encoded.
func RandomID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("share: generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create stores payload under a fresh id that expires after the store's TTL.
// Expired records are swept afterwards; a failed sweep is logged only.
func (s *Store) Create(ctx context.Context, payload json.RawMessage) (Record, error) {
	if err := checkPayload(payload); err != nil {
		s.metrics.ShareOp("create", "invalid")
		return Record{}, err
	}
	id, err := s.newID()
	if err != nil {
		s.metrics.ShareOp("create", "error")
		return Record{}, err
	}

	now := s.clock.Now()
	rec := Record{
		ID:        id,
		Payload:   append(json.RawMessage(nil), payload...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		s.metrics.ShareOp("create", "error")
		return Record{}, fmt.Errorf("share: store record: %w", err)
	}
	s.metrics.ShareOp("create", "ok")

	if n, err := s.backend.Sweep(ctx, now); err != nil {
		s.log.WithError(err).Warn("share: sweep after create failed")
	} else if n > 0 {
		s.metrics.SharesReaped(n)
		s.log.WithField("removed", n).Debug("share: swept expired records")
	}
	return rec, nil
}

// Resolve returns the record for id. Unknown ids yield ErrNotFound; a
// record past its expiry is deleted and yields ErrExpired.
func (s *Store) Resolve(ctx context.Context, id string) (Record, error) {
	if id == "" {
		s.metrics.ShareOp("resolve", "not_found")
		return Record{}, ErrNotFound
	}
	rec, err := s.backend.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.metrics.ShareOp("resolve", "not_found")
		return Record{}, ErrNotFound
	}
	if err != nil {
		s.metrics.ShareOp("resolve", "error")
		return Record{}, fmt.Errorf("share: load record: %w", err)
	}

	if s.clock.Now().After(rec.ExpiresAt) {
		if err := s.backend.Delete(ctx, id); err != nil {
			s.log.WithError(err).WithField("share_id", id).Warn("share: delete expired record failed")
		}
		s.metrics.ShareOp("resolve", "expired")
		return Record{}, ErrExpired
	}
	s.metrics.ShareOp("resolve", "ok")
	return rec, nil
}

// Reap removes every record that has expired and reports how many.
func (s *Store) Reap(ctx context.Context) (int, error) {
	n, err := s.backend.Sweep(ctx, s.clock.Now())
	if err != nil {
		return n, fmt.Errorf("share: sweep: %w", err)
	}
	s.metrics.SharesReaped(n)
	return n, nil
}

// RunReaper calls Reap every interval until ctx is done.
func (s *Store) RunReaper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.Reap(ctx)
			if err != nil {
				s.log.WithError(err).Warn("share: periodic reap failed")
				continue
			}
			if n > 0 {
				s.log.WithField("removed", n).Info("share: reaped expired records")
			}
		}
	}
}

func checkPayload(payload json.RawMessage) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ErrEmptyPayload
	}
	if !json.Valid(trimmed) {
		return ErrInvalidPayload
	}
	return nil
}
