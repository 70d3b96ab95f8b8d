// Package jobs runs résumé parsing asynchronously: uploads are archived,
// recorded in Postgres and queued; workers pick them up and store the
// parsed result.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/database"
	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/metrics"
	"github.com/muhammadolammi/resumezk/internal/objectstore"
	"github.com/muhammadolammi/resumezk/internal/resume"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var (
	ErrNotFound = errors.New("jobs: parse job not found")
	// ErrJobFailed wraps errors after which the job has been recorded as failed.
	ErrJobFailed = errors.New("jobs: parse job failed")
)

// Settled reports whether a Process error leaves nothing to retry: the job
// is unknown or reached a final status.
func Settled(err error) bool {
	return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrJobFailed)
}

// Store is satisfied by *database.Queries.
type Store interface {
	CreateParseJob(ctx context.Context, arg database.CreateParseJobParams) (database.ParseJob, error)
	GetParseJob(ctx context.Context, id uuid.UUID) (database.ParseJob, error)
	UpdateParseJobStatus(ctx context.Context, arg database.UpdateParseJobStatusParams) error
	FinishParseJob(ctx context.Context, arg database.FinishParseJobParams) error
}

// Archive is satisfied by *objectstore.Archive.
type Archive interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// Queue is satisfied by *events.Publisher.
type Queue interface {
	Enqueue(ctx context.Context, v any) error
}

type Notifier interface {
	Emit(ctx context.Context, e events.Event)
}

// Message is the body of a ParseQueue message.
type Message struct {
	JobID uuid.UUID `json:"jobId"`
}

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Job struct {
	ID        uuid.UUID       `json:"jobId"`
	Filename  string          `json:"filename"`
	Mime      string          `json:"mime"`
	Size      int64           `json:"size"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"resumeInfo,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func jobFromRow(r database.ParseJob) Job {
	return Job{
		ID:        r.ID,
		Filename:  r.OriginalFilename,
		Mime:      r.Mime,
		Size:      r.SizeBytes,
		Status:    r.Status,
		Result:    r.Result,
		Error:     r.Error.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type Service struct {
	store    Store
	archive  Archive
	queue    Queue
	notifier Notifier
	parser   resume.Parser
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	backoff  time.Duration
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// WithBackoff sets the base wait between retries of network calls.
func WithBackoff(d time.Duration) Option { return func(s *Service) { s.backoff = d } }

// New wires a Service. parser may be nil on the submitting side.
func New(store Store, archive Archive, queue Queue, parser resume.Parser, opts ...Option) *Service {
	s := &Service{
		store:   store,
		archive: archive,
		queue:   queue,
		parser:  parser,
		log:     logrus.StandardLogger(),
		backoff: 500 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) emit(ctx context.Context, id uuid.UUID, status, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, events.Event{
		Kind:    events.KindJob,
		Subject: id.String(),
		Status:  status,
		Message: message,
	})
}

// Submit validates and archives the upload, records the job and queues it.
func (s *Service) Submit(ctx context.Context, up Upload) (Job, error) {
	if err := resume.Validate(int64(len(up.Data)), up.ContentType); err != nil {
		return Job{}, err
	}
	mime := resume.NormalizeMime(up.ContentType)
	key := objectstore.NewKey(up.Filename)

	if _, err := retry(ctx, 3, s.backoff, func() (struct{}, error) {
		return struct{}{}, s.archive.Upload(ctx, key, mime, up.Data)
	}); err != nil {
		return Job{}, fmt.Errorf("failed to archive upload: %w", err)
	}

	row, err := s.store.CreateParseJob(ctx, database.CreateParseJobParams{
		ID:               uuid.New(),
		OriginalFilename: up.Filename,
		Mime:             mime,
		SizeBytes:        int64(len(up.Data)),
		ObjectKey:        key,
	})
	if err != nil {
		return Job{}, fmt.Errorf("failed to create parse job: %w", err)
	}

	if err := s.queue.Enqueue(ctx, Message{JobID: row.ID}); err != nil {
		_ = s.fail(ctx, row.ID, "queue error: "+err.Error())
		return Job{}, fmt.Errorf("failed to queue parse job: %w", err)
	}
	s.log.WithFields(logrus.Fields{"job_id": row.ID, "object_key": key}).Info("parse job queued")
	s.emit(ctx, row.ID, StatusPending, "parse queued")
	return jobFromRow(row), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row, err := s.store.GetParseJob(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	return jobFromRow(row), nil
}

// Process runs one queued job to completion. Jobs already finished are
// skipped so redelivered messages are harmless. Errors for which Settled
// is false leave the job unfinished and should be retried.
func (s *Service) Process(ctx context.Context, msg Message) error {
	row, err := s.store.GetParseJob(ctx, msg.JobID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load parse job %s: %w", msg.JobID, err)
	}
	if row.Status == StatusCompleted || row.Status == StatusFailed {
		s.log.WithField("job_id", row.ID).Info("parse job already finished, skipping")
		return nil
	}

	start := time.Now()
	log := s.log.WithFields(logrus.Fields{"job_id": row.ID, "object_key": row.ObjectKey})
	if err := s.store.UpdateParseJobStatus(ctx, database.UpdateParseJobStatusParams{
		Status: StatusProcessing,
		ID:     row.ID,
	}); err != nil {
		log.WithError(err).Warn("failed to mark job processing")
	}
	s.emit(ctx, row.ID, StatusProcessing, "parse started")

	info, err := s.parse(ctx, row)
	if err != nil {
		if ctx.Err() != nil {
			log.WithError(err).Warn("parse job interrupted")
			return fmt.Errorf("parse job %s interrupted: %w: %w", row.ID, ctx.Err(), err)
		}
		log.WithError(err).Error("parse job failed")
		s.metrics.ParseDone("error", time.Since(start))
		if ferr := s.fail(ctx, row.ID, err.Error()); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: %w", ErrJobFailed, err)
	}

	result, err := json.Marshal(info)
	if err != nil {
		if ferr := s.fail(ctx, row.ID, err.Error()); ferr != nil {
			return ferr
		}
		return fmt.Errorf("%w: failed to marshal parse result: %w", ErrJobFailed, err)
	}
	if _, err := retry(ctx, 3, s.backoff, func() (struct{}, error) {
		return struct{}{}, s.store.FinishParseJob(ctx, database.FinishParseJobParams{
			Status: StatusCompleted,
			Result: result,
			ID:     row.ID,
		})
	}); err != nil {
		return fmt.Errorf("failed to save parse result after retries: %w", err)
	}

	s.metrics.ParseDone("ok", time.Since(start))
	s.metrics.JobDone(StatusCompleted)
	s.emit(ctx, row.ID, StatusCompleted, "parse completed")
	log.Info("parse job completed")
	return nil
}

func (s *Service) parse(ctx context.Context, row database.ParseJob) (resume.Info, error) {
	if s.parser == nil {
		return resume.Info{}, errors.New("jobs: no parser configured")
	}
	data, err := retry(ctx, 3, s.backoff, func() ([]byte, error) {
		return s.archive.Download(ctx, row.ObjectKey)
	})
	if err != nil {
		return resume.Info{}, fmt.Errorf("file download error: %w", err)
	}
	text, err := resume.ExtractText(row.Mime, data)
	if err != nil {
		return resume.Info{}, fmt.Errorf("text extraction error: %w", err)
	}
	info, err := retry(ctx, 2, s.backoff, func() (resume.Info, error) {
		return s.parser.Parse(ctx, text)
	})
	if err != nil {
		return resume.Info{}, fmt.Errorf("agent error: %w", err)
	}
	return info, nil
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, reason string) error {
	err := s.store.FinishParseJob(ctx, database.FinishParseJobParams{
		Status: StatusFailed,
		Error:  sql.NullString{String: reason, Valid: true},
		ID:     id,
	})
	if err != nil {
		s.log.WithError(err).WithField("job_id", id).Error("failed to mark job failed")
		return fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}
	s.metrics.JobDone(StatusFailed)
	s.emit(ctx, id, StatusFailed, reason)
	return nil
}
