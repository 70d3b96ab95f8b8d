// Package api is the HTTP surface of resumezk.
package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/muhammadolammi/resumezk/internal/clock"
	"github.com/muhammadolammi/resumezk/internal/database"
	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/integrity"
	"github.com/muhammadolammi/resumezk/internal/jobs"
	"github.com/muhammadolammi/resumezk/internal/ledger"
	"github.com/muhammadolammi/resumezk/internal/metrics"
	"github.com/muhammadolammi/resumezk/internal/resume"
)

// JobService is satisfied by *jobs.Service.
type JobService interface {
	Submit(ctx context.Context, up jobs.Upload) (jobs.Job, error)
	Get(ctx context.Context, id uuid.UUID) (jobs.Job, error)
}

// Archive is satisfied by *objectstore.Archive.
type Archive interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
}

// CommitmentStore is satisfied by *database.Queries.
type CommitmentStore interface {
	CreateOrUpdateCommitment(ctx context.Context, arg database.CreateOrUpdateCommitmentParams) error
}

// Notifier is satisfied by *events.Publisher.
type Notifier interface {
	Emit(ctx context.Context, e events.Event)
}

type Server struct {
	mux         *http.ServeMux
	integrity   *integrity.Facade
	log         logrus.FieldLogger
	parser      resume.Parser
	archive     Archive
	jobs        JobService
	ledger      ledger.Ledger
	commitments CommitmentStore
	notifier    Notifier
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	clock       clock.TimeSource

	credentialWrites bool
	trustProxy       bool
}

type Option func(*Server)

func New(facade *integrity.Facade, opts ...Option) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		integrity: facade,
		log:       logrus.StandardLogger(),
		clock:     clock.System,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/parse-resume", s.handleParseResume)
	s.mux.HandleFunc("POST /api/parse-jobs", s.handleSubmitJob)
	s.mux.HandleFunc("GET /api/parse-jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /api/commit", s.handleCommit)
	s.mux.HandleFunc("GET /api/resumes/{hash}", s.handleGetResume)
	s.mux.HandleFunc("GET /api/users/{owner}/resumes", s.handleUserResumes)
	s.mux.HandleFunc("POST /api/share-resume", s.handleCreateShare)
	s.mux.HandleFunc("GET /api/share-resume", s.handleResolveShare)
	s.mux.HandleFunc("POST /api/credentials/verify", s.handleVerifyCredential)
	s.mux.HandleFunc("GET /api/credentials/{owner}/{kind}", s.handleGetCredential)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	} else {
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)

	allowedHeaders := r.Header.Get("Access-Control-Request-Headers")
	if allowedHeaders == "" {
		allowedHeaders = "Content-Type, Accept"
	}
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	s.metrics.Request(route, rec.status)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithParser(p resume.Parser) Option { return func(s *Server) { s.parser = p } }

// WithArchive keeps a copy of every synchronously parsed upload.
func WithArchive(a Archive) Option { return func(s *Server) { s.archive = a } }

func WithJobs(j JobService) Option { return func(s *Server) { s.jobs = j } }

func WithLedger(l ledger.Ledger) Option { return func(s *Server) { s.ledger = l } }

func WithCommitments(c CommitmentStore) Option { return func(s *Server) { s.commitments = c } }

func WithNotifier(n Notifier) Option { return func(s *Server) { s.notifier = n } }

// WithMetrics records request counts in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

func WithClock(ts clock.TimeSource) Option { return func(s *Server) { s.clock = ts } }

// WithCredentialWrites lets verify requests with store set write the
// credential to the ledger under the server's own key. The attestation's
// verified flag is supplied by the caller, so only enable this when callers
// are trusted.
func WithCredentialWrites(enabled bool) Option {
	return func(s *Server) { s.credentialWrites = enabled }
}

// WithTrustedProxy makes share URLs follow X-Forwarded-Proto and
// X-Forwarded-Host when no public base URL is configured.
func WithTrustedProxy(enabled bool) Option { return func(s *Server) { s.trustProxy = enabled } }

func (s *Server) emit(ctx context.Context, e events.Event) {
	if s.notifier != nil {
		s.notifier.Emit(ctx, e)
	}
}
