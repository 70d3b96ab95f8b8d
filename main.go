package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"

	"github.com/muhammadolammi/resumezk/internal/api"
	"github.com/muhammadolammi/resumezk/internal/database"
	"github.com/muhammadolammi/resumezk/internal/events"
	"github.com/muhammadolammi/resumezk/internal/integrity"
	"github.com/muhammadolammi/resumezk/internal/jobs"
	"github.com/muhammadolammi/resumezk/internal/metrics"
	"github.com/muhammadolammi/resumezk/internal/objectstore"
	"github.com/muhammadolammi/resumezk/internal/share"
)

const shutdownTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()

	mode := modeServe
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	os.Exit(run(mode))
}

// run returns the process exit code once every deferred cleanup has run.
func run(mode string) int {
	cfg, err := loadConfig(mode)
	if err != nil {
		logrus.WithError(err).Error("invalid configuration")
		return 1
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case modeServe:
		err = runServe(ctx, cfg, log)
	case modeWorker:
		err = runWorker(ctx, cfg, log)
	case modeReap:
		err = runReap(ctx, cfg, log)
	}
	if err != nil {
		log.WithError(err).Errorf("%s exited", mode)
		return 1
	}
	return 0
}

func newShareStore(cfg Config, q *database.Queries, log logrus.FieldLogger, m *metrics.Metrics, cl *closers) (*share.Store, error) {
	backend, err := openShareBackend(cfg, q, cl)
	if err != nil {
		return nil, err
	}
	log.WithField("backend", cfg.ShareBackend).Info("share store ready")
	return share.New(backend,
		share.WithTTL(cfg.ShareTTL),
		share.WithLogger(log.WithField("component", "share")),
		share.WithMetrics(m),
	), nil
}

func runServe(ctx context.Context, cfg Config, log *logrus.Logger) error {
	var cl closers
	defer cl.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var q *database.Queries
	if cfg.DBURL != "" {
		db, queries, err := openDB(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		cl.add(func() { db.Close() })
		q = queries
	}

	store, err := newShareStore(cfg, q, log, m, &cl)
	if err != nil {
		return err
	}
	led, err := openLedger(ctx, cfg, log.WithField("component", "ledger"), &cl)
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithLogger(log.WithField("component", "api")),
		api.WithMetrics(m, reg),
		api.WithLedger(led),
		api.WithCredentialWrites(cfg.CredentialWrites),
		api.WithTrustedProxy(cfg.TrustProxyHeaders),
	}
	if q != nil {
		opts = append(opts, api.WithCommitments(q))
	}
	if cfg.GoogleAPIKey != "" {
		parser, err := GetParser(ctx, cfg, log)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithParser(parser))
	}

	var archive *objectstore.Archive
	if cfg.R2.configured() {
		archive, err = objectstore.NewR2(ctx, cfg.R2.objectstore())
		if err != nil {
			return err
		}
		opts = append(opts, api.WithArchive(archive))
	}

	if cfg.RabbitMQURL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("error connecting to RabbitMQ: %w", err)
		}
		cl.add(func() { conn.Close() })
		if err := events.Declare(conn); err != nil {
			return err
		}
		pub := events.NewPublisher(events.ConnOpener(conn), log.WithField("component", "events"))
		opts = append(opts, api.WithNotifier(pub))

		if q != nil && archive != nil {
			svc := jobs.New(q, archive, pub, nil,
				jobs.WithNotifier(pub),
				jobs.WithMetrics(m),
				jobs.WithLogger(log.WithField("component", "jobs")),
			)
			opts = append(opts, api.WithJobs(svc))
		}
	}

	facade := integrity.New(store, cfg.PublicBaseURL, integrity.WithMetrics(m))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.New(facade, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return store.RunReaper(ctx, cfg.ReapInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runWorker(ctx context.Context, cfg Config, log *logrus.Logger) error {
	var cl closers
	defer cl.close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	db, q, err := openDB(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	cl.add(func() { db.Close() })

	archive, err := objectstore.NewR2(ctx, cfg.R2.objectstore())
	if err != nil {
		return err
	}
	parser, err := GetParser(ctx, cfg, log)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}
	cl.add(func() { conn.Close() })
	if err := events.Declare(conn); err != nil {
		return err
	}
	pub := events.NewPublisher(events.ConnOpener(conn), log.WithField("component", "events"))

	wc := WorkerConfig{
		RabbitMQURL: cfg.RabbitMQURL,
		Jobs: jobs.New(q, archive, pub, parser,
			jobs.WithNotifier(pub),
			jobs.WithMetrics(m),
			jobs.WithLogger(log.WithField("component", "jobs")),
		),
		Log: log.WithField("component", "worker"),
	}
	log.WithField("workers", cfg.Workers).Info("starting consumer worker pool")
	return wc.StartConsumerWorkerPool(ctx, cfg.Workers)
}

func runReap(ctx context.Context, cfg Config, log *logrus.Logger) error {
	var cl closers
	defer cl.close()

	var q *database.Queries
	if cfg.ShareBackend == backendPostgres {
		db, queries, err := openDB(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		cl.add(func() { db.Close() })
		q = queries
	}
	store, err := newShareStore(cfg, q, log, nil, &cl)
	if err != nil {
		return err
	}
	n, err := store.Reap(ctx)
	if err != nil {
		return err
	}
	log.WithField("removed", n).Info("expired shares reaped")
	return nil
}
