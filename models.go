package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/muhammadolammi/resumezk/internal/objectstore"
)

const (
	modeServe  = "serve"
	modeWorker = "worker"
	modeReap   = "reap"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendBadger   = "badger"
)

type R2Config struct {
	AccountID string `env:"R2_ACCOUNT_ID"`
	Bucket    string `env:"R2_BUCKET"`
	AccessKey string `env:"R2_ACCESS_KEY"`
	SecretKey string `env:"R2_SECRET_KEY"`
	Endpoint  string `env:"R2_ENDPOINT"`
}

func (c R2Config) configured() bool {
	return c.AccountID != "" || c.Endpoint != ""
}

func (c R2Config) objectstore() objectstore.R2Config {
	return objectstore.R2Config{
		AccountID: c.AccountID,
		Bucket:    c.Bucket,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Endpoint:  c.Endpoint,
	}
}

// Config is read from the environment. Production deployments should set
// PUBLIC_BASE_URL; without it share links are built from the request host.
type Config struct {
	Port          string `env:"PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	// TrustProxyHeaders honours X-Forwarded-Proto and X-Forwarded-Host when
	// PUBLIC_BASE_URL is empty.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`

	DBURL       string `env:"DB_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	R2          R2Config

	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-pro"`
	Workers      int    `env:"WORKERS" envDefault:"3"`

	ShareBackend  string        `env:"SHARE_BACKEND" envDefault:"memory"`
	ShareTTL      time.Duration `env:"SHARE_TTL" envDefault:"168h"`
	ReapInterval  time.Duration `env:"REAP_INTERVAL" envDefault:"1h"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisPrefix   string        `env:"REDIS_PREFIX" envDefault:"share:"`
	BadgerDir     string        `env:"BADGER_DIR"`

	EthRPCURL        string `env:"ETH_RPC_URL"`
	ContractAddress  string `env:"RESUME_ZK_CONTRACT_ADDRESS"`
	LedgerPrivateKey string `env:"LEDGER_PRIVATE_KEY"`
	// CredentialWrites allows the verify endpoint to store credentials
	// signed with LEDGER_PRIVATE_KEY.
	CredentialWrites bool `env:"CREDENTIAL_WRITES" envDefault:"false"`
	// LedgerOwner is the address the in-memory ledger attributes writes to.
	LedgerOwner string `env:"LEDGER_OWNER" envDefault:"0x0000000000000000000000000000000000000001"`
}

func loadConfig(mode string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.ShareBackend = strings.ToLower(strings.TrimSpace(cfg.ShareBackend))
	if err := cfg.validate(mode); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate(mode string) error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("empty %s in environment", name))
		}
	}

	switch c.ShareBackend {
	case backendMemory:
	case backendPostgres:
		require("DB_URL", c.DBURL)
	case backendRedis:
		require("REDIS_ADDR", c.RedisAddr)
	case backendBadger:
		require("BADGER_DIR", c.BadgerDir)
	default:
		errs = append(errs, fmt.Errorf("unknown SHARE_BACKEND %q", c.ShareBackend))
	}
	if c.ShareTTL <= 0 {
		errs = append(errs, errors.New("SHARE_TTL must be positive"))
	}
	if c.EthRPCURL != "" {
		require("RESUME_ZK_CONTRACT_ADDRESS", c.ContractAddress)
	}

	switch mode {
	case modeServe:
		if c.ReapInterval <= 0 {
			errs = append(errs, errors.New("REAP_INTERVAL must be positive"))
		}
	case modeWorker:
		require("DB_URL", c.DBURL)
		require("RABBITMQ_URL", c.RabbitMQURL)
		require("GOOGLE_API_KEY", c.GoogleAPIKey)
		if !c.R2.configured() {
			errs = append(errs, errors.New("empty R2_ACCOUNT_ID in environment"))
		}
		require("R2_BUCKET", c.R2.Bucket)
		if c.Workers < 1 {
			errs = append(errs, errors.New("WORKERS must be at least 1"))
		}
	case modeReap:
		if c.ShareBackend == backendMemory {
			errs = append(errs, errors.New("reap needs a durable SHARE_BACKEND"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q (want serve, worker or reap)", mode))
	}
	return errors.Join(errs...)
}
