package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/dae-backend/internal/data/db"
	"github.com/yungbote/dae-backend/internal/observability"
	"github.com/yungbote/dae-backend/internal/platform/chain"
	"github.com/yungbote/dae-backend/internal/platform/envutil"
	"github.com/yungbote/dae-backend/internal/platform/logger"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Port            string
	LogMode         string
	ShutdownTimeout time.Duration

	DB db.Config

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecretKey        string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieDomain string
	SessionCookieSecure bool
	CORSOrigins         []string

	ChainsConfig        string
	ChainID             int64
	ChainName           string
	ChainRPCURL         string
	ChainFactory        string
	MinConfirmations    int
	ConfirmationTimeout time.Duration

	IPFSGateway       string
	MetadataTimeout   time.Duration
	ResyncConcurrency int

	MetricsEnabled bool
	Otel           observability.OtelConfig
}

// loadDotEnv seeds the process environment from .env when present. Values
// already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		LogMode:         envutil.String("LOG_MODE", "development"),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "dae"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "dae.db"),
		},
		RedisAddr:           envutil.String("REDIS_ADDR", ""),
		RedisPassword:       envutil.String("REDIS_PASSWORD", ""),
		RedisDB:             envutil.Int("REDIS_DB", 0),
		JWTSecretKey:        envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		SessionTTL:          envutil.Duration("SESSION_TTL", 24*time.Hour),
		SessionCookieName:   envutil.String("SESSION_COOKIE_NAME", "dae_session"),
		SessionCookieDomain: envutil.String("SESSION_COOKIE_DOMAIN", ""),
		SessionCookieSecure: envutil.Bool("SESSION_COOKIE_SECURE", false),
		CORSOrigins:         envutil.CSV("CORS_ORIGINS", nil),
		ChainsConfig:        envutil.String("CHAINS_CONFIG", ""),
		ChainID:             int64(envutil.Int("CHAIN_ID", 0)),
		ChainName:           envutil.String("CHAIN_NAME", ""),
		ChainRPCURL:         envutil.String("CHAIN_RPC_URL", ""),
		ChainFactory:        envutil.String("CHAIN_FACTORY_ADDRESS", ""),
		MinConfirmations:    envutil.Int("CHAIN_MIN_CONFIRMATIONS", 1),
		ConfirmationTimeout: envutil.Duration("CHAIN_CONFIRMATION_TIMEOUT", 2*time.Minute),
		IPFSGateway:         envutil.String("IPFS_GATEWAY", "https://ipfs.io"),
		MetadataTimeout:     envutil.Duration("METADATA_TIMEOUT", 10*time.Second),
		ResyncConcurrency:   envutil.Int("RESYNC_CONCURRENCY", 4),
		MetricsEnabled:      envutil.Bool("METRICS_ENABLED", true),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "dae-backend"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1),
		},
	}
	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set; using the insecure default")
	}
	return cfg
}

// ChainRegistry loads CHAINS_CONFIG, or builds a single-chain registry from
// CHAIN_ID/CHAIN_RPC_URL when no file is configured.
func (c Config) ChainRegistry() (*chain.Registry, error) {
	if path := strings.TrimSpace(c.ChainsConfig); path != "" {
		return chain.LoadRegistry(path)
	}
	if c.ChainID <= 0 || c.ChainRPCURL == "" {
		return nil, fmt.Errorf("no chains configured: set CHAINS_CONFIG or CHAIN_ID and CHAIN_RPC_URL")
	}
	minConf := c.MinConfirmations
	if minConf < 0 {
		minConf = 0
	}
	return chain.NewRegistry(chain.Chain{
		ID:                  c.ChainID,
		Name:                c.ChainName,
		RPCURL:              c.ChainRPCURL,
		MinConfirmations:    uint64(minConf),
		ConfirmationTimeout: c.ConfirmationTimeout,
		FactoryAddress:      c.ChainFactory,
	})
}
