package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress        string
	DatabaseURI       string
	GatewayBaseURL    string
	GatewayKeyID      string
	GatewayKeySecret  string
	PaymentSecret     string
	WebhookSecret     string
	PrincipalSecret   string
	KafkaBrokers      []string
	KafkaTopic        string
	RedisAddress      string
	ReconcileInterval time.Duration
	WorkerPoolSize    int
	ReconcileBatch    int
	PaymentWindow     time.Duration
	ShutdownTimeout   time.Duration
}

const (
	defaultRunAddress        = ":8080"
	defaultPrincipalSecret   = "change-me-in-production"
	defaultKafkaTopic        = "order-events"
	defaultRedisAddress      = "localhost:6379"
	defaultReconcileInterval = 5 * time.Second
	defaultWorkerPoolSize    = 4
	defaultReconcileBatch    = 32
	defaultPaymentWindow     = 30 * time.Minute
	defaultShutdownTimeout   = 10 * time.Second
)

// Load parses configuration from an optional .env file, environment
// variables and flags.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		GatewayBaseURL:    getString(lookup, "GATEWAY_BASE_URL", ""),
		GatewayKeyID:      getString(lookup, "GATEWAY_KEY_ID", ""),
		GatewayKeySecret:  getString(lookup, "GATEWAY_KEY_SECRET", ""),
		PaymentSecret:     getString(lookup, "PAYMENT_SECRET", ""),
		WebhookSecret:     getString(lookup, "WEBHOOK_SECRET", ""),
		PrincipalSecret:   getString(lookup, "PRINCIPAL_SECRET", defaultPrincipalSecret),
		KafkaTopic:        getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		RedisAddress:      getString(lookup, "REDIS_ADDRESS", defaultRedisAddress),
		ReconcileInterval: getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		WorkerPoolSize:    getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ReconcileBatch:    getInt(lookup, "RECONCILE_BATCH_SIZE", defaultReconcileBatch),
		PaymentWindow:     getDuration(lookup, "PAYMENT_WINDOW", defaultPaymentWindow),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}
	cfg.KafkaBrokers = splitList(getString(lookup, "KAFKA_BROKERS", "localhost:9092"))

	fs := flag.NewFlagSet("orderdesk", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		brokersStr           = strings.Join(cfg.KafkaBrokers, ",")
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		paymentWindowStr     = cfg.PaymentWindow.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.GatewayBaseURL, "g", cfg.GatewayBaseURL, "Payment gateway base URL")
	fs.StringVar(&cfg.GatewayKeyID, "gateway-key-id", cfg.GatewayKeyID, "Payment gateway API key id")
	fs.StringVar(&cfg.GatewayKeySecret, "gateway-key-secret", cfg.GatewayKeySecret, "Payment gateway API key secret")
	fs.StringVar(&cfg.PaymentSecret, "payment-secret", cfg.PaymentSecret, "Secret for payment confirmation signatures")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Secret for webhook body signatures")
	fs.StringVar(&cfg.PrincipalSecret, "principal-secret", cfg.PrincipalSecret, "Secret for verifying principal tokens")
	fs.StringVar(&brokersStr, "kafka-brokers", brokersStr, "Comma separated Kafka broker list")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for order events")
	fs.StringVar(&cfg.RedisAddress, "redis", cfg.RedisAddress, "Redis address for webhook dedup cache")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reconciliation polls")
	fs.IntVar(&cfg.ReconcileBatch, "reconcile-batch", cfg.ReconcileBatch, "Maximum orders per reconciliation batch")
	fs.StringVar(&paymentWindowStr, "payment-window", paymentWindowStr, "How long a stock reservation waits for payment")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}

	if cfg.PaymentWindow, err = time.ParseDuration(paymentWindowStr); err != nil {
		return nil, fmt.Errorf("invalid payment window: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	cfg.KafkaBrokers = splitList(brokersStr)

	if secretFile, ok := lookup("WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.WebhookSecret = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.ReconcileBatch <= 0 {
		cfg.ReconcileBatch = defaultReconcileBatch
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}

	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = defaultPaymentWindow
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.GatewayBaseURL == "" {
		return nil, fmt.Errorf("payment gateway base URL must be provided")
	}

	if cfg.PaymentSecret == "" {
		return nil, fmt.Errorf("payment secret must be provided")
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
