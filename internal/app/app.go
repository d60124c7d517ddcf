package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/sundayezeilo/bitly"
	"github.com/sundayezeilo/bitly/client"
	"github.com/sundayezeilo/bitly/credentials"
	"github.com/sundayezeilo/bitly/internal/config"
)

// App holds the command-line driver's dependencies and configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Client  *bitly.Client
	Metrics *prometheus.Registry

	shutdown []func(context.Context) error
}

// New loads the environment and configuration and wires up a client.
// Logs go to logOut; stdout is left to command output.
func New(ctx context.Context, logOut io.Writer) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg, logOut)
}

// NewWithConfig wires up a client from an already loaded configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	logger := setupLogger(cfg.App.LogLevel, logOut)

	logger.Debug("initializing application",
		"env", cfg.App.Environment,
		"api_base_url", cfg.Bitly.APIBaseURL,
	)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: prometheus.NewRegistry(),
	}

	opts := client.Options{
		BaseURL:    cfg.Bitly.APIBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.Bitly.HTTPTimeout},
		Logger:     logger,
		Metrics:    a.Metrics,
	}

	if cfg.Observability.Enabled {
		tp, err := setupTracing(ctx, cfg.Observability)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}
		opts.TracerProvider = tp
		a.OnShutdown(tp.Shutdown)
		logger.Debug("tracing enabled", "endpoint", cfg.Observability.OTelEndpoint)
	}

	creds, err := credentials.NewAccessToken(cfg.Bitly.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	c, err := bitly.New(creds, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	a.Client = c

	return a, nil
}

// OnShutdown registers fn to run from Shutdown.
func (a *App) OnShutdown(fn func(context.Context) error) {
	a.shutdown = append(a.shutdown, fn)
}

// Shutdown flushes pending spans and runs every registered hook, even when
// an earlier one fails.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range a.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

// setupTracing exports spans over OTLP/gRPC and installs the provider
// globally.
func setupTracing(ctx context.Context, cfg config.ObservabilityConfig) (*sdktrace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTelEndpoint)}
	if cfg.OTelInsecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}
