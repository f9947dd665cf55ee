package main

import (
	"context"
	"os"
	"strings"

	"github.com/noah-isme/backend-billing/internal/app"
	"github.com/noah-isme/backend-billing/internal/config"
	"github.com/noah-isme/backend-billing/internal/jobs"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// The worker drains the webhook delivery queue. It runs separately from the
// API so slow or flapping endpoints never back-pressure request handling.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().
		Str("env", cfg.AppEnv).
		Str("proc", "worker").
		Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "billing"), nil)

	if envBool("OBS_ENABLE_TRACING", true) {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName: "billing-worker",
			Endpoint:    envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:    envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	srv, err := app.NewTaskServer(cfg.RedisURL, cfg.AsynqConcurrency, map[string]int{
		jobs.QueueWebhooks: 5,
		"default":          1,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise task server")
	}

	deliverer := jobs.NewDeliverer(cfg.WebhookSecret, logger)

	logger.Info().Int("concurrency", cfg.AsynqConcurrency).Msg("worker starting")
	if err := srv.Run(jobs.Mux(deliverer)); err != nil {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}
