package main

import (
	"net/http"

	"github.com/rs/zerolog"

	httphandlers "saldo/internal/interfaces/http"
	"saldo/internal/shared/config"
	"saldo/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	var protect func(http.Handler) http.Handler
	if deps.JWT != nil {
		protect = middleware.Auth(deps.JWT)
	} else {
		logger.Warn().Msg("authentication disabled; API routes are public")
	}
	httphandlers.RegisterRoutes(mux, deps.Handlers, protect)

	handler := middleware.CORS(cfg.Server.AllowedHosts)(mux)

	if cfg.RateLimit.RPS > 0 {
		handler = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware(handler)
		logger.Info().Float64("rps", cfg.RateLimit.RPS).Int("burst", cfg.RateLimit.Burst).Msg("rate limiting enabled")
	}

	handler = middleware.Logging(logger)(handler)

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(middleware.Tracing(handler))
	}

	handler = middleware.SecurityHeaders(cfg.TLS.Enabled)(handler)
	if cfg.TLS.Enabled {
		logger.Info().Msg("HSTS enabled")
	}

	return handler
}
