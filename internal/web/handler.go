// Package web is the small application layer served once bootstrap completes.
package web

import (
	"encoding/json"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	httpmiddleware "github.com/wolfeidau/streamhost/internal/http"
	"github.com/wolfeidau/streamhost/internal/logger"
)

// Options configures the handler.
type Options struct {
	// Credentials is the bearer token required by the API routes
	Credentials string

	Data *Data

	// CORSOrigins lists the origins allowed to call the API routes
	CORSOrigins []string

	// Logger is the base request logger, defaults to the global logger
	Logger *zerolog.Logger
}

// NewHandler returns the HTTP surface:
//
//	GET /healthz     liveness, unauthenticated
//	GET /api/hosts   hosts from the data file, bearer credentials required
func NewHandler(opts Options) http.Handler {
	if opts.Data == nil {
		data := DefaultData()
		opts.Data = &data
	}

	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}

	requireAuth := httpmiddleware.RequireBearer(opts.Credentials)

	api := http.NewServeMux()
	api.Handle("GET /api/hosts", requireAuth(hostsHandler(opts.Data)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("/api/", withCORS(opts.CORSOrigins, api))

	return httpmiddleware.Chain(mux,
		httpmiddleware.ClientIPMiddleware(),
		logger.RequestLogger(base),
		gzip,
	)
}

func gzip(h http.Handler) http.Handler {
	return gzhttp.GzipHandler(h)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func hostsHandler(data *Data) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Debug().Int("hosts", len(data.Hosts)).Msg("hosts request")

		writeJSON(w, r, http.StatusOK, data)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to encode response")
	}
}

// withCORS adds CORS support to the API routes.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", logger.RequestIDHeader},
		ExposedHeaders: []string{logger.RequestIDHeader},
	})
	return middleware.Handler(h)
}
