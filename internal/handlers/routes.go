package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/lisongmechlab/lsml-sub002/internal/logging"
	"github.com/lisongmechlab/lsml-sub002/internal/metrics"
)

// Server bundles what the router needs.
type Server struct {
	Loadouts *LoadoutHandler
	Catalog  *CatalogHandler
	Metrics  *metrics.Metrics
	Logger   logr.Logger
	// AllowedOrigins lists the origins granted CORS access.
	AllowedOrigins []string
}

// NewMux registers every route and wraps the result in the logging and CORS
// middleware.
func NewMux(s Server) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		if s.Metrics != nil {
			mux.Handle(pattern, s.Metrics.Instrument(pattern, h))
			return
		}
		mux.Handle(pattern, h)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	handle("GET /api/chassis", s.Catalog.ListChassis)
	handle("GET /api/items", s.Catalog.ListItems)

	lh := s.Loadouts
	handle("POST /api/loadouts", lh.Create)
	handle("GET /api/loadouts/{id}", lh.Get)
	handle("GET /api/loadouts/{id}/stats", lh.Stats)
	handle("POST /api/loadouts/{id}/items", lh.AddItem)
	handle("DELETE /api/loadouts/{id}/items", lh.RemoveItem)
	handle("POST /api/loadouts/{id}/armor", lh.DistributeArmor)
	handle("PUT /api/loadouts/{id}/armor/{location}", lh.SetArmor)
	handle("PUT /api/loadouts/{id}/upgrades", lh.SetUpgrades)
	handle("POST /api/loadouts/{id}/undo", lh.Undo)
	handle("POST /api/loadouts/{id}/redo", lh.Redo)
	handle("POST /api/loadouts/{id}/save", lh.Save)
	handle("GET /api/saved/{id}", lh.GetSaved)

	return corsMiddleware(s.AllowedOrigins, logMiddleware(s.Logger, mux))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// logMiddleware puts a request-scoped logger into the context and logs every
// finished request.
func logMiddleware(log logr.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := log.WithValues("method", r.Method, "path", r.URL.Path)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(logr.NewContext(r.Context(), reqLog)))
		reqLog.V(logging.DEBUG).Info("Request served", "status", sw.status, "duration", time.Since(start))
	})
}

func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && slices.Contains(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
