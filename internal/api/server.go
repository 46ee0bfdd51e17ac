package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates an HTTP server with all routes configured. Trade
// submission is mounted only when adminAPIKey is set, behind bearer auth.
func NewServer(port string, handler *SessionHandler, gatherer prometheus.Gatherer, adminAPIKey string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plan", handler.Plan)
	mux.HandleFunc("GET /api/v1/tokens", handler.ListTokens)
	mux.HandleFunc("POST /api/v1/sessions", handler.OpenSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", handler.GetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", handler.CloseSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/amount", handler.SetAmount)
	mux.HandleFunc("GET /api/v1/sessions/{id}/max", handler.MaxAmount)

	if adminAPIKey != "" {
		mux.Handle("POST /api/v1/sessions/{id}/trade", requireAuth(adminAPIKey, http.HandlerFunc(handler.Trade)))
	}

	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
