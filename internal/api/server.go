// Package api provides the HTTP surface of the swap service. It validates
// caller identity, translates domain errors to transport responses, and
// delegates everything else to the application services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rewear-collective/rewear/internal/app/points"
	"github.com/rewear-collective/rewear/internal/app/swap"
	"github.com/rewear-collective/rewear/internal/auth"
	"github.com/rewear-collective/rewear/internal/domain"
	"github.com/rewear-collective/rewear/internal/infra/observability"
	"github.com/rewear-collective/rewear/internal/infra/sqlite"
)

// Server is the rewear HTTP API server.
type Server struct {
	swaps          *swap.Service
	ledger         *points.Ledger
	tokens         *auth.Service
	store          *sqlite.DB
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(swaps *swap.Service, ledger *points.Ledger, tokens *auth.Service, store *sqlite.DB) *Server {
	return &Server{swaps: swaps, ledger: ledger, tokens: tokens, store: store}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Public catalog reads
	r.Get("/api/items", s.handleListItems)
	r.Get("/api/items/{id}", s.handleGetItem)

	// Authenticated member surface
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/api/me", s.handleProfile)
		r.Post("/api/items", s.handleCreateItem)

		r.Route("/api/swaps", func(r chi.Router) {
			r.Post("/request", s.handleCreateSwap)
			r.Get("/received", s.handleReceived)
			r.Get("/sent", s.handleSent)
			r.Get("/{id}", s.handleGetSwap)
			r.Patch("/{id}/respond", s.handleRespond)
			r.Get("/{id}/courier-options", s.handleCourierOptions)
			r.Patch("/{id}/select-courier", s.handleSelectCourier)
			r.Patch("/{id}/ship", s.handleMarkShipped)
			r.Patch("/{id}/complete", s.handleComplete)
			r.Patch("/{id}/cancel", s.handleCancel)
		})

		// Staff surface
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/items", s.handleAdminPendingItems)
			r.Patch("/items/{id}", s.handleAdminItemStatus)
			r.Get("/swaps", s.handleAdminSwaps)
		})
	})

	return r
}

// ─── Caller Identity ────────────────────────────────────────────────────────

type contextKey string

const callerKey contextKey = "rewear-caller"

// authMiddleware requires a valid bearer token and stores the claims in the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		claims, err := s.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin is the single authorization predicate for staff routes.
// Must sit after authMiddleware.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := caller(r); c == nil || !c.IsAdmin {
			writeError(w, http.StatusForbidden, "forbidden", "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller returns the authenticated claims, or nil outside the auth group.
func caller(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(callerKey).(*auth.Claims)
	return c
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": msg,
		},
	})
}

// domainError maps the error taxonomy to transport responses in one place.
// Unexpected failures become a generic 500 without leaking internals.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrPreconditionFailed):
		writeError(w, http.StatusBadRequest, "precondition_failed", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// swapError is domainError plus the rejection counter for ledger operations.
func swapError(w http.ResponseWriter, err error) {
	reason := "internal"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, domain.ErrForbidden):
		reason = "forbidden"
	case errors.Is(err, domain.ErrPreconditionFailed):
		reason = "precondition_failed"
	case errors.Is(err, domain.ErrInvalidTransition):
		reason = "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		reason = "conflict"
	}
	observability.SwapsRejected.WithLabelValues(reason).Inc()
	domainError(w, err)
}

// decode reads a JSON body into v.
func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// requestLogger emits one structured line per request.
func requestLogger(next http.Handler) http.Handler {
	log := logrus.StandardLogger().WithField("type", "api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("request")
	})
}

// corsMiddleware adds CORS headers for the web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
