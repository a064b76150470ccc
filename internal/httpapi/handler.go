package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/db"
	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/mapengine"
	"darayyaconnect/infra-core/internal/metrics"
)

type Handler struct {
	log     zerolog.Logger
	pool    *db.Pool
	engine  *mapengine.Handle
	metrics *metrics.Metrics
}

func NewHandler(log zerolog.Logger, engine *mapengine.Handle, pool *db.Pool, m *metrics.Metrics) *Handler {
	return &Handler{log: log, pool: pool, engine: engine, metrics: m}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Get("/metrics", h.metrics.Handler().ServeHTTP)

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/map", func(r chi.Router) {
				r.Get("/compose", h.handleCompose)
				r.Get("/snapshot", h.handleSnapshot)
				r.Get("/layers", h.handleGetLayers)
				r.Put("/layers", h.handleSetLayers)
			})

			r.Route("/session", func(r chi.Router) {
				r.Get("/", h.handleSessionState)
				r.Post("/tool", h.handleStartTool)
				r.Post("/sector", h.handleSetSector)
				r.Post("/events", h.handleSessionEvent)
			})

			r.Route("/inspector", func(r chi.Router) {
				r.Get("/", h.handleInspectorDraft)
				r.Post("/open", h.handleInspectorOpen)
				r.Put("/", h.handleInspectorSave)
				r.Delete("/", h.handleInspectorDelete)
			})

			r.Route("/playback", func(r chi.Router) {
				r.Get("/", h.handlePlaybackState)
				r.Put("/offset", h.handleSetOffset)
			})

			r.Get("/status/zones", h.handleStatusZones)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

// respondDomainError maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	var ve *infragraph.ValidationError
	var nfe *infragraph.NotFoundError
	var te *infragraph.TransportError
	switch {
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, "validation_failed", ve.Error(), map[string]any{"field": ve.Field})
	case errors.As(err, &nfe):
		h.writeError(w, http.StatusNotFound, "not_found", nfe.Error(), map[string]any{"kind": string(nfe.Kind), "id": nfe.ID})
	case errors.As(err, &te):
		h.writeError(w, http.StatusBadGateway, "upstream_unavailable", "municipal API call failed", map[string]any{"op": te.Op})
	default:
		h.log.Error().Err(err).Msg("unclassified failure")
		h.writeError(w, http.StatusInternalServerError, "internal_error", "unexpected failure", nil)
	}
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleReadyZ reports readiness. The database is optional (it only backs
// the archive), so readiness pings it only when configured.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.engine == nil {
		h.writeError(w, http.StatusServiceUnavailable, "engine_unavailable", "map engine not configured", nil)
		return
	}

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}
