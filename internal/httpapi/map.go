package httpapi

import (
	"net/http"
	"strings"
	"time"

	"darayyaconnect/infra-core/internal/compositor"
	"darayyaconnect/infra-core/internal/editsession"
	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/inspector"
)

// handleCompose returns the renderable feature set for the current layer
// flags and playback state. Pure read: no network calls.
func (h *Handler) handleCompose(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Compose())
}

// handleSnapshot loads a fresh snapshot from the municipal API, optionally
// filtered to one sector client-side.
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var sector *infragraph.Sector
	if raw := strings.TrimSpace(r.URL.Query().Get("sector")); raw != "" {
		if !infragraph.IsValidSector(raw) {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid sector", map[string]any{"sector": raw})
			return
		}
		s := infragraph.Sector(infragraph.NormalizeTag(raw))
		sector = &s
	}

	snap, err := h.engine.Store().Load(r.Context(), sector)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleGetLayers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Flags())
}

func (h *Handler) handleSetLayers(w http.ResponseWriter, r *http.Request) {
	var flags compositor.Flags
	if err := decodeJSONStrict(r, &flags); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	h.engine.SetFlags(flags)
	h.writeJSON(w, http.StatusOK, flags)
}

func (h *Handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Session().State())
}

type startToolRequest struct {
	Tool    string `json:"tool"`
	Subtype string `json:"subtype,omitempty"`
}

func (h *Handler) handleStartTool(w http.ResponseWriter, r *http.Request) {
	var req startToolRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	tool, ok := editsession.ParseTool(req.Tool)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown tool", map[string]any{"tool": req.Tool})
		return
	}

	if err := h.engine.Session().StartTool(tool, req.Subtype); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Session().State())
}

type setSectorRequest struct {
	Sector string `json:"sector"`
}

func (h *Handler) handleSetSector(w http.ResponseWriter, r *http.Request) {
	var req setSectorRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}
	if !infragraph.IsValidSector(req.Sector) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid sector", map[string]any{"sector": req.Sector})
		return
	}

	h.engine.Session().SetSector(infragraph.Sector(infragraph.NormalizeTag(req.Sector)))
	h.writeJSON(w, http.StatusOK, h.engine.Session().State())
}

// sessionEventRequest is the wire form of a typed render event.
type sessionEventRequest struct {
	Type     string               `json:"type"`
	At       *infragraph.LngLat   `json:"at,omitempty"`
	Geometry *infragraph.Geometry `json:"geometry,omitempty"`
	Kind     string               `json:"kind,omitempty"`
	ID       int64                `json:"id,omitempty"`
}

func (h *Handler) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	var req sessionEventRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	var ev editsession.Event
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "vertex_added":
		if req.At == nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "vertex_added requires 'at'", nil)
			return
		}
		ev = editsession.VertexAdded{At: *req.At}
	case "geometry_drawn":
		var g infragraph.Geometry
		if req.Geometry != nil {
			g = *req.Geometry
		}
		ev = editsession.GeometryDrawn{Geometry: g}
	case "feature_clicked":
		kind, ok := infragraph.ParseAssetKind(req.Kind)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid asset kind", map[string]any{"kind": req.Kind})
			return
		}
		ev = editsession.FeatureClicked{Kind: kind, ID: req.ID}
	default:
		h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown event type", map[string]any{"type": req.Type})
		return
	}

	if err := h.engine.Session().HandleEvent(r.Context(), ev); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Session().State())
}

func (h *Handler) handleInspectorDraft(w http.ResponseWriter, r *http.Request) {
	draft, open := h.engine.Inspector().Draft()
	if !open {
		h.writeError(w, http.StatusNotFound, "not_found", "no open draft", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, draft)
}

type inspectorOpenRequest struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

func (h *Handler) handleInspectorOpen(w http.ResponseWriter, r *http.Request) {
	var req inspectorOpenRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	kind, ok := infragraph.ParseAssetKind(req.Kind)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid asset kind", map[string]any{"kind": req.Kind})
		return
	}

	draft, err := h.engine.Inspector().Open(r.Context(), kind, req.ID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, draft)
}

func (h *Handler) handleInspectorSave(w http.ResponseWriter, r *http.Request) {
	var draft inspector.Draft
	if err := decodeJSONStrict(r, &draft); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	if err := h.engine.Inspector().Save(r.Context(), draft); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (h *Handler) handleInspectorDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Inspector().Delete(r.Context()); err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	pb := h.engine.Playback()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"offset": pb.Offset(),
		"date":   pb.Date().Format("2006-01-02"),
	})
}

type setOffsetRequest struct {
	Offset int `json:"offset"`
}

func (h *Handler) handleSetOffset(w http.ResponseWriter, r *http.Request) {
	var req setOffsetRequest
	if err := decodeJSONStrict(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid json body", map[string]any{"error": err.Error()})
		return
	}

	date, err := h.engine.Playback().SetOffset(r.Context(), req.Offset)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"offset": req.Offset,
		"date":   date.Format("2006-01-02"),
	})
}

func (h *Handler) handleStatusZones(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("sector"))
	if !infragraph.IsValidSector(raw) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid sector", map[string]any{"sector": raw})
		return
	}
	sector := infragraph.Sector(infragraph.NormalizeTag(raw))

	// The archive query spans one calendar day from the given instant, so
	// the default must be today's midnight, not the current time.
	now := time.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if rawDate := strings.TrimSpace(r.URL.Query().Get("date")); rawDate != "" {
		parsed, err := time.Parse("2006-01-02", rawDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid date, expected YYYY-MM-DD", map[string]any{"date": rawDate})
			return
		}
		date = parsed
	}

	zones, err := h.engine.ZonesForDate(r.Context(), sector, date)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if zones == nil {
		zones = []infragraph.ZoneStatus{}
	}
	h.writeJSON(w, http.StatusOK, zones)
}
