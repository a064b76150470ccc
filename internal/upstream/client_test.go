package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(zerolog.Nop(), Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestGetInfrastructure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/infrastructure" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"nodes": [{"id": 1, "type": "transformer", "latitude": 33.45, "longitude": 36.24, "status": "active"}],
			"lines": [{"id": 2, "type": "water_pipe_main", "coordinates": [[36.2, 33.4], [36.3, 33.5]], "status": "active"}]
		}`))
	}))

	snap, err := c.GetInfrastructure(context.Background())
	if err != nil {
		t.Fatalf("GetInfrastructure: %v", err)
	}
	if len(snap.Nodes) != 1 || len(snap.Lines) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if got := snap.Lines[0].Coordinates[0]; got.Lng() != 36.2 || got.Lat() != 33.4 {
		t.Fatalf("coordinate order corrupted: %+v", got)
	}
}

func TestCreateNode_sendsLatAndLngAsNamedFields(t *testing.T) {
	var body map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/infrastructure/nodes" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 7, "type": "transformer", "latitude": 33.45, "longitude": 36.24, "status": "active"}`))
	}))

	node, err := c.CreateNode(context.Background(), "transformer", 33.45, 36.24, infragraph.StatusActive)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if node.ID != 7 {
		t.Fatalf("expected server-assigned id 7, got %d", node.ID)
	}
	if body["latitude"] != 33.45 || body["longitude"] != 36.24 {
		t.Fatalf("request body mixed up coordinates: %v", body)
	}
}

func TestUpdateAsset_mapsNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	status := infragraph.StatusDamaged
	_, err := c.UpdateAsset(context.Background(), infragraph.KindNode, 999, UpdateFields{Status: &status})
	if !infragraph.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteAsset_absentIDIsSuccess(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))

	if err := c.DeleteAsset(context.Background(), infragraph.KindNode, 999); err != nil {
		t.Fatalf("expected idempotent delete to succeed, got %v", err)
	}
}

func TestServerFailureIsTransportError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.GetInfrastructure(context.Background())
	if !infragraph.IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestStatusHeatmap_queryEncoding(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"sector": "water", "zone_id": "z-1", "category": "cutoff", "score": 70,
			"geometry": {"kind": "zone", "coordinates": [[36.2,33.4],[36.3,33.4],[36.3,33.5]]}}]`))
	}))

	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	zones, err := c.StatusHeatmap(context.Background(), infragraph.SectorWater, date)
	if err != nil {
		t.Fatalf("StatusHeatmap: %v", err)
	}
	if gotQuery != "type=water&date=2024-05-10" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(zones) != 1 || zones[0].Score != 70 || zones[0].Category != infragraph.CategoryCutoff {
		t.Fatalf("unexpected zones: %+v", zones)
	}
}
