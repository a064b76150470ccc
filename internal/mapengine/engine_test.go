package mapengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/compositor"
	"darayyaconnect/infra-core/internal/editsession"
	"darayyaconnect/infra-core/internal/graphstore"
	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/playback"
	"darayyaconnect/infra-core/internal/statusagg"
	"darayyaconnect/infra-core/internal/upstream"
)

type fakeAPI struct {
	snapshot   upstream.SnapshotResponse
	heatmapErr error
	reports    []infragraph.StatusReport
}

func (f *fakeAPI) GetInfrastructure(ctx context.Context) (upstream.SnapshotResponse, error) {
	return f.snapshot, nil
}

func (f *fakeAPI) CreateNode(ctx context.Context, typeTag string, lat, lng float64, status infragraph.AssetStatus) (infragraph.Node, error) {
	return infragraph.Node{ID: 100, Type: typeTag, Latitude: lat, Longitude: lng, Status: status}, nil
}

func (f *fakeAPI) CreateLine(ctx context.Context, typeTag string, coords []infragraph.LngLat, status infragraph.AssetStatus) (infragraph.Line, error) {
	return infragraph.Line{ID: 101, Type: typeTag, Coordinates: coords, Status: status}, nil
}

func (f *fakeAPI) UpdateAsset(ctx context.Context, kind infragraph.AssetKind, id int64, fields upstream.UpdateFields) (upstream.UpdatedAsset, error) {
	return upstream.UpdatedAsset{}, nil
}

func (f *fakeAPI) DeleteAsset(ctx context.Context, kind infragraph.AssetKind, id int64) error {
	return nil
}

func (f *fakeAPI) StatusHeatmap(ctx context.Context, sector infragraph.Sector, date time.Time) ([]infragraph.ZoneStatus, error) {
	if f.heatmapErr != nil {
		return nil, f.heatmapErr
	}
	return []infragraph.ZoneStatus{{Sector: sector, ZoneID: string(sector) + "-1", Category: infragraph.CategoryAvailable, Score: 90}}, nil
}

func (f *fakeAPI) PopulationHeatmap(ctx context.Context, date time.Time) ([]infragraph.HeatPoint, error) {
	return []infragraph.HeatPoint{{Location: infragraph.LngLat{36.24, 33.45}, Weight: 1}}, nil
}

func (f *fakeAPI) PublicReports(ctx context.Context) ([]infragraph.StatusReport, error) {
	return f.reports, nil
}

type fakeArchive struct {
	reports []infragraph.StatusReport
	err     error
}

func (f *fakeArchive) ListReportsForDay(ctx context.Context, sector infragraph.Sector, day time.Time) ([]infragraph.StatusReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []infragraph.StatusReport
	for _, r := range f.reports {
		if r.Sector == sector {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestHandle(t *testing.T, api *fakeAPI, archive ReportArchive) *Handle {
	t.Helper()
	log := zerolog.Nop()
	store := graphstore.New(log, api, nil)
	return New(log, Options{
		Store:     store,
		Aggregate: statusagg.New(log, nil),
		Playback:  playback.New(log),
		Overlays:  api,
		Archive:   archive,
		Sector:    infragraph.SectorWater,
	})
}

func TestCompose_respectsFlags(t *testing.T) {
	api := &fakeAPI{snapshot: upstream.SnapshotResponse{Nodes: []infragraph.Node{
		{ID: 1, Type: infragraph.NodeTransformer, Status: infragraph.StatusActive},
		{ID: 2, Type: infragraph.NodeWaterTank, Status: infragraph.StatusActive},
	}}}
	h := newTestHandle(t, api, nil)

	if _, err := h.Store().Load(context.Background(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	h.SetFlags(compositor.Flags{Electricity: true})
	fs := h.Compose()
	if len(fs.Nodes) != 1 || fs.Nodes[0].ID != 1 {
		t.Fatalf("expected only the transformer, got %+v", fs.Nodes)
	}
}

func TestRefresh_populatesOverlays(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandle(t, api, nil)
	h.SetFlags(compositor.Flags{CrowdWater: true, CrowdElectricity: true, Heatmap: true})

	if err := h.Refresh(context.Background(), time.Now()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	fs := h.Compose()
	if len(fs.CrowdZones) != 2 {
		t.Fatalf("expected water and electricity crowd zones, got %+v", fs.CrowdZones)
	}
	if len(fs.HeatPoints) != 1 {
		t.Fatalf("expected heat points, got %+v", fs.HeatPoints)
	}
}

func TestRefresh_archiveFallbackForCrowdLayers(t *testing.T) {
	api := &fakeAPI{heatmapErr: &infragraph.TransportError{Op: "GET status-heatmap", Err: errors.New("gone")}}
	archive := &fakeArchive{reports: []infragraph.StatusReport{
		{Sector: infragraph.SectorWater, ZoneID: "z-1", Category: infragraph.CategoryCutoff, Geometry: infragraph.Geometry{Kind: infragraph.GeometryPoint, Coordinates: []infragraph.LngLat{{36.2, 33.4}}}},
		{Sector: infragraph.SectorWater, ZoneID: "z-1", Category: infragraph.CategoryAvailable, Geometry: infragraph.Geometry{Kind: infragraph.GeometryPoint, Coordinates: []infragraph.LngLat{{36.2, 33.4}}}},
	}}
	h := newTestHandle(t, api, archive)
	h.SetFlags(compositor.Flags{CrowdWater: true})

	if err := h.Refresh(context.Background(), time.Now().AddDate(0, 0, -5)); err != nil {
		t.Fatalf("Refresh with archive fallback: %v", err)
	}

	fs := h.Compose()
	if len(fs.CrowdZones) != 1 {
		t.Fatalf("expected one aggregated zone from the archive, got %+v", fs.CrowdZones)
	}
	if fs.CrowdZones[0].Score != 50 || fs.CrowdZones[0].Category != infragraph.CategoryCutoff {
		t.Fatalf("archive aggregation wrong: %+v", fs.CrowdZones[0])
	}
}

func TestSelection_opensInspectorThroughSession(t *testing.T) {
	api := &fakeAPI{snapshot: upstream.SnapshotResponse{Nodes: []infragraph.Node{
		{ID: 7, Type: infragraph.NodeWaterPump, Status: infragraph.StatusActive},
	}}}
	h := newTestHandle(t, api, nil)

	if _, err := h.Store().Load(context.Background(), nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ev := editsession.FeatureClicked{Kind: infragraph.KindNode, ID: 7}
	if err := h.Session().HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	draft, open := h.Inspector().Draft()
	if !open || draft.ID != 7 {
		t.Fatalf("expected inspector opened on node 7, got %+v open=%v", draft, open)
	}
}

func TestPlaybackOffsetChangeRefreshesOverlays(t *testing.T) {
	api := &fakeAPI{}
	h := newTestHandle(t, api, nil)
	h.SetFlags(compositor.Flags{CrowdWater: true})

	if _, err := h.Playback().SetOffset(context.Background(), -2); err != nil {
		t.Fatalf("SetOffset: %v", err)
	}

	fs := h.Compose()
	if len(fs.CrowdZones) != 1 {
		t.Fatalf("offset change must re-run the crowd refresh, got %+v", fs.CrowdZones)
	}
}
