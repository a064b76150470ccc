// Package mapengine wires the map core together behind one explicit
// handle. The handle is constructed once in main and passed by reference
// into the HTTP surface; nothing in the engine lives at module scope.
package mapengine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/compositor"
	"darayyaconnect/infra-core/internal/editsession"
	"darayyaconnect/infra-core/internal/graphstore"
	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/inspector"
	"darayyaconnect/infra-core/internal/playback"
	"darayyaconnect/infra-core/internal/statusagg"
)

// OverlaySource supplies the non-graph layers: crowd heatmaps, population
// density and raw public reports. *upstream.Client satisfies this.
type OverlaySource interface {
	StatusHeatmap(ctx context.Context, sector infragraph.Sector, date time.Time) ([]infragraph.ZoneStatus, error)
	PopulationHeatmap(ctx context.Context, date time.Time) ([]infragraph.HeatPoint, error)
	PublicReports(ctx context.Context) ([]infragraph.StatusReport, error)
}

// ReportArchive serves archived citizen reports for dates the upstream no
// longer exposes. *reportdb.Queries satisfies this; it is optional.
type ReportArchive interface {
	ListReportsForDay(ctx context.Context, sector infragraph.Sector, day time.Time) ([]infragraph.StatusReport, error)
}

// Handle owns the engine's moving parts and the layer visibility flags.
type Handle struct {
	log      zerolog.Logger
	store    *graphstore.Store
	session  *editsession.Controller
	insp     *inspector.Controller
	playback *playback.Service
	agg      *statusagg.Engine
	overlays OverlaySource
	archive  ReportArchive

	mu       sync.Mutex
	flags    compositor.Flags
	overlaid compositor.Overlays
}

type Options struct {
	Store     *graphstore.Store
	Aggregate *statusagg.Engine
	Playback  *playback.Service
	Overlays  OverlaySource
	// Archive is optional; when set it backs crowd layers for dates the
	// upstream heatmap cannot serve.
	Archive ReportArchive
	// Sector the editing session starts on.
	Sector infragraph.Sector
}

func New(log zerolog.Logger, opts Options) *Handle {
	h := &Handle{
		log:      log,
		store:    opts.Store,
		playback: opts.Playback,
		agg:      opts.Aggregate,
		overlays: opts.Overlays,
		archive:  opts.Archive,
		// Base sector layers start visible; overlays start off.
		flags: compositor.Flags{Water: true, Electricity: true, Sewage: true, Phone: true},
	}

	h.insp = inspector.New(log, opts.Store)
	h.session = editsession.New(log, opts.Store, opts.Sector, func(ctx context.Context, kind infragraph.AssetKind, id int64) {
		if _, err := h.insp.Open(ctx, kind, id); err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Int64("id", id).Msg("selection could not open inspector")
		}
	})

	h.playback.AddRefresher(playback.RefresherFunc(h.Refresh))
	return h
}

func (h *Handle) Store() *graphstore.Store         { return h.store }
func (h *Handle) Session() *editsession.Controller { return h.session }
func (h *Handle) Inspector() *inspector.Controller { return h.insp }
func (h *Handle) Playback() *playback.Service      { return h.playback }

// Flags returns the current visibility flags.
func (h *Handle) Flags() compositor.Flags {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flags
}

// SetFlags replaces the visibility flags. Composition itself stays pure;
// the flags are the only state this changes.
func (h *Handle) SetFlags(flags compositor.Flags) {
	h.mu.Lock()
	h.flags = flags
	h.mu.Unlock()
}

// Refresh re-fetches every overlay for the given playback date. Crowd
// layers fall back to the report archive when the upstream heatmap cannot
// serve the date. Partial results are kept: one failing overlay does not
// empty the others.
func (h *Handle) Refresh(ctx context.Context, date time.Time) error {
	var firstErr error

	crowdWater, err := h.crowdLayer(ctx, infragraph.SectorWater, date)
	if err != nil {
		firstErr = err
	}
	crowdElec, err := h.crowdLayer(ctx, infragraph.SectorElectricity, date)
	if err != nil && firstErr == nil {
		firstErr = err
	}

	heat, err := h.overlays.PopulationHeatmap(ctx, date)
	if err != nil {
		h.log.Warn().Err(err).Msg("population heatmap refresh failed")
		if firstErr == nil {
			firstErr = err
		}
		heat = nil
	}

	reports, err := h.overlays.PublicReports(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("public reports refresh failed")
		if firstErr == nil {
			firstErr = err
		}
		reports = nil
	}

	h.mu.Lock()
	if crowdWater != nil {
		h.overlaid.CrowdWater = crowdWater
	}
	if crowdElec != nil {
		h.overlaid.CrowdElectricity = crowdElec
	}
	if heat != nil {
		h.overlaid.HeatPoints = heat
	}
	if reports != nil {
		h.overlaid.PublicReports = reports
	}
	h.mu.Unlock()

	return firstErr
}

func (h *Handle) crowdLayer(ctx context.Context, sector infragraph.Sector, date time.Time) ([]infragraph.ZoneStatus, error) {
	zones, err := h.overlays.StatusHeatmap(ctx, sector, date)
	if err == nil {
		return zones, nil
	}
	if h.archive == nil {
		h.log.Warn().Err(err).Str("sector", string(sector)).Msg("crowd layer refresh failed")
		return nil, err
	}

	reports, archiveErr := h.archive.ListReportsForDay(ctx, sector, date)
	if archiveErr != nil {
		h.log.Warn().Err(archiveErr).Str("sector", string(sector)).Msg("crowd layer archive fallback failed")
		return nil, err
	}
	h.log.Debug().Str("sector", string(sector)).Int("reports", len(reports)).Msg("crowd layer served from archive")
	return h.agg.Aggregate(sector, reports), nil
}

// ZonesForDate serves the zone aggregates for an explicit sector and
// date, independent of the current playback offset. Same sourcing rules
// as Refresh: upstream heatmap first, archive fallback second.
func (h *Handle) ZonesForDate(ctx context.Context, sector infragraph.Sector, date time.Time) ([]infragraph.ZoneStatus, error) {
	return h.crowdLayer(ctx, sector, date)
}

// Compose projects the current snapshot and overlays through the layer
// flags. The snapshot is the store's last known copy; no network calls.
func (h *Handle) Compose() compositor.FeatureSet {
	h.mu.Lock()
	flags := h.flags
	overlays := h.overlaid
	h.mu.Unlock()

	return compositor.Compose(h.store.Snapshot(), overlays, flags)
}
