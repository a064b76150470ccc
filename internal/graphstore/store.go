// Package graphstore owns the canonical client-side view of the
// infrastructure graph: the last known snapshot plus validated mutations
// against the municipal API.
package graphstore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/metrics"
	"darayyaconnect/infra-core/internal/upstream"
)

// Upstream is the minimal API surface the store needs. *upstream.Client
// satisfies this.
type Upstream interface {
	GetInfrastructure(ctx context.Context) (upstream.SnapshotResponse, error)
	CreateNode(ctx context.Context, typeTag string, lat, lng float64, status infragraph.AssetStatus) (infragraph.Node, error)
	CreateLine(ctx context.Context, typeTag string, coords []infragraph.LngLat, status infragraph.AssetStatus) (infragraph.Line, error)
	UpdateAsset(ctx context.Context, kind infragraph.AssetKind, id int64, fields upstream.UpdateFields) (upstream.UpdatedAsset, error)
	DeleteAsset(ctx context.Context, kind infragraph.AssetKind, id int64) error
}

// Store holds asset identity and lifetime. Assets exist once the server
// confirms creation and disappear once the server confirms deletion; the
// store never speculatively removes anything.
type Store struct {
	log      zerolog.Logger
	upstream Upstream
	metrics  *metrics.Metrics

	mu   sync.Mutex
	snap infragraph.Snapshot
	// loaded tracks whether at least one snapshot has ever been fetched;
	// before that, optimistic presence checks are skipped.
	loaded bool
}

func New(log zerolog.Logger, up Upstream, m *metrics.Metrics) *Store {
	return &Store{log: log, upstream: up, metrics: m}
}

// Load fetches a full snapshot. On transport failure the previous snapshot
// is retained untouched. A non-nil sector filters the returned copy
// client-side; the cached snapshot always holds all sectors.
func (s *Store) Load(ctx context.Context, sector *infragraph.Sector) (infragraph.Snapshot, error) {
	resp, err := s.upstream.GetInfrastructure(ctx)
	if err != nil {
		s.metrics.IncStoreLoad("error")
		s.log.Warn().Err(err).Msg("snapshot load failed, keeping previous snapshot")
		return infragraph.Snapshot{}, err
	}
	s.metrics.IncStoreLoad("ok")

	snap := infragraph.Snapshot{Nodes: resp.Nodes, Lines: resp.Lines, LoadedAt: time.Now()}

	s.mu.Lock()
	s.snap = snap
	s.loaded = true
	s.mu.Unlock()

	s.log.Debug().Int("nodes", len(snap.Nodes)).Int("lines", len(snap.Lines)).Msg("snapshot loaded")

	if sector != nil {
		return snap.FilterSector(*sector), nil
	}
	return snap.Clone(), nil
}

// Snapshot returns the last known snapshot without touching the network.
func (s *Store) Snapshot() infragraph.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// CreateNode validates and commits a new node, then re-syncs the full
// snapshot. Re-loading instead of patching trades efficiency for
// consistency with concurrent editors.
func (s *Store) CreateNode(ctx context.Context, typeTag string, lat, lng float64, status infragraph.AssetStatus) (infragraph.Node, error) {
	if status == "" {
		status = infragraph.StatusActive
	}
	if !(infragraph.LngLat{lng, lat}).Finite() {
		s.metrics.IncStoreMutation("create_node", "invalid")
		return infragraph.Node{}, &infragraph.ValidationError{Field: "coordinates", Reason: "latitude/longitude must be finite"}
	}
	if _, ok := infragraph.SectorOfNodeType(typeTag); !ok {
		s.metrics.IncStoreMutation("create_node", "invalid")
		return infragraph.Node{}, &infragraph.ValidationError{Field: "type", Reason: "unknown node type " + typeTag}
	}

	node, err := s.upstream.CreateNode(ctx, infragraph.NormalizeTag(typeTag), lat, lng, status)
	if err != nil {
		s.metrics.IncStoreMutation("create_node", "error")
		return infragraph.Node{}, err
	}
	s.metrics.IncStoreMutation("create_node", "ok")
	s.log.Info().Int64("id", node.ID).Str("type", node.Type).Msg("node created")

	s.resync(ctx)
	return node, nil
}

// CreateLine validates and commits a new line, then re-syncs.
func (s *Store) CreateLine(ctx context.Context, typeTag string, coords []infragraph.LngLat, status infragraph.AssetStatus) (infragraph.Line, error) {
	if status == "" {
		status = infragraph.StatusActive
	}
	if len(coords) < 2 {
		s.metrics.IncStoreMutation("create_line", "invalid")
		return infragraph.Line{}, &infragraph.ValidationError{Field: "coordinates", Reason: "a line needs at least 2 vertices"}
	}
	for _, c := range coords {
		if !c.Finite() {
			s.metrics.IncStoreMutation("create_line", "invalid")
			return infragraph.Line{}, &infragraph.ValidationError{Field: "coordinates", Reason: "vertices must be finite"}
		}
	}
	if _, ok := infragraph.SectorOfLineType(typeTag); !ok {
		s.metrics.IncStoreMutation("create_line", "invalid")
		return infragraph.Line{}, &infragraph.ValidationError{Field: "type", Reason: "unknown line type " + typeTag}
	}

	line, err := s.upstream.CreateLine(ctx, infragraph.NormalizeTag(typeTag), coords, status)
	if err != nil {
		s.metrics.IncStoreMutation("create_line", "error")
		return infragraph.Line{}, err
	}
	s.metrics.IncStoreMutation("create_line", "ok")
	s.log.Info().Int64("id", line.ID).Str("type", line.Type).Msg("line created")

	s.resync(ctx)
	return line, nil
}

// UpdateAsset applies a partial update. The presence check against the
// last snapshot is optimistic only; the server stays the final arbiter.
func (s *Store) UpdateAsset(ctx context.Context, kind infragraph.AssetKind, id int64, fields upstream.UpdateFields) (upstream.UpdatedAsset, error) {
	if fields.Status != nil && !infragraph.IsValidStatus(string(*fields.Status)) {
		s.metrics.IncStoreMutation("update", "invalid")
		return upstream.UpdatedAsset{}, &infragraph.ValidationError{Field: "status", Reason: "unknown status " + string(*fields.Status)}
	}

	s.mu.Lock()
	known := !s.loaded || s.snap.Contains(kind, id)
	s.mu.Unlock()
	if !known {
		s.metrics.IncStoreMutation("update", "not_found")
		return upstream.UpdatedAsset{}, &infragraph.NotFoundError{Kind: kind, ID: id}
	}

	updated, err := s.upstream.UpdateAsset(ctx, kind, id, fields)
	if err != nil {
		s.metrics.IncStoreMutation("update", "error")
		return upstream.UpdatedAsset{}, err
	}
	s.metrics.IncStoreMutation("update", "ok")
	s.log.Info().Str("kind", string(kind)).Int64("id", id).Msg("asset updated")

	s.resync(ctx)
	return updated, nil
}

// DeleteAsset removes an asset. Deleting an id that is already gone is
// success, not an error; concurrent editors race on deletes all the time.
func (s *Store) DeleteAsset(ctx context.Context, kind infragraph.AssetKind, id int64) error {
	if err := s.upstream.DeleteAsset(ctx, kind, id); err != nil {
		s.metrics.IncStoreMutation("delete", "error")
		return err
	}
	s.metrics.IncStoreMutation("delete", "ok")
	s.log.Info().Str("kind", string(kind)).Int64("id", id).Msg("asset deleted")

	s.resync(ctx)
	return nil
}

// resync reloads the snapshot after a successful mutation. A failed
// resync is logged but not surfaced: the mutation itself succeeded and
// the stale snapshot stays usable until the next load.
func (s *Store) resync(ctx context.Context) {
	if _, err := s.Load(ctx, nil); err != nil {
		s.log.Warn().Err(err).Msg("post-mutation resync failed")
	}
}
