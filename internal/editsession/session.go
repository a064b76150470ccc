// Package editsession is the tool state machine that turns typed render
// events into validated create requests against the graph store. The
// render adapter never calls back into UI state directly: it emits
// GeometryDrawn / FeatureClicked events over a channel and this
// controller consumes them.
package editsession

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
)

// Tool is the active editing mode.
type Tool string

const (
	ToolSelect     Tool = "select"
	ToolPlacePoint Tool = "place_point"
	ToolDrawLine   Tool = "draw_line"
)

func ParseTool(s string) (Tool, bool) {
	switch Tool(infragraph.NormalizeTag(s)) {
	case ToolSelect:
		return ToolSelect, true
	case ToolPlacePoint:
		return ToolPlacePoint, true
	case ToolDrawLine:
		return ToolDrawLine, true
	}
	return "", false
}

// Event is a typed message from the render adapter.
type Event interface{ sessionEvent() }

// VertexAdded appends one vertex to an in-progress line draw.
type VertexAdded struct {
	At infragraph.LngLat
}

// GeometryDrawn signals a completed draw gesture.
type GeometryDrawn struct {
	Geometry infragraph.Geometry
}

// FeatureClicked signals a click on an existing asset.
type FeatureClicked struct {
	Kind infragraph.AssetKind
	ID   int64
}

func (VertexAdded) sessionEvent()    {}
func (GeometryDrawn) sessionEvent()  {}
func (FeatureClicked) sessionEvent() {}

// Store is the mutation surface the controller needs.
type Store interface {
	CreateNode(ctx context.Context, typeTag string, lat, lng float64, status infragraph.AssetStatus) (infragraph.Node, error)
	CreateLine(ctx context.Context, typeTag string, coords []infragraph.LngLat, status infragraph.AssetStatus) (infragraph.Line, error)
}

// SelectFunc receives the asset a FeatureClicked event referred to; the
// map engine wires it to the inspector.
type SelectFunc func(ctx context.Context, kind infragraph.AssetKind, id int64)

// State is a copy of the controller's current editing state.
type State struct {
	SessionID string              `json:"session_id"`
	Sector    infragraph.Sector   `json:"sector"`
	Tool      Tool                `json:"tool"`
	Subtype   string              `json:"subtype,omitempty"`
	Pending   []infragraph.LngLat `json:"pending,omitempty"`
	LastError string              `json:"last_error,omitempty"`
}

type Controller struct {
	log      zerolog.Logger
	store    Store
	onSelect SelectFunc

	mu        sync.Mutex
	sessionID string
	sector    infragraph.Sector
	tool      Tool
	subtype   string
	pending   []infragraph.LngLat
	lastErr   error
}

// New starts a session in Select mode on the given sector.
func New(log zerolog.Logger, store Store, sector infragraph.Sector, onSelect SelectFunc) *Controller {
	return &Controller{
		log:       log,
		store:     store,
		onSelect:  onSelect,
		sessionID: uuid.NewString(),
		sector:    sector,
		tool:      ToolSelect,
	}
}

// State returns a copy of the current editing state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		SessionID: c.sessionID,
		Sector:    c.sector,
		Tool:      c.tool,
		Subtype:   c.subtype,
	}
	if c.pending != nil {
		s.Pending = make([]infragraph.LngLat, len(c.pending))
		copy(s.Pending, c.pending)
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// SetSector switches the active sector and resets to Select
// unconditionally; changing sector mid-draw is not permitted.
func (c *Controller) SetSector(sector infragraph.Sector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sector = sector
	c.tool = ToolSelect
	c.subtype = ""
	c.pending = nil
	c.lastErr = nil
	c.log.Debug().Str("sector", string(sector)).Msg("sector changed, tool reset to select")
}

// StartTool enters the requested mode, discarding any pending geometry.
// PlacePoint and DrawLine require a subtype belonging to the active
// sector; Select takes none.
func (c *Controller) StartTool(tool Tool, subtype string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch tool {
	case ToolSelect:
		subtype = ""
	case ToolPlacePoint:
		sector, ok := infragraph.SectorOfNodeType(subtype)
		if !ok || sector != c.sector {
			return &infragraph.ValidationError{Field: "subtype", Reason: "node type does not belong to the active sector"}
		}
	case ToolDrawLine:
		sector, ok := infragraph.SectorOfLineType(subtype)
		if !ok || sector != c.sector {
			return &infragraph.ValidationError{Field: "subtype", Reason: "line type does not belong to the active sector"}
		}
	default:
		return &infragraph.ValidationError{Field: "tool", Reason: "unknown tool"}
	}

	c.tool = tool
	c.subtype = infragraph.NormalizeTag(subtype)
	c.pending = nil
	c.lastErr = nil
	c.log.Debug().Str("tool", string(tool)).Str("subtype", subtype).Msg("tool started")
	return nil
}

// HandleEvent dispatches one render event through the state machine.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case VertexAdded:
		return c.onVertexAdded(e)
	case GeometryDrawn:
		return c.onGeometryComplete(ctx, e.Geometry)
	case FeatureClicked:
		c.onFeatureSelected(ctx, e)
		return nil
	}
	return &infragraph.ValidationError{Field: "event", Reason: "unknown event type"}
}

// Run consumes events until the channel closes or the context ends.
// Handler errors are recorded as the session's last error, not fatal.
func (c *Controller) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.HandleEvent(ctx, ev); err != nil {
				c.log.Warn().Err(err).Msg("edit event rejected")
			}
		}
	}
}

func (c *Controller) onVertexAdded(e VertexAdded) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tool != ToolDrawLine {
		return &infragraph.ValidationError{Field: "event", Reason: "vertex added outside draw-line mode"}
	}
	if !e.At.Finite() {
		return &infragraph.ValidationError{Field: "vertex", Reason: "vertex must be finite"}
	}
	c.pending = append(c.pending, e.At)
	return nil
}

// onGeometryComplete validates the drawn feature against the active mode
// and commits it. On success the tool and subtype stay active so the user
// can place the next feature immediately; on failure the attempted
// geometry is discarded and the mode is kept for a redraw.
func (c *Controller) onGeometryComplete(ctx context.Context, g infragraph.Geometry) error {
	c.mu.Lock()
	tool := c.tool
	subtype := c.subtype
	pending := c.pending
	c.mu.Unlock()

	var err error
	switch tool {
	case ToolPlacePoint:
		err = c.commitPoint(ctx, subtype, g)
	case ToolDrawLine:
		coords := g.Coordinates
		if len(coords) == 0 {
			coords = pending
		}
		err = c.commitLine(ctx, subtype, coords)
	default:
		err = &infragraph.ValidationError{Field: "event", Reason: "geometry completed outside an editing mode"}
	}

	c.mu.Lock()
	c.pending = nil
	c.lastErr = err
	c.mu.Unlock()
	return err
}

func (c *Controller) commitPoint(ctx context.Context, subtype string, g infragraph.Geometry) error {
	if g.Kind != infragraph.GeometryPoint || len(g.Coordinates) != 1 {
		return &infragraph.ValidationError{Field: "geometry", Reason: "place-point expects a single point"}
	}
	at := g.Coordinates[0]
	if !at.Finite() {
		return &infragraph.ValidationError{Field: "geometry", Reason: "point must be finite"}
	}

	node, err := c.store.CreateNode(ctx, subtype, at.Lat(), at.Lng(), infragraph.StatusActive)
	if err != nil {
		return err
	}
	c.log.Info().Int64("id", node.ID).Str("type", node.Type).Msg("node placed")
	return nil
}

func (c *Controller) commitLine(ctx context.Context, subtype string, coords []infragraph.LngLat) error {
	// Local guard duplicating the store's own check: an underdrawn line
	// must never reach the store.
	if len(coords) < 2 {
		return &infragraph.ValidationError{Field: "geometry", Reason: "a line needs at least 2 vertices"}
	}

	line, err := c.store.CreateLine(ctx, subtype, coords, infragraph.StatusActive)
	if err != nil {
		return err
	}
	c.log.Info().Int64("id", line.ID).Str("type", line.Type).Msg("line drawn")
	return nil
}

// onFeatureSelected abandons any in-progress draw, drops to Select and
// hands the feature to the selection consumer.
func (c *Controller) onFeatureSelected(ctx context.Context, e FeatureClicked) {
	c.mu.Lock()
	c.tool = ToolSelect
	c.subtype = ""
	c.pending = nil
	c.lastErr = nil
	onSelect := c.onSelect
	c.mu.Unlock()

	if onSelect != nil {
		onSelect(ctx, e.Kind, e.ID)
	}
}
