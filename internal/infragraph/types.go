package infragraph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// AssetStatus is the operational state of a node or line. Assets are never
// created without a status; the default on creation is StatusActive.
type AssetStatus string

const (
	StatusActive      AssetStatus = "active"
	StatusMaintenance AssetStatus = "maintenance"
	StatusDamaged     AssetStatus = "damaged"
	StatusUnsafe      AssetStatus = "unsafe"
)

func IsValidStatus(s string) bool {
	switch AssetStatus(NormalizeTag(s)) {
	case StatusActive, StatusMaintenance, StatusDamaged, StatusUnsafe:
		return true
	}
	return false
}

// Alerting reports whether the status should surface as a point-level alert
// on the map (anything other than active).
func (s AssetStatus) Alerting() bool {
	return s == StatusMaintenance || s == StatusDamaged || s == StatusUnsafe
}

// ReportCategory is the availability category of a citizen status report.
type ReportCategory string

const (
	CategoryAvailable ReportCategory = "available"
	CategoryUnstable  ReportCategory = "unstable"
	CategoryCutoff    ReportCategory = "cutoff"
)

func IsValidCategory(c string) bool {
	switch ReportCategory(NormalizeTag(c)) {
	case CategoryAvailable, CategoryUnstable, CategoryCutoff:
		return true
	}
	return false
}

// AssetKind distinguishes the two asset shapes for update/delete paths.
type AssetKind string

const (
	KindNode AssetKind = "node"
	KindLine AssetKind = "line"
)

func ParseAssetKind(s string) (AssetKind, bool) {
	switch AssetKind(NormalizeTag(s)) {
	case KindNode:
		return KindNode, true
	case KindLine:
		return KindLine, true
	}
	return "", false
}

// LngLat is a single coordinate pair. Wire order is [longitude, latitude]
// on every endpoint; swapping the order is a silent corruption, so the pair
// is kept opaque and only exposed through Lng/Lat accessors.
type LngLat [2]float64

func (c LngLat) Lng() float64 { return c[0] }
func (c LngLat) Lat() float64 { return c[1] }

// Finite reports whether both components are finite real numbers.
func (c LngLat) Finite() bool {
	return !math.IsNaN(c[0]) && !math.IsInf(c[0], 0) &&
		!math.IsNaN(c[1]) && !math.IsInf(c[1], 0)
}

// Node is a point-like physical asset. Its sector is derived from Type.
type Node struct {
	ID           int64          `json:"id"`
	Type         string         `json:"type"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Status       AssetStatus    `json:"status"`
	SerialNumber *string        `json:"serial_number,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
}

// Sector derives the node's sector from its type tag.
func (n Node) Sector() (Sector, bool) {
	return SectorOfNodeType(n.Type)
}

// Line is a path-like physical asset with at least two vertices.
type Line struct {
	ID          int64       `json:"id"`
	Type        string      `json:"type"`
	Coordinates []LngLat    `json:"coordinates"`
	Status      AssetStatus `json:"status"`
}

func (l Line) Sector() (Sector, bool) {
	return SectorOfLineType(l.Type)
}

// GeometryKind tags report geometry as a single point or a zone polygon.
type GeometryKind string

const (
	GeometryPoint GeometryKind = "point"
	GeometryZone  GeometryKind = "zone"
)

// Geometry is the location a citizen report refers to. A point carries one
// coordinate pair; a zone carries a polygon ring of at least three.
type Geometry struct {
	Kind        GeometryKind `json:"kind"`
	Coordinates []LngLat     `json:"coordinates"`
}

// Fingerprint returns a stable grouping key for reports that carry no
// upstream zone id. Geometry is immutable once submitted, so coordinate
// identity is a safe key.
func (g Geometry) Fingerprint() string {
	b, _ := json.Marshal(g)
	return string(b)
}

// StatusReport is a single citizen submission. Reports are immutable; the
// engine only aggregates over them.
type StatusReport struct {
	ID         int64          `json:"id"`
	Sector     Sector         `json:"sector"`
	ZoneID     string         `json:"zone_id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Category   ReportCategory `json:"category"`
	ReportedAt time.Time      `json:"reported_at"`
}

// ZoneKey is the grouping key for aggregation: the upstream zone id when
// present, otherwise a fingerprint of the geometry.
func (r StatusReport) ZoneKey() string {
	if r.ZoneID != "" {
		return r.ZoneID
	}
	return r.Geometry.Fingerprint()
}

// ZoneStatus is the derived per-zone aggregate. It is recomputed per query
// and never persisted by this engine.
type ZoneStatus struct {
	Sector   Sector         `json:"sector"`
	ZoneID   string         `json:"zone_id"`
	Geometry Geometry       `json:"geometry"`
	Category ReportCategory `json:"category"`
	Score    int            `json:"score"`
}

// HeatPoint is a population-density sample consumed only by the heatmap
// layer.
type HeatPoint struct {
	Location LngLat  `json:"location"`
	Weight   float64 `json:"weight"`
}

// Snapshot is one full load of the infrastructure graph. Snapshots are
// values: FilterSector and Clone never share backing slices with the
// receiver, so a caller can never mutate the store's copy through one.
type Snapshot struct {
	Nodes    []Node    `json:"nodes"`
	Lines    []Line    `json:"lines"`
	LoadedAt time.Time `json:"loaded_at"`
}

// FilterSector returns a copy containing only assets of the given sector.
// Assets whose type tag is unknown are dropped rather than misfiled.
func (s Snapshot) FilterSector(sector Sector) Snapshot {
	out := Snapshot{LoadedAt: s.LoadedAt}
	for _, n := range s.Nodes {
		if sec, ok := n.Sector(); ok && sec == sector {
			out.Nodes = append(out.Nodes, cloneNode(n))
		}
	}
	for _, l := range s.Lines {
		if sec, ok := l.Sector(); ok && sec == sector {
			out.Lines = append(out.Lines, cloneLine(l))
		}
	}
	return out
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{LoadedAt: s.LoadedAt}
	if s.Nodes != nil {
		out.Nodes = make([]Node, 0, len(s.Nodes))
		for _, n := range s.Nodes {
			out.Nodes = append(out.Nodes, cloneNode(n))
		}
	}
	if s.Lines != nil {
		out.Lines = make([]Line, 0, len(s.Lines))
		for _, l := range s.Lines {
			out.Lines = append(out.Lines, cloneLine(l))
		}
	}
	return out
}

// FindNode looks a node up by id in the snapshot.
func (s Snapshot) FindNode(id int64) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return cloneNode(n), true
		}
	}
	return Node{}, false
}

// FindLine looks a line up by id in the snapshot.
func (s Snapshot) FindLine(id int64) (Line, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return cloneLine(l), true
		}
	}
	return Line{}, false
}

// Contains reports whether an asset of the given kind and id is present.
func (s Snapshot) Contains(kind AssetKind, id int64) bool {
	switch kind {
	case KindNode:
		_, ok := s.FindNode(id)
		return ok
	case KindLine:
		_, ok := s.FindLine(id)
		return ok
	}
	return false
}

func cloneNode(n Node) Node {
	out := n
	if n.SerialNumber != nil {
		sn := *n.SerialNumber
		out.SerialNumber = &sn
	}
	if n.Meta != nil {
		out.Meta = make(map[string]any, len(n.Meta))
		for k, v := range n.Meta {
			out.Meta[k] = v
		}
	}
	return out
}

func cloneLine(l Line) Line {
	out := l
	if l.Coordinates != nil {
		out.Coordinates = make([]LngLat, len(l.Coordinates))
		copy(out.Coordinates, l.Coordinates)
	}
	return out
}

// FormatAssetID renders an asset id the way the API paths expect it.
func FormatAssetID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseAssetID parses a decimal asset id from a path segment.
func ParseAssetID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid asset id %q", s)
	}
	return id, nil
}
