// Package compositor projects a data snapshot and visibility flags onto
// the set of renderable features. It is a pure projection: no owned state
// beyond the flags a caller passes in, and inputs are never mutated.
package compositor

import (
	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/naming"
)

// Flags is one independently toggleable visibility switch per layer.
type Flags struct {
	Heatmap          bool `json:"heatmap"`
	Water            bool `json:"water"`
	Electricity      bool `json:"electricity"`
	Sewage           bool `json:"sewage"`
	Phone            bool `json:"phone"`
	CrowdElectricity bool `json:"crowd_electricity"`
	CrowdWater       bool `json:"crowd_water"`
	PublicReports    bool `json:"public_reports"`
}

// SectorVisible reports whether a sector's base asset layer is on.
func (f Flags) SectorVisible(sector infragraph.Sector) bool {
	switch sector {
	case infragraph.SectorWater:
		return f.Water
	case infragraph.SectorElectricity:
		return f.Electricity
	case infragraph.SectorSewage:
		return f.Sewage
	case infragraph.SectorPhone:
		return f.Phone
	}
	return false
}

// Overlays carries the non-graph inputs: crowd aggregates per sector,
// population heat points and raw public reports.
type Overlays struct {
	CrowdWater       []infragraph.ZoneStatus
	CrowdElectricity []infragraph.ZoneStatus
	HeatPoints       []infragraph.HeatPoint
	PublicReports    []infragraph.StatusReport
}

// AssetAlert is a point-level marker for a node whose status is anything
// other than active. Alerts are distinct from the zone-level crowd layers.
type AssetAlert struct {
	NodeID int64                  `json:"node_id"`
	Label  string                 `json:"label"`
	Sector infragraph.Sector      `json:"sector"`
	Status infragraph.AssetStatus `json:"status"`
	At     infragraph.LngLat      `json:"at"`
}

// FeatureSet is everything the render adapter draws for one composition.
type FeatureSet struct {
	Nodes      []infragraph.Node         `json:"nodes"`
	Lines      []infragraph.Line         `json:"lines"`
	Alerts     []AssetAlert              `json:"alerts"`
	CrowdZones []infragraph.ZoneStatus   `json:"crowd_zones"`
	HeatPoints []infragraph.HeatPoint    `json:"heat_points"`
	Reports    []infragraph.StatusReport `json:"reports"`
}

// Compose builds the renderable feature set for the given flags. Calling
// it twice with the same inputs yields equal outputs; toggling a flag
// off and on returns to the original result.
func Compose(snap infragraph.Snapshot, overlays Overlays, flags Flags) FeatureSet {
	var out FeatureSet

	for _, n := range snap.Nodes {
		sector, ok := n.Sector()
		if !ok || !flags.SectorVisible(sector) {
			continue
		}
		out.Nodes = append(out.Nodes, n)
		if n.Status.Alerting() {
			out.Alerts = append(out.Alerts, AssetAlert{
				NodeID: n.ID,
				Label:  naming.NodeLabel(n),
				Sector: sector,
				Status: n.Status,
				At:     infragraph.LngLat{n.Longitude, n.Latitude},
			})
		}
	}

	for _, l := range snap.Lines {
		sector, ok := l.Sector()
		if !ok || !flags.SectorVisible(sector) {
			continue
		}
		out.Lines = append(out.Lines, l)
	}

	if flags.CrowdWater {
		out.CrowdZones = append(out.CrowdZones, overlays.CrowdWater...)
	}
	if flags.CrowdElectricity {
		out.CrowdZones = append(out.CrowdZones, overlays.CrowdElectricity...)
	}
	if flags.Heatmap {
		out.HeatPoints = append(out.HeatPoints, overlays.HeatPoints...)
	}
	if flags.PublicReports {
		out.Reports = append(out.Reports, overlays.PublicReports...)
	}

	return out
}
