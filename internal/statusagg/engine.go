// Package statusagg turns discrete citizen status reports into per-zone
// availability aggregates. It does no clustering: every report already
// carries its zone or point geometry, and grouping follows that key.
package statusagg

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/metrics"
)

type Engine struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func New(log zerolog.Logger, m *metrics.Metrics) *Engine {
	return &Engine{log: log, metrics: m}
}

// Aggregate computes one ZoneStatus per zone that has at least one report
// for the sector. Zones without reports are never fabricated.
//
// The category follows severity dominance: any cutoff report marks the
// whole zone cutoff, else any unstable marks it unstable, else available.
// A most-recent-report-wins policy was considered and rejected: one stale
// "available" report arriving last must not mask an ongoing outage.
func (e *Engine) Aggregate(sector infragraph.Sector, reports []infragraph.StatusReport) []infragraph.ZoneStatus {
	started := time.Now()
	defer func() {
		e.metrics.ObserveAggregation(time.Since(started))
	}()

	type zoneAcc struct {
		geometry  infragraph.Geometry
		total     int
		available int
		worst     infragraph.ReportCategory
	}

	zones := make(map[string]*zoneAcc)
	for _, r := range reports {
		if r.Sector != sector {
			continue
		}
		key := r.ZoneKey()
		acc, ok := zones[key]
		if !ok {
			acc = &zoneAcc{geometry: r.Geometry, worst: infragraph.CategoryAvailable}
			zones[key] = acc
		}
		acc.total++
		switch r.Category {
		case infragraph.CategoryAvailable:
			acc.available++
		case infragraph.CategoryCutoff:
			acc.worst = infragraph.CategoryCutoff
		case infragraph.CategoryUnstable:
			if acc.worst != infragraph.CategoryCutoff {
				acc.worst = infragraph.CategoryUnstable
			}
		}
	}

	if len(zones) == 0 {
		return nil
	}

	out := make([]infragraph.ZoneStatus, 0, len(zones))
	for key, acc := range zones {
		out = append(out, infragraph.ZoneStatus{
			Sector:   sector,
			ZoneID:   key,
			Geometry: acc.geometry,
			Category: acc.worst,
			Score:    score(acc.available, acc.total),
		})
	}
	// Map iteration order is random; a stable output order keeps renders
	// and tests deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].ZoneID < out[j].ZoneID })

	e.log.Debug().
		Str("sector", string(sector)).
		Int("reports", len(reports)).
		Int("zones", len(out)).
		Msg("status aggregation pass")

	return out
}

// score is round(100 * available / total), always within [0, 100].
func score(available, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(available) / float64(total)))
}
