// Package reportdb archives citizen status reports in Postgres so the
// time machine can aggregate dates the upstream feed no longer serves.
// Queries are hand-written in the sqlc style used across the service.
package reportdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"darayyaconnect/infra-core/internal/infragraph"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const upsertCitizenReport = `-- name: UpsertCitizenReport :exec
INSERT INTO citizen_reports (
  upstream_id,
  sector,
  zone_id,
  category,
  geometry,
  reported_at
)
VALUES ($1, $2, $3, $4, COALESCE($5, '{}'::jsonb), $6)
ON CONFLICT (upstream_id) DO NOTHING
`

type UpsertCitizenReportParams struct {
	UpstreamID int64
	Sector     string
	ZoneID     *string
	Category   string
	Geometry   map[string]any
	ReportedAt time.Time
}

func (q *Queries) UpsertCitizenReport(ctx context.Context, arg UpsertCitizenReportParams) error {
	_, err := q.db.Exec(ctx, upsertCitizenReport, arg.UpstreamID, arg.Sector, arg.ZoneID, arg.Category, arg.Geometry, arg.ReportedAt)
	return err
}

const listReportsForDay = `-- name: ListReportsForDay :many
SELECT id,
       upstream_id,
       sector,
       zone_id,
       category,
       geometry,
       reported_at,
       archived_at
FROM citizen_reports
WHERE sector = $1
  AND reported_at >= $2
  AND reported_at < $2 + interval '1 day'
ORDER BY reported_at ASC
`

func (q *Queries) listReportRows(ctx context.Context, sector string, day time.Time) ([]CitizenReport, error) {
	rows, err := q.db.Query(ctx, listReportsForDay, sector, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CitizenReport
	for rows.Next() {
		var i CitizenReport
		if err := rows.Scan(&i.ID, &i.UpstreamID, &i.Sector, &i.ZoneID, &i.Category, &i.Geometry, &i.ReportedAt, &i.ArchivedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ListReportsForDay returns the archived reports for one sector and
// calendar day as domain reports, ready for aggregation.
func (q *Queries) ListReportsForDay(ctx context.Context, sector infragraph.Sector, day time.Time) ([]infragraph.StatusReport, error) {
	if q == nil {
		return nil, nil
	}
	rows, err := q.listReportRows(ctx, string(sector), day)
	if err != nil {
		return nil, err
	}

	out := make([]infragraph.StatusReport, 0, len(rows))
	for _, row := range rows {
		report := infragraph.StatusReport{
			ID:         row.UpstreamID,
			Sector:     infragraph.Sector(row.Sector),
			Category:   infragraph.ReportCategory(row.Category),
			ReportedAt: row.ReportedAt,
		}
		if row.ZoneID != nil {
			report.ZoneID = *row.ZoneID
		}
		if g, err := decodeGeometry(row.Geometry); err == nil {
			report.Geometry = g
		}
		out = append(out, report)
	}
	return out, nil
}

const countReports = `-- name: CountReports :one
SELECT count(*) FROM citizen_reports
`

func (q *Queries) CountReports(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countReports)
	var n int64
	err := row.Scan(&n)
	return n, err
}

// ArchiveReport stores one upstream report, ignoring duplicates by
// upstream id. Reports are immutable once submitted, so DO NOTHING on
// conflict is correct.
func (q *Queries) ArchiveReport(ctx context.Context, r infragraph.StatusReport) error {
	geometry, err := encodeGeometry(r.Geometry)
	if err != nil {
		return err
	}

	var zoneID *string
	if r.ZoneID != "" {
		z := r.ZoneID
		zoneID = &z
	}

	return q.UpsertCitizenReport(ctx, UpsertCitizenReportParams{
		UpstreamID: r.ID,
		Sector:     string(r.Sector),
		ZoneID:     zoneID,
		Category:   string(r.Category),
		Geometry:   geometry,
		ReportedAt: r.ReportedAt,
	})
}

func encodeGeometry(g infragraph.Geometry) (map[string]any, error) {
	b, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeGeometry(m map[string]any) (infragraph.Geometry, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return infragraph.Geometry{}, err
	}
	var g infragraph.Geometry
	if err := json.Unmarshal(b, &g); err != nil {
		return infragraph.Geometry{}, err
	}
	return g, nil
}
