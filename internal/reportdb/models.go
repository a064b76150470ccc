package reportdb

import "time"

type CitizenReport struct {
	ID         int64
	UpstreamID int64
	Sector     string
	ZoneID     *string
	Category   string
	Geometry   map[string]any
	ReportedAt time.Time
	ArchivedAt time.Time
}
