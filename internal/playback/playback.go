// Package playback implements the time machine: a relative day offset in
// [-7, 0] mapped onto concrete calendar dates, with registered refreshers
// re-run whenever the offset changes. The asset graph itself is not
// time-versioned; only crowd and heatmap layers replay.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
)

// WindowDays is how far back the time machine reaches.
const WindowDays = 7

// DateForOffset maps a relative day offset to a calendar date: 0 is today,
// each decrement one day into the past. Offsets outside [-WindowDays, 0]
// are rejected.
func DateForOffset(now time.Time, offset int) (time.Time, error) {
	if offset < -WindowDays || offset > 0 {
		return time.Time{}, &infragraph.ValidationError{
			Field:  "offset",
			Reason: "offset must be within the playback window",
		}
	}
	day := now.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()), nil
}

// Refresher is anything that must re-fetch when the playback date changes,
// such as the crowd aggregation and the historical heatmap.
type Refresher interface {
	Refresh(ctx context.Context, date time.Time) error
}

// RefresherFunc adapts a plain function to Refresher.
type RefresherFunc func(ctx context.Context, date time.Time) error

func (f RefresherFunc) Refresh(ctx context.Context, date time.Time) error {
	return f(ctx, date)
}

// Service holds the current offset and fans date changes out to its
// refreshers. It never touches the graph store.
type Service struct {
	log zerolog.Logger
	now func() time.Time

	mu         sync.Mutex
	offset     int
	refreshers []Refresher
}

func New(log zerolog.Logger) *Service {
	return &Service{log: log, now: time.Now}
}

// AddRefresher registers a consumer of date changes.
func (s *Service) AddRefresher(r Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshers = append(s.refreshers, r)
}

// Offset returns the current relative day offset.
func (s *Service) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Date returns the calendar date the current offset points at.
func (s *Service) Date() time.Time {
	s.mu.Lock()
	offset := s.offset
	s.mu.Unlock()
	d, _ := DateForOffset(s.now(), offset)
	return d
}

// SetOffset validates and applies a new offset, then re-runs every
// refresher for the resolved date. Refresher failures are surfaced but do
// not roll the offset back; the user can retry by setting it again.
func (s *Service) SetOffset(ctx context.Context, offset int) (time.Time, error) {
	date, err := DateForOffset(s.now(), offset)
	if err != nil {
		return time.Time{}, err
	}

	s.mu.Lock()
	s.offset = offset
	refreshers := make([]Refresher, len(s.refreshers))
	copy(refreshers, s.refreshers)
	s.mu.Unlock()

	s.log.Debug().Int("offset", offset).Str("date", date.Format("2006-01-02")).Msg("playback offset changed")

	for _, r := range refreshers {
		if err := r.Refresh(ctx, date); err != nil {
			return date, err
		}
	}
	return date, nil
}
