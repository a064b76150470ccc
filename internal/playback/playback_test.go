package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"darayyaconnect/infra-core/internal/infragraph"

	"github.com/rs/zerolog"
)

func TestDateForOffset_zeroIsToday(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)

	d, err := DateForOffset(now, 0)
	if err != nil {
		t.Fatalf("DateForOffset: %v", err)
	}
	if d.Format("2006-01-02") != "2024-05-10" {
		t.Fatalf("offset 0 should be today, got %s", d)
	}
	if d.Hour() != 0 || d.Minute() != 0 {
		t.Fatalf("expected midnight truncation, got %s", d)
	}
}

func TestDateForOffset_rejectsOutsideWindow(t *testing.T) {
	now := time.Now()
	for _, offset := range []int{-8, 1, 42, -100} {
		_, err := DateForOffset(now, offset)
		if !infragraph.IsValidation(err) {
			t.Errorf("offset %d: expected ValidationError, got %v", offset, err)
		}
	}
}

func TestDateForOffset_monotonic(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("a < b implies date(a) <= date(b)", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			da, errA := DateForOffset(now, a)
			db, errB := DateForOffset(now, b)
			if errA != nil || errB != nil {
				return false
			}
			return !da.After(db)
		},
		gen.IntRange(-WindowDays, 0),
		gen.IntRange(-WindowDays, 0),
	))

	properties.TestingRun(t)
}

func TestSetOffset_runsRefreshersWithResolvedDate(t *testing.T) {
	s := New(zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC) }

	var got []string
	s.AddRefresher(RefresherFunc(func(ctx context.Context, date time.Time) error {
		got = append(got, "crowd:"+date.Format("2006-01-02"))
		return nil
	}))
	s.AddRefresher(RefresherFunc(func(ctx context.Context, date time.Time) error {
		got = append(got, "heatmap:"+date.Format("2006-01-02"))
		return nil
	}))

	date, err := s.SetOffset(context.Background(), -3)
	if err != nil {
		t.Fatalf("SetOffset: %v", err)
	}
	if date.Format("2006-01-02") != "2024-05-07" {
		t.Fatalf("unexpected resolved date %s", date)
	}
	if len(got) != 2 || got[0] != "crowd:2024-05-07" || got[1] != "heatmap:2024-05-07" {
		t.Fatalf("refreshers saw wrong dates: %v", got)
	}
	if s.Offset() != -3 {
		t.Fatalf("offset not applied, got %d", s.Offset())
	}
}

func TestSetOffset_invalidOffsetRunsNothing(t *testing.T) {
	s := New(zerolog.Nop())

	ran := false
	s.AddRefresher(RefresherFunc(func(ctx context.Context, date time.Time) error {
		ran = true
		return nil
	}))

	if _, err := s.SetOffset(context.Background(), -30); !infragraph.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ran {
		t.Fatal("refreshers must not run for a rejected offset")
	}
	if s.Offset() != 0 {
		t.Fatalf("offset must stay unchanged, got %d", s.Offset())
	}
}

func TestSetOffset_refresherFailureSurfacesButKeepsOffset(t *testing.T) {
	s := New(zerolog.Nop())
	s.AddRefresher(RefresherFunc(func(ctx context.Context, date time.Time) error {
		return &infragraph.TransportError{Op: "GET heatmap", Err: errors.New("timeout")}
	}))

	_, err := s.SetOffset(context.Background(), -1)
	if !infragraph.IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if s.Offset() != -1 {
		t.Fatalf("offset should remain for manual retry, got %d", s.Offset())
	}
}
