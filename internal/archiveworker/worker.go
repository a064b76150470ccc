// Package archiveworker pulls the public citizen-report feed from the
// municipal API on an interval and stores it in the report archive. The
// archive is what lets the time machine aggregate dates the upstream no
// longer serves.
package archiveworker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"darayyaconnect/infra-core/internal/infragraph"
	"darayyaconnect/infra-core/internal/metrics"
)

// Source is the upstream surface the worker needs. *upstream.Client
// satisfies this.
type Source interface {
	PublicReports(ctx context.Context) ([]infragraph.StatusReport, error)
}

// Archive is the storage surface. *reportdb.Queries satisfies this.
type Archive interface {
	ArchiveReport(ctx context.Context, r infragraph.StatusReport) error
	CountReports(ctx context.Context) (int64, error)
}

type Worker struct {
	log          zerolog.Logger
	source       Source
	archive      Archive
	pollInterval time.Duration
	maxRuntime   time.Duration
	metrics      *metrics.Metrics
}

type Options struct {
	PollInterval time.Duration
	MaxRuntime   time.Duration
}

func New(log zerolog.Logger, source Source, archive Archive, opts Options, m *metrics.Metrics) *Worker {
	pi := opts.PollInterval
	if pi <= 0 {
		pi = 5 * time.Minute
	}
	mr := opts.MaxRuntime
	if mr <= 0 {
		mr = 30 * time.Second
	}

	return &Worker{
		log:          log,
		source:       source,
		archive:      archive,
		pollInterval: pi,
		maxRuntime:   mr,
		metrics:      m,
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.archive == nil {
		return
	}

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := w.runOnce(ctx); err != nil {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		timer.Reset(backoffDuration(w.pollInterval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 5 * time.Minute
	}
	if failures <= 0 {
		return base
	}

	// Exponential-ish backoff: base * 2^failures, capped.
	if failures > 4 {
		failures = 4
	}
	d := base * time.Duration(1<<failures)
	if d > time.Hour {
		return time.Hour
	}
	return d
}

func (w *Worker) runOnce(ctx context.Context) error {
	w.metrics.IncArchiveRun()
	start := time.Now()
	defer func() {
		w.metrics.ObserveArchiveRunDuration(time.Since(start))
	}()

	execCtx, cancel := context.WithTimeout(ctx, w.maxRuntime)
	defer cancel()

	reports, err := w.source.PublicReports(execCtx)
	if err != nil {
		w.log.Warn().Err(err).Msg("archive worker failed to fetch public reports")
		return err
	}

	archived := 0
	for _, r := range reports {
		if err := w.archive.ArchiveReport(execCtx, r); err != nil {
			w.log.Warn().Err(err).Int64("report_id", r.ID).Msg("failed to archive report")
			return err
		}
		archived++
	}

	// A failed count only degrades the log line, never the run.
	total, err := w.archive.CountReports(execCtx)
	if err != nil {
		w.log.Warn().Err(err).Msg("failed to count archived reports")
		total = -1
	}

	w.log.Info().Int("fetched", len(reports)).Int("archived", archived).Int64("total", total).Msg("archive run complete")
	return nil
}

// RunOnce exposes a single pass for startup priming and tests.
func (w *Worker) RunOnce(ctx context.Context) error {
	if w == nil || w.archive == nil {
		return nil
	}
	return w.runOnce(ctx)
}
