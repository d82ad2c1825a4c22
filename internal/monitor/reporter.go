// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package monitor turns per-iteration pipeline counters into periodic
// reports with frame rate and process resource usage.
package monitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/hdmiview"
)

// DefaultInterval is the reporting period used when none is given.
const DefaultInterval = 5 * time.Second

// Report is one periodic summary.
type Report struct {
	Stats    hdmiview.Stats
	Elapsed  time.Duration
	FPS      float64
	Usage    Usage
	UsageErr error
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithSampler sets the resource usage source. Without one, reports carry
// only pipeline counters.
func WithSampler(s Sampler) Option {
	return func(r *Reporter) { r.sampler = s }
}

// WithLogger sets the logger reports are written to. The default is
// hdmiview.Logger() at the time of each report.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithReportFunc registers a callback invoked with every report.
func WithReportFunc(fn func(Report)) Option {
	return func(r *Reporter) { r.onReport = fn }
}

// Reporter implements hdmiview.StatsObserver. It emits at most one report
// per interval.
type Reporter struct {
	mu       sync.Mutex
	interval time.Duration
	now      func() time.Time
	sampler  Sampler
	logger   *slog.Logger
	onReport func(Report)

	started    bool
	last       time.Time
	lastFrames uint64
	latest     Report
	reports    int
}

// NewReporter returns a Reporter. An interval <= 0 selects DefaultInterval.
func NewReporter(interval time.Duration, opts ...Option) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Reporter{
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe implements hdmiview.StatsObserver.
func (r *Reporter) Observe(s hdmiview.Stats) {
	r.mu.Lock()
	now := r.now()
	if !r.started {
		r.started = true
		r.last = now
		r.lastFrames = s.Frames
		r.mu.Unlock()
		if r.sampler != nil {
			// Prime the CPU counter so the first report has a baseline.
			_, _ = r.sampler.Sample()
		}
		return
	}
	elapsed := now.Sub(r.last)
	if elapsed < r.interval {
		r.mu.Unlock()
		return
	}
	rep := Report{
		Stats:   s,
		Elapsed: elapsed,
		FPS:     float64(s.Frames-r.lastFrames) / elapsed.Seconds(),
	}
	r.last = now
	r.lastFrames = s.Frames
	r.mu.Unlock()

	if r.sampler != nil {
		rep.Usage, rep.UsageErr = r.sampler.Sample()
	}

	r.mu.Lock()
	r.latest = rep
	r.reports++
	r.mu.Unlock()

	r.log(rep)
	if r.onReport != nil {
		r.onReport(rep)
	}
}

// Latest returns the most recent report and whether one exists.
func (r *Reporter) Latest() (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latest, r.reports > 0
}

// Reports returns the number of reports emitted.
func (r *Reporter) Reports() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports
}

func (r *Reporter) log(rep Report) {
	l := r.logger
	if l == nil {
		l = hdmiview.Logger()
	}
	s := rep.Stats
	attrs := []any{
		"format", s.Format.String(),
		"fps", roundTo(rep.FPS, 2),
		slog.Group("frames",
			"drawn", s.Frames,
			"not_ready", s.NotReady,
			"skipped", s.Skipped,
			"timeouts", s.Timeouts,
		),
		"format_changes", s.FormatChanges,
		slog.Group("upload",
			"tiled", s.Upload.TiledUploads,
			"tiles", s.Upload.Tiles,
			"packed", s.Upload.PackedFrames,
			"reallocations", s.Upload.Reallocations,
		),
	}
	if r.sampler != nil {
		if rep.UsageErr != nil {
			attrs = append(attrs, "usage_err", rep.UsageErr)
		}
		attrs = append(attrs, slog.Group("process",
			"cpu_percent", roundTo(rep.Usage.CPUPercent, 1),
			"rss_mib", roundTo(float64(rep.Usage.RSS)/(1<<20), 1),
			"threads", rep.Usage.Threads,
		))
	}
	l.Info("pipeline stats", attrs...)
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
