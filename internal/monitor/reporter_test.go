package monitor

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/hdmiview"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeSampler struct {
	calls int
	usage Usage
	err   error
}

func (s *fakeSampler) Sample() (Usage, error) {
	s.calls++
	return s.usage, s.err
}

func TestReporterThrottles(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var got []Report
	r := NewReporter(time.Second,
		WithClock(clock.now),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithReportFunc(func(rep Report) { got = append(got, rep) }),
	)

	r.Observe(hdmiview.Stats{Frames: 0})
	for i := 1; i <= 9; i++ {
		clock.advance(100 * time.Millisecond)
		r.Observe(hdmiview.Stats{Frames: uint64(i * 6)})
	}
	if len(got) != 0 {
		t.Fatalf("reports before interval = %d, want 0", len(got))
	}

	clock.advance(100 * time.Millisecond)
	r.Observe(hdmiview.Stats{Frames: 60})
	if len(got) != 1 {
		t.Fatalf("reports after interval = %d, want 1", len(got))
	}
	if got[0].FPS != 60 {
		t.Errorf("FPS = %v, want 60", got[0].FPS)
	}
	if got[0].Elapsed != time.Second {
		t.Errorf("Elapsed = %v, want 1s", got[0].Elapsed)
	}

	clock.advance(2 * time.Second)
	r.Observe(hdmiview.Stats{Frames: 120})
	if len(got) != 2 {
		t.Fatalf("reports = %d, want 2", len(got))
	}
	if got[1].FPS != 30 {
		t.Errorf("second FPS = %v, want 30", got[1].FPS)
	}
	if r.Reports() != 2 {
		t.Errorf("Reports() = %d, want 2", r.Reports())
	}
	latest, ok := r.Latest()
	if !ok || latest.Stats.Frames != 120 {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
}

func TestReporterSamplesUsage(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := &fakeSampler{usage: Usage{CPUPercent: 12.345, RSS: 64 << 20, Threads: 9}}
	var buf bytes.Buffer
	r := NewReporter(time.Second,
		WithClock(clock.now),
		WithSampler(s),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	r.Observe(hdmiview.Stats{})
	if s.calls != 1 {
		t.Errorf("sampler calls after first observe = %d, want 1 (baseline)", s.calls)
	}
	clock.advance(time.Second)
	r.Observe(hdmiview.Stats{Frames: 30, Format: hdmiview.NewFrameFormat(1920, 1080, hdmiview.FourCCNV12)})

	rep, ok := r.Latest()
	if !ok {
		t.Fatal("no report")
	}
	if rep.Usage != s.usage {
		t.Errorf("Usage = %+v, want %+v", rep.Usage, s.usage)
	}
	out := buf.String()
	for _, want := range []string{"pipeline stats", "fps=30", "process.rss_mib=64", "process.threads=9", "process.cpu_percent=12.3", "1920x1080"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestReporterUsageError(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := &fakeSampler{err: errors.New("permission denied")}
	var buf bytes.Buffer
	r := NewReporter(time.Millisecond,
		WithClock(clock.now),
		WithSampler(s),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)
	r.Observe(hdmiview.Stats{})
	clock.advance(time.Second)
	r.Observe(hdmiview.Stats{})

	rep, _ := r.Latest()
	if rep.UsageErr == nil {
		t.Error("UsageErr = nil, want sampler error")
	}
	if !strings.Contains(buf.String(), "usage_err") {
		t.Errorf("log output missing usage_err:\n%s", buf.String())
	}
}

func TestNewReporterDefaultInterval(t *testing.T) {
	r := NewReporter(0)
	if r.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", r.interval, DefaultInterval)
	}
}

func TestProcessSampler(t *testing.T) {
	s, err := NewProcessSampler(0)
	if err != nil {
		t.Skipf("process sampling unavailable: %v", err)
	}
	u, err := s.Sample()
	if err != nil {
		t.Skipf("process sampling unavailable: %v", err)
	}
	if u.RSS == 0 {
		t.Error("RSS = 0 for the running test process")
	}
	if u.Threads <= 0 {
		t.Errorf("Threads = %d, want > 0", u.Threads)
	}
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{12.345, 1, 12.3},
		{12.36, 1, 12.4},
		{59.999, 2, 60},
		{3, 0, 3},
	}
	for _, tt := range tests {
		if got := roundTo(tt.v, tt.places); got != tt.want {
			t.Errorf("roundTo(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
