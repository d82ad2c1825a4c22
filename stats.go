package hdmiview

// Stats is a snapshot of pipeline counters.
type Stats struct {
	// Iterations counts loop passes, including those without a frame.
	Iterations uint64
	// Frames counts buffers acquired and drawn.
	Frames uint64
	// NotReady counts passes where no buffer was complete. It is not an
	// error count.
	NotReady uint64
	// Timeouts counts readiness waits that expired.
	Timeouts uint64
	// FormatChanges counts adopted format changes after startup.
	FormatChanges uint64
	// Skipped counts frames dropped for short planes.
	Skipped uint64
	// Errors counts fatal failures.
	Errors uint64

	Format FrameFormat
	Upload UploadStats
}

// StatsObserver receives pipeline counters after each iteration.
type StatsObserver interface {
	Observe(Stats)
}

// StatsObserverFunc adapts a function to StatsObserver.
type StatsObserverFunc func(Stats)

// Observe implements StatsObserver.
func (f StatsObserverFunc) Observe(s Stats) { f(s) }
