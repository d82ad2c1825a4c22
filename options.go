package hdmiview

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := hdmiview.NewPipeline(dev, r, cfg,
//	    hdmiview.WithInput(hdmiview.ChanInput(events)),
//	    hdmiview.WithStatsObserver(reporter))
type Option func(*pipelineOptions)

type pipelineOptions struct {
	input          InputSource
	observer       StatsObserver
	maxSurfaceSize int
}

// WithInput sets the source of quit and fullscreen commands.
func WithInput(in InputSource) Option {
	return func(o *pipelineOptions) {
		o.input = in
	}
}

// WithStatsObserver registers an observer called after every iteration.
func WithStatsObserver(obs StatsObserver) Option {
	return func(o *pipelineOptions) {
		o.observer = obs
	}
}

// WithMaxSurfaceSize caps the single-write surface dimension below what
// the renderer reports. Values that are not positive are ignored.
func WithMaxSurfaceSize(n int) Option {
	return func(o *pipelineOptions) {
		o.maxSurfaceSize = n
	}
}
