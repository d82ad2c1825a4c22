package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gogpu/hdmiview"
	"github.com/gogpu/hdmiview/internal/gpu"
	"github.com/gogpu/hdmiview/internal/monitor"
	"github.com/gogpu/hdmiview/internal/soft"
	"github.com/gogpu/hdmiview/internal/v4l2"
)

// viewRenderer is what the viewer needs from a renderer beyond drawing.
type viewRenderer interface {
	hdmiview.Renderer
	Snapshot() (*image.RGBA, error)
	Close() error
}

func runViewer(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	hdmiview.SetLogger(logger)

	pc, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	display, err := cfg.Display()
	if err != nil {
		return err
	}

	dev, err := v4l2.Open(cfg.Device)
	if err != nil {
		return err
	}
	defer dev.Close()
	caps := dev.Capability()
	logger.Info("device opened", "path", cfg.Device, "driver", caps.Driver, "card", caps.Card, "bus", caps.BusInfo)

	if display.Empty() {
		display = initialDisplay(dev, pc)
	}
	r, err := openRenderer(cfg.Renderer, display, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	events := make(chan hdmiview.InputEvent, 4)
	stop := forwardSignals(events)
	defer stop()

	opts := []hdmiview.Option{
		hdmiview.WithInput(hdmiview.ChanInput(events)),
		hdmiview.WithMaxSurfaceSize(cfg.MaxSurfaceSize),
	}
	if cfg.Stats > 0 {
		ropts := []monitor.Option{monitor.WithLogger(logger)}
		if s, err := monitor.NewProcessSampler(0); err != nil {
			logger.Warn("process sampling unavailable", "err", err)
		} else {
			ropts = append(ropts, monitor.WithSampler(s))
		}
		opts = append(opts, hdmiview.WithStatsObserver(monitor.NewReporter(cfg.Stats, ropts...)))
	}

	p, err := hdmiview.NewPipeline(dev, r, pc, opts...)
	if err != nil {
		return err
	}
	runErr := p.Run(ctx)
	st := p.Stats()
	closeErr := p.Close()
	logger.Info("stopped", "frames", st.Frames, "iterations", st.Iterations,
		"format_changes", st.FormatChanges, "errors", st.Errors)

	if cfg.Snapshot != "" {
		if err := saveSnapshot(r, cfg.Snapshot); err != nil {
			logger.Warn("snapshot not written", "path", cfg.Snapshot, "err", err)
		} else {
			logger.Info("snapshot written", "path", cfg.Snapshot)
		}
	}
	return errors.Join(runErr, closeErr)
}

// initialDisplay sizes the display to the current capture mode, or to the
// configured defaults when the device cannot report one.
func initialDisplay(dev hdmiview.Device, pc hdmiview.Config) hdmiview.Size {
	if f, err := dev.Format(); err == nil && f.Width > 0 && f.Height > 0 {
		return f.LumaSize()
	}
	return hdmiview.Size{Width: int(pc.DefaultWidth), Height: int(pc.DefaultHeight)}
}

// openRenderer creates the named renderer. "auto" tries the GPU first and
// falls back to the software renderer.
func openRenderer(name string, display hdmiview.Size, logger *slog.Logger) (viewRenderer, error) {
	switch name {
	case rendererGPU:
		r, err := gpu.Open(display)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "", rendererAuto:
		r, err := gpu.Open(display)
		if err == nil {
			return r, nil
		}
		logger.Warn("gpu renderer unavailable, using software renderer", "err", err)
	case rendererSoftware:
	default:
		return nil, fmt.Errorf("unknown renderer %q (want auto, gpu or software)", name)
	}
	r, err := soft.New(display)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// forwardSignals turns quit and toggle signals into input events. The
// returned function stops delivery.
func forwardSignals(events chan<- hdmiview.InputEvent) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, append(append([]os.Signal{}, quitSignals...), toggleSignals...)...)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case s := <-sigs:
				ev := hdmiview.InputQuit
				for _, t := range toggleSignals {
					if s == t {
						ev = hdmiview.InputToggleFullscreen
					}
				}
				select {
				case events <- ev:
				default:
				}
			}
		}
	}()
	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func saveSnapshot(r viewRenderer, path string) error {
	img, err := r.Snapshot()
	if err != nil {
		return err
	}
	return soft.SavePNG(path, img)
}
