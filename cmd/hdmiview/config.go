// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gogpu/hdmiview"
	"github.com/gogpu/hdmiview/internal/monitor"
)

// Config is the on-disk and command line configuration of the viewer.
type Config struct {
	Device   string `mapstructure:"device" yaml:"device"`
	Renderer string `mapstructure:"renderer" yaml:"renderer"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	UVSwap     string `mapstructure:"uv_swap" yaml:"uv_swap"`
	CPUUVSwap  bool   `mapstructure:"cpu_uv_swap" yaml:"cpu_uv_swap"`
	Matrix     string `mapstructure:"matrix" yaml:"matrix"`
	Range      string `mapstructure:"range" yaml:"range"`
	AutoResize bool   `mapstructure:"auto_resize_window" yaml:"auto_resize_window"`

	DisplaySize    string        `mapstructure:"display_size" yaml:"display_size"`
	Buffers        int           `mapstructure:"buffers" yaml:"buffers"`
	FormatCheck    uint64        `mapstructure:"format_check_interval" yaml:"format_check_interval"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	PixelFormat    string        `mapstructure:"pixel_format" yaml:"pixel_format"`
	MaxSurfaceSize int           `mapstructure:"max_surface_size" yaml:"max_surface_size"`

	Snapshot string        `mapstructure:"snapshot" yaml:"snapshot"`
	Stats    time.Duration `mapstructure:"stats" yaml:"stats"`
}

// Renderer names.
const (
	rendererAuto     = "auto"
	rendererGPU      = "gpu"
	rendererSoftware = "software"
)

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"device":             "device",
	"renderer":           "renderer",
	"log-level":          "log_level",
	"uv-swap":            "uv_swap",
	"cpu-uv-swap":        "cpu_uv_swap",
	"matrix":             "matrix",
	"range":              "range",
	"auto-resize-window": "auto_resize_window",
	"display-size":       "display_size",
	"buffers":            "buffers",
	"format-check":       "format_check_interval",
	"poll-timeout":       "poll_timeout",
	"pixel-format":       "pixel_format",
	"max-surface-size":   "max_surface_size",
	"snapshot":           "snapshot",
	"stats":              "stats",
}

// registerFlags adds the viewer flags to fs. Defaults come from
// hdmiview.DefaultConfig.
func registerFlags(fs *pflag.FlagSet) {
	d := hdmiview.DefaultConfig()
	fs.String("device", "/dev/video0", "V4L2 capture device")
	fs.String("renderer", rendererAuto, "renderer: auto, gpu or software")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("uv-swap", d.Swap.String(), "chroma byte order: auto, 0 or 1")
	fs.Bool("cpu-uv-swap", d.CPUSwap, "swap chroma bytes while uploading instead of in the renderer")
	fs.String("matrix", d.Matrix.String(), "color matrix: 709 or 601")
	fs.String("range", d.Range.String(), "quantization range: limited or full")
	fs.Bool("auto-resize-window", d.AutoResize, "resize the display to the capture size on format changes")
	fs.String("display-size", "", "display size as WxH (default: capture size)")
	fs.Int("buffers", d.BufferCount, "number of capture buffers")
	fs.Uint64("format-check", d.FormatCheckInterval, "iterations between fallback format queries")
	fs.Duration("poll-timeout", d.PollTimeout, "device wait timeout")
	fs.String("pixel-format", d.RequestFourCC.String(), "pixel format requested at startup (empty keeps the device format)")
	fs.Int("max-surface-size", 0, "cap on the single-upload surface edge (0: renderer limit)")
	fs.String("snapshot", "", "write the last frame to this PNG file on exit")
	fs.Duration("stats", monitor.DefaultInterval, "statistics interval (0 disables)")
}

// newViper returns a viper instance with flags and HDMIVIEW_* environment
// variables bound.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("HDMIVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			return nil, fmt.Errorf("flag --%s not registered", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return v, nil
}

// loadConfig reads cfgFile, or hdmiview.yaml from the usual locations when
// cfgFile is empty, and merges it under flags and environment.
func loadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hdmiview")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "hdmiview"))
		}
		v.AddConfigPath("/etc/hdmiview")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Pipeline converts the viewer configuration to the pipeline configuration.
func (c *Config) Pipeline() (hdmiview.Config, error) {
	pc := hdmiview.DefaultConfig()
	var errs []error
	var err error
	if pc.Swap, err = hdmiview.ParseSwapMode(c.UVSwap); err != nil {
		errs = append(errs, err)
	}
	if pc.Matrix, err = hdmiview.ParseColorMatrix(c.Matrix); err != nil {
		errs = append(errs, err)
	}
	if pc.Range, err = hdmiview.ParseColorRange(c.Range); err != nil {
		errs = append(errs, err)
	}
	if pc.RequestFourCC, err = parseFourCC(c.PixelFormat); err != nil {
		errs = append(errs, err)
	}
	pc.CPUSwap = c.CPUUVSwap
	pc.AutoResize = c.AutoResize
	pc.BufferCount = c.Buffers
	pc.FormatCheckInterval = c.FormatCheck
	pc.PollTimeout = c.PollTimeout
	if err := errors.Join(errs...); err != nil {
		return pc, err
	}
	return pc, pc.Validate()
}

// Display parses DisplaySize. A zero Size means "use the capture size".
func (c *Config) Display() (hdmiview.Size, error) {
	return parseSize(c.DisplaySize)
}

func parseSize(s string) (hdmiview.Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return hdmiview.Size{}, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return hdmiview.Size{}, fmt.Errorf("invalid size %q (want WxH)", s)
	}
	w, werr := strconv.Atoi(ws)
	h, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return hdmiview.Size{}, fmt.Errorf("invalid size %q (want WxH)", s)
	}
	return hdmiview.Size{Width: w, Height: h}, nil
}

// parseFourCC parses a four character pixel format code. An empty string
// means no request.
func parseFourCC(s string) (hdmiview.FourCC, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if len(s) != 4 {
		return 0, fmt.Errorf("invalid pixel format %q (want four characters)", s)
	}
	code := hdmiview.NewFourCC(s[0], s[1], s[2], s[3])
	if code.Layout() == hdmiview.LayoutUnknown {
		return 0, fmt.Errorf("pixel format %q: %w", s, hdmiview.ErrUnsupported)
	}
	return code, nil
}
