package hdmiview

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SwapMode selects how the chroma byte-order swap is decided.
type SwapMode uint8

const (
	// SwapAuto derives the swap from the adopted pixel format.
	SwapAuto SwapMode = iota
	// SwapOff never swaps.
	SwapOff
	// SwapOn always swaps.
	SwapOn
)

// String returns the command line spelling of the mode.
func (m SwapMode) String() string {
	switch m {
	case SwapOff:
		return "0"
	case SwapOn:
		return "1"
	default:
		return "auto"
	}
}

// ParseSwapMode parses "auto", "0" or "1".
func ParseSwapMode(s string) (SwapMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SwapAuto, nil
	case "0", "off", "false":
		return SwapOff, nil
	case "1", "on", "true":
		return SwapOn, nil
	}
	return SwapAuto, fmt.Errorf("hdmiview: invalid uv swap mode %q (want auto, 0 or 1)", s)
}

// ColorMatrix selects the YCbCr to RGB conversion matrix.
type ColorMatrix uint8

const (
	MatrixBT709 ColorMatrix = iota
	MatrixBT601
)

// String returns the command line spelling of the matrix.
func (m ColorMatrix) String() string {
	if m == MatrixBT601 {
		return "601"
	}
	return "709"
}

// ParseColorMatrix parses "709" or "601".
func ParseColorMatrix(s string) (ColorMatrix, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "709", "bt709":
		return MatrixBT709, nil
	case "601", "bt601":
		return MatrixBT601, nil
	}
	return MatrixBT709, fmt.Errorf("hdmiview: invalid color matrix %q (want 709 or 601)", s)
}

// ColorRange selects the quantization range of the samples.
type ColorRange uint8

const (
	RangeLimited ColorRange = iota
	RangeFull
)

// String returns the command line spelling of the range.
func (r ColorRange) String() string {
	if r == RangeFull {
		return "full"
	}
	return "limited"
}

// ParseColorRange parses "limited" or "full".
func ParseColorRange(s string) (ColorRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "limited", "tv":
		return RangeLimited, nil
	case "full", "pc":
		return RangeFull, nil
	}
	return RangeLimited, fmt.Errorf("hdmiview: invalid color range %q (want limited or full)", s)
}

// Default configuration values.
const (
	DefaultBufferCount         = 4
	DefaultFormatCheckInterval = 120
	DefaultPollTimeout         = 2 * time.Second
	DefaultWidth               = 1920
	DefaultHeight              = 1080
)

// Config is the immutable startup configuration threaded into every
// pipeline component.
type Config struct {
	// Swap overrides the chroma byte-order decision.
	Swap SwapMode

	// CPUSwap performs the chroma swap while uploading instead of in the
	// renderer. The renderer toggle is then always off.
	CPUSwap bool

	Matrix ColorMatrix
	Range  ColorRange

	// AutoResize resizes the display to the frame size on format changes.
	AutoResize bool

	// BufferCount is the number of capture buffers requested at startup.
	BufferCount int

	// FormatCheckInterval is the number of loop iterations between
	// fallback format queries.
	FormatCheckInterval uint64

	// PollTimeout bounds each wait for device readiness.
	PollTimeout time.Duration

	// RequestFourCC is requested from the device at startup. Zero keeps
	// whatever the device reports.
	RequestFourCC FourCC

	// DefaultWidth and DefaultHeight are used when the device cannot
	// report its initial format.
	DefaultWidth  uint32
	DefaultHeight uint32
}

// DefaultConfig returns the configuration used by the command line viewer.
func DefaultConfig() Config {
	return Config{
		Swap:                SwapAuto,
		Matrix:              MatrixBT709,
		Range:               RangeLimited,
		BufferCount:         DefaultBufferCount,
		FormatCheckInterval: DefaultFormatCheckInterval,
		PollTimeout:         DefaultPollTimeout,
		RequestFourCC:       FourCCNV24,
		DefaultWidth:        DefaultWidth,
		DefaultHeight:       DefaultHeight,
	}
}

// Validate checks the configuration for values the pipeline cannot use.
func (c Config) Validate() error {
	var errs []error
	if c.BufferCount <= 0 {
		errs = append(errs, fmt.Errorf("buffer count %d must be positive", c.BufferCount))
	}
	if c.FormatCheckInterval == 0 {
		errs = append(errs, errors.New("format check interval must be positive"))
	}
	if c.PollTimeout <= 0 {
		errs = append(errs, fmt.Errorf("poll timeout %v must be positive", c.PollTimeout))
	}
	if c.Swap > SwapOn {
		errs = append(errs, fmt.Errorf("unknown swap mode %d", c.Swap))
	}
	if c.Matrix > MatrixBT601 {
		errs = append(errs, fmt.Errorf("unknown color matrix %d", c.Matrix))
	}
	if c.Range > RangeFull {
		errs = append(errs, fmt.Errorf("unknown color range %d", c.Range))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("hdmiview: invalid config: %w", err)
	}
	return nil
}

// swapFor resolves the chroma swap for a format: the override when one
// is configured, otherwise the format's own chroma order.
func (c Config) swapFor(f FrameFormat) bool {
	switch c.Swap {
	case SwapOn:
		return true
	case SwapOff:
		return false
	}
	return f.FourCC.ChromaSwapped()
}
