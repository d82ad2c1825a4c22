// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
)

// Memory budget errors.
var (
	// ErrMemoryBudgetExceeded is returned when a plane texture would
	// exceed the budget.
	ErrMemoryBudgetExceeded = errors.New("gpu: memory budget exceeded")

	// ErrTextureNotTracked is returned when releasing a texture the
	// budget never reserved.
	ErrTextureNotTracked = errors.New("gpu: texture not tracked by budget")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB covers an 8192x8192 4:4:4 frame (64 MB luma,
	// 128 MB chroma) with headroom.
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the smallest accepted budget.
	MinMemoryMB = 16
)

// MemoryStats is a snapshot of plane texture memory.
type MemoryStats struct {
	TotalBytes     uint64
	UsedBytes      uint64
	AvailableBytes uint64
	TextureCount   int

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// Rejected counts reservations refused for lack of budget.
	Rejected uint64

	// Utilization is UsedBytes / TotalBytes (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, %d textures, peak %d MB]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.TextureCount,
		s.PeakBytes/(1024*1024))
}

// MemoryBudget accounts for plane texture memory. Plane textures are
// always in use while they exist, so there is nothing to evict: a
// reservation that does not fit fails.
//
// MemoryBudget is safe for concurrent use.
type MemoryBudget struct {
	mu       sync.Mutex
	budget   uint64
	used     uint64
	peak     uint64
	rejected uint64
	textures map[*Texture]uint64
}

// NewMemoryBudget returns a budget of megabytes. Values below MinMemoryMB
// select DefaultMaxMemoryMB.
func NewMemoryBudget(megabytes int) *MemoryBudget {
	if megabytes < MinMemoryMB {
		megabytes = DefaultMaxMemoryMB
	}
	//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
	return &MemoryBudget{
		budget:   uint64(megabytes) * 1024 * 1024,
		textures: make(map[*Texture]uint64),
	}
}

// textureBytes is the footprint of a plane texture.
func textureBytes(width, height, channels int) uint64 {
	//nolint:gosec // G115: dimensions validated by CreateSurface
	return uint64(width) * uint64(height) * uint64(channels)
}

// Fits reports whether n more bytes fit in the budget.
func (m *MemoryBudget) Fits(n uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used+n <= m.budget
}

// reserve checks n bytes against the budget before a texture exists.
func (m *MemoryBudget) reserve(label string, n uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used+n > m.budget {
		m.rejected++
		return fmt.Errorf("%w: %s needs %d MB, %d of %d MB in use",
			ErrMemoryBudgetExceeded, label, n/(1024*1024), m.used/(1024*1024), m.budget/(1024*1024))
	}
	return nil
}

// track charges a created texture to the budget.
func (m *MemoryBudget) track(t *Texture) {
	n := textureBytes(t.size.Width, t.size.Height, t.channels)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textures[t] = n
	m.used += n
	if m.used > m.peak {
		m.peak = m.used
	}
}

// release returns a texture's bytes to the budget.
func (m *MemoryBudget) release(t *Texture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.textures[t]
	if !ok {
		return ErrTextureNotTracked
	}
	delete(m.textures, t)
	m.used -= n
	return nil
}

// SetBudget changes the budget. Textures already charged stay valid even
// when the new budget is below current usage; later reservations fail
// until enough is released.
func (m *MemoryBudget) SetBudget(megabytes int) {
	if megabytes < MinMemoryMB {
		megabytes = MinMemoryMB
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
	m.budget = uint64(megabytes) * 1024 * 1024
}

// Stats returns current usage.
func (m *MemoryBudget) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var utilization float64
	if m.budget > 0 {
		utilization = float64(m.used) / float64(m.budget)
	}
	var avail uint64
	if m.used < m.budget {
		avail = m.budget - m.used
	}
	return MemoryStats{
		TotalBytes:     m.budget,
		UsedBytes:      m.used,
		AvailableBytes: avail,
		TextureCount:   len(m.textures),
		PeakBytes:      m.peak,
		Rejected:       m.rejected,
		Utilization:    utilization,
	}
}
