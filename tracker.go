// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hdmiview

// FormatSource is the part of a Device the tracker reads from.
type FormatSource interface {
	Format() (FrameFormat, error)
	NextEvent() (Event, bool, error)
}

// Retargeter reallocates frame surfaces for a new geometry.
type Retargeter interface {
	Reallocate(luma, chroma Size) error
}

// Tracker owns the adopted capture format. Device notifications and the
// periodic fallback query both end in ProposeChange, so every real change
// is adopted exactly once.
type Tracker struct {
	src     FormatSource
	target  Retargeter
	resizer DisplayResizer
	cfg     Config

	current   FrameFormat
	swap      bool
	adoptions uint64
}

// NewTracker returns a tracker with no adopted format. resizer may be nil;
// it is only used when cfg.AutoResize is set.
func NewTracker(src FormatSource, target Retargeter, cfg Config, resizer DisplayResizer) *Tracker {
	return &Tracker{src: src, target: target, cfg: cfg, resizer: resizer, swap: cfg.swapFor(FrameFormat{})}
}

// Current returns the adopted format.
func (t *Tracker) Current() FrameFormat { return t.current }

// Swap returns the chroma swap decision for the adopted format.
func (t *Tracker) Swap() bool { return t.swap }

// Adoptions returns how many formats have been adopted.
func (t *Tracker) Adoptions() uint64 { return t.adoptions }

// Apply adopts f unconditionally.
func (t *Tracker) Apply(f FrameFormat) error {
	return t.adopt(f)
}

// ProposeChange adopts f if its width, height or pixel layout differ
// from the adopted format and reports whether it did.
func (t *Tracker) ProposeChange(f FrameFormat) (bool, error) {
	if f.SameMode(t.current) {
		return false, nil
	}
	if f.Width == 0 || f.Height == 0 {
		Logger().Debug("hdmiview: ignoring empty format", "format", f.String())
		return false, nil
	}
	if err := t.adopt(f); err != nil {
		return false, err
	}
	return true, nil
}

// PollForChange queries the device and returns its format when it
// differs from the adopted one. It does not adopt.
func (t *Tracker) PollForChange() (FrameFormat, bool, error) {
	f, err := t.src.Format()
	if err != nil {
		return FrameFormat{}, false, deviceErr("get format", err)
	}
	if f.SameMode(t.current) {
		return f, false, nil
	}
	return f, true, nil
}

// DrainEvents dequeues every pending notification. Each source-change
// notification is followed by a fresh format query. Query failures are
// logged and leave the adopted format in place; only a failed
// reallocation is returned.
func (t *Tracker) DrainEvents() (bool, error) {
	changed := false
	for {
		ev, ok, err := t.src.NextEvent()
		if err != nil {
			Logger().Warn("hdmiview: dequeue event failed", "err", err)
			return changed, nil
		}
		if !ok {
			return changed, nil
		}
		if ev.Type != EventSourceChange {
			continue
		}
		Logger().Debug("hdmiview: source change", "changes", ev.Changes)
		adopted, err := t.check()
		if err != nil {
			return changed, err
		}
		changed = changed || adopted
	}
}

// PeriodicCheck runs the fallback query when frame is a multiple of the
// configured interval.
func (t *Tracker) PeriodicCheck(frame uint64) (bool, error) {
	if t.cfg.FormatCheckInterval == 0 || frame%t.cfg.FormatCheckInterval != 0 {
		return false, nil
	}
	return t.check()
}

func (t *Tracker) check() (bool, error) {
	f, changed, err := t.PollForChange()
	if err != nil {
		Logger().Warn("hdmiview: format query failed", "err", err)
		return false, nil
	}
	if !changed {
		return false, nil
	}
	return t.ProposeChange(f)
}

func (t *Tracker) adopt(f FrameFormat) error {
	prev := t.current
	if err := t.target.Reallocate(f.LumaSize(), f.ChromaSize()); err != nil {
		return err
	}
	t.current = f
	t.adoptions++
	if t.cfg.Swap == SwapAuto {
		t.swap = f.FourCC.ChromaSwapped()
	}

	Logger().Info("hdmiview: format adopted",
		"format", f.String(), "previous", prev.String(),
		"chroma", f.ChromaSize().String(), "uv_swap", t.swap)

	if t.cfg.AutoResize && t.resizer != nil {
		if err := t.resizer.ResizeDisplay(f.LumaSize()); err != nil {
			Logger().Warn("hdmiview: display resize failed", "err", err)
		}
	}
	return nil
}
