package hdmiview

// InputEvent is a user command delivered to the capture loop.
type InputEvent uint8

const (
	InputNone InputEvent = iota
	// InputQuit stops the loop after the current iteration.
	InputQuit
	// InputToggleFullscreen switches the display between windowed and
	// fullscreen when the renderer supports it.
	InputToggleFullscreen
)

func (e InputEvent) String() string {
	switch e {
	case InputQuit:
		return "quit"
	case InputToggleFullscreen:
		return "toggle-fullscreen"
	default:
		return "none"
	}
}

// InputSource delivers pending user commands without blocking.
type InputSource interface {
	// PollInput returns the next pending event, or false when none is
	// pending.
	PollInput() (InputEvent, bool)
}

// ChanInput adapts a channel to InputSource.
type ChanInput <-chan InputEvent

// PollInput implements InputSource.
func (c ChanInput) PollInput() (InputEvent, bool) {
	select {
	case ev, ok := <-c:
		if !ok {
			return InputQuit, true
		}
		return ev, true
	default:
		return InputNone, false
	}
}
