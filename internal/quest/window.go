package quest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Window is a trailing time restriction applied to every record stream.
type Window string

// Supported windows.
const (
	WindowAll    Window = "all"
	Window30Days Window = "30d"
	Window7Days  Window = "7d"
)

// ErrUnknownWindow is returned by ParseWindow for unsupported values.
var ErrUnknownWindow = errors.New("unknown window")

// ParseWindow converts user input into a Window. An empty string means all.
func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(strings.TrimSpace(s))) {
	case "", WindowAll:
		return WindowAll, nil
	case Window30Days:
		return Window30Days, nil
	case Window7Days:
		return Window7Days, nil
	default:
		return "", fmt.Errorf("%w %q (want all, 30d or 7d)", ErrUnknownWindow, s)
	}
}

// Duration returns the trailing span covered by w. ok is false for all.
func (w Window) Duration() (d time.Duration, ok bool) {
	switch w {
	case Window30Days:
		return 30 * 24 * time.Hour, true
	case Window7Days:
		return 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// String implements fmt.Stringer.
func (w Window) String() string {
	if w == "" {
		return string(WindowAll)
	}
	return string(w)
}
