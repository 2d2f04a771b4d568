package types

// WakeSource selects which pins may end a power-down early.
type WakeSource uint8

const (
	WakeNone WakeSource = iota
	WakeButton
	WakeHostLine
	WakeButtonAndHostLine
)

// IncludesButton reports whether the wake button should be armed.
func (w WakeSource) IncludesButton() bool {
	return w == WakeButton || w == WakeButtonAndHostLine
}

// IncludesHostLine reports whether the host signal line should be armed.
func (w WakeSource) IncludesHostLine() bool {
	return w == WakeHostLine || w == WakeButtonAndHostLine
}
