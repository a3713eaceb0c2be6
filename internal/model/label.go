package model

import "strings"

// Label is the classification token for a frame.
type Label string

// None is the sentinel for a frame without any qualifying detection.
const None Label = "NONE"

// NormalizeLabel trims and upper-cases a raw class name.
func NormalizeLabel(raw string) Label {
	return Label(strings.ToUpper(strings.TrimSpace(raw)))
}

func (l Label) String() string {
	return string(l)
}

// IsNone reports whether l is the NONE sentinel.
func (l Label) IsNone() bool {
	return l == None
}
