// Package riskwindow maps an area's risk level to the lookback window and
// result cap used when querying external incident feeds.
package riskwindow

import (
	"fmt"
	"strings"
	"time"
)

// Level is a normalized risk label
type Level string

const (
	LevelExtreme  Level = "EXTREME"
	LevelVeryHigh Level = "VERY HIGH"
	LevelHigh     Level = "HIGH"
	LevelModerate Level = "MODERATE"
	LevelLow      Level = "LOW"
)

// Levels lists every known level, most severe first
var Levels = []Level{LevelExtreme, LevelVeryHigh, LevelHigh, LevelModerate, LevelLow}

// ParseLevel uppercases and trims s and reports whether it is a known level.
// Inner whitespace and underscores collapse to one space, so "very_high" parses.
func ParseLevel(s string) (Level, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	for _, l := range Levels {
		if Level(s) == l {
			return l, true
		}
	}
	return "", false
}

const day = 24 * time.Hour

// Window is a lookback duration plus the maximum number of results to keep
type Window struct {
	Lookback   time.Duration `json:"-"`
	MaxResults int           `json:"max_results"`
}

// Days returns the lookback in whole days
func (w Window) Days() int {
	return int(w.Lookback / day)
}

// Since returns the earliest timestamp inside the window
func (w Window) Since(now time.Time) time.Time {
	return now.Add(-w.Lookback)
}

// Timespan renders the lookback for search APIs, e.g. "30d"
func (w Window) Timespan() string {
	if w.Lookback%day != 0 {
		return fmt.Sprintf("%dh", int(w.Lookback/time.Hour))
	}
	return fmt.Sprintf("%dd", w.Days())
}

// Policy is an immutable level -> window table with a fallback
type Policy struct {
	windows  map[Level]Window
	fallback Window
	extended map[Level]bool
}

// NewPolicy builds a policy. Levels missing from windows use fallback.
func NewPolicy(windows map[Level]Window, fallback Window, extended ...Level) *Policy {
	p := &Policy{
		windows:  make(map[Level]Window, len(windows)),
		fallback: fallback,
		extended: make(map[Level]bool, len(extended)),
	}
	for l, w := range windows {
		p.windows[l] = w
	}
	for _, l := range extended {
		p.extended[l] = true
	}
	return p
}

var defaultPolicy = NewPolicy(map[Level]Window{
	LevelExtreme:  {Lookback: 30 * day, MaxResults: 100},
	LevelVeryHigh: {Lookback: 21 * day, MaxResults: 80},
	LevelHigh:     {Lookback: 14 * day, MaxResults: 60},
	LevelModerate: {Lookback: 7 * day, MaxResults: 50},
	LevelLow:      {Lookback: 7 * day, MaxResults: 50},
}, Window{Lookback: 7 * day, MaxResults: 50}, LevelExtreme, LevelVeryHigh)

// Default returns the standard policy
func Default() *Policy {
	return defaultPolicy
}

// WindowFor never fails: unknown, empty or malformed levels get the fallback
func (p *Policy) WindowFor(riskLevel string) Window {
	l, ok := ParseLevel(riskLevel)
	if !ok {
		return p.fallback
	}
	if w, ok := p.windows[l]; ok {
		return w
	}
	return p.fallback
}

// RequiresExtendedWindow is true for the levels that widen the lookback
func (p *Policy) RequiresExtendedWindow(riskLevel string) bool {
	l, ok := ParseLevel(riskLevel)
	return ok && p.extended[l]
}

// WindowFor uses the default policy
func WindowFor(riskLevel string) Window {
	return defaultPolicy.WindowFor(riskLevel)
}

// RequiresExtendedWindow uses the default policy
func RequiresExtendedWindow(riskLevel string) bool {
	return defaultPolicy.RequiresExtendedWindow(riskLevel)
}
