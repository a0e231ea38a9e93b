// Package timeline holds the minute-of-day arithmetic the scheduling engine
// is built on. Times are circular minutes in [0,1439]; ranges that cross
// midnight are decomposed into non-wrapping half-open segments.
package timeline

import (
	"strconv"
	"strings"
)

// MinutesPerDay is the size of the circular day.
const MinutesPerDay = 1440

// Segment is a half-open minute range [Lo, Hi).
type Segment struct {
	Lo int
	Hi int
}

// ToMinute parses "HH:MM" or "HH:MM:SS" into a minute of day, clamped to
// [0,1439]. Invalid input yields fallback, never an error.
func ToMinute(raw string, fallback int) int {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 {
		return clamp(fallback)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return clamp(fallback)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return clamp(fallback)
	}
	return clamp(hour*60 + minute)
}

func clamp(m int) int {
	if m < 0 {
		return 0
	}
	if m >= MinutesPerDay {
		return MinutesPerDay - 1
	}
	return m
}

// MinuteToTime renders a minute of day as "HH:MM:SS", wrapping circularly.
func MinuteToTime(minute int) string {
	normalized := ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	h := normalized / 60
	m := normalized % 60
	return pad2(h) + ":" + pad2(m) + ":00"
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// Segments decomposes a (start, end) minute pair into non-wrapping half-open
// segments. Equal start and end means the full day. An end before the start
// wraps past midnight: end 0 reads "to midnight", anything else splits into
// an evening and a morning segment.
func Segments(start, end int) []Segment {
	start = clamp(start)
	end = clamp(end)
	if end == start {
		return []Segment{{0, MinutesPerDay}}
	}
	if end > start {
		return []Segment{{start, end}}
	}
	if end == 0 {
		return []Segment{{start, MinutesPerDay}}
	}
	return []Segment{{start, MinutesPerDay}, {0, end}}
}

// SegmentsOf is Segments applied to wire-format time strings.
func SegmentsOf(startRaw, endRaw string) []Segment {
	return Segments(ToMinute(startRaw, 0), ToMinute(endRaw, 0))
}

// Contains reports whether a minute of day falls inside any segment.
func Contains(segments []Segment, minute int) bool {
	for _, seg := range segments {
		if minute >= seg.Lo && minute < seg.Hi {
			return true
		}
	}
	return false
}

// Overlaps reports whether any segment of a intersects any segment of b,
// using half-open interval overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	for _, sa := range Segments(aStart, aEnd) {
		for _, sb := range Segments(bStart, bEnd) {
			if sa.Lo < sb.Hi && sb.Lo < sa.Hi {
				return true
			}
		}
	}
	return false
}

// CoveredMinutes sums the minutes covered by a segment set.
func CoveredMinutes(segments []Segment) int {
	total := 0
	for _, seg := range segments {
		total += seg.Hi - seg.Lo
	}
	return total
}
