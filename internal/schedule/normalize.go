package schedule

import (
	"strings"

	"hacktown/internal/model"
)

// Normalizer turns RawRows into Events.
type Normalizer struct {
	// DefaultStart replaces an empty start time. Zero value uses model.DefaultStart.
	DefaultStart string
}

// Normalize splits the time range into start and end and applies the start
// time display rewrites. A range whose first and last tokens are equal has no
// end.
func (n Normalizer) Normalize(raw RawRow) model.Event {
	start, end := SplitTimeRange(raw.TimeRange)
	return model.Event{
		Title:       raw.Title,
		Description: raw.Description,
		Venue:       raw.Venue,
		Category:    raw.Category,
		Day:         raw.Day,
		Start:       RewriteStart(start, n.defaultStart()),
		End:         end,
	}
}

// NormalizeAll normalizes rows in order.
func (n Normalizer) NormalizeAll(rows []RawRow) []model.Event {
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, n.Normalize(r))
	}
	return out
}

func (n Normalizer) defaultStart() string {
	if n.DefaultStart == "" {
		return model.DefaultStart
	}
	return n.DefaultStart
}

// SplitTimeRange returns the first and last whitespace-separated tokens of s.
// end is empty when both tokens are the same (including a single token or an
// empty field).
func SplitTimeRange(s string) (start, end string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", ""
	}
	start, last := fields[0], fields[len(fields)-1]
	if start == last {
		return start, ""
	}
	return start, last
}

// RewriteStart zero-pads the "8h" and "9h" hour prefixes and substitutes
// defaultStart for an empty value. These are literal prefix rewrites; the
// value is never parsed as a time.
func RewriteStart(s, defaultStart string) string {
	switch {
	case strings.HasPrefix(s, "8h"):
		return "0" + s
	case strings.HasPrefix(s, "9h"):
		return "0" + s
	case s == "":
		return defaultStart
	default:
		return s
	}
}
