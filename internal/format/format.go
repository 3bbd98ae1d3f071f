// Package format renders raw metric values as display strings.
package format

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/tinytelemetry/vwatch/internal/model"
)

// Number abbreviates large counts: 1500 -> "1.5K", 2300000 -> "2.3M".
// Values below one thousand render unabbreviated, fractions included.
func Number(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Percentage renders a fraction as a percentage with one decimal: 0.357 -> "35.7%".
func Percentage(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// Duration renders a duration given in seconds using the largest fitting unit.
func Duration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.1fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.1fh", seconds/3600)
	}
}

// Milliseconds renders a response time: 123.4 -> "123ms".
func Milliseconds(ms float64) string {
	return fmt.Sprintf("%.0fms", ms)
}

// RelativeTime renders t relative to now, e.g. "3 minutes ago".
func RelativeTime(t time.Time) string {
	return RelativeTimeFrom(t, time.Now())
}

// RelativeTimeFrom renders t relative to now.
func RelativeTimeFrom(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FileSize renders a byte count with a 1024 base: 1536 -> "1.5 KB".
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	v := float64(bytes)
	i := 0
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}

// IsValidURL reports whether s parses as an absolute URL with a scheme and host.
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// DateLayout is the YYYY-MM-DD layout used by record dates.
const DateLayout = "2006-01-02"

// TimeRangeBounds returns the inclusive [start, end] dates covered by r
// relative to now. Unknown ranges fall back to the last seven days. For
// RangeCustom the supplied custom dates are parsed; unparsable values fall back
// to the seven day window.
func TimeRangeBounds(r model.TimeRange, customStart, customEnd string, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r {
	case model.RangeToday:
		return today, today
	case model.RangeYesterday:
		y := today.AddDate(0, 0, -1)
		return y, y
	case model.Range30Days:
		return today.AddDate(0, 0, -30), today
	case model.RangeCustom:
		start, err1 := time.ParseInLocation(DateLayout, customStart, now.Location())
		end, err2 := time.ParseInLocation(DateLayout, customEnd, now.Location())
		if err1 == nil && err2 == nil && !end.Before(start) {
			return start, end
		}
	}
	return today.AddDate(0, 0, -7), today
}

// DayCount returns how many daily records a time range covers.
func DayCount(r model.TimeRange) int {
	switch r {
	case model.RangeToday, model.RangeYesterday:
		return 1
	case model.Range30Days:
		return 30
	default:
		return 7
	}
}
