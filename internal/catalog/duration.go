package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

const (
	// millisLow and millisHigh bound the range treated as a millisecond value
	// that was stored where seconds were expected. Values strictly between the
	// two are divided by 1000.
	millisLow  = 10000
	millisHigh = 1000000
)

var leadingInt = regexp.MustCompile(`^[+-]?[0-9]+`)

// NormalizeDuration converts a stored or submitted duration into canonical
// seconds. Accepted shapes are nil, integers, floats, plain numeric strings,
// "MM:SS" and "HH:MM:SS". Anything unparseable yields 0.
//
// Results strictly between 10000 and 1000000 are assumed to be milliseconds
// and divided by 1000, because older clients submitted player durations in
// milliseconds. Genuine tracks of 10000 seconds or more are shortened too;
// NormalizeDurationStrict keeps them.
func NormalizeDuration(value any) int {
	seconds := NormalizeDurationStrict(value)
	if seconds > millisLow && seconds < millisHigh {
		seconds /= 1000
	}
	return seconds
}

// NormalizeDurationStrict is NormalizeDuration without the millisecond
// correction.
func NormalizeDurationStrict(value any) int {
	var total int64

	switch v := value.(type) {
	case nil:
		return 0
	case string:
		total = parseDurationString(v)
	case []byte:
		total = parseDurationString(string(v))
	case fmt.Stringer:
		total = parseDurationString(v.String())
	default:
		total = cast.ToInt64(v)
	}

	if total < 0 {
		return 0
	}
	return int(total)
}

func parseDurationString(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ":") {
		return toInt(raw)
	}

	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2:
		return toInt(parts[0])*60 + toInt(parts[1])
	case 3:
		return toInt(parts[0])*3600 + toInt(parts[1])*60 + toInt(parts[2])
	default:
		return toInt(raw)
	}
}

// toInt keeps the leading signed digit run of s, so "12abc" is 12 and "abc"
// is 0. Leading zeros are dropped before the cast so "08" is not read as octal.
func toInt(s string) int64 {
	digits := leadingInt.FindString(strings.TrimSpace(s))
	if digits == "" {
		return 0
	}

	sign := ""
	if digits[0] == '-' || digits[0] == '+' {
		sign, digits = digits[:1], digits[1:]
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0
	}
	if sign == "-" {
		return -cast.ToInt64(digits)
	}
	return cast.ToInt64(digits)
}

// FormatDuration renders seconds as minutes:seconds with the seconds
// zero-padded, e.g. 225 -> "3:45". Minutes are not folded into hours.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatTotal renders an aggregate duration such as an album length:
// "1h 12m" when at least an hour, otherwise "42m 7s".
func FormatTotal(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds%60)
}
