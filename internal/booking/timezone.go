package booking

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// APITimeLayout is the UTC layout the scheduling API expects for start times.
const APITimeLayout = "2006-01-02T15:04:05.000Z"

// Layouts carrying an explicit offset. Fractional seconds are accepted after
// the seconds field by time.Parse even though the layouts omit them.
var offsetLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// LoadZone resolves an IANA timezone name, ignoring case. An empty name means
// UTC. "Local" is rejected so a user never gets the server's zone.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "" || strings.EqualFold(name, "UTC"):
		return time.UTC, nil
	case strings.EqualFold(name, "Local"):
		return nil, fmt.Errorf("unknown timezone %q", name)
	}

	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	for _, candidate := range zoneNameCandidates(name) {
		if candidate == name {
			continue
		}
		if loc, cerr := time.LoadLocation(candidate); cerr == nil {
			return loc, nil
		}
	}
	return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
}

// zoneNameCandidates spells name the way the tz database does:
// "america/new_york" becomes "America/New_York" and "us/eastern" also
// yields "US/Eastern".
func zoneNameCandidates(name string) []string {
	return []string{
		recaseZoneName(name, false),
		recaseZoneName(name, true),
	}
}

func recaseZoneName(name string, upperShortWords bool) string {
	var b strings.Builder
	wordStart := true
	wordLen := func(i int) int {
		n := 0
		for _, r := range name[i:] {
			if r == '/' || r == '_' || r == '-' {
				break
			}
			n++
		}
		return n
	}
	upper := false
	for i, r := range name {
		if r == '/' || r == '_' || r == '-' {
			b.WriteRune(r)
			wordStart = true
			continue
		}
		if wordStart {
			upper = upperShortWords && wordLen(i) <= 3
			b.WriteString(strings.ToUpper(string(r)))
			wordStart = false
			continue
		}
		if upper {
			b.WriteString(strings.ToUpper(string(r)))
		} else {
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}

func normalizeISO(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	return s
}

func parseWithOffset(s string) (time.Time, bool) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseAPITime parses a time string returned by the API. Times without an
// offset are read as UTC.
func ParseAPITime(s string) (time.Time, error) {
	s = normalizeISO(s)
	if t, ok := parseWithOffset(s); ok {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid UTC datetime format: %s", s)
}

// ToZone converts an API time into zone.
func ToZone(apiTime string, zone *time.Location) (time.Time, error) {
	t, err := ParseAPITime(apiTime)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(zone), nil
}

// LocalToUTC interprets date (YYYY-MM-DD) and clock (HH:MM) in zone and
// returns the matching UTC instant.
func LocalToUTC(date, clock string, zone *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", strings.TrimSpace(date)+" "+strings.TrimSpace(clock), zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q at %q, expected YYYY-MM-DD and HH:MM", ErrInvalidDate, date, clock)
	}
	return t.UTC(), nil
}

// ParseLocalISO parses an ISO 8601 string. Naive values are interpreted in
// zone; values with an offset keep it. The result is in UTC.
func ParseLocalISO(iso string, zone *time.Location) (time.Time, error) {
	s := normalizeISO(iso)
	if t, ok := parseWithOffset(s); ok {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, zone); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &startTimeError{input: iso}
}

// ToAPITime converts an ISO 8601 string to the API's UTC millisecond format.
func ToAPITime(iso string, zone *time.Location) (string, error) {
	t, err := ParseLocalISO(iso, zone)
	if err != nil {
		return "", err
	}
	return FormatAPITime(t), nil
}

// FormatAPITime renders t in UTC with millisecond precision.
func FormatAPITime(t time.Time) string {
	return t.UTC().Format(APITimeLayout)
}
