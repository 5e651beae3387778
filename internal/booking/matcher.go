package booking

import (
	"fmt"
	"time"

	"github.com/teemow/calchat/internal/calcom"
)

// DefaultListLimit caps how many bookings FormatList renders.
const DefaultListLimit = 5

func titleOf(b calcom.Booking) string {
	if b.Title == "" {
		return "Untitled"
	}
	return b.Title
}

// FindByTime returns the first accepted booking that starts at date/clock in
// zone, compared to the minute. Bookings with unparsable start times are
// skipped. A nil booking and nil error means no match.
func FindByTime(bookings []calcom.Booking, date, clock string, zone *time.Location) (*calcom.Booking, error) {
	target, err := LocalToUTC(date, clock, zone)
	if err != nil {
		return nil, err
	}
	target = target.Truncate(time.Minute)

	for i := range bookings {
		b := bookings[i]
		if !b.IsAccepted() || b.Start == "" {
			continue
		}

		start, err := ParseAPITime(b.Start)
		if err != nil {
			continue
		}
		if start.Truncate(time.Minute).Equal(target) {
			return &b, nil
		}
	}
	return nil, nil
}

// FormatList renders up to limit bookings as one line each, in zone.
func FormatList(bookings []calcom.Booking, zone *time.Location, limit int) []string {
	if limit <= 0 || limit > len(bookings) {
		limit = len(bookings)
	}

	lines := make([]string, 0, limit)
	for _, b := range bookings[:limit] {
		title := titleOf(b)
		if b.Start == "" {
			lines = append(lines, fmt.Sprintf("- %s: No start time available", title))
			continue
		}

		start, err := ToZone(b.Start, zone)
		if err != nil {
			lines = append(lines, fmt.Sprintf("- %s: %s", title, b.Start))
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", title, Format(start, FormatDateTime), zone))
	}
	return lines
}

// filterUpcoming keeps accepted bookings that start after now. Bookings whose
// start cannot be parsed are kept; bookings without a start are dropped.
func filterUpcoming(bookings []calcom.Booking, now time.Time) []calcom.Booking {
	var upcoming []calcom.Booking
	for _, b := range bookings {
		if !b.IsAccepted() || b.Start == "" {
			continue
		}

		start, err := ParseAPITime(b.Start)
		if err != nil || start.After(now) {
			upcoming = append(upcoming, b)
		}
	}
	return upcoming
}
