package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/calchat/internal/calcom"
	"github.com/teemow/calchat/internal/logging"
)

const (
	cancelReason     = "User requested cancellation via chatbot"
	rescheduleReason = "User requested reschedule via chatbot"

	noUpcomingText = "No upcoming accepted bookings found for that email."
)

// Scheduler is the subset of the scheduling API the service needs.
type Scheduler interface {
	ListBookings(ctx context.Context, attendeeEmail string) ([]calcom.Booking, error)
	AvailableSlots(ctx context.Context, date string, eventTypeID int, timeZone string) (calcom.Slots, error)
	CreateBooking(ctx context.Context, req calcom.CreateBookingRequest) (*calcom.Booking, error)
	CancelBooking(ctx context.Context, uid, reason string) error
	RescheduleBooking(ctx context.Context, uid string, req calcom.RescheduleRequest) (*calcom.Booking, error)
}

// Service runs booking operations and renders their results as text.
type Service struct {
	client      Scheduler
	eventTypeID int
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a Service. eventTypeID may be zero, in which case slot
// lookups and new bookings fail with ErrEventTypeNotConfigured.
func NewService(client Scheduler, eventTypeID int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:      client,
		eventTypeID: eventTypeID,
		logger:      logging.WithComponent(logger, "booking"),
		now:         time.Now,
	}
}

// Upcoming returns the attendee's accepted bookings that have not started yet.
func (s *Service) Upcoming(ctx context.Context, email string) ([]calcom.Booking, error) {
	bookings, err := s.client.ListBookings(ctx, email)
	if err != nil {
		return nil, err
	}
	return filterUpcoming(bookings, s.now().UTC()), nil
}

// ListBookings describes the attendee's upcoming accepted bookings in zoneName.
func (s *Service) ListBookings(ctx context.Context, email, zoneName string) (string, error) {
	zone, err := LoadZone(zoneName)
	if err != nil {
		return "", err
	}

	s.logger.Info("listing bookings", logging.UserHash(email), logging.Timezone(zone.String()))

	bookings, err := s.Upcoming(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to fetch bookings: %w", err)
	}
	if len(bookings) == 0 {
		return noUpcomingText, nil
	}

	lines := make([]string, 0, len(bookings))
	for _, b := range bookings {
		uid := b.UID
		if uid == "" {
			uid = "No UID"
		}

		start, startErr := ToZone(b.Start, zone)
		end, endErr := ToZone(b.End, zone)
		if startErr != nil || endErr != nil {
			lines = append(lines, fmt.Sprintf("- Title: %s, Start: %s, End: %s, Booking UID: %s", titleOf(b), b.Start, b.End, uid))
			continue
		}

		lines = append(lines, fmt.Sprintf("- Title: %s, Start: %s, End: %s (%s), Booking UID: %s",
			titleOf(b), Format(start, FormatDateTime), Format(end, FormatTimeOnly), zone, uid))
	}

	return fmt.Sprintf("Upcoming accepted bookings (%d found) in %s:\n", len(bookings), zone) + strings.Join(lines, "\n"), nil
}

// AvailableSlots lists open slots on date (YYYY-MM-DD) in zoneName.
func (s *Service) AvailableSlots(ctx context.Context, date, zoneName string) (string, error) {
	if s.eventTypeID == 0 {
		return "", ErrEventTypeNotConfigured
	}

	date = strings.TrimSpace(date)
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("%w %q, expected YYYY-MM-DD", ErrInvalidDate, date)
	}

	zone, err := LoadZone(zoneName)
	if err != nil {
		return "", err
	}

	s.logger.Info("fetching available slots", "date", date, logging.Timezone(zone.String()))

	slots, err := s.client.AvailableSlots(ctx, date, s.eventTypeID, zone.String())
	if err != nil {
		return "", fmt.Errorf("failed to fetch available slots: %w", err)
	}

	day := slots[date]
	if len(day) == 0 {
		return fmt.Sprintf("No available slots found for %s.", date), nil
	}

	lines := make([]string, 0, len(day))
	for i, slot := range day {
		start, startErr := ToZone(slot.Start, zone)
		end, endErr := ToZone(slot.End, zone)
		if startErr != nil || endErr != nil {
			lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, slot.Start, slot.End))
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s - %s %s", i+1, Format(start, FormatTimeOnly), Format(end, FormatTimeOnly), zone))
	}

	return fmt.Sprintf("Available slots for %s (%s):\n", date, zone) + strings.Join(lines, "\n"), nil
}

// CreateBooking books a meeting starting at startISO for the attendee.
// The title only appears in the confirmation text.
func (s *Service) CreateBooking(ctx context.Context, startISO, name, email, title, zoneName string) (string, error) {
	if s.eventTypeID == 0 {
		return "", ErrEventTypeNotConfigured
	}

	zone, err := LoadZone(zoneName)
	if err != nil {
		return "", err
	}

	start, err := ParseLocalISO(startISO, zone)
	if err != nil {
		return "", err
	}

	s.logger.Info("creating booking", logging.UserHash(email), "start", FormatAPITime(start))

	booking, err := s.client.CreateBooking(ctx, calcom.CreateBookingRequest{
		Start: FormatAPITime(start),
		Attendee: calcom.Attendee{
			Name:     name,
			Email:    email,
			TimeZone: zone.String(),
		},
		EventTypeID: s.eventTypeID,
	})
	if err != nil {
		return "", fmt.Errorf("booking creation failed: %w", err)
	}

	uid := booking.UID
	if uid == "" {
		uid = "Unknown UID"
	}

	return fmt.Sprintf("Success! Meeting '%s' booked for %s on %s (%s). Confirmation sent to %s. Booking UID: %s",
		title, name, Format(start.In(zone), FormatFriendly), zone, email, uid), nil
}

// findForChange fetches upcoming bookings and locates the one at date/clock.
// When there is nothing to act on it returns a message for the user instead.
func (s *Service) findForChange(ctx context.Context, email, date, clock string, zone *time.Location) (*calcom.Booking, string, error) {
	bookings, err := s.Upcoming(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("could not retrieve bookings: %w", err)
	}
	if len(bookings) == 0 {
		return nil, noUpcomingText, nil
	}

	match, err := FindByTime(bookings, date, clock, zone)
	if err != nil {
		return nil, "", err
	}
	if match == nil {
		available := "None found"
		if lines := FormatList(bookings, zone, DefaultListLimit); len(lines) > 0 {
			available = strings.Join(lines, "\n")
		}
		return nil, fmt.Sprintf("No booking found for %s at %s (%s). Your upcoming accepted bookings:\n%s", date, clock, zone, available), nil
	}
	if match.UID == "" {
		return nil, "", errors.New("booking UID not found in booking data")
	}
	return match, "", nil
}

func (s *Service) friendly(apiTime string, zone *time.Location) string {
	t, err := ToZone(apiTime, zone)
	if err != nil {
		return apiTime
	}
	return Format(t, FormatFriendly)
}

// CancelBooking cancels the attendee's booking starting at date/clock in zoneName.
func (s *Service) CancelBooking(ctx context.Context, email, date, clock, zoneName string) (string, error) {
	zone, err := LoadZone(zoneName)
	if err != nil {
		return "", err
	}

	s.logger.Info("cancelling booking", logging.UserHash(email), "date", date, "time", clock)

	match, text, err := s.findForChange(ctx, email, date, clock, zone)
	if err != nil || match == nil {
		return text, err
	}

	if err := s.client.CancelBooking(ctx, match.UID, cancelReason); err != nil {
		return "", fmt.Errorf("could not cancel the booking: %w", err)
	}

	return fmt.Sprintf("Success! Booking '%s' scheduled for %s (%s) has been cancelled. Booking UID: %s",
		titleOf(*match), s.friendly(match.Start, zone), zone, match.UID), nil
}

// RescheduleBooking moves the attendee's booking at date/clock to newStartISO.
func (s *Service) RescheduleBooking(ctx context.Context, email, date, clock, newStartISO, zoneName string) (string, error) {
	zone, err := LoadZone(zoneName)
	if err != nil {
		return "", err
	}

	s.logger.Info("rescheduling booking", logging.UserHash(email), "date", date, "time", clock, "new_start", newStartISO)

	match, text, err := s.findForChange(ctx, email, date, clock, zone)
	if err != nil || match == nil {
		return text, err
	}

	newStart, err := ParseLocalISO(newStartISO, zone)
	if err != nil {
		return "", err
	}

	s.logger.Debug("reschedule matched booking", logging.BookingUID(match.UID), "from", match.Start, "to", FormatAPITime(newStart))

	if _, err := s.client.RescheduleBooking(ctx, match.UID, calcom.RescheduleRequest{
		Start:              FormatAPITime(newStart),
		RescheduledBy:      email,
		ReschedulingReason: rescheduleReason,
	}); err != nil {
		return "", fmt.Errorf("could not reschedule the booking: %w", err)
	}

	return fmt.Sprintf("✅ Successfully rescheduled '%s'!\nFrom: %s (%s)\nTo: %s (%s)\nBooking UID: %s",
		titleOf(*match), s.friendly(match.Start, zone), zone, Format(newStart.In(zone), FormatFriendly), zone, match.UID), nil
}
