package calcom

import "time"

const (
	// DefaultBaseURL is the Cal.com v2 API root.
	DefaultBaseURL = "https://api.cal.com/v2"

	// DefaultAPIVersion is sent as cal-api-version on booking endpoints.
	DefaultAPIVersion = "2024-08-13"

	// SlotsAPIVersion is sent as cal-api-version on the slots endpoint.
	SlotsAPIVersion = "2024-09-04"

	// DefaultTimeout bounds a single API round trip.
	DefaultTimeout = 30 * time.Second

	statusSuccess = "success"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusAccepted    BookingStatus = "accepted"
	StatusPending     BookingStatus = "pending"
	StatusCancelled   BookingStatus = "cancelled"
	StatusRescheduled BookingStatus = "rescheduled"
)

// Config holds the connection settings for the scheduling API.
type Config struct {
	APIKey  string
	BaseURL string

	// EventTypeID is the event type new bookings and slot lookups use.
	// Zero means not configured.
	EventTypeID int

	// UserEmail is the owner of the calendar. Informational only.
	UserEmail string

	Timeout time.Duration
}

// Attendee is a booking participant.
type Attendee struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"timeZone"`
}

// Booking is a scheduled meeting. Start and End are kept as the raw ISO
// strings the API returns.
type Booking struct {
	UID       string     `json:"uid"`
	ID        int64      `json:"id,omitempty"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Attendees []Attendee `json:"attendees,omitempty"`
}

// IsAccepted reports whether the booking status is accepted, ignoring case.
func (b Booking) IsAccepted() bool {
	return BookingStatus(lower(b.Status)) == StatusAccepted
}

// Slot is an available start/end pair.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Slots maps a YYYY-MM-DD date to the slots available on it.
type Slots map[string][]Slot

// CreateBookingRequest is the payload for POST /bookings.
type CreateBookingRequest struct {
	Start       string   `json:"start"`
	Attendee    Attendee `json:"attendee"`
	EventTypeID int      `json:"eventTypeId"`
}

// RescheduleRequest is the payload for POST /bookings/{uid}/reschedule.
type RescheduleRequest struct {
	Start              string `json:"start"`
	RescheduledBy      string `json:"rescheduledBy,omitempty"`
	ReschedulingReason string `json:"reschedulingReason,omitempty"`
}

// CancelRequest is the payload for POST /bookings/{uid}/cancel.
type CancelRequest struct {
	CancellationReason string `json:"cancellationReason"`
}
