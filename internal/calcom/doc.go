// Package calcom is a small client for the Cal.com v2 REST API.
//
// It covers the booking endpoints calchat needs: listing an attendee's
// bookings, fetching available slots for an event type, and creating,
// cancelling and rescheduling bookings.
//
// Every response is wrapped in the v2 envelope ({"status", "data", "error"}).
// A request only succeeds when the HTTP status is below 400 and the envelope
// status is "success". The two failure modes surface as *APIError and
// *FailureError respectively.
//
// Authentication uses a static bearer token through golang.org/x/oauth2 and
// outgoing requests are traced with otelhttp.
package calcom
