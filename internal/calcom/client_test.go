package calcom

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "cal_live_test_key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: testAPIKey, BaseURL: srv.URL + "/v2/", EventTypeID: 42})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{APIKey: testAPIKey})
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, 0, c.EventTypeID())
}

func TestListBookings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/bookings", r.URL.Path)
		assert.Equal(t, "jane@example.com", r.URL.Query().Get("attendeeEmail"))
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAPIVersion, r.Header.Get("cal-api-version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		_, _ = io.WriteString(w, `{"status":"success","data":[
			{"uid":"bk_1","id":7,"title":"Intro call","status":"ACCEPTED","start":"2030-01-02T15:00:00.000Z","end":"2030-01-02T15:30:00.000Z",
			 "attendees":[{"name":"Jane","email":"jane@example.com","timeZone":"Europe/Berlin"}]}
		]}`)
	})

	bookings, err := c.ListBookings(context.Background(), "jane@example.com")
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	b := bookings[0]
	assert.Equal(t, "bk_1", b.UID)
	assert.Equal(t, int64(7), b.ID)
	assert.Equal(t, "2030-01-02T15:00:00.000Z", b.Start)
	assert.True(t, b.IsAccepted())
	require.Len(t, b.Attendees, 1)
	assert.Equal(t, "Europe/Berlin", b.Attendees[0].TimeZone)
}

func TestAvailableSlots(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/slots", r.URL.Path)
		assert.Equal(t, SlotsAPIVersion, r.Header.Get("cal-api-version"))
		assert.Equal(t, "42", q.Get("eventTypeId"))
		assert.Equal(t, "2030-01-02T00:00:00Z", q.Get("start"))
		assert.Equal(t, "2030-01-02T23:59:59Z", q.Get("end"))
		assert.Equal(t, "range", q.Get("format"))
		assert.Equal(t, "America/New_York", q.Get("timeZone"))

		_, _ = io.WriteString(w, `{"status":"success","data":{"2030-01-02":[{"start":"2030-01-02T09:00:00.000-05:00","end":"2030-01-02T09:30:00.000-05:00"}]}}`)
	})

	slots, err := c.AvailableSlots(context.Background(), "2030-01-02", 42, "America/New_York")
	require.NoError(t, err)
	require.Len(t, slots["2030-01-02"], 1)
	assert.Equal(t, "2030-01-02T09:00:00.000-05:00", slots["2030-01-02"][0].Start)
}

func TestCreateBooking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/bookings", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "2030-01-02T14:00:00.000Z", payload["start"])
		assert.Equal(t, float64(42), payload["eventTypeId"])
		assert.NotContains(t, payload, "title")

		attendee := payload["attendee"].(map[string]any)
		assert.Equal(t, "Jane", attendee["name"])
		assert.Equal(t, "jane@example.com", attendee["email"])
		assert.Equal(t, "Europe/Berlin", attendee["timeZone"])

		_, _ = io.WriteString(w, `{"status":"success","data":{"uid":"bk_new","start":"2030-01-02T14:00:00.000Z"}}`)
	})

	booking, err := c.CreateBooking(context.Background(), CreateBookingRequest{
		Start:       "2030-01-02T14:00:00.000Z",
		Attendee:    Attendee{Name: "Jane", Email: "jane@example.com", TimeZone: "Europe/Berlin"},
		EventTypeID: 42,
	})
	require.NoError(t, err)
	assert.Equal(t, "bk_new", booking.UID)
}

func TestCancelBooking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bookings/bk_1/cancel", r.URL.Path)

		var payload CancelRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "changed plans", payload.CancellationReason)

		_, _ = io.WriteString(w, `{"status":"success","data":{"uid":"bk_1","status":"cancelled"}}`)
	})

	require.NoError(t, c.CancelBooking(context.Background(), "bk_1", "changed plans"))
}

func TestRescheduleBooking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/bookings/bk_1/reschedule", r.URL.Path)

		var payload RescheduleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "2030-01-03T10:00:00.000Z", payload.Start)
		assert.Equal(t, "jane@example.com", payload.RescheduledBy)

		_, _ = io.WriteString(w, `{"status":"success","data":{"uid":"bk_2"}}`)
	})

	booking, err := c.RescheduleBooking(context.Background(), "bk_1", RescheduleRequest{
		Start:              "2030-01-03T10:00:00.000Z",
		RescheduledBy:      "jane@example.com",
		ReschedulingReason: "conflict",
	})
	require.NoError(t, err)
	assert.Equal(t, "bk_2", booking.UID)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "http error",
			status:  http.StatusBadRequest,
			body:    `{"message":"slot taken"}`,
			wantMsg: `HTTP 400: {"message":"slot taken"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			},
		},
		{
			name:    "envelope failure with string",
			status:  http.StatusOK,
			body:    `{"status":"error","error":"event type not found"}`,
			wantMsg: "API returned failure. Details: event type not found",
		},
		{
			name:    "envelope failure with object",
			status:  http.StatusOK,
			body:    `{"status":"error","error":{"code":"NotFound"}}`,
			wantMsg: `API returned failure. Details: {"code":"NotFound"}`,
		},
		{
			name:    "envelope failure without details",
			status:  http.StatusOK,
			body:    `{"status":"error"}`,
			wantMsg: "API returned failure. Details: Unknown error",
			check: func(t *testing.T, err error) {
				var failure *FailureError
				require.True(t, errors.As(err, &failure))
			},
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `not json`,
			wantMsg: "invalid JSON response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.ListBookings(context.Background(), "jane@example.com")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(Config{APIKey: testAPIKey, BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.ListBookings(context.Background(), "jane@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request to bookings failed")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithBaseTransport(t *testing.T) {
	var seen *http.Request
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"status":"success","data":[]}`)),
			Request:    r,
		}, nil
	})

	c, err := NewClient(Config{APIKey: testAPIKey, BaseURL: "https://cal.invalid/v2"}, WithBaseTransport(rt))
	require.NoError(t, err)

	bookings, err := c.ListBookings(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Empty(t, bookings)

	require.NotNil(t, seen)
	assert.Equal(t, "cal.invalid", seen.URL.Host)
	assert.Equal(t, "Bearer "+testAPIKey, seen.Header.Get("Authorization"))
}
