package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/logging"
)

// Client talks to the Cal.com v2 API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	eventTypeID int
	logger      logging.Logger
	metrics     *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records calcom_api_* metrics for every request.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBaseTransport replaces the transport underneath auth and tracing.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if t, ok := c.httpClient.Transport.(*oauth2.Transport); ok {
			t.Base = otelhttp.NewTransport(rt)
		}
	}
}

// NewClient creates a Client from cfg. The API key is required.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cal.com API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid cal.com base URL %q: %w", baseURL, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
		TokenType:   "Bearer",
	})

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &oauth2.Transport{
				Source: tokenSource,
				Base:   otelhttp.NewTransport(http.DefaultTransport),
			},
		},
		baseURL:     baseURL,
		eventTypeID: cfg.EventTypeID,
		logger:      logging.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("cal.com client configured",
		"base_url", baseURL,
		"api_key", logging.SanitizeToken(cfg.APIKey),
		"event_type_id", cfg.EventTypeID)

	return c, nil
}

// EventTypeID returns the configured event type, zero when unset.
func (c *Client) EventTypeID() int {
	return c.eventTypeID
}

// ListBookings returns every booking the attendee takes part in.
func (c *Client) ListBookings(ctx context.Context, attendeeEmail string) ([]Booking, error) {
	query := url.Values{}
	query.Set("attendeeEmail", attendeeEmail)

	var bookings []Booking
	if err := c.do(ctx, http.MethodGet, instrumentation.OperationList, "bookings", DefaultAPIVersion, query, nil, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// AvailableSlots returns the slots for eventTypeID on date (YYYY-MM-DD),
// expressed in timeZone.
func (c *Client) AvailableSlots(ctx context.Context, date string, eventTypeID int, timeZone string) (Slots, error) {
	query := url.Values{}
	query.Set("eventTypeId", strconv.Itoa(eventTypeID))
	query.Set("start", date+"T00:00:00Z")
	query.Set("end", date+"T23:59:59Z")
	query.Set("format", "range")
	query.Set("timeZone", timeZone)

	var slots Slots
	if err := c.do(ctx, http.MethodGet, instrumentation.OperationSlots, "slots", SlotsAPIVersion, query, nil, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// CreateBooking books a new meeting.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	var booking Booking
	if err := c.do(ctx, http.MethodPost, instrumentation.OperationCreate, "bookings", DefaultAPIVersion, nil, req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// CancelBooking cancels the booking identified by uid.
func (c *Client) CancelBooking(ctx context.Context, uid, reason string) error {
	path := "bookings/" + url.PathEscape(uid) + "/cancel"
	return c.do(ctx, http.MethodPost, instrumentation.OperationCancel, path, DefaultAPIVersion, nil, CancelRequest{CancellationReason: reason}, nil)
}

// RescheduleBooking moves the booking identified by uid.
func (c *Client) RescheduleBooking(ctx context.Context, uid string, req RescheduleRequest) (*Booking, error) {
	path := "bookings/" + url.PathEscape(uid) + "/reschedule"

	var booking Booking
	if err := c.do(ctx, http.MethodPost, instrumentation.OperationReschedule, path, DefaultAPIVersion, nil, req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  json.RawMessage `json:"error"`
}

func (c *Client) do(ctx context.Context, method, operation, endpoint, apiVersion string, query url.Values, body, out any) (err error) {
	ctx, span := instrumentation.StartSchedulingAPISpan(ctx, instrumentation.ServiceCalcom, operation)
	defer func() {
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
	}()

	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("cal-api-version", apiVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(ctx, operation, 0, time.Since(start))
		c.logger.Error("cal.com request failed", "method", method, "endpoint", endpoint, "error", err)
		return fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	c.record(ctx, operation, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	c.logger.Debug("cal.com request", "method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	if env.Status != statusSuccess {
		return &FailureError{Details: failureDetails(env.Error)}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	return nil
}

func (c *Client) record(ctx context.Context, operation string, statusCode int, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordCalAPIRequest(ctx, operation, statusCode, d)
}
