package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const (
	defaultTimeout = 12 * time.Second
	maxBodyBytes   = 1 << 20
)

var catalogTracer = otel.Tracer("clinicbooking.internal.catalog")

// RequestObserver records the latency and outcome of each remote call.
type RequestObserver interface {
	ObserveCatalogRequest(operation, outcome string, seconds float64)
}

// Client wraps the remote clinic REST API. Every method returns an Envelope and
// never an error: transport, status and decoding failures all collapse into
// Success=false with a human-readable Message. No retries are performed.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	observer   RequestObserver
	logger     *logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithTimeout bounds every call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient constructs a client for the versioned API base URL,
// e.g. https://clinic.example.com/api/v1.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: defaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Timeout returns the per-call bound.
func (c *Client) Timeout() time.Duration { return c.timeout }

// ListBranches returns every branch.
func (c *Client) ListBranches(ctx context.Context) Envelope[[]Branch] {
	return call(ctx, c, "list_branches", http.MethodGet, "/branches", nil, nil, validateBranches)
}

// GetBranch returns one branch by slug.
func (c *Client) GetBranch(ctx context.Context, slug string) Envelope[Branch] {
	path := "/branches/" + url.PathEscape(slug)
	return call(ctx, c, "get_branch", http.MethodGet, path, nil, nil, Branch.validate)
}

// ListBranchDoctors returns the doctors of a branch addressed by id or slug.
func (c *Client) ListBranchDoctors(ctx context.Context, branchRef string) Envelope[[]Doctor] {
	path := fmt.Sprintf("/branches/%s/doctors", url.PathEscape(branchRef))
	return call(ctx, c, "list_branch_doctors", http.MethodGet, path, nil, nil, validateDoctors)
}

// ListBranchServices returns the services offered at a branch.
func (c *Client) ListBranchServices(ctx context.Context, branchID int64) Envelope[[]Service] {
	path := fmt.Sprintf("/branches/%d/services", branchID)
	return call(ctx, c, "list_branch_services", http.MethodGet, path, nil, nil, validateServices)
}

// GetDaySlots returns the raw slot list for a branch and date, optionally for one doctor.
func (c *Client) GetDaySlots(ctx context.Context, branchSlug, date string, doctorID int64) Envelope[[]TimeSlot] {
	q := url.Values{}
	q.Set("date", date)
	if doctorID > 0 {
		q.Set("doctor_id", strconv.FormatInt(doctorID, 10))
	}
	path := fmt.Sprintf("/branches/%s/slots", url.PathEscape(branchSlug))
	return call(ctx, c, "get_day_slots", http.MethodGet, path, q, nil, validateSlots)
}

// GetAvailability returns the day's opening state and slots for a branch.
func (c *Client) GetAvailability(ctx context.Context, branchID int64, date string, serviceID int64) Envelope[AvailabilityDay] {
	q := url.Values{}
	q.Set("date", date)
	if serviceID > 0 {
		q.Set("service_id", strconv.FormatInt(serviceID, 10))
	}
	path := fmt.Sprintf("/branches/%d/availability", branchID)
	return call(ctx, c, "get_availability", http.MethodGet, path, q, nil, validateAvailability)
}

// ListDoctors returns all doctors, optionally restricted to a branch.
func (c *Client) ListDoctors(ctx context.Context, branchID int64) Envelope[[]Doctor] {
	var q url.Values
	if branchID > 0 {
		q = url.Values{"branch_id": {strconv.FormatInt(branchID, 10)}}
	}
	return call(ctx, c, "list_doctors", http.MethodGet, "/doctors", q, nil, validateDoctors)
}

// ListServices returns services, optionally filtered by category and branch.
func (c *Client) ListServices(ctx context.Context, filter ServiceFilter) Envelope[[]Service] {
	q := url.Values{}
	if cat := strings.TrimSpace(filter.Category); cat != "" {
		q.Set("category", cat)
	}
	if filter.BranchID > 0 {
		q.Set("branch_id", strconv.FormatInt(filter.BranchID, 10))
	}
	return call(ctx, c, "list_services", http.MethodGet, "/services", q, nil, validateServices)
}

// CreateBooking submits a booking request.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) Envelope[BookingResult] {
	return call(ctx, c, "create_booking", http.MethodPost, "/bookings", nil, req, validateBooking)
}

// CancelBooking cancels a booking by its reference.
func (c *Client) CancelBooking(ctx context.Context, reference string) Envelope[CancelResult] {
	path := fmt.Sprintf("/bookings/%s/cancel", url.PathEscape(reference))
	return call(ctx, c, "cancel_booking", http.MethodPost, path, nil, struct{}{}, validateCancel)
}

// call performs a single best-effort round trip and folds every outcome into an
// envelope. validate may be nil.
func call[T any](ctx context.Context, c *Client, op, method, path string, query url.Values, body any, validate func(T) error) Envelope[T] {
	ctx, span := catalogTracer.Start(ctx, "catalog."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("catalog.path", path),
	)

	start := time.Now()
	env := roundTrip(ctx, c, op, method, path, query, body, validate)

	outcome := "ok"
	if !env.Success {
		outcome = string(env.Failure)
		span.SetAttributes(attribute.String("catalog.failure", outcome))
		if env.Failure != FailureRemote {
			span.SetStatus(codes.Error, env.Message)
		}
	}
	span.SetAttributes(attribute.Int("http.status_code", env.StatusCode))
	if c.observer != nil {
		c.observer.ObserveCatalogRequest(op, outcome, time.Since(start).Seconds())
	}
	return env
}

func roundTrip[T any](ctx context.Context, c *Client, op, method, path string, query url.Values, body any, validate func(T) error) Envelope[T] {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("catalog: marshal request", "operation", op, "error", err)
			return failure[T](FailureTransport, 0, MessageUnreachable)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		c.logger.Error("catalog: build request", "operation", op, "error", err)
		return failure[T](FailureTransport, 0, MessageUnreachable)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := MessageUnreachable
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			msg = MessageTimeout
		}
		c.logger.Warn("catalog: request failed", "operation", op, "path", path, "error", err)
		return failure[T](FailureTransport, 0, msg)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Warn("catalog: read response", "operation", op, "status", resp.StatusCode, "error", err)
		return failure[T](FailureTransport, resp.StatusCode, MessageUnreachable)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejected[T](c, op, path, resp.StatusCode, respBody)
	}

	var env Envelope[T]
	if err := json.Unmarshal(respBody, &env); err != nil {
		c.logger.Warn("catalog: decode response", "operation", op, "path", path, "error", err)
		return failure[T](FailureDecode, resp.StatusCode, MessageBadResponse)
	}
	env.StatusCode = resp.StatusCode
	if !env.Success {
		env.Failure = FailureRemote
		if strings.TrimSpace(env.Message) == "" {
			env.Message = MessageRejected
		}
		return env
	}
	if validate != nil {
		if err := validate(env.Data); err != nil {
			c.logger.Warn("catalog: response violates schema", "operation", op, "path", path, "error", err)
			return failure[T](FailureDecode, resp.StatusCode, MessageBadResponse)
		}
	}
	return env
}

// rejected handles non-2xx responses. A decodable failure envelope keeps the
// server's message and field errors; anything else is a transport failure.
func rejected[T any](c *Client, op, path string, status int, body []byte) Envelope[T] {
	var remote struct {
		Success bool        `json:"success"`
		Message string      `json:"message"`
		Errors  FieldErrors `json:"errors"`
	}
	if err := json.Unmarshal(body, &remote); err == nil && !remote.Success &&
		(strings.TrimSpace(remote.Message) != "" || len(remote.Errors) > 0) {
		env := failure[T](FailureRemote, status, remote.Message)
		env.Errors = remote.Errors
		if strings.TrimSpace(env.Message) == "" {
			env.Message = MessageRejected
		}
		return env
	}

	msg := string(body)
	if len(msg) > 300 {
		msg = msg[:300]
	}
	c.logger.Warn("catalog: non-2xx response", "operation", op, "status", status, "path", path, "body", msg)
	return failure[T](FailureTransport, status, MessageUnreachable)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
