package clinicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

const (
	defaultBaseURL = "https://backend-dashboard-v3o0.onrender.com"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 300
)

var tracer = otel.Tracer("clinicportal.clinicapi")

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoSession
	}
	return string(t), nil
}

// Config holds configuration for the backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.BackendMetrics
}

// Client wraps every REST call the portal makes to the clinic backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	metrics    *metrics.BackendMetrics
	tokens     TokenSource
}

// New constructs a backend client. Authenticated calls fail with
// ErrNoSession until a token source is attached with WithTokens.
func New(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

// WithTokens returns a copy of the client that authenticates with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// envelope captures the status/message fields the backend adds to most
// bodies. status is raw because some payloads use it for other purposes.
type envelope struct {
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
}

// accepted treats status the way a truthiness check would: absent, null,
// false, 0 and "" are rejections, anything else is success.
func (e envelope) accepted() bool {
	var v any
	if err := json.Unmarshal(e.Status, &v); err != nil {
		return false
	}
	switch s := v.(type) {
	case nil:
		return false
	case bool:
		return s
	case float64:
		return s != 0
	case string:
		return s != ""
	default:
		return true
	}
}

type call struct {
	op     string
	method string
	path   string
	auth   bool
	body   any
	out    any
}

func (c *Client) do(ctx context.Context, cl call) (err error) {
	ctx, span := tracer.Start(ctx, "clinicapi."+cl.op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", cl.method),
		attribute.String("clinicapi.path", cl.path),
	)

	start := time.Now()
	defer func() {
		outcome := outcomeOf(err)
		c.metrics.ObserveRequest(cl.op, outcome, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	var bodyReader io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("clinicapi: %s: marshal request: %w", cl.op, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, bodyReader)
	if err != nil {
		return fmt.Errorf("clinicapi: %s: build request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		if c.tokens == nil {
			return fmt.Errorf("clinicapi: %s: %w", cl.op, ErrNoSession)
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("clinicapi: %s: %w", cl.op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: cl.op, Err: fmt.Errorf("read response: %w", err)}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		c.logger.Warn("clinic backend non-2xx response", "op", cl.op, "status", resp.StatusCode, "path", cl.path, "body", msg)
		return &HTTPError{Op: cl.op, StatusCode: resp.StatusCode, Body: msg}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err == nil && string(bytes.TrimSpace(env.Status)) == "false" {
		c.logger.Info("clinic backend rejected request", "op", cl.op, "message", env.Message)
		return &LogicalError{Op: cl.op, Message: env.Message}
	}

	if cl.out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, cl.out); err != nil {
		return fmt.Errorf("clinicapi: %s: decode response: %w", cl.op, err)
	}
	return nil
}

func outcomeOf(err error) string {
	var httpErr *HTTPError
	var logical *LogicalError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &httpErr):
		return metrics.OutcomeHTTP
	case errors.As(err, &logical):
		return metrics.OutcomeLogical
	default:
		return metrics.OutcomeTransport
	}
}
