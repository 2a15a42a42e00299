// Package upstream talks to the external administrative backend.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/metrics"
)

const maxBodyBytes = 8 << 20

var tracer = otel.Tracer("crms-frontend/upstream")

type requestIDKey struct{}

// WithRequestID makes Do forward id instead of generating a fresh one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Response is a raw backend answer.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Err classifies a non-2xx answer: 404 is NotFound, anything else an UpstreamError
// carrying the backend's message.
func (r Response) Err(resource string) error {
	if r.OK() {
		return nil
	}
	if r.Status == http.StatusNotFound {
		return domain.NotFoundError{Resource: resource}
	}
	return domain.UpstreamError{Status: r.Status, Msg: Message(r.Body)}
}

// Message extracts message or error from a backend error body.
func Message(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	if s, ok := payload.Error.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// RawBody is sent as-is instead of being JSON encoded. Multipart form
// uploads travel this way.
type RawBody struct {
	ContentType string
	Data        []byte
}

type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	requestIDHeader string
}

// New returns a client rooted at baseURL.
func New(baseURL string, timeout time.Duration, requestIDHeader string) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid backend base url: %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		requestIDHeader: requestIDHeader,
	}, nil
}

// Do issues one backend call with the bearer token attached. A non-nil error
// means the call never produced a response; status handling is left to the caller.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, token string, body any) (Response, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	ctx, span := tracer.Start(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", u.Path),
		),
	)
	defer span.End()

	var reader io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case RawBody:
		reader = bytes.NewReader(b.Data)
		contentType = b.ContentType
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			span.RecordError(err)
			return Response{}, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		span.RecordError(err)
		return Response{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, requestIDFrom(ctx))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(method, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return Response{}, errors.Wrapf(err, "%s %s", method, u.Path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.ObserveUpstream(method, resp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return Response{}, errors.Wrapf(err, "read %s %s", method, u.Path)
	}
	if resp.StatusCode >= 500 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return Response{Status: resp.StatusCode, Body: raw}, nil
}
