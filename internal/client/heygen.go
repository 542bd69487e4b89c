// Package client provides the upstream HTTP client for the HeyGen API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"avatar-gateway/internal/config"
	"avatar-gateway/internal/metrics"
	"avatar-gateway/internal/model"
)

// maxBodyBytes caps how much of an upstream reply is buffered.
const maxBodyBytes = 8 << 20

// HeyGenClient sends requests to the upstream HeyGen API.
type HeyGenClient struct {
	httpClient *http.Client
	maxBody    int64
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewHeyGenClient creates a HeyGenClient with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewHeyGenClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *HeyGenClient {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &HeyGenClient{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
			// A redirect would repeat the POST, credentials included, against
			// a host nobody vetted. The 3xx is handed back as is.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBody: maxBodyBytes,
		logger:  logger.With("component", "heygen_client"),
		metrics: m,
	}
}

// Post sends body to url and drains the whole response before returning.
// Redirects are never followed. A *model.ReadError carries the status when
// the reply arrived but its body could not be read or exceeded the cap.
func (c *HeyGenClient) Post(ctx context.Context, action model.ActionName, url string, header http.Header, body []byte) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header

	c.logger.Debug("upstream request",
		"action", action,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(action, start, "")
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	c.observe(action, start, strconv.Itoa(resp.StatusCode))
	if err == nil && int64(len(raw)) > c.maxBody {
		err = model.ErrBodyTooLarge
	}
	if err != nil {
		return nil, &model.ReadError{StatusCode: resp.StatusCode, Err: err}
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		RawBody:    string(raw),
	}, nil
}

// observe records latency, and the response status when one was received.
func (c *HeyGenClient) observe(action model.ActionName, start time.Time, status string) {
	if c.metrics == nil {
		return
	}
	label := metrics.NormalizeAction(string(action))
	c.metrics.UpstreamDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if status != "" {
		c.metrics.UpstreamResponses.WithLabelValues(label, status).Inc()
	}
}
