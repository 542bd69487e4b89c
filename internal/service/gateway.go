// Package service implements the session action gateway.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"avatar-gateway/internal/config"
	"avatar-gateway/internal/metrics"
	"avatar-gateway/internal/model"
)

// ErrMissingCredential is returned when neither a caller token nor a static API key is available.
var ErrMissingCredential = errors.New("HeyGen credential required: set heygen.api_key in config or send a token")

// allowedUpstreamHosts restricts which hosts the gateway will call.
var allowedUpstreamHosts = map[string]bool{
	"api.heygen.com": true,
}

// Caller-facing messages.
const (
	msgNoCredential = "HeyGen API key not configured"
	msgTransport    = "Failed to reach HeyGen API"
	msgInternal     = "Failed to process HeyGen request"
)

const (
	headerAPIKey = "X-Api-Key"
	userAgent    = "avatar-gateway/1.0"
)

// Upstream performs a single POST against the HeyGen API and returns the drained response.
type Upstream interface {
	Post(ctx context.Context, action model.ActionName, url string, header http.Header, body []byte) (*model.UpstreamResponse, error)
}

// Gateway translates session actions into HeyGen calls. It holds no per-session
// state; every call is independent.
type Gateway struct {
	upstream Upstream
	apiKey   string
	baseURL  string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewGateway creates a Gateway. The metrics parameter is optional.
func NewGateway(up Upstream, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Gateway, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if !allowedUpstreamHosts[u.Hostname()] {
		return nil, fmt.Errorf("upstream host %q is not in the allowlist", u.Hostname())
	}
	return newGateway(up, cfg, logger, m), nil
}

// NewGatewayForTest creates a Gateway without host allowlist validation.
// This is intended only for tests that use httptest servers on localhost.
func NewGatewayForTest(up Upstream, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	return newGateway(up, cfg, logger, m)
}

func newGateway(up Upstream, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		upstream: up,
		apiKey:   cfg.HeyGen.APIKey,
		baseURL:  strings.TrimRight(cfg.Upstream.BaseURL, "/"),
		logger:   logger.With("component", "gateway"),
		metrics:  m,
	}
}

// Handle validates req, performs the matching HeyGen call, and reports the
// outcome. Unknown actions and bad params are rejected before any network I/O.
func (g *Gateway) Handle(ctx context.Context, req *model.ActionRequest) *model.GatewayResult {
	action, err := model.DecodeAction(req)
	if err != nil {
		return g.reject(req.Action, err)
	}
	return g.dispatch(ctx, action, req.Token)
}

// dispatch performs the upstream call for an already validated action.
func (g *Gateway) dispatch(ctx context.Context, action model.Action, token string) *model.GatewayResult {
	name := action.Name()

	header, err := g.authHeader(token)
	if err != nil {
		g.logger.Error("gateway misconfigured", "action", name, "err", err)
		g.count(name, metrics.OutcomeConfig)
		return model.Failure(http.StatusInternalServerError, msgNoCredential, "")
	}

	body, err := json.Marshal(action.Body())
	if err != nil {
		g.logger.Error("encode upstream body", "action", name, "err", err)
		return model.Failure(http.StatusInternalServerError, msgInternal, "")
	}

	// The exchange is not tied to the inbound request: once sent it runs to
	// completion or to the client timeout.
	resp, err := g.upstream.Post(context.WithoutCancel(ctx), name, g.baseURL+action.Endpoint(), header, body)
	var readErr *model.ReadError
	if errors.As(err, &readErr) && !isSuccess(readErr.StatusCode) {
		// The upstream already answered with an error status; report it
		// even though the body was lost.
		g.logger.Error("upstream error body unreadable", "action", name, "status", readErr.StatusCode, "err", err)
		g.count(name, metrics.OutcomeUpstreamError)
		return model.Failure(readErr.StatusCode, upstreamErrorMessage(readErr.StatusCode), "")
	}
	if err != nil {
		g.logger.Error("upstream unavailable",
			"action", name,
			"cause", transportCause(err),
			"err", err,
		)
		g.count(name, metrics.OutcomeTransport)
		return model.Failure(http.StatusInternalServerError, msgTransport, "")
	}

	return g.interpret(name, resp)
}

// authHeader builds the outbound headers. A caller token always wins and the
// static key is then omitted; the two are never sent together.
func (g *Gateway) authHeader(token string) (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", userAgent)

	switch {
	case token != "":
		h.Set("Authorization", "Bearer "+token)
	case g.apiKey != "":
		h.Set(headerAPIKey, g.apiKey)
	default:
		return nil, ErrMissingCredential
	}
	return h, nil
}

func (g *Gateway) interpret(name model.ActionName, resp *model.UpstreamResponse) *model.GatewayResult {
	if !isSuccess(resp.StatusCode) {
		g.logger.Error("upstream error",
			"action", name,
			"status", resp.StatusCode,
			"body_bytes", len(resp.RawBody),
		)
		g.count(name, metrics.OutcomeUpstreamError)
		return model.Failure(resp.StatusCode, upstreamErrorMessage(resp.StatusCode), resp.RawBody)
	}

	data, ok := parseJSON(resp.RawBody)
	if !ok {
		g.logger.Warn("upstream returned non-JSON success body", "action", name, "body_bytes", len(resp.RawBody))
		data = map[string]any{"raw": resp.RawBody}
	}
	g.count(name, metrics.OutcomeSuccess)
	return model.OK(data)
}

func isSuccess(code int) bool { return code >= 200 && code <= 299 }

func upstreamErrorMessage(code int) string {
	return fmt.Sprintf("HeyGen API error: %d", code)
}

func (g *Gateway) reject(action string, err error) *model.GatewayResult {
	g.logger.Warn("rejected action", "action", action, "err", err)
	g.count(model.ActionName(action), metrics.OutcomeRejected)

	if errors.Is(err, model.ErrUnknownAction) {
		return model.Failure(http.StatusBadRequest, "Unknown action: "+action, "")
	}
	return model.Failure(http.StatusBadRequest, "Invalid parameters for "+action, err.Error())
}

func (g *Gateway) count(name model.ActionName, outcome string) {
	if g.metrics == nil {
		return
	}
	g.metrics.ActionsTotal.WithLabelValues(metrics.NormalizeAction(string(name)), outcome).Inc()
}

// parseJSON decodes a single JSON document, keeping numbers verbatim so they
// survive re-encoding. Trailing data counts as a parse failure.
func parseJSON(s string) (any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	return v, true
}

// transportCause gives a short log label for a failed exchange.
func transportCause(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection"
	}
	return "other"
}
