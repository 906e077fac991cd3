package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/pixaverse-studios/luna-gateway/internal/observability"
	"github.com/pixaverse-studios/luna-gateway/internal/realtime"
)

// AuthorizationHeader is the backend-specific bearer header. The voice
// backend does not accept the standard Authorization header.
const AuthorizationHeader = "X-Luna-Authorization"

const (
	clientSecretsPath   = "/v1/realtime/client_secrets"
	callsPath           = "/v1/realtime/calls"
	telephonyConfigPath = "/plivo/configure"
)

// Result is one relayed backend response. Non-2xx statuses are carried
// here, not as errors: the gateway has no ability to interpret the
// backend's error semantics, so status and body go back to the caller
// byte-for-byte.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client performs the credential-scoped relay calls to the voice
// backend. It holds no per-request state; every method is safe for
// concurrent use.
type Client struct {
	http    *resty.Client
	logger  *zap.SugaredLogger
	metrics *observability.Metrics
}

// NewClient builds a relay client for the given backend base URL. The
// timeout is the explicit upstream-call budget; there is no retry.
func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger, metrics *observability.Metrics) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", "luna-gateway"),
		logger:  logger,
		metrics: metrics,
	}
}

// CreateClientSecret mints a short-lived ephemeral token bound to the
// given session configuration. Requires the long-lived API key.
func (c *Client) CreateClientSecret(ctx context.Context, apiKey string, session realtime.Session) (Result, error) {
	return c.post(ctx, "client_secret", clientSecretsPath, apiKey, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(map[string]any{"session": session})
	})
}

// AnswerSDP redeems an ephemeral token: the SDP offer goes up as a raw
// application/sdp body and the backend's SDP answer comes back in the
// result. No session is sent on this leg; the configuration was bound
// into the token at issuance time.
func (c *Client) AnswerSDP(ctx context.Context, ephemeralToken, offer string) (Result, error) {
	return c.post(ctx, "calls_sdp", callsPath, ephemeralToken, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/sdp")
		r.SetBody(offer)
	})
}

// AnswerSDPWithSession is the direct-key variant: SDP offer and session
// configuration travel together as a two-part multipart form.
func (c *Client) AnswerSDPWithSession(ctx context.Context, apiKey, offer string, session realtime.Session) (Result, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return Result{}, fmt.Errorf("marshal session: %w", err)
	}
	return c.post(ctx, "calls_multipart", callsPath, apiKey, func(r *resty.Request) {
		r.SetMultipartFormData(map[string]string{
			"sdp":     offer,
			"session": string(payload),
		})
	})
}

// ConfigureTelephony mints a config token carrying the session
// configuration for one telephony stream connection.
func (c *Client) ConfigureTelephony(ctx context.Context, apiKey string, session realtime.Session) (Result, error) {
	return c.post(ctx, "telephony_config", telephonyConfigPath, apiKey, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(map[string]any{"session": session})
	})
}

func (c *Client) post(ctx context.Context, flow, path, credential string, build func(*resty.Request)) (Result, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader(AuthorizationHeader, "Bearer "+credential)
	build(req)

	start := time.Now()
	resp, err := req.Post(path)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveUnreachable(flow, elapsed)
		c.logger.Warnw("backend unreachable", "flow", flow, "path", path, "error", err)
		return Result{}, &ConnectivityError{Err: err}
	}

	c.metrics.ObserveUpstream(flow, resp.StatusCode(), elapsed)
	if resp.IsError() {
		c.logger.Debugw("backend returned error status", "flow", flow, "path", path, "status", resp.StatusCode())
	}
	return Result{
		StatusCode:  resp.StatusCode(),
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}
