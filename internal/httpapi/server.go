package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pixaverse-studios/luna-gateway/internal/config"
	"github.com/pixaverse-studios/luna-gateway/internal/observability"
	"github.com/pixaverse-studios/luna-gateway/internal/realtime"
	"github.com/pixaverse-studios/luna-gateway/internal/telephony"
	"github.com/pixaverse-studios/luna-gateway/internal/upstream"
)

// Server exposes the gateway HTTP surface. All handlers are stateless
// request/response transforms with at most one outbound call.
type Server struct {
	cfg      *config.AppConfig
	logger   *zap.SugaredLogger
	upstream *upstream.Client
	dialer   telephony.Dialer
	metrics  *observability.Metrics
}

// New wires the server. dialer may be nil when the telephony provider
// account is not configured; outbound calling then fails with a
// configuration error while every other endpoint keeps working.
func New(cfg *config.AppConfig, logger *zap.SugaredLogger, client *upstream.Client, dialer telephony.Dialer, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		upstream: client,
		dialer:   dialer,
		metrics:  metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(allowAllOrigins)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/realtime/token", s.handleCreateToken)
	r.Post("/v1/realtime/offer", s.handleOffer)
	r.Post("/v1/realtime/offer/direct", s.handleOfferDirect)
	r.Get("/v1/realtime/ice-servers", s.handleICEServers)

	r.Post("/v1/telephony/config-token", s.handleConfigToken)
	r.Get("/v1/telephony/answer", s.handleAnswer)
	r.Post("/v1/telephony/answer", s.handleAnswer)
	r.Post("/v1/telephony/call", s.handleOutboundCall)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": s.cfg.Name,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "ready",
		"telephony_enabled": s.dialer != nil,
		"upstream_base_url": s.cfg.Upstream.BaseURL,
		"upstream_key_set":  strings.TrimSpace(s.cfg.Upstream.APIKey) != "",
	})
}

// profile returns the operator-configured session fields callers
// cannot override.
func (s *Server) profile() realtime.Profile {
	return realtime.Profile{
		Model:           s.cfg.Upstream.Model,
		Voice:           s.cfg.Upstream.Voice,
		TranscribeModel: s.cfg.Upstream.TranscribeModel,
	}
}

// apiKey returns the long-lived credential, or responds with a
// configuration error and reports false when it is absent. The check
// runs before any network call so a misdeployment fails fast.
func (s *Server) apiKey(w http.ResponseWriter, flow string) (string, bool) {
	key := strings.TrimSpace(s.cfg.Upstream.APIKey)
	if key == "" {
		s.metrics.RelayRejections.WithLabelValues(flow, "configuration").Inc()
		respondError(w, http.StatusInternalServerError, "upstream api key is not configured", "")
		return "", false
	}
	return key, true
}

// relay copies a backend response to the caller unchanged.
func relay(w http.ResponseWriter, res upstream.Result, fallbackType string) {
	contentType := res.ContentType
	if contentType == "" {
		contentType = fallbackType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(res.Body)
}

// respondRelayError maps a relay failure to the gateway-error status.
// Backend error statuses never reach this path; they are relayed.
func (s *Server) respondRelayError(w http.ResponseWriter, err error) {
	var connErr *upstream.ConnectivityError
	if errors.As(err, &connErr) {
		respondError(w, http.StatusBadGateway, "failed to connect to backend", connErr.Unwrap().Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "relay failed", err.Error())
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		// A body with zero bytes surfaces as plain io.EOF. Truncated
		// JSON is io.ErrUnexpectedEOF and stays a caller error.
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, errorResponse{Error: message, Details: details})
}
