package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pixaverse-studios/luna-gateway/internal/realtime"
)

// handleCreateToken mints an ephemeral token for one browser WebRTC
// session. The caller's partial session config is completed with
// defaults and bound into the token upstream; the backend's
// {value, expires_at} response is relayed verbatim.
func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var overrides realtime.Overrides
	if err := decodeJSON(r, &overrides); err != nil && !errors.Is(err, errEmptyBody) {
		s.metrics.RelayRejections.WithLabelValues("client_secret", "validation").Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	key, ok := s.apiKey(w, "client_secret")
	if !ok {
		return
	}

	res, err := s.upstream.CreateClientSecret(r.Context(), key, realtime.Build(s.profile(), overrides))
	if err != nil {
		s.respondRelayError(w, err)
		return
	}
	relay(w, res, "application/json")
}

type ephemeralOfferRequest struct {
	SDP            string `json:"sdp"`
	EphemeralToken string `json:"ephemeral_token"`
}

// handleOffer redeems an ephemeral token: raw SDP offer up, SDP answer
// back. No session config travels on this leg.
func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req ephemeralOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RelayRejections.WithLabelValues("calls_sdp", "validation").Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.SDP) == "" {
		s.metrics.RelayRejections.WithLabelValues("calls_sdp", "validation").Inc()
		respondError(w, http.StatusBadRequest, "missing sdp", "")
		return
	}
	if strings.TrimSpace(req.EphemeralToken) == "" {
		s.metrics.RelayRejections.WithLabelValues("calls_sdp", "validation").Inc()
		respondError(w, http.StatusBadRequest, "missing ephemeral_token", "")
		return
	}

	res, err := s.upstream.AnswerSDP(r.Context(), req.EphemeralToken, req.SDP)
	if err != nil {
		s.respondRelayError(w, err)
		return
	}
	relay(w, res, "application/sdp")
}

type directOfferRequest struct {
	SDP string `json:"sdp"`
	realtime.Overrides
}

// handleOfferDirect relays an offer under the long-lived key, with the
// session config alongside as a multipart form. SDP presence is
// validated here exactly like the ephemeral variant.
func (s *Server) handleOfferDirect(w http.ResponseWriter, r *http.Request) {
	var req directOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.RelayRejections.WithLabelValues("calls_multipart", "validation").Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.SDP) == "" {
		s.metrics.RelayRejections.WithLabelValues("calls_multipart", "validation").Inc()
		respondError(w, http.StatusBadRequest, "missing sdp", "")
		return
	}
	key, ok := s.apiKey(w, "calls_multipart")
	if !ok {
		return
	}

	res, err := s.upstream.AnswerSDPWithSession(r.Context(), key, req.SDP, realtime.Build(s.profile(), req.Overrides))
	if err != nil {
		s.respondRelayError(w, err)
		return
	}
	relay(w, res, "application/sdp")
}

// handleICEServers returns the ICE server catalog browsers should use
// when constructing their peer connection.
func (s *Server) handleICEServers(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.cfg.ICEServers)
}
