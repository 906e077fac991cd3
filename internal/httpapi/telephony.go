package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pixaverse-studios/luna-gateway/internal/realtime"
	"github.com/pixaverse-studios/luna-gateway/internal/telephony"
)

// handleConfigToken mints a config token for one telephony stream
// connection. Same completion-and-relay shape as the WebRTC token
// endpoint, against the telephony configure path.
func (s *Server) handleConfigToken(w http.ResponseWriter, r *http.Request) {
	var overrides realtime.Overrides
	if err := decodeJSON(r, &overrides); err != nil && !errors.Is(err, errEmptyBody) {
		s.metrics.RelayRejections.WithLabelValues("telephony_config", "validation").Inc()
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	key, ok := s.apiKey(w, "telephony_config")
	if !ok {
		return
	}

	res, err := s.upstream.ConfigureTelephony(r.Context(), key, realtime.Build(s.profile(), overrides))
	if err != nil {
		s.respondRelayError(w, err)
		return
	}
	relay(w, res, "application/json")
}

// handleAnswer renders the provider answer document. The provider
// fetches this URL when a call is answered and then opens its own
// stream connection to the backend; the gateway never joins that leg.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form body", err.Error())
		return
	}
	key, ok := s.apiKey(w, "telephony_answer")
	if !ok {
		return
	}

	doc, err := telephony.RenderAnswer(s.cfg.Upstream.StreamURL, key, telephony.AnswerParams{
		ConfigToken:    r.FormValue("config_token"),
		Temperature:    r.FormValue("temperature"),
		SilenceTimeout: r.FormValue("silence_timeout"),
		VADThreshold:   r.FormValue("vad_threshold"),
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to render answer document", err.Error())
		return
	}

	s.metrics.AnswerDocuments.Inc()
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

type outboundCallRequest struct {
	ToNumber       string   `json:"to_number"`
	FromNumber     string   `json:"from_number"`
	Instruction    string   `json:"instruction"`
	Temperature    *float64 `json:"temperature"`
	SilenceTimeout *int     `json:"silence_timeout"`
}

// handleOutboundCall places a call through the telephony provider with
// an answer URL pointing back at handleAnswer. A config token is minted
// first when the backend is reachable; on mint failure the call still
// goes out and the answer document falls back to inline overrides.
func (s *Server) handleOutboundCall(w http.ResponseWriter, r *http.Request) {
	var req outboundCallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.ToNumber) == "" {
		respondError(w, http.StatusBadRequest, "missing to_number", "")
		return
	}
	if strings.TrimSpace(req.FromNumber) == "" {
		respondError(w, http.StatusBadRequest, "missing from_number", "")
		return
	}
	if s.dialer == nil {
		respondError(w, http.StatusInternalServerError, "telephony provider is not configured", "")
		return
	}

	configToken := s.mintConfigToken(r, req)

	// Temperature is bound into the minted token; silence_timeout is a
	// stream-level knob and always travels on the answer URL.
	q := url.Values{}
	if configToken != "" {
		q.Set("config_token", configToken)
	} else if req.Temperature != nil {
		q.Set("temperature", strconv.FormatFloat(*req.Temperature, 'f', -1, 64))
	}
	if req.SilenceTimeout != nil {
		q.Set("silence_timeout", strconv.Itoa(*req.SilenceTimeout))
	}
	answerURL := s.cfg.AnswerURL()
	if len(q) > 0 {
		answerURL += "?" + q.Encode()
	}

	callUUID, err := s.dialer.Dial(telephony.CallRequest{
		From:      req.FromNumber,
		To:        req.ToNumber,
		AnswerURL: answerURL,
	})
	if err != nil {
		s.metrics.OutboundCalls.WithLabelValues("error").Inc()
		s.logger.Errorw("outbound call failed", "to", req.ToNumber, "error", err)
		respondError(w, http.StatusBadGateway, "failed to create call", err.Error())
		return
	}

	s.metrics.OutboundCalls.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"call_uuid":  callUUID,
		"message":    "call initiated",
		"answer_url": answerURL,
	})
}

// mintConfigToken best-effort mints a config token for an outbound
// call. Failures are logged, never fatal: the call proceeds with
// inline overrides instead.
func (s *Server) mintConfigToken(r *http.Request, req outboundCallRequest) string {
	key := strings.TrimSpace(s.cfg.Upstream.APIKey)
	if key == "" {
		return ""
	}

	session := realtime.Build(s.profile(), realtime.Overrides{
		Instruction: req.Instruction,
		Temperature: req.Temperature,
	})
	res, err := s.upstream.ConfigureTelephony(r.Context(), key, session)
	if err != nil {
		s.logger.Warnw("config token mint failed", "error", err)
		return ""
	}
	if !res.OK() {
		s.logger.Warnw("config token mint rejected", "status", res.StatusCode)
		return ""
	}

	var minted struct {
		ConfigToken string `json:"config_token"`
	}
	if err := json.Unmarshal(res.Body, &minted); err != nil {
		s.logger.Warnw("config token response unreadable", "error", err)
		return ""
	}
	return minted.ConfigToken
}
