package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pixaverse-studios/luna-gateway/internal/observability"
	"github.com/pixaverse-studios/luna-gateway/internal/realtime"
)

var testSession = realtime.Build(realtime.Profile{
	Model:           "luna-realtime",
	Voice:           "luna",
	TranscribeModel: "whisper-1",
}, realtime.Overrides{})

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	metrics := observability.NewMetrics(testNamespace(t))
	return NewClient(baseURL, 5*time.Second, zap.NewNop().Sugar(), metrics)
}

// testNamespace derives a metrics namespace from the test name so each
// test registers distinct instruments against the default registry.
func testNamespace(t *testing.T) string {
	return "test_upstream_" + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(t.Name()))
}

func TestCreateClientSecretSendsBearerAndSessionEnvelope(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]json.RawMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(AuthorizationHeader)
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":"ek_test","expires_at":1700000000}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	res, err := client.CreateClientSecret(context.Background(), "sk-long-lived", testSession)
	if err != nil {
		t.Fatalf("CreateClientSecret() error = %v", err)
	}
	if gotAuth != "Bearer sk-long-lived" {
		t.Fatalf("auth header = %q, want %q", gotAuth, "Bearer sk-long-lived")
	}
	if gotPath != "/v1/realtime/client_secrets" {
		t.Fatalf("path = %q, want token issuance path", gotPath)
	}
	if _, ok := gotBody["session"]; !ok {
		t.Fatalf("request body missing session envelope: %v", gotBody)
	}
	if !res.OK() || string(res.Body) != `{"value":"ek_test","expires_at":1700000000}` {
		t.Fatalf("result = %d %q, want backend body verbatim", res.StatusCode, res.Body)
	}
}

func TestAnswerSDPSendsRawOffer(t *testing.T) {
	const offer = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\n"
	var gotContentType, gotBody, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get(AuthorizationHeader)
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/sdp")
		w.Write([]byte("v=0\r\nanswer"))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	res, err := client.AnswerSDP(context.Background(), "ek_tok", offer)
	if err != nil {
		t.Fatalf("AnswerSDP() error = %v", err)
	}
	if gotContentType != "application/sdp" {
		t.Fatalf("content type = %q, want application/sdp", gotContentType)
	}
	if gotBody != offer {
		t.Fatalf("body = %q, want raw offer", gotBody)
	}
	if gotAuth != "Bearer ek_tok" {
		t.Fatalf("auth header = %q, want ephemeral token bearer", gotAuth)
	}
	if string(res.Body) != "v=0\r\nanswer" {
		t.Fatalf("answer = %q, want backend SDP verbatim", res.Body)
	}
}

func TestAnswerSDPWithSessionSendsMultipartParts(t *testing.T) {
	var gotSDP, gotSessionJSON string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotSDP = r.FormValue("sdp")
		gotSessionJSON = r.FormValue("session")
		w.Header().Set("Content-Type", "application/sdp")
		w.Write([]byte("v=0\r\nanswer"))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	res, err := client.AnswerSDPWithSession(context.Background(), "sk-long-lived", "v=0\r\noffer", testSession)
	if err != nil {
		t.Fatalf("AnswerSDPWithSession() error = %v", err)
	}
	if gotSDP != "v=0\r\noffer" {
		t.Fatalf("sdp part = %q, want offer", gotSDP)
	}
	var sess map[string]any
	if err := json.Unmarshal([]byte(gotSessionJSON), &sess); err != nil {
		t.Fatalf("session part is not JSON: %v", err)
	}
	if sess["model"] != "luna-realtime" {
		t.Fatalf("session part model = %v, want configured model", sess["model"])
	}
	if !res.OK() {
		t.Fatalf("status = %d, want success", res.StatusCode)
	}
}

func TestNonSuccessStatusIsRelayedNotAnError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer ts.Close()

	client := newTestClient(t, ts.URL)
	res, err := client.ConfigureTelephony(context.Background(), "sk", testSession)
	if err != nil {
		t.Fatalf("ConfigureTelephony() error = %v, want nil for backend 503", err)
	}
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", res.StatusCode)
	}
	if string(res.Body) != "overloaded" {
		t.Fatalf("body = %q, want backend body byte-for-byte", res.Body)
	}
}

func TestUnreachableBackendReturnsConnectivityError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // take the listener down so the dial is refused

	client := newTestClient(t, ts.URL)
	_, err := client.CreateClientSecret(context.Background(), "sk", testSession)
	if err == nil {
		t.Fatalf("CreateClientSecret() expected connectivity error")
	}
	var connErr *ConnectivityError
	if !errors.As(err, &connErr) {
		t.Fatalf("error = %T, want *ConnectivityError", err)
	}
	if !strings.Contains(connErr.Error(), "failed to connect to backend") {
		t.Fatalf("error message = %q, want generic connect failure prefix", connErr.Error())
	}
}
