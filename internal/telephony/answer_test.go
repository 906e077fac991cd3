package telephony

import (
	"encoding/xml"
	"net/url"
	"strings"
	"testing"
)

func TestRenderAnswerEmbedsCredentialAndToken(t *testing.T) {
	doc, err := RenderAnswer("wss://voice.example.com/plivo/stream", "sk-long-lived", AnswerParams{
		ConfigToken: "abc123",
	})
	if err != nil {
		t.Fatalf("RenderAnswer() error = %v", err)
	}

	var parsed answerDocument
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("answer document is not well-formed XML: %v\n%s", err, doc)
	}

	u, err := url.Parse(parsed.Stream.URL)
	if err != nil {
		t.Fatalf("stream URL parse error: %v", err)
	}
	if u.Scheme != "wss" {
		t.Fatalf("stream scheme = %q, want wss", u.Scheme)
	}
	q := u.Query()
	if q.Get("api_key") != "sk-long-lived" {
		t.Fatalf("api_key = %q, want configured credential", q.Get("api_key"))
	}
	if q.Get("config_token") != "abc123" {
		t.Fatalf("config_token = %q, want abc123", q.Get("config_token"))
	}

	if !parsed.Stream.Bidirectional || !parsed.Stream.KeepCallAlive {
		t.Fatalf("stream directive = %+v, want bidirectional keep-alive", parsed.Stream)
	}
	if parsed.Stream.StreamTimeout != 86400 {
		t.Fatalf("streamTimeout = %d, want 86400", parsed.Stream.StreamTimeout)
	}
	if parsed.Stream.ContentType != "audio/x-mulaw;rate=8000" {
		t.Fatalf("contentType = %q, want mulaw descriptor", parsed.Stream.ContentType)
	}
	if got := strings.Count(doc, "<Stream "); got != 1 {
		t.Fatalf("Stream directives = %d, want exactly 1\n%s", got, doc)
	}
}

func TestRenderAnswerForwardsOverrides(t *testing.T) {
	doc, err := RenderAnswer("wss://voice.example.com/plivo/stream", "sk", AnswerParams{
		Temperature:    "0.3",
		SilenceTimeout: "45",
		VADThreshold:   "0.7",
	})
	if err != nil {
		t.Fatalf("RenderAnswer() error = %v", err)
	}

	var parsed answerDocument
	if err := xml.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("answer document is not well-formed XML: %v", err)
	}
	q, err := url.Parse(parsed.Stream.URL)
	if err != nil {
		t.Fatalf("stream URL parse error: %v", err)
	}
	values := q.Query()
	if values.Get("temperature") != "0.3" || values.Get("silence_timeout") != "45" || values.Get("vad_threshold") != "0.7" {
		t.Fatalf("overrides not forwarded: %v", values)
	}
	if values.Get("config_token") != "" {
		t.Fatalf("config_token = %q, want absent when not provided", values.Get("config_token"))
	}
}

func TestRenderAnswerRequiresStreamURL(t *testing.T) {
	if _, err := RenderAnswer("  ", "sk", AnswerParams{}); err == nil {
		t.Fatalf("RenderAnswer() expected error for empty stream URL")
	}
}

func TestNewPlivoDialerRequiresCredentials(t *testing.T) {
	if _, err := NewPlivoDialer("", ""); err == nil {
		t.Fatalf("NewPlivoDialer() expected error for missing credentials")
	}
}
