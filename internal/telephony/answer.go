package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Stream directive attributes fixed by the bridging contract: the
// provider keeps one bidirectional mulaw stream open for up to a day.
const (
	streamTimeoutSeconds = 86400
	streamContentType    = "audio/x-mulaw;rate=8000"
)

type answerDocument struct {
	XMLName xml.Name      `xml:"Response"`
	Stream  streamElement `xml:"Stream"`
}

type streamElement struct {
	Bidirectional bool   `xml:"bidirectional,attr"`
	KeepCallAlive bool   `xml:"keepCallAlive,attr"`
	StreamTimeout int    `xml:"streamTimeout,attr"`
	ContentType   string `xml:"contentType,attr"`
	URL           string `xml:",chardata"`
}

// AnswerParams are the per-call knobs forwarded to the stream endpoint
// as query parameters. Scalars stay strings: the gateway transports
// them, it does not interpret them.
type AnswerParams struct {
	ConfigToken    string
	Temperature    string
	SilenceTimeout string
	VADThreshold   string
}

// RenderAnswer produces the provider answer document: a single Stream
// directive whose URL points the provider's media connection at the
// backend stream endpoint, with the API key and any overrides embedded
// as query parameters. The gateway never opens this WebSocket itself.
func RenderAnswer(streamURL, apiKey string, p AnswerParams) (string, error) {
	if strings.TrimSpace(streamURL) == "" {
		return "", errors.New("stream URL is not configured")
	}
	u, err := url.Parse(streamURL)
	if err != nil {
		return "", fmt.Errorf("parse stream URL: %w", err)
	}

	q := u.Query()
	q.Set("api_key", apiKey)
	if p.ConfigToken != "" {
		q.Set("config_token", p.ConfigToken)
	}
	if p.Temperature != "" {
		q.Set("temperature", p.Temperature)
	}
	if p.SilenceTimeout != "" {
		q.Set("silence_timeout", p.SilenceTimeout)
	}
	if p.VADThreshold != "" {
		q.Set("vad_threshold", p.VADThreshold)
	}
	u.RawQuery = q.Encode()

	doc := answerDocument{
		Stream: streamElement{
			Bidirectional: true,
			KeepCallAlive: true,
			StreamTimeout: streamTimeoutSeconds,
			ContentType:   streamContentType,
			URL:           u.String(),
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
