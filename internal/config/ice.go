package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// parseICEServers builds the client-facing ICE catalog from the env
// representation. An empty catalog is returned as an empty (non-nil)
// slice so JSON responses consistently encode as `[]` rather than
// `null`.
func parseICEServers(ice ICEConfig) ([]webrtc.ICEServer, error) {
	servers := []webrtc.ICEServer{}

	if stun := splitCommaSeparated(ice.StunURLs); len(stun) > 0 {
		server := webrtc.ICEServer{URLs: stun}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("ICE__STUN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	if turn := splitCommaSeparated(ice.TurnURLs); len(turn) > 0 {
		username := strings.TrimSpace(ice.TurnUsername)
		credential := strings.TrimSpace(ice.TurnCredential)
		if username == "" || credential == "" {
			return nil, errors.New("ICE__TURN_USERNAME and ICE__TURN_CREDENTIAL must both be set when ICE__TURN_URLS is set")
		}
		server := webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: credential,
		}
		if err := validateICEServer(server); err != nil {
			return nil, fmt.Errorf("ICE__TURN_URLS: %w", err)
		}
		servers = append(servers, server)
	}

	return servers, nil
}

func splitCommaSeparated(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func validateICEServer(server webrtc.ICEServer) error {
	if len(server.URLs) == 0 {
		return errors.New("missing urls")
	}
	for _, raw := range server.URLs {
		url := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case strings.HasPrefix(url, "stun:"),
			strings.HasPrefix(url, "stuns:"),
			strings.HasPrefix(url, "turn:"),
			strings.HasPrefix(url, "turns:"):
		default:
			return fmt.Errorf("unsupported url scheme: %q", raw)
		}
	}
	return nil
}
