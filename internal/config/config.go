package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/viper"
)

// AppConfig is the process-wide immutable configuration record. It is
// built once at startup and passed explicitly into every component
// constructor; nothing reads the environment after Load returns.
type AppConfig struct {
	Name            string        `mapstructure:"service_name" validate:"required"`
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"required"`
	LogLevel        string        `mapstructure:"log_level" validate:"required"`
	PublicURL       string        `mapstructure:"public_url" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	MetricsNamespace string `mapstructure:"metrics_namespace" validate:"required"`

	Upstream UpstreamConfig `mapstructure:"upstream"`
	Plivo    PlivoConfig    `mapstructure:"plivo"`
	ICE      ICEConfig      `mapstructure:"ice"`

	// ICEServers is derived from the ICE section during Load.
	ICEServers []webrtc.ICEServer `mapstructure:"-"`
}

// UpstreamConfig describes the voice backend the gateway relays to.
//
// APIKey is deliberately not required at startup: endpoints that need
// it fail per-request with a configuration error, so token-free
// surfaces (health, ICE catalog, ephemeral offer relay) keep working
// on a partially configured deployment.
type UpstreamConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"required"`
	Model           string        `mapstructure:"model" validate:"required"`
	Voice           string        `mapstructure:"voice" validate:"required"`
	TranscribeModel string        `mapstructure:"transcribe_model" validate:"required"`
	StreamURL       string        `mapstructure:"stream_url"`
}

// PlivoConfig carries the telephony provider account. Both fields empty
// means outbound calling is disabled; the answer endpoint still works.
type PlivoConfig struct {
	AuthID    string `mapstructure:"auth_id"`
	AuthToken string `mapstructure:"auth_token"`
}

// ICEConfig is the raw env representation of the ICE server catalog.
// URL lists are comma-separated.
type ICEConfig struct {
	StunURLs       string `mapstructure:"stun_urls"`
	TurnURLs       string `mapstructure:"turn_urls"`
	TurnUsername   string `mapstructure:"turn_username"`
	TurnCredential string `mapstructure:"turn_credential"`
}

// Load reads configuration from the environment (and an optional .env
// file pointed at by ENV_PATH), applies defaults, and validates.
func Load() (*AppConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		v.SetConfigFile(path)
	}
	v.AutomaticEnv()
	setDefaults(v)
	// A config file is optional; env variables and defaults still apply.
	_ = v.ReadInConfig()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Upstream.BaseURL), "/")
	if strings.TrimSpace(cfg.Upstream.StreamURL) == "" {
		derived, err := deriveStreamURL(cfg.Upstream.BaseURL)
		if err != nil {
			return nil, err
		}
		cfg.Upstream.StreamURL = derived
	}

	servers, err := parseICEServers(cfg.ICE)
	if err != nil {
		return nil, err
	}
	cfg.ICEServers = servers

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "luna-gateway")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 8090)
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("PUBLIC_URL", "http://localhost:8090")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("METRICS_NAMESPACE", "luna_gateway")

	v.SetDefault("UPSTREAM__BASE_URL", "https://api.luna.pixaverse.studios")
	v.SetDefault("UPSTREAM__API_KEY", "")
	v.SetDefault("UPSTREAM__TIMEOUT", "30s")
	v.SetDefault("UPSTREAM__MODEL", "luna-realtime")
	v.SetDefault("UPSTREAM__VOICE", "luna")
	v.SetDefault("UPSTREAM__TRANSCRIBE_MODEL", "whisper-1")
	v.SetDefault("UPSTREAM__STREAM_URL", "")

	v.SetDefault("PLIVO__AUTH_ID", "")
	v.SetDefault("PLIVO__AUTH_TOKEN", "")

	v.SetDefault("ICE__STUN_URLS", "stun:stun.l.google.com:19302")
	v.SetDefault("ICE__TURN_URLS", "")
	v.SetDefault("ICE__TURN_USERNAME", "")
	v.SetDefault("ICE__TURN_CREDENTIAL", "")
}

// BindAddr is the listen address for the HTTP server.
func (c *AppConfig) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AnswerURL is the absolute URL the telephony provider fetches to learn
// how to bridge an answered call.
func (c *AppConfig) AnswerURL() string {
	return strings.TrimRight(c.PublicURL, "/") + "/v1/telephony/answer"
}

// deriveStreamURL turns the HTTP(S) base URL into the WebSocket
// endpoint the telephony provider streams media to.
func deriveStreamURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("UPSTREAM__BASE_URL parse error: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("UPSTREAM__BASE_URL has unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/plivo/stream"
	return u.String(), nil
}
