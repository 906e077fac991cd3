package realtime

import "math"

// Defaults applied to any session field the caller leaves unset. Every
// field of the canonical session object is populated before it is sent
// upstream; nothing is ever transmitted as null.
const (
	DefaultInstructions      = "You are Luna, a warm and helpful voice assistant. Keep your responses natural, conversational, and concise."
	DefaultTemperature       = 0.8
	DefaultTopP              = 0.95
	DefaultTopK              = 50
	DefaultVADThreshold      = 0.5
	DefaultPrefixPaddingMs   = 300
	DefaultSilenceDurationMs = 500
)

// Session is the canonical session-configuration object the voice
// backend expects. Field names and nesting are fixed by the upstream
// contract.
type Session struct {
	Type                    string        `json:"type"`
	Model                   string        `json:"model"`
	Audio                   Audio         `json:"audio"`
	TurnDetection           TurnDetection `json:"turn_detection"`
	InputAudioTranscription Transcription `json:"input_audio_transcription"`
	Instructions            string        `json:"instructions"`
	Temperature             float64       `json:"temperature"`
	TopP                    float64       `json:"top_p"`
	TopK                    int           `json:"top_k"`
}

type Audio struct {
	Output AudioOutput `json:"output"`
}

type AudioOutput struct {
	Voice string `json:"voice"`
}

// TurnDetection holds the server-side VAD tuning parameters. They are
// carried through to upstream, which owns the actual detection.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type Transcription struct {
	Model string `json:"model"`
}

// Overrides are the caller-supplied session fields. Pointer types
// distinguish "absent" from an explicit zero; absent fields get the
// documented defaults.
type Overrides struct {
	Instruction       string   `json:"instruction"`
	Temperature       *float64 `json:"temperature"`
	TopP              *float64 `json:"top_p"`
	TopK              *int     `json:"top_k"`
	VADThreshold      *float64 `json:"vad_threshold"`
	PrefixPaddingMs   *int     `json:"vad_prefix_padding_ms"`
	SilenceDurationMs *int     `json:"vad_silence_duration_ms"`
}

// Profile carries the operator-configured session fields that callers
// cannot override.
type Profile struct {
	Model           string
	Voice           string
	TranscribeModel string
}

// Build produces a fully populated session from caller overrides.
// Out-of-range values pass through untouched; the backend is the
// authority on rejecting them. Only non-finite floats fall back to
// defaults, since they have no JSON representation.
func Build(p Profile, o Overrides) Session {
	instructions := o.Instruction
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return Session{
		Type:  "realtime",
		Model: p.Model,
		Audio: Audio{Output: AudioOutput{Voice: p.Voice}},
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         floatOr(o.VADThreshold, DefaultVADThreshold),
			PrefixPaddingMs:   intOr(o.PrefixPaddingMs, DefaultPrefixPaddingMs),
			SilenceDurationMs: intOr(o.SilenceDurationMs, DefaultSilenceDurationMs),
		},
		InputAudioTranscription: Transcription{Model: p.TranscribeModel},
		Instructions:            instructions,
		Temperature:             floatOr(o.Temperature, DefaultTemperature),
		TopP:                    floatOr(o.TopP, DefaultTopP),
		TopK:                    intOr(o.TopK, DefaultTopK),
	}
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return fallback
	}
	return *v
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
