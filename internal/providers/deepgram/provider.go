package deepgram

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"skyvox/internal/ports"
)

// ErrAlreadyStarted is returned by Start while a session is still running.
var ErrAlreadyStarted = errors.New("recognition already started")

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey          string
	APIBaseURL      string
	Model           string
	SmartFormat     bool
	NoSpeechTimeout time.Duration
	ChunkSize       int
	Audio           ports.AudioConfig
}

// Provider implements ports.RecognizerProvider on top of Deepgram live streaming.
type Provider struct {
	cfg     Config
	capture ports.AudioCapture
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

func NewProvider(cfg Config, capture ports.AudioCapture, logger *slog.Logger) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		cfg:     cfg,
		capture: capture,
		dialer:  websocket.DefaultDialer,
		logger:  logger.With("component", "deepgram"),
	}
}

// Available reports whether an API key and a microphone are configured.
func (p *Provider) Available() bool {
	return strings.TrimSpace(p.cfg.APIKey) != "" && p.capture != nil
}

func (p *Provider) NewRecognizer(opts ports.RecognizerOptions) (ports.SpeechRecognizer, error) {
	if !p.Available() {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}
	wsURL, err := buildListenURL(p.cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Recognizer{
		cfg:     p.cfg,
		url:     wsURL,
		capture: p.capture,
		dialer:  p.dialer,
		logger:  p.logger,
	}, nil
}

type deepgramResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`

	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func extractTranscript(response deepgramResponse) string {
	if len(response.Channel.Alternatives) > 0 {
		if text := strings.TrimSpace(response.Channel.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	if len(response.Results.Channels) > 0 && len(response.Results.Channels[0].Alternatives) > 0 {
		return strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript)
	}
	return ""
}

func buildListenURL(cfg Config, opts ports.RecognizerOptions) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	sampleRate := cfg.Audio.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := cfg.Audio.Channels
	if channels <= 0 {
		channels = 1
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	query.Set("channels", fmt.Sprintf("%d", channels))
	query.Set("interim_results", fmt.Sprintf("%t", opts.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if opts.Language != "" {
		query.Set("language", opts.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
