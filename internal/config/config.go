package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Recognizer backends.
const (
	RecognizerWebSpeech = "webspeech"
	RecognizerDeepgram  = "deepgram"
)

// Config stores runtime configuration for the voice pilot.
type Config struct {
	Recognizer string
	Language   string
	LogLevel   string

	Deepgram DeepgramConfig
	Audio    AudioConfig
	Rules    RulesConfig
	Session  SessionConfig
	Flight   FlightConfig
	Render   RenderConfig
}

type DeepgramConfig struct {
	APIKey          string
	APIBaseURL      string
	Model           string
	SmartFormat     bool
	NoSpeechTimeout time.Duration
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	ChunkSize       int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	PartialDebounce time.Duration
	StopOnListenEnd bool
}

// FlightConfig holds motion tunables. Zero keeps the flight defaults.
type FlightConfig struct {
	MoveSpeed       float64
	RotationSpeed   float64
	AltitudeSpeed   float64
	LandingSpeed    float64
	TakeoffAltitude float64
}

type RenderConfig struct {
	FrameRate     int
	CameraDamping float64
}

// Load reads envFile (or ./.env when empty and present) and then resolves
// configuration from environment variables and defaults. Variables already
// set in the environment win over the dotenv file.
func Load(envFile string) (Config, error) {
	if err := loadDotenv(envFile); err != nil {
		return Config{}, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	rulesPath, _ := lo.Coalesce(
		strings.TrimSpace(os.Getenv("SKYVOX_RULES_FILE")),
		filepath.Join(home, ".config", "skyvox", "commands.rules"),
	)
	inputDevice, _ := lo.Coalesce(
		strings.TrimSpace(os.Getenv("SKYVOX_AUDIO_INPUT_DEVICE")),
		strings.TrimSpace(os.Getenv("DEEPGRAM_PULSE_SOURCE")),
		"default",
	)

	cfg := Config{
		Recognizer: strings.ToLower(envOrDefault("SKYVOX_RECOGNIZER", RecognizerWebSpeech)),
		Language:   envOrDefault("SKYVOX_LANGUAGE", "en-US"),
		LogLevel:   strings.ToLower(envOrDefault("SKYVOX_LOG_LEVEL", "info")),
		Deepgram: DeepgramConfig{
			APIKey:          strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:      envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:           envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			SmartFormat:     envOrDefaultBool("DEEPGRAM_SMART_FORMAT", false),
			NoSpeechTimeout: envOrDefaultMillis("SKYVOX_NO_SPEECH_TIMEOUT_MS", 8000),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("SKYVOX_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("SKYVOX_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     inputDevice,
			SampleRate:      envOrDefaultInt("SKYVOX_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("SKYVOX_CHANNELS", 1),
			ChunkSize:       envOrDefaultInt("SKYVOX_AUDIO_CHUNK_SIZE", 4096),
		},
		Rules: RulesConfig{
			Path:           rulesPath,
			IterationLimit: envOrDefaultInt("SKYVOX_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			PartialDebounce: envOrDefaultMillis("SKYVOX_PARTIAL_DEBOUNCE_MS", 60),
			StopOnListenEnd: envOrDefaultBool("SKYVOX_STOP_ON_LISTEN_END", false),
		},
		Flight: FlightConfig{
			MoveSpeed:       envOrDefaultFloat("SKYVOX_MOVE_SPEED", 0),
			RotationSpeed:   envOrDefaultFloat("SKYVOX_ROTATION_SPEED", 0),
			AltitudeSpeed:   envOrDefaultFloat("SKYVOX_ALTITUDE_SPEED", 0),
			LandingSpeed:    envOrDefaultFloat("SKYVOX_LANDING_SPEED", 0),
			TakeoffAltitude: envOrDefaultFloat("SKYVOX_TAKEOFF_ALTITUDE", 0),
		},
		Render: RenderConfig{
			FrameRate:     envOrDefaultInt("SKYVOX_FRAME_RATE", 60),
			CameraDamping: envOrDefaultFloat("SKYVOX_CAMERA_DAMPING", 0.05),
		},
	}

	switch cfg.Recognizer {
	case RecognizerWebSpeech, RecognizerDeepgram:
	default:
		return Config{}, fmt.Errorf("unknown SKYVOX_RECOGNIZER %q (want %s or %s)", cfg.Recognizer, RecognizerWebSpeech, RecognizerDeepgram)
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkSize < 256 {
		cfg.Audio.ChunkSize = 4096
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Render.FrameRate <= 0 {
		cfg.Render.FrameRate = 60
	}
	if cfg.Render.CameraDamping <= 0 || cfg.Render.CameraDamping > 1 {
		cfg.Render.CameraDamping = 0.05
	}

	return cfg, nil
}

func loadDotenv(path string) error {
	if strings.TrimSpace(path) != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %q: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback int) time.Duration {
	ms := envOrDefaultInt(key, fallback)
	if ms < 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
