package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup. All values come from
// the environment (optionally via a .env file); required secrets fail Load
// explicitly rather than surfacing later as opaque API errors.
type Config struct {
	Addr string

	GroqAPIKey   string
	GroqBaseURL  string
	ChatModel    string
	WhisperModel string

	ElevenAPIKey string
	TTSModel     string
	OutputFormat string

	PatientDataPath string
	AudioDir        string

	SessionTTL     time.Duration
	SessionLimit   int
	RequestTimeout time.Duration

	CaptureCommand []string
	ListenTimeout  time.Duration
	PhraseLimit    time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present, matching how the service is deployed.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:            ":" + envOr("PORT", "5000"),
		GroqAPIKey:      os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:     envOr("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ChatModel:       envOr("GROQ_MODEL_CHAT", "llama3-8b-8192"),
		WhisperModel:    envOr("GROQ_MODEL_WHISPER", "whisper-large-v3"),
		ElevenAPIKey:    os.Getenv("ELEVENLABS_API_KEY"),
		TTSModel:        envOr("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		OutputFormat:    envOr("ELEVENLABS_OUTPUT_FORMAT", "mp3_44100_128"),
		PatientDataPath: envOr("PATIENT_DATA_PATH", "data.json"),
		AudioDir:        envOr("AUDIO_DIR", "audio"),
		SessionTTL:      envDurationOr("SESSION_TTL", 30*time.Minute),
		SessionLimit:    envIntOr("SESSION_LIMIT", 1024),
		RequestTimeout:  envDurationOr("REQUEST_TIMEOUT", 30*time.Second),
		ListenTimeout:   5 * time.Second,
		PhraseLimit:     10 * time.Second,
	}

	if cfg.GroqAPIKey == "" {
		return nil, fmt.Errorf("GROQ_API_KEY must be set")
	}
	if cfg.ElevenAPIKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY must be set")
	}
	if cfg.SessionLimit <= 0 {
		return nil, fmt.Errorf("SESSION_LIMIT must be positive, got %d", cfg.SessionLimit)
	}

	// Capture window covers the wait-for-speech timeout plus the phrase limit.
	seconds := int((cfg.ListenTimeout + cfg.PhraseLimit) / time.Second)
	cmd := envOr("CAPTURE_COMMAND", "arecord")
	cfg.CaptureCommand = []string{cmd, "-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "-d", strconv.Itoa(seconds), "-"}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
