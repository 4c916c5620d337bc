package testforge

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every process-wide knob of the pipeline. It is constructed
// once at process start and passed by value; nothing mutates it at
// runtime, which keeps concurrent runs reentrant.
type Config struct {
	// APIKey is the provider credential, loaded once at startup.
	APIKey string
	// Model is the provider model identifier.
	Model string
	// Temperature is the determinism knob passed to the provider.
	Temperature float32

	// MaxRequirements caps the requirement count per request.
	MaxRequirements int
	// MaxPromptBytes caps the rendered prompt size.
	MaxPromptBytes int

	// MaxAttempts bounds gateway attempts, first call included.
	MaxAttempts int
	// BackoffBase is the delay before the first retry; it doubles after
	// each failure.
	BackoffBase time.Duration
	// JitterFactor adds up to this fraction of random extra delay.
	JitterFactor float64
	// AttemptTimeout is the fresh timeout budget of each attempt.
	AttemptTimeout time.Duration
	// OverallDeadline bounds one run's total wall-clock time, retries
	// included.
	OverallDeadline time.Duration

	// RateLimitPerSecond and RateLimitBurst shape the process-wide
	// provider call budget shared by all concurrent runs. Zero disables
	// limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int

	// DefaultFormat is the artifact format used by Generate.
	DefaultFormat Format
}

// DefaultConfig returns the fully-enumerated defaults. Every field is
// explicit; no option is silently unset.
func DefaultConfig() Config {
	return Config{
		Model:              "gpt-4o-mini",
		Temperature:        0.1,
		MaxRequirements:    64,
		MaxPromptBytes:     15000,
		MaxAttempts:        3,
		BackoffBase:        500 * time.Millisecond,
		JitterFactor:       0.2,
		AttemptTimeout:     30 * time.Second,
		OverallDeadline:    2 * time.Minute,
		RateLimitPerSecond: 2,
		RateLimitBurst:     4,
		DefaultFormat:      FormatJSON,
	}
}

// LoadEnv builds a Config from the environment, reading optional
// .env-style files first. The credential comes from TESTFORGE_API_KEY and
// is required; the remaining variables override defaults when set.
func LoadEnv(files ...string) (Config, error) {
	// Missing .env files are fine; the variables may already be exported.
	_ = godotenv.Load(files...)

	cfg := DefaultConfig()

	cfg.APIKey = os.Getenv("TESTFORGE_API_KEY")
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("TESTFORGE_API_KEY is not set")
	}

	if v := os.Getenv("TESTFORGE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("TESTFORGE_MAX_REQUIREMENTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TESTFORGE_MAX_REQUIREMENTS: %w", err)
		}
		cfg.MaxRequirements = n
	}
	if v := os.Getenv("TESTFORGE_MAX_PROMPT_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TESTFORGE_MAX_PROMPT_BYTES: %w", err)
		}
		cfg.MaxPromptBytes = n
	}
	if v := os.Getenv("TESTFORGE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TESTFORGE_MAX_ATTEMPTS: %w", err)
		}
		cfg.MaxAttempts = n
	}
	if v := os.Getenv("TESTFORGE_ATTEMPT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TESTFORGE_ATTEMPT_TIMEOUT: %w", err)
		}
		cfg.AttemptTimeout = d
	}
	if v := os.Getenv("TESTFORGE_OVERALL_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TESTFORGE_OVERALL_DEADLINE: %w", err)
		}
		cfg.OverallDeadline = d
	}
	if v := os.Getenv("TESTFORGE_FORMAT"); v != "" {
		f := Format(v)
		if !f.valid() {
			return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, v)
		}
		cfg.DefaultFormat = f
	}

	return cfg, nil
}
