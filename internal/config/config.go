package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the meeting assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string
	LogFormat        string

	AllowAnyOrigin bool

	// Dialogue tunables.
	ConfidenceThreshold    float64
	LowConfidenceWarning   float64
	MaxInputLength         int
	SessionTimeout         time.Duration
	EndedSessionRetention  time.Duration
	CleanupInterval        time.Duration
	DispatchTimeout        time.Duration
	DefaultMeetingMinutes  int
	IntentPatternsFile     string
	ShortMessageWords      int
	ShortMessageConfidence float64
	MediumMessageWords     int
	MediumConfidence       float64
	LongMessageConfidence  float64

	MaxEmailLength        int
	TwoDigitYearThreshold int
	MinDurationMinutes    int
	MaxDurationMinutes    int

	// Meeting provider.
	ZoomMode          string
	ZoomAPIBaseURL    string
	ZoomOAuthTokenURL string
	ZoomAccountID     string
	ZoomClientID      string
	ZoomClientSecret  string
	ZoomMaxRetries    int

	RedisAddr     string
	RedisPassword string

	TranscriptDSN string

	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "meetingbot"),
		LogLevel:               strings.ToLower(envOrDefault("APP_LOG_LEVEL", "info")),
		LogFormat:              strings.ToLower(envOrDefault("APP_LOG_FORMAT", "text")),
		ShutdownTimeout:        15 * time.Second,
		ConfidenceThreshold:    0.6,
		LowConfidenceWarning:   0.6,
		MaxInputLength:         1000,
		SessionTimeout:         30 * time.Minute,
		EndedSessionRetention:  time.Hour,
		CleanupInterval:        5 * time.Minute,
		DispatchTimeout:        15 * time.Second,
		DefaultMeetingMinutes:  60,
		IntentPatternsFile:     stringsTrimSpace("CHATBOT_INTENT_PATTERNS_FILE"),
		ShortMessageWords:      5,
		ShortMessageConfidence: 0.95,
		MediumMessageWords:     10,
		MediumConfidence:       0.85,
		LongMessageConfidence:  0.75,
		MaxEmailLength:         254,
		TwoDigitYearThreshold:  50,
		MinDurationMinutes:     1,
		MaxDurationMinutes:     1440,
		ZoomMode:               strings.ToLower(envOrDefault("ZOOM_MODE", "auto")),
		ZoomAPIBaseURL:         envOrDefault("ZOOM_API_BASE_URL", "https://api.zoom.us/v2"),
		ZoomOAuthTokenURL:      envOrDefault("ZOOM_OAUTH_TOKEN_URL", "https://zoom.us/oauth/token"),
		ZoomAccountID:          stringsTrimSpace("ZOOM_ACCOUNT_ID"),
		ZoomClientID:           stringsTrimSpace("ZOOM_CLIENT_ID"),
		ZoomClientSecret:       stringsTrimSpace("ZOOM_CLIENT_SECRET"),
		ZoomMaxRetries:         3,
		RedisAddr:              stringsTrimSpace("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		TranscriptDSN:          stringsTrimSpace("TRANSCRIPT_DSN"),
		MQTTBrokerURL:          stringsTrimSpace("MQTT_BROKER_URL"),
		MQTTClientID:           envOrDefault("MQTT_CLIENT_ID", "meetingbot"),
		MQTTUsername:           stringsTrimSpace("MQTT_USERNAME"),
		MQTTPassword:           os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:        envOrDefault("MQTT_TOPIC_PREFIX", "meetingbot"),
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"APP_SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
		{"CHATBOT_SESSION_TIMEOUT", &cfg.SessionTimeout},
		{"CHATBOT_ENDED_SESSION_RETENTION", &cfg.EndedSessionRetention},
		{"CHATBOT_CLEANUP_INTERVAL", &cfg.CleanupInterval},
		{"CHATBOT_DISPATCH_TIMEOUT", &cfg.DispatchTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = durationFromEnv(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CHATBOT_MAX_INPUT_LENGTH", &cfg.MaxInputLength},
		{"CHATBOT_DEFAULT_MEETING_MINUTES", &cfg.DefaultMeetingMinutes},
		{"CHATBOT_SHORT_MESSAGE_WORDS", &cfg.ShortMessageWords},
		{"CHATBOT_MEDIUM_MESSAGE_WORDS", &cfg.MediumMessageWords},
		{"CHATBOT_MAX_EMAIL_LENGTH", &cfg.MaxEmailLength},
		{"CHATBOT_TWO_DIGIT_YEAR_THRESHOLD", &cfg.TwoDigitYearThreshold},
		{"CHATBOT_MIN_DURATION_MINUTES", &cfg.MinDurationMinutes},
		{"CHATBOT_MAX_DURATION_MINUTES", &cfg.MaxDurationMinutes},
		{"ZOOM_MAX_RETRIES", &cfg.ZoomMaxRetries},
	}
	for _, n := range ints {
		if *n.dst, err = intFromEnv(n.key, *n.dst); err != nil {
			return Config{}, err
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"CHATBOT_CONFIDENCE_THRESHOLD", &cfg.ConfidenceThreshold},
		{"CHATBOT_LOW_CONFIDENCE_WARNING", &cfg.LowConfidenceWarning},
		{"CHATBOT_SHORT_MESSAGE_CONFIDENCE", &cfg.ShortMessageConfidence},
		{"CHATBOT_MEDIUM_MESSAGE_CONFIDENCE", &cfg.MediumConfidence},
		{"CHATBOT_LONG_MESSAGE_CONFIDENCE", &cfg.LongMessageConfidence},
	}
	for _, f := range floats {
		if *f.dst, err = floatFromEnv(f.key, *f.dst); err != nil {
			return Config{}, err
		}
	}

	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	for _, p := range []struct {
		key string
		v   float64
	}{
		{"CHATBOT_CONFIDENCE_THRESHOLD", c.ConfidenceThreshold},
		{"CHATBOT_LOW_CONFIDENCE_WARNING", c.LowConfidenceWarning},
		{"CHATBOT_SHORT_MESSAGE_CONFIDENCE", c.ShortMessageConfidence},
		{"CHATBOT_MEDIUM_MESSAGE_CONFIDENCE", c.MediumConfidence},
		{"CHATBOT_LONG_MESSAGE_CONFIDENCE", c.LongMessageConfidence},
	} {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%s must be within [0, 1]", p.key)
		}
	}
	if c.ShortMessageWords <= 0 || c.MediumMessageWords <= c.ShortMessageWords {
		return fmt.Errorf("CHATBOT_SHORT_MESSAGE_WORDS must be positive and below CHATBOT_MEDIUM_MESSAGE_WORDS")
	}
	if c.MaxInputLength <= 0 {
		return fmt.Errorf("CHATBOT_MAX_INPUT_LENGTH must be positive")
	}
	if c.SessionTimeout < time.Second {
		return fmt.Errorf("CHATBOT_SESSION_TIMEOUT must be at least 1s")
	}
	if c.DispatchTimeout < time.Second {
		return fmt.Errorf("CHATBOT_DISPATCH_TIMEOUT must be at least 1s")
	}
	if c.MinDurationMinutes < 1 || c.MinDurationMinutes > c.MaxDurationMinutes {
		return fmt.Errorf("CHATBOT_MIN_DURATION_MINUTES must be at least 1 and not above CHATBOT_MAX_DURATION_MINUTES")
	}
	if c.DefaultMeetingMinutes < c.MinDurationMinutes || c.DefaultMeetingMinutes > c.MaxDurationMinutes {
		return fmt.Errorf("CHATBOT_DEFAULT_MEETING_MINUTES must be within the duration range")
	}
	if c.TwoDigitYearThreshold < 0 || c.TwoDigitYearThreshold > 99 {
		return fmt.Errorf("CHATBOT_TWO_DIGIT_YEAR_THRESHOLD must be within [0, 99]")
	}
	if c.MaxEmailLength <= 3 {
		return fmt.Errorf("CHATBOT_MAX_EMAIL_LENGTH must be greater than 3")
	}
	if c.ZoomMaxRetries < 0 {
		return fmt.Errorf("ZOOM_MAX_RETRIES must not be negative")
	}
	switch c.ZoomMode {
	case "auto", "http", "mock":
	default:
		return fmt.Errorf("invalid ZOOM_MODE %q (expected auto|http|mock)", c.ZoomMode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid APP_LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid APP_LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// ZoomCredentialsConfigured reports whether account-level OAuth is possible.
func (c Config) ZoomCredentialsConfigured() bool {
	return c.ZoomAccountID != "" && c.ZoomClientID != "" && c.ZoomClientSecret != ""
}

func envOrDefault(key, fallback string) string {
	if v := stringsTrimSpace(key); v != "" {
		return v
	}
	return fallback
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
