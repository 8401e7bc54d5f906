package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Fatalf("ConfidenceThreshold = %v, want 0.6", cfg.ConfidenceThreshold)
	}
	if cfg.MaxInputLength != 1000 {
		t.Fatalf("MaxInputLength = %d, want 1000", cfg.MaxInputLength)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 30m", cfg.SessionTimeout)
	}
	if cfg.EndedSessionRetention != time.Hour {
		t.Fatalf("EndedSessionRetention = %v, want 1h", cfg.EndedSessionRetention)
	}
	if cfg.ShortMessageWords != 5 || cfg.ShortMessageConfidence != 0.95 {
		t.Fatalf("short message heuristic = %d/%v, want 5/0.95", cfg.ShortMessageWords, cfg.ShortMessageConfidence)
	}
	if cfg.MinDurationMinutes != 1 || cfg.MaxDurationMinutes != 1440 {
		t.Fatalf("duration range = %d..%d, want 1..1440", cfg.MinDurationMinutes, cfg.MaxDurationMinutes)
	}
	if cfg.ZoomMode != "auto" {
		t.Fatalf("ZoomMode = %q, want %q", cfg.ZoomMode, "auto")
	}
	if cfg.ZoomCredentialsConfigured() {
		t.Fatalf("ZoomCredentialsConfigured() = true, want false by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHATBOT_CONFIDENCE_THRESHOLD", "0.8")
	t.Setenv("CHATBOT_SESSION_TIMEOUT", "10m")
	t.Setenv("CHATBOT_TWO_DIGIT_YEAR_THRESHOLD", "30")
	t.Setenv("ZOOM_MODE", "MOCK")
	t.Setenv("ZOOM_ACCOUNT_ID", "acct")
	t.Setenv("ZOOM_CLIENT_ID", "id")
	t.Setenv("ZOOM_CLIENT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConfidenceThreshold != 0.8 {
		t.Fatalf("ConfidenceThreshold = %v, want 0.8", cfg.ConfidenceThreshold)
	}
	if cfg.SessionTimeout != 10*time.Minute {
		t.Fatalf("SessionTimeout = %v, want 10m", cfg.SessionTimeout)
	}
	if cfg.TwoDigitYearThreshold != 30 {
		t.Fatalf("TwoDigitYearThreshold = %d, want 30", cfg.TwoDigitYearThreshold)
	}
	if cfg.ZoomMode != "mock" {
		t.Fatalf("ZoomMode = %q, want %q", cfg.ZoomMode, "mock")
	}
	if !cfg.ZoomCredentialsConfigured() {
		t.Fatalf("ZoomCredentialsConfigured() = false, want true")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CHATBOT_CONFIDENCE_THRESHOLD":   "1.5",
		"CHATBOT_MIN_DURATION_MINUTES":   "2000",
		"CHATBOT_MEDIUM_MESSAGE_WORDS":   "3",
		"CHATBOT_SESSION_TIMEOUT":        "nope",
		"CHATBOT_MAX_INPUT_LENGTH":       "0",
		"ZOOM_MODE":                      "grpc",
		"APP_ALLOW_ANY_ORIGIN":           "maybe",
		"CHATBOT_DEFAULT_MEETING_MINUTES": "0",
	}
	for key, value := range cases {
		setCoreEnvEmpty(t)
		t.Setenv(key, value)
		if _, err := Load(); err == nil {
			t.Fatalf("Load() with %s=%q expected error", key, value)
		}
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_ALLOW_ANY_ORIGIN",
		"CHATBOT_CONFIDENCE_THRESHOLD",
		"CHATBOT_LOW_CONFIDENCE_WARNING",
		"CHATBOT_MAX_INPUT_LENGTH",
		"CHATBOT_SESSION_TIMEOUT",
		"CHATBOT_ENDED_SESSION_RETENTION",
		"CHATBOT_CLEANUP_INTERVAL",
		"CHATBOT_DISPATCH_TIMEOUT",
		"CHATBOT_DEFAULT_MEETING_MINUTES",
		"CHATBOT_INTENT_PATTERNS_FILE",
		"CHATBOT_SHORT_MESSAGE_WORDS",
		"CHATBOT_SHORT_MESSAGE_CONFIDENCE",
		"CHATBOT_MEDIUM_MESSAGE_WORDS",
		"CHATBOT_MEDIUM_MESSAGE_CONFIDENCE",
		"CHATBOT_LONG_MESSAGE_CONFIDENCE",
		"CHATBOT_MAX_EMAIL_LENGTH",
		"CHATBOT_TWO_DIGIT_YEAR_THRESHOLD",
		"CHATBOT_MIN_DURATION_MINUTES",
		"CHATBOT_MAX_DURATION_MINUTES",
		"ZOOM_MODE",
		"ZOOM_API_BASE_URL",
		"ZOOM_OAUTH_TOKEN_URL",
		"ZOOM_ACCOUNT_ID",
		"ZOOM_CLIENT_ID",
		"ZOOM_CLIENT_SECRET",
		"ZOOM_MAX_RETRIES",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"TRANSCRIPT_DSN",
		"MQTT_BROKER_URL",
		"MQTT_CLIENT_ID",
		"MQTT_USERNAME",
		"MQTT_PASSWORD",
		"MQTT_TOPIC_PREFIX",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
