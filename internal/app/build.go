package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ent0n29/meetingbot/internal/audit"
	"github.com/ent0n29/meetingbot/internal/config"
	"github.com/ent0n29/meetingbot/internal/credentials"
	"github.com/ent0n29/meetingbot/internal/dialogue"
	"github.com/ent0n29/meetingbot/internal/entity"
	"github.com/ent0n29/meetingbot/internal/httpapi"
	"github.com/ent0n29/meetingbot/internal/intent"
	"github.com/ent0n29/meetingbot/internal/observability"
	"github.com/ent0n29/meetingbot/internal/provider"
	"github.com/ent0n29/meetingbot/internal/session"
	"github.com/ent0n29/meetingbot/internal/timezone"
	"github.com/ent0n29/meetingbot/internal/transcript"
)

// mockAccessToken authorizes calls against the in-memory provider.
const mockAccessToken = "mock-access-token"

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Engine       *dialogue.Engine
	Sessions     *session.Manager
	Metrics      *observability.Metrics
	ProviderMode string
	AuditSink    string

	// Cleanup should be called on shutdown to release external resources (DB, broker, Redis).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	var closers []func() error
	cleanup := func() error {
		var errs []string
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}
	fail := func(err error) (*BuildResult, error) {
		_ = cleanup()
		return nil, err
	}

	families := intent.DefaultFamilies()
	if cfg.IntentPatternsFile != "" {
		overlaid, err := intent.LoadPatternFile(cfg.IntentPatternsFile)
		if err != nil {
			return fail(fmt.Errorf("intent patterns init failed: %w", err))
		}
		families = overlaid
		logger.Info("intent pattern overlay loaded", "path", cfg.IntentPatternsFile)
	}
	classifier := intent.NewClassifierWithFamilies(families, intent.Thresholds{
		ShortWords:           cfg.ShortMessageWords,
		ShortConfidence:      cfg.ShortMessageConfidence,
		MediumWords:          cfg.MediumMessageWords,
		MediumConfidence:     cfg.MediumConfidence,
		LongConfidence:       cfg.LongMessageConfidence,
		LowConfidenceWarning: cfg.LowConfidenceWarning,
	}, logger)

	extractor := entity.NewExtractor(entity.Config{
		MaxEmailLength:        cfg.MaxEmailLength,
		TwoDigitYearThreshold: cfg.TwoDigitYearThreshold,
		MinDurationMinutes:    cfg.MinDurationMinutes,
		MaxDurationMinutes:    cfg.MaxDurationMinutes,
	}, logger)

	actions, mode, err := provider.New(provider.Config{
		Mode:                  cfg.ZoomMode,
		BaseURL:               cfg.ZoomAPIBaseURL,
		MaxRetries:            cfg.ZoomMaxRetries,
		CredentialsConfigured: cfg.ZoomCredentialsConfigured(),
		Logger:                logger,
	})
	if err != nil {
		return fail(fmt.Errorf("meeting provider init failed: %w", err))
	}

	creds, err := buildCredentials(ctx, cfg, mode, logger, &closers)
	if err != nil {
		return fail(err)
	}

	transcripts, err := transcript.NewStore(ctx, cfg.TranscriptDSN)
	if err != nil {
		return fail(fmt.Errorf("transcript store init failed: %w", err))
	}
	closers = append(closers, transcripts.Close)

	publisher, sink, err := buildAudit(cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, publisher.Close)

	sessions := session.NewManager(cfg.SessionTimeout)
	sessions.SetEndedRetention(cfg.EndedSessionRetention)
	sessions.SetExpireHook(func(s *session.Session) {
		logger.Info("session expired", "user_id", s.UserID, "session_id", s.ID, "messages", s.MessageCount)
		metrics.ObserveSessionEvent("expired", sessions.ActiveCount())
	})

	engineCfg := dialogue.DefaultConfig()
	engineCfg.ConfidenceThreshold = cfg.ConfidenceThreshold
	engineCfg.MaxInputLength = cfg.MaxInputLength
	engineCfg.DispatchTimeout = cfg.DispatchTimeout
	engineCfg.DefaultMeetingMinutes = cfg.DefaultMeetingMinutes

	engine, err := dialogue.NewEngine(engineCfg, dialogue.Deps{
		Sessions:    sessions,
		Classifier:  classifier,
		Extractor:   extractor,
		Converter:   timezone.NewConverter(logger),
		Provider:    actions,
		Credentials: creds,
		Transcripts: transcripts,
		Audit:       publisher,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return fail(fmt.Errorf("dialogue engine init failed: %w", err))
	}

	api := httpapi.New(cfg, engine, sessions, httpapi.Options{
		Transcripts:  transcripts,
		Metrics:      metrics,
		Logger:       logger,
		ProviderMode: mode,
	})

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Engine:       engine,
		Sessions:     sessions,
		Metrics:      metrics,
		ProviderMode: mode,
		AuditSink:    sink,
		Cleanup:      cleanup,
	}, nil
}

// buildCredentials picks the credential source for the resolved provider mode.
// Per-user tokens live in Redis when configured, otherwise in memory.
func buildCredentials(ctx context.Context, cfg config.Config, mode string, logger *slog.Logger, closers *[]func() error) (dialogue.CredentialSource, error) {
	if mode == "mock" {
		return credentials.NewStaticSource(mockAccessToken), nil
	}

	var store credentials.TokenStore = credentials.NewMemoryTokenStore()
	if cfg.RedisAddr != "" {
		client, err := credentials.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("token store init failed: %w", err)
		}
		*closers = append(*closers, client.Close)
		store = credentials.NewRedisTokenStore(client)
		logger.Info("per-user tokens stored in redis", "addr", cfg.RedisAddr)
	}

	account := credentials.AccountConfig{
		AccountID:    cfg.ZoomAccountID,
		ClientID:     cfg.ZoomClientID,
		ClientSecret: cfg.ZoomClientSecret,
		TokenURL:     cfg.ZoomOAuthTokenURL,
		HTTPTimeout:  cfg.DispatchTimeout,
	}
	if !account.Configured() {
		logger.Warn("zoom account credentials missing; only stored user tokens will authorize calls")
		return credentials.NewSource(store, nil, logger), nil
	}
	return credentials.NewSource(store, credentials.NewAccountTokens(account), logger), nil
}

func buildAudit(cfg config.Config, logger *slog.Logger) (audit.Publisher, string, error) {
	if cfg.MQTTBrokerURL == "" {
		return audit.NewLogPublisher(logger), "log", nil
	}
	pub := audit.NewMQTTPublisher(audit.MQTTConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
	}, logger)
	if err := pub.Start(); err != nil {
		return nil, "", fmt.Errorf("audit publisher init failed: %w", err)
	}
	return pub, "mqtt", nil
}
