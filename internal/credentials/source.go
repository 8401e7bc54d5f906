package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ent0n29/meetingbot/internal/provider"
)

// AccountConfig describes server-to-server OAuth for a Zoom account.
type AccountConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	TokenURL     string
	// HTTPTimeout caps one token exchange. Zero means 10s.
	HTTPTimeout time.Duration
}

func (c AccountConfig) Configured() bool {
	return strings.TrimSpace(c.AccountID) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != ""
}

// AccountTokenSource yields account-level tokens. Token must return once ctx
// is done.
type AccountTokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// AccountTokens exchanges account credentials for access tokens and caches
// them until they expire. Every exchange runs under the caller's context.
type AccountTokens struct {
	cc     clientcredentials.Config
	client *http.Client

	mu     sync.Mutex
	cached *oauth2.Token
}

func NewAccountTokens(cfg AccountConfig) *AccountTokens {
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = "https://zoom.us/oauth/token"
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AccountTokens{
		cc: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
			EndpointParams: url.Values{
				"grant_type": {"account_credentials"},
				"account_id": {cfg.AccountID},
			},
		},
		client: &http.Client{Timeout: timeout},
	}
}

func (a *AccountTokens) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	cached := a.cached
	a.mu.Unlock()
	if cached.Valid() {
		cp := *cached
		return &cp, nil
	}

	// Concurrent misses may each exchange; the last token stored wins.
	tok, err := a.cc.Token(context.WithValue(ctx, oauth2.HTTPClient, a.client))
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.cached = tok
	a.mu.Unlock()
	cp := *tok
	return &cp, nil
}

// Source resolves the credential used for a chat user's provider calls. A
// stored per-user token wins over the account token.
type Source struct {
	store   TokenStore
	account AccountTokenSource
	logger  *slog.Logger
}

func NewSource(store TokenStore, account AccountTokenSource, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{store: store, account: account, logger: logger}
}

func (s *Source) CredentialFor(ctx context.Context, userID string) (provider.Credential, error) {
	if s.store != nil && strings.TrimSpace(userID) != "" {
		tok, err := s.store.Get(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn("user token lookup failed", "user_id", userID, "error", err)
		case tok != nil && tok.Valid():
			return provider.Credential{Token: tok}, nil
		}
	}

	if s.account == nil {
		return provider.Credential{}, &provider.Error{
			Kind: provider.KindUnauthorized,
			Op:   "resolve credentials",
			Err:  errors.New("no zoom credentials available"),
		}
	}

	tok, err := s.account.Token(ctx)
	if err != nil {
		kind := tokenErrorKind(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			kind = provider.KindTransient
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return provider.Credential{}, &provider.Error{
			Kind: kind,
			Op:   "resolve credentials",
			Err:  err,
		}
	}
	return provider.Credential{Token: tok}, nil
}

func tokenErrorKind(err error) provider.Kind {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		if re.Response.StatusCode >= 500 || re.Response.StatusCode == 429 {
			return provider.KindTransient
		}
		return provider.KindUnauthorized
	}
	return provider.KindTransient
}

// StaticSource hands out one fixed token. Mock mode uses it.
type StaticSource struct {
	token *oauth2.Token
}

func NewStaticSource(accessToken string) *StaticSource {
	return &StaticSource{token: &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}}
}

func (s *StaticSource) CredentialFor(context.Context, string) (provider.Credential, error) {
	cp := *s.token
	return provider.Credential{Token: &cp}, nil
}
