package dialogue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ent0n29/meetingbot/internal/audit"
	"github.com/ent0n29/meetingbot/internal/provider"
)

// authKeywords catch credential failures that arrive untyped.
var authKeywords = []string{"invalid_client", "authentication", "unauthorized", "access token", "401"}

type providerCall func(ctx context.Context, cred provider.Credential) error

// dispatch resolves the caller's credential and runs call under the dispatch
// deadline. Write intents are audited whatever the outcome.
func (e *Engine) dispatch(t *turn, detail string, call providerCall) error {
	err := e.run(t, call)
	if t.intent.IsWriteOperation() {
		e.publishAudit(t, outcomeOf(err), detail)
	}
	return err
}

// lookup is dispatch for reads made on the way to a write; it is not audited.
func (e *Engine) lookup(t *turn, call providerCall) error {
	return e.run(t, call)
}

func (e *Engine) run(t *turn, call providerCall) error {
	ctx, cancel := context.WithTimeout(t.ctx, e.cfg.DispatchTimeout)
	defer cancel()

	started := time.Now()
	cred, err := e.credentials.CredentialFor(ctx, t.userID)
	if err == nil {
		err = call(ctx, cred)
	}
	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &provider.Error{Kind: provider.KindTransient, Op: string(t.intent), Err: ctx.Err()}
	}
	elapsed := time.Since(started)

	outcome := outcomeOf(err)
	e.metrics.ObserveDispatch(string(t.intent), outcome, elapsed)
	e.metrics.ObserveTurnStage("dispatch", elapsed)

	if err != nil {
		e.logger.Warn("provider dispatch failed",
			"user_id", t.userID,
			"intent", t.intent,
			"kind", provider.KindOf(err),
			"outcome", outcome,
			"error", err,
		)
	}
	return err
}

func (e *Engine) publishAudit(t *turn, outcome, detail string) {
	if e.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), 2*time.Second)
	defer cancel()
	ev := audit.NewEvent(t.userID, t.sessionID, string(t.intent), outcome, detail)
	if err := e.audit.Publish(ctx, ev); err != nil {
		e.logger.Warn("audit publish failed", "event_id", ev.ID, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return audit.OutcomeSuccess
	case isTimeout(err):
		return audit.OutcomeTimeout
	case isAuthFailure(err):
		return audit.OutcomeUnauthorized
	case provider.KindOf(err) == provider.KindNotFound:
		return audit.OutcomeNotFound
	default:
		return audit.OutcomeFailed
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// isAuthFailure trusts the typed kind first so that a not-found or transient
// error whose text happens to contain "401" is not misreported.
func isAuthFailure(err error) bool {
	switch provider.KindOf(err) {
	case provider.KindUnauthorized:
		return true
	case provider.KindNotFound, provider.KindTransient:
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range authKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// failureText picks the user-facing message for a failed dispatch.
func failureText(err error, notFound, generic string) string {
	switch {
	case isAuthFailure(err):
		return msgAuthFailed
	case provider.KindOf(err) == provider.KindNotFound && notFound != "":
		return notFound
	case isTimeout(err):
		return msgTimeout
	default:
		return generic
	}
}
