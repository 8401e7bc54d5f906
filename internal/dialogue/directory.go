package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ent0n29/meetingbot/internal/entity"
	"github.com/ent0n29/meetingbot/internal/provider"
)

func (e *Engine) handleListRecordings(t *turn) reply {
	opts := provider.ListOptions{
		PageSize: e.cfg.ListPageSize,
		From:     t.now.AddDate(0, 0, -e.cfg.RecordingLookbackDays).Format(entity.DateLayout),
		To:       t.now.Format(entity.DateLayout),
	}
	var list provider.RecordingList
	err := e.dispatch(t, "", func(ctx context.Context, cred provider.Credential) error {
		var err error
		list, err = e.provider.ListRecordings(ctx, cred, opts)
		return err
	})
	if err != nil {
		return reply{text: failureText(err, "", "Sorry, I couldn't fetch your recordings right now. Please try again later.")}
	}
	if len(list.Recordings) == 0 {
		e.storeReferences(t.userID, refRecording, nil)
		return reply{text: fmt.Sprintf("You have no cloud recordings from the last %d days.", e.cfg.RecordingLookbackDays), ok: true}
	}

	ids := make([]string, len(list.Recordings))
	var b strings.Builder
	b.WriteString("Your recordings:\n\n")
	for i, r := range list.Recordings {
		ids[i] = strconv.FormatInt(r.MeetingID, 10)
		fmt.Fprintf(&b, "%d. %s\n", i+1, orDefault(r.Topic, "Recording"))
		if r.StartTime != "" {
			b.WriteString("   " + e.converter.UTCToLocal(r.StartTime, t.zone) + "\n")
		}
		fmt.Fprintf(&b, "   %d file(s), %s\n\n", len(r.Files), humanSize(r.TotalSize))
	}
	e.storeReferences(t.userID, refRecording, ids)
	b.WriteString("Tip: Say 'get recording 1' for details or 'download recording 1' for links.")
	return reply{text: b.String(), ok: true}
}

func (e *Engine) handleGetRecording(t *turn) reply {
	rec, r, ok := e.fetchRecording(t)
	if !ok {
		return r
	}
	var b strings.Builder
	b.WriteString("Recording Details:\n\n")
	b.WriteString("Topic: " + orDefault(rec.Topic, "N/A") + "\n")
	if rec.StartTime != "" {
		b.WriteString("Recorded: " + e.converter.UTCToLocal(rec.StartTime, t.zone) + "\n")
	}
	if rec.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %d minutes\n", rec.Duration)
	}
	fmt.Fprintf(&b, "Meeting ID: %d\n", rec.MeetingID)
	fmt.Fprintf(&b, "Files: %d (%s)\n", len(rec.Files), humanSize(rec.TotalSize))
	for _, f := range rec.Files {
		fmt.Fprintf(&b, "   - %s %s\n", f.FileType, humanSize(f.FileSize))
	}
	if rec.ShareURL != "" {
		b.WriteString("\nShare URL: " + rec.ShareURL + "\n")
	}
	return reply{text: strings.TrimRight(b.String(), "\n"), ok: true}
}

func (e *Engine) handleDownloadRecording(t *turn) reply {
	rec, r, ok := e.fetchRecording(t)
	if !ok {
		return r
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Download links for %s:\n\n", orDefault(rec.Topic, "your recording"))
	n := 0
	for _, f := range rec.Files {
		if f.DownloadURL == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", n, f.FileType, humanSize(f.FileSize), f.DownloadURL)
	}
	if n == 0 {
		return reply{text: "That recording has no downloadable files yet. It may still be processing.", ok: true}
	}
	b.WriteString("\nLinks require you to be signed in to Zoom.")
	return reply{text: b.String(), ok: true}
}

// fetchRecording resolves the recording reference in the message and loads it.
// When ok is false, r is the reply to send instead.
func (e *Engine) fetchRecording(t *turn) (rec provider.Recording, r reply, ok bool) {
	ref, found := findReference(t.text)
	if !found {
		return rec, reply{text: msgAskRecordingWhich, ok: true}, false
	}
	id, msg := e.resolveReference(t.userID, ref, refRecording, refMeeting)
	if msg != "" {
		return rec, reply{text: msg, ok: true}, false
	}
	err := e.dispatch(t, "", func(ctx context.Context, cred provider.Credential) error {
		var err error
		rec, err = e.provider.GetRecording(ctx, cred, id)
		return err
	})
	if err != nil {
		return rec, reply{text: failureText(err,
			"No recording found for that meeting. Recordings appear once the meeting has ended and processing finishes.",
			"Sorry, I couldn't fetch that recording. Please try again later.")}, false
	}
	return rec, reply{}, true
}

func (e *Engine) handleGetUser(t *turn) reply {
	id := t.entities[entity.KeyEmail]
	if id == "" {
		ref, found := findReference(t.text)
		if !found {
			return reply{text: msgAskUserEmail, ok: true}
		}
		var msg string
		if id, msg = e.resolveReference(t.userID, ref, refUser); msg != "" {
			return reply{text: msg, ok: true}
		}
	}

	var u provider.User
	err := e.dispatch(t, "", func(ctx context.Context, cred provider.Credential) error {
		var err error
		u, err = e.provider.GetUser(ctx, cred, id)
		return err
	})
	if err != nil {
		return reply{text: failureText(err,
			"User not found. Please check the email address.",
			"Sorry, I couldn't look up that user. Please try again later.")}
	}

	var b strings.Builder
	b.WriteString("User Details:\n\n")
	b.WriteString("Name: " + u.DisplayName() + "\n")
	b.WriteString("Email: " + u.Email + "\n")
	b.WriteString("Type: " + userType(u.Type) + "\n")
	if u.Status != "" {
		b.WriteString("Status: " + u.Status + "\n")
	}
	if u.Dept != "" {
		b.WriteString("Department: " + u.Dept + "\n")
	}
	if u.Timezone != "" {
		b.WriteString("Timezone: " + u.Timezone + "\n")
	}
	return reply{text: strings.TrimRight(b.String(), "\n"), ok: true}
}

func (e *Engine) handleListUsers(t *turn) reply {
	var list provider.UserList
	err := e.dispatch(t, "", func(ctx context.Context, cred provider.Credential) error {
		var err error
		list, err = e.provider.ListUsers(ctx, cred, provider.ListOptions{PageSize: e.cfg.ListPageSize})
		return err
	})
	if err != nil {
		return reply{text: failureText(err, "", "Sorry, I couldn't fetch the user list. Please try again later.")}
	}
	if len(list.Users) == 0 {
		e.storeReferences(t.userID, refUser, nil)
		return reply{text: "No active users found in your account.", ok: true}
	}

	ids := make([]string, len(list.Users))
	var b strings.Builder
	b.WriteString("Users in your account:\n\n")
	for i, u := range list.Users {
		ids[i] = u.ID
		if ids[i] == "" {
			ids[i] = u.Email
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, u.DisplayName(), u.Email)
	}
	e.storeReferences(t.userID, refUser, ids)
	if list.TotalRecords > len(list.Users) {
		fmt.Fprintf(&b, "\nShowing %d of %d users.\n", len(list.Users), list.TotalRecords)
	}
	b.WriteString("\nTip: Say 'get user 1' for details.")
	return reply{text: b.String(), ok: true}
}

func (e *Engine) handleCreateUser(t *turn) reply {
	values, question, err := e.fillSlots(t, createUserPlan)
	if err != nil {
		return reply{text: msgInternalError}
	}
	if question != "" {
		return reply{text: question, ok: true}
	}

	email := values[ctxNewUserEmail]
	var u provider.User
	err = e.dispatch(t, "user "+email, func(ctx context.Context, cred provider.Credential) error {
		var err error
		u, err = e.provider.CreateUser(ctx, cred, provider.NewUser{Email: email, Type: provider.UserTypeBasic})
		return err
	})
	e.clearPlan(t.userID, createUserPlan)
	if err != nil {
		var pe *provider.Error
		if errors.As(err, &pe) && pe.Status == 409 {
			return reply{text: "A user with email " + email + " already exists."}
		}
		return reply{text: failureText(err, "", "Sorry, I couldn't create that user. Please try again later.")}
	}
	if _, err := e.sessions.DeleteContextPrefix(t.userID, refUser+"_"); err != nil {
		e.logger.Warn("clear user references failed", "user_id", t.userID, "error", err)
	}
	return reply{text: "User created successfully!\n\n" +
		"Email: " + orDefault(u.Email, email) + "\n" +
		"Type: " + userType(u.Type) + "\n\n" +
		"An activation email has been sent to the new user.", ok: true}
}

func userType(t int) string {
	switch t {
	case provider.UserTypeBasic:
		return "Basic"
	case provider.UserTypeLicensed:
		return "Licensed"
	default:
		return "Other"
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
