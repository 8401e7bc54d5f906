package dialogue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ent0n29/meetingbot/internal/intent"
	"github.com/ent0n29/meetingbot/internal/provider"
	"github.com/ent0n29/meetingbot/internal/timezone"
)

func (e *Engine) routes() map[intent.Intent]handlerFunc {
	return map[intent.Intent]handlerFunc{
		intent.Greeting:          func(*turn) reply { return reply{text: msgGreeting, ok: true} },
		intent.Help:              func(*turn) reply { return reply{text: msgHelp, ok: true} },
		intent.ScheduleMeeting:   e.handleSchedule,
		intent.ListMeetings:      e.handleListMeetings,
		intent.GetMeeting:        e.handleGetMeeting,
		intent.UpdateMeeting:     e.handleUpdate,
		intent.DeleteMeeting:     e.handleDelete,
		intent.ListRecordings:    e.handleListRecordings,
		intent.GetRecording:      e.handleGetRecording,
		intent.DownloadRecording: e.handleDownloadRecording,
		intent.GetUser:           e.handleGetUser,
		intent.ListUsers:         e.handleListUsers,
		intent.CreateUser:        e.handleCreateUser,
	}
}

func (e *Engine) handleSchedule(t *turn) reply {
	values, question, err := e.fillSlots(t, schedulePlan)
	if err != nil {
		return reply{text: msgInternalError}
	}
	if question != "" {
		return reply{text: question, ok: true}
	}

	date, clock := values[ctxMeetingDate], values[ctxMeetingTime]
	participant := values[ctxParticipantEmail]
	duration := e.cfg.DefaultMeetingMinutes
	if v := values[ctxMeetingDuration]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			duration = n
		}
	}

	startUTC, err := e.converter.LocalToUTC(date, clock, t.zone)
	if err != nil {
		e.logger.Warn("schedule date/time conversion failed", "user_id", t.userID, "error", err)
		e.forget(t.userID, t.intent, ctxMeetingDate, ctxMeetingTime)
		return reply{text: msgBadDateTime, ok: true}
	}

	req := provider.MeetingRequest{
		Topic:     e.cfg.MeetingTopic,
		Type:      provider.MeetingTypeScheduled,
		StartTime: startUTC,
		Duration:  duration,
		Timezone:  "UTC",
		Settings: &provider.MeetingSettings{
			HostVideo:        true,
			ParticipantVideo: true,
			MuteUponEntry:    true,
			WaitingRoom:      true,
		},
	}
	if participant != "" {
		req.Settings.Invitees = []provider.Invitee{{Email: participant}}
	}

	var meeting provider.Meeting
	err = e.dispatch(t, "start "+startUTC, func(ctx context.Context, cred provider.Credential) error {
		var err error
		meeting, err = e.provider.CreateMeeting(ctx, cred, req)
		return err
	})
	e.clearPlan(t.userID, schedulePlan)
	if err != nil {
		return reply{text: failureText(err, "", "Sorry, I encountered an error creating the meeting. Please try again later.")}
	}

	var b strings.Builder
	b.WriteString("Meeting scheduled successfully!\n\n")
	b.WriteString("When: " + e.converter.FormatLocalDateTime(date, clock, t.zone) + "\n")
	fmt.Fprintf(&b, "Duration: %d minutes\n", duration)
	fmt.Fprintf(&b, "Meeting ID: %d\n", meeting.ID)
	if meeting.Password != "" {
		b.WriteString("Password: " + meeting.Password + "\n")
	}
	if meeting.JoinURL != "" {
		b.WriteString("\nJoin URL: " + meeting.JoinURL + "\n")
	}
	if participant != "" {
		b.WriteString("\nI've added " + participant + " to the invitee list. You can also share the join URL above with them.")
	}
	return reply{text: strings.TrimRight(b.String(), "\n"), ok: true}
}

func (e *Engine) handleListMeetings(t *turn) reply {
	var list provider.MeetingList
	err := e.dispatch(t, "", func(ctx context.Context, cred provider.Credential) error {
		var err error
		list, err = e.provider.ListMeetings(ctx, cred, provider.ListOptions{Type: "scheduled", PageSize: e.cfg.ListPageSize})
		return err
	})
	if err != nil {
		return reply{text: failureText(err, "", "Sorry, I couldn't fetch your meetings right now. Please try again later.")}
	}
	if len(list.Meetings) == 0 {
		e.storeReferences(t.userID, refMeeting, nil)
		return reply{text: "You have no upcoming meetings.\n\n" +
			"Would you like to schedule one? Just say 'schedule a meeting tomorrow at 2pm'", ok: true}
	}

	ids := make([]string, len(list.Meetings))
	var b strings.Builder
	b.WriteString("Your upcoming meetings:\n\n")
	for i, m := range list.Meetings {
		ids[i] = strconv.FormatInt(m.ID, 10)
		fmt.Fprintf(&b, "%d. %s\n", i+1, orDefault(m.Topic, "Meeting"))
		if m.StartTime != "" {
			b.WriteString("   " + e.converter.UTCToLocal(m.StartTime, t.zone) + "\n")
		}
		b.WriteString("   ID: " + ids[i] + "\n\n")
	}
	e.storeReferences(t.userID, refMeeting, ids)
	b.WriteString("Tip: Say 'get meeting 1' for details or 'delete meeting 2' to cancel.")
	return reply{text: b.String(), ok: true}
}

func (e *Engine) handleGetMeeting(t *turn) reply {
	ref, ok := findReference(t.text)
	if !ok {
		return reply{text: msgAskGetWhich, ok: true}
	}
	id, msg := e.resolveReference(t.userID, ref, refMeeting)
	if msg != "" {
		return reply{text: msg, ok: true}
	}

	var m provider.Meeting
	err := e.dispatch(t, "", func(ctx context.Context, cred provider.Credential) error {
		var err error
		m, err = e.provider.GetMeeting(ctx, cred, id)
		return err
	})
	if err != nil {
		return reply{text: failureText(err,
			"Meeting not found. It may have been deleted or the ID is incorrect.",
			"Sorry, I couldn't fetch the meeting details. Please try again later.")}
	}

	var b strings.Builder
	b.WriteString("Meeting Details:\n\n")
	b.WriteString("Topic: " + orDefault(m.Topic, "N/A") + "\n")
	if m.StartTime != "" {
		b.WriteString("When: " + e.converter.UTCToLocal(m.StartTime, t.zone) + "\n")
	}
	if m.Duration > 0 {
		fmt.Fprintf(&b, "Duration: %d minutes\n", m.Duration)
	}
	fmt.Fprintf(&b, "Meeting ID: %d\n", m.ID)
	if m.Password != "" {
		b.WriteString("Password: " + m.Password + "\n")
	}
	if m.JoinURL != "" {
		b.WriteString("\nJoin URL: " + m.JoinURL + "\n")
	}
	if s := m.Settings; s != nil {
		b.WriteString("\nSettings:\n")
		b.WriteString("   - Waiting room: " + onOff(s.WaitingRoom, "Enabled", "Disabled") + "\n")
		b.WriteString("   - Host video: " + onOff(s.HostVideo, "On", "Off") + "\n")
		b.WriteString("   - Participant video: " + onOff(s.ParticipantVideo, "On", "Off") + "\n")
	}
	return reply{text: strings.TrimRight(b.String(), "\n"), ok: true}
}

func (e *Engine) handleUpdate(t *turn) reply {
	values, question, err := e.fillSlots(t, updatePlan)
	if err != nil {
		return reply{text: msgInternalError}
	}
	if question != "" {
		return reply{text: question, ok: true}
	}

	meetingID := values[ctxUpdateMeetingID]
	date, clock := values[ctxUpdateDate], values[ctxUpdateTime]
	var update provider.MeetingUpdate

	if date != "" || clock != "" {
		if date == "" || clock == "" {
			// Keep the half the user did not mention from the current schedule.
			date, clock = e.completeStart(t, meetingID, date, clock)
			if date == "" {
				return reply{text: fmt.Sprintf(msgAskUpdateDate, clock), ok: true}
			}
			if clock == "" {
				return reply{text: fmt.Sprintf(msgAskUpdateTime, date), ok: true}
			}
		}
		start, err := e.converter.LocalToUTC(date, clock, t.zone)
		if err != nil {
			e.forget(t.userID, t.intent, ctxUpdateDate, ctxUpdateTime)
			return reply{text: msgBadDateTime, ok: true}
		}
		update.StartTime = start
		update.Timezone = "UTC"
	}
	if v := values[ctxUpdateDuration]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			e.forget(t.userID, t.intent, ctxUpdateDuration)
			return reply{text: "Invalid duration format. Please specify duration in minutes (e.g., '60' or '90').", ok: true}
		}
		update.Duration = n
	}

	err = e.dispatch(t, "meeting "+meetingID, func(ctx context.Context, cred provider.Credential) error {
		return e.provider.UpdateMeeting(ctx, cred, meetingID, update)
	})
	e.clearPlan(t.userID, updatePlan)
	if err != nil {
		return reply{text: failureText(err,
			"Meeting not found. It may have been deleted.",
			"Sorry, I couldn't update the meeting. Please try again later.")}
	}

	var b strings.Builder
	b.WriteString("Meeting updated successfully!\n\n")
	if update.StartTime != "" {
		b.WriteString("New time: " + e.converter.FormatLocalDateTime(date, clock, t.zone) + "\n")
	}
	if update.Duration > 0 {
		fmt.Fprintf(&b, "New duration: %d minutes\n", update.Duration)
	}
	b.WriteString("Your changes have been saved.")
	return reply{text: b.String(), ok: true}
}

// completeStart fills a missing date or time from the meeting's current start
// in the user's zone. Either result may stay empty when the lookup fails.
func (e *Engine) completeStart(t *turn, meetingID, date, clock string) (string, string) {
	var m provider.Meeting
	err := e.lookup(t, func(ctx context.Context, cred provider.Credential) error {
		var err error
		m, err = e.provider.GetMeeting(ctx, cred, meetingID)
		return err
	})
	if err != nil || m.StartTime == "" {
		return date, clock
	}
	local, err := timezone.ParseInstant(m.StartTime)
	if err != nil {
		return date, clock
	}
	local = local.In(e.converter.Location(t.zone))
	if date == "" {
		date = local.Format("2006-01-02")
	}
	if clock == "" {
		clock = local.Format("15:04")
	}
	return date, clock
}

func (e *Engine) handleDelete(t *turn) reply {
	values, question, err := e.fillSlots(t, deletePlan)
	if err != nil {
		return reply{text: msgInternalError}
	}
	if question != "" {
		return reply{text: question, ok: true}
	}

	meetingID := values[ctxDeleteMeetingID]
	err = e.dispatch(t, "meeting "+meetingID, func(ctx context.Context, cred provider.Credential) error {
		return e.provider.DeleteMeeting(ctx, cred, meetingID)
	})
	e.clearPlan(t.userID, deletePlan)
	if err == nil || provider.KindOf(err) == provider.KindNotFound {
		// List positions no longer match what the provider holds.
		if _, derr := e.sessions.DeleteContextPrefix(t.userID, refMeeting+"_"); derr != nil {
			e.logger.Warn("clear meeting references failed", "user_id", t.userID, "error", derr)
		}
	}
	if err != nil {
		return reply{text: failureText(err,
			"Meeting not found. It may have already been cancelled.",
			"Sorry, I couldn't cancel the meeting. Please try again later.")}
	}
	return reply{text: "Meeting cancelled successfully!\n\n" +
		"Meeting " + meetingID + " has been removed from your schedule.", ok: true}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func onOff(v bool, on, off string) string {
	if v {
		return on
	}
	return off
}
