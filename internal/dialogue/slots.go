package dialogue

import (
	"fmt"

	"github.com/ent0n29/meetingbot/internal/entity"
	"github.com/ent0n29/meetingbot/internal/intent"
)

// Reserved context keys.
const (
	ctxTimezone      = "timezone"
	ctxPendingIntent = "pendingIntent"

	ctxMeetingDate      = "meetingDate"
	ctxMeetingTime      = "meetingTime"
	ctxParticipantEmail = "participantEmail"
	ctxMeetingDuration  = "meetingDuration"

	ctxUpdateMeetingID = "updateMeetingId"
	ctxUpdateDate      = "updateDate"
	ctxUpdateTime      = "updateTime"
	ctxUpdateDuration  = "updateDuration"

	ctxDeleteMeetingID = "deleteMeetingId"

	ctxNewUserEmail = "newUserEmail"
)

// sourceMeetingRef binds a meeting reference found in the message rather than
// an extracted entity.
const sourceMeetingRef = "meetingRef"

// binding copies a value found in the message into a context key.
type binding struct {
	source string
	key    string
}

// slot is one required field. It is filled when any of its keys holds a value.
type slot struct {
	name     string
	keys     []string
	question string
}

// slotPlan is the ordered slot-filling contract of one write intent. The
// first empty required slot is the only question asked in a turn.
type slotPlan struct {
	intent   intent.Intent
	bindings []binding
	required []slot
}

var (
	schedulePlan = slotPlan{
		intent: intent.ScheduleMeeting,
		bindings: []binding{
			{entity.KeyDate, ctxMeetingDate},
			{entity.KeyTime, ctxMeetingTime},
			{entity.KeyEmail, ctxParticipantEmail},
			{entity.KeyDuration, ctxMeetingDuration},
		},
		required: []slot{
			{name: "date", keys: []string{ctxMeetingDate}, question: msgAskDate},
			{name: "time", keys: []string{ctxMeetingTime}, question: msgAskTime},
		},
	}

	updatePlan = slotPlan{
		intent: intent.UpdateMeeting,
		bindings: []binding{
			{sourceMeetingRef, ctxUpdateMeetingID},
			{entity.KeyDate, ctxUpdateDate},
			{entity.KeyTime, ctxUpdateTime},
			{entity.KeyDuration, ctxUpdateDuration},
		},
		required: []slot{
			{name: "meeting", keys: []string{ctxUpdateMeetingID}, question: msgAskUpdateWhich},
			{name: "change", keys: []string{ctxUpdateDate, ctxUpdateTime, ctxUpdateDuration}, question: msgAskUpdateWhat},
		},
	}

	deletePlan = slotPlan{
		intent: intent.DeleteMeeting,
		bindings: []binding{
			{sourceMeetingRef, ctxDeleteMeetingID},
		},
		required: []slot{
			{name: "meeting", keys: []string{ctxDeleteMeetingID}, question: msgAskDeleteWhich},
		},
	}

	createUserPlan = slotPlan{
		intent: intent.CreateUser,
		bindings: []binding{
			{entity.KeyEmail, ctxNewUserEmail},
		},
		required: []slot{
			{name: "email", keys: []string{ctxNewUserEmail}, question: msgAskNewUserEmail},
		},
	}
)

// keys lists every context key the plan may write, plus the pending marker.
func (p slotPlan) keys() []string {
	out := make([]string, 0, len(p.bindings)+1)
	for _, b := range p.bindings {
		out = append(out, b.key)
	}
	return append(out, ctxPendingIntent)
}

func (p slotPlan) usesEntity(key string) bool {
	for _, b := range p.bindings {
		if b.source == key {
			return true
		}
	}
	return false
}

// fillSlots merges this turn's values into context and reports either the
// complete slot values or the single question to ask next.
func (e *Engine) fillSlots(t *turn, plan slotPlan) (values map[string]string, question string, err error) {
	updates := map[string]string{ctxPendingIntent: string(plan.intent)}

	// Invalid entities are not stored; the user is asked to correct just that value.
	var problem *entity.Problem
	for _, p := range e.extractor.Problems(t.entities, t.now) {
		if plan.usesEntity(p.Key) {
			problem = &p
			break
		}
	}

	for _, b := range plan.bindings {
		if b.source == sourceMeetingRef {
			ref, ok := findReference(t.text)
			if !ok {
				continue
			}
			id, msg := e.resolveReference(t.userID, ref, refMeeting)
			if msg != "" {
				question = msg
				continue
			}
			updates[b.key] = id
			continue
		}
		v, ok := t.entities[b.source]
		if !ok || (problem != nil && problem.Key == b.source) {
			continue
		}
		updates[b.key] = v
	}

	if err := e.sessions.SetContextValues(t.userID, updates); err != nil {
		return nil, "", err
	}
	if problem != nil {
		return nil, clarify(*problem), nil
	}
	if question != "" {
		return nil, question, nil
	}

	snapshot := e.sessions.ContextSnapshot(t.userID)
	for _, s := range plan.required {
		if !anyPresent(snapshot, s.keys) {
			return nil, s.question, nil
		}
	}
	return snapshot, "", nil
}

// clearPlan drops every key the plan owns so the next attempt starts clean.
func (e *Engine) clearPlan(userID string, plan slotPlan) {
	e.forget(userID, plan.intent, plan.keys()...)
}

// forget drops context keys, logging instead of failing the turn.
func (e *Engine) forget(userID string, in intent.Intent, keys ...string) {
	if err := e.sessions.DeleteContext(userID, keys...); err != nil {
		e.logger.Warn("clear slot context failed", "user_id", userID, "intent", in, "keys", keys, "error", err)
	}
}

func anyPresent(m map[string]string, keys []string) bool {
	for _, k := range keys {
		if m[k] != "" {
			return true
		}
	}
	return false
}

func clarify(p entity.Problem) string {
	switch p.Key {
	case entity.KeyDate:
		if p.Reason == "date is in the past" {
			return fmt.Sprintf("%s has already passed. Which date would you like instead?", p.Value)
		}
		return "I couldn't read that date. Could you give it as YYYY-MM-DD or something like 'next Monday'?"
	case entity.KeyTime:
		return "I couldn't read that time. Could you give it like '2pm' or '14:00'?"
	case entity.KeyDuration:
		return fmt.Sprintf("That duration doesn't work: %s. How long should the meeting be?", p.Reason)
	default:
		return fmt.Sprintf("%s doesn't look right. Could you try again?", p.Value)
	}
}
