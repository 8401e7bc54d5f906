package intent

import "regexp"

// Family is the ordered pattern set that recognizes one intent.
type Family struct {
	Intent   Intent
	Patterns []*regexp.Regexp
}

// Matches reports whether any pattern of the family matches normalized text.
func (f Family) Matches(text string) bool {
	for _, p := range f.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// DefaultFamilies returns the built-in table in evaluation order. The first
// family that matches wins: mutations come first, then families keyed on a
// specific noun (user, recording), then meeting lookups. Scheduling has the
// broadest patterns and runs after all of them, ahead of help and greetings.
func DefaultFamilies() []Family {
	return []Family{
		family(DeleteMeeting,
			`\b(cancel|delete|remove)\b.*\b(meeting|call)\b`,
			`\bdrop\b.*\b(meeting|call)\b`,
		),
		family(UpdateMeeting,
			`\b(update|modify|change|reschedule|edit)\b.*\b(meeting|call)\b`,
			`\bmove\b.*\b(meeting|call)\b`,
			`\bchange\b.*\b(time|date)\b.*\b(meeting|call)\b`,
		),
		family(CreateUser,
			`\b(create|add|new|provision)\b.*\b(user|account)\b`,
			`\b(add|invite)\b.*\b(someone|person)\b.*\b(account|zoom|organization|team)\b`,
		),
		family(ListRecordings,
			`\b(list|show|get|display|view)\b.*\b(recordings|videos)\b`,
			`\b(my|recent|all)\b.*\b(recordings|videos)\b`,
			`\bwhat\b.*\b(recordings|videos)\b`,
		),
		family(GetRecording,
			`\b(get|show|find|details)\b.*\b(recording|video)\b`,
			`\brecording (details|info|information)\b`,
		),
		family(DownloadRecording,
			`\b(download|get|fetch)\b.*\b(recording|video)\b`,
			`\bsave\b.*\b(recording|video)\b`,
		),
		family(GetUser,
			`\b(get|show|find|lookup)\b.*\b(user|account|profile)\b`,
			`\b(who is|user info|user details)\b`,
			`\btell me about\b.*\b(user|account)\b`,
		),
		family(ListUsers,
			`\b(list|show|get|display|view)\b.*\busers\b`,
			`\ball users\b`,
			`\buser (list|directory)\b`,
		),
		family(GetMeeting,
			`\b(get|show|find|details|info)\b.*\b(meeting|call)\b`,
			`\btell me about\b.*\b(meeting|call)\b`,
			`\bmeeting (details|info|information)\b`,
		),
		family(ListMeetings,
			`\b(list|show|get|display|view)\b.*\b(meetings|calls|conferences)\b`,
			`\b(my|upcoming|today's|this week's)\b.*\b(meetings|calls)\b`,
			`\bwhat\b.*\b(meetings|calls)\b`,
		),
		family(ScheduleMeeting,
			`\b(schedule|create|set up|arrange|book)\b.*\b(meeting|call|conference)\b`,
			`\b(meeting|call)\b.*\b(tomorrow|today|next|on)\b`,
			`\b(schedule|create|setup)\b.*\b(zoom|video call)\b`,
		),
		family(Help,
			`\b(help|what can you do|commands|assist)\b`,
			`\b(show|list) (commands|options|capabilities)\b`,
		),
		family(Greeting,
			`\b(hello|hi|hey|greetings|good morning|good afternoon)\b`,
			`^(yo|sup|what's up)\b`,
		),
	}
}

func family(in Intent, exprs ...string) Family {
	f := Family{Intent: in, Patterns: make([]*regexp.Regexp, 0, len(exprs))}
	for _, expr := range exprs {
		f.Patterns = append(f.Patterns, regexp.MustCompile(expr))
	}
	return f
}
