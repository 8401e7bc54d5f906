package dialogue

const (
	msgEmptyInput    = "I didn't receive any message. Could you please type something?"
	msgInternalError = "I encountered an error processing your message. Please try again."
	msgLowConfidence = "I'm not entirely sure I understood that correctly. Did you want to %s?"
	msgUnknown       = "I'm not sure I understood that. Could you rephrase, or type 'help' to see what I can do?"

	msgGreeting = "Hello! I'm your Zoom assistant. I can help you manage meetings, recordings, and users. " +
		"Type 'help' to see what I can do!"

	msgHelp = "Here's what I can help you with:\n\n" +
		"MEETINGS:\n" +
		"- Schedule a meeting: \"Schedule a meeting tomorrow at 2pm\"\n" +
		"- List meetings: \"Show my meetings\"\n" +
		"- Get meeting details: \"Tell me about meeting 1\"\n" +
		"- Update meeting: \"Reschedule meeting 1 to 3pm\"\n" +
		"- Cancel meeting: \"Cancel meeting 2\"\n\n" +
		"RECORDINGS:\n" +
		"- List recordings: \"Show my recordings\"\n" +
		"- Get recording: \"Get recording 1\"\n" +
		"- Download recording: \"Download recording 1\"\n\n" +
		"USERS:\n" +
		"- Get user: \"Show user john@example.com\"\n" +
		"- List users: \"List all users\"\n" +
		"- Create user: \"Add user jane@example.com\"\n\n" +
		"Just ask in natural language, and I'll do my best to help!"

	msgAskDate = "I'd be happy to schedule a meeting! What date would you like? " +
		"(e.g., 'tomorrow', '2024-01-15', or 'next Monday')"
	msgAskTime = "Got it! What time works for you? " +
		"(e.g., '2pm', '14:00', or '2:30pm')"

	msgAskUpdateWhich = "Please list your meetings first, then say 'update meeting 1' to modify it.\n\n" +
		"Or provide a specific meeting ID."
	msgAskUpdateWhat = "What would you like to update?\n\n" +
		"You can change:\n" +
		"- Date (e.g., 'reschedule to tomorrow')\n" +
		"- Time (e.g., 'change to 3pm')\n" +
		"- Duration (e.g., 'make it 90 minutes')"
	msgAskUpdateTime = "What time should the meeting start on %s?"
	msgAskUpdateDate = "Which date should the meeting move to at %s?"

	msgAskDeleteWhich = "Please list your meetings first, then say 'delete meeting 1' to cancel it.\n\n" +
		"Or provide a specific meeting ID."
	msgAskGetWhich = "Please list your meetings first, then say 'get meeting 1' to see details.\n\n" +
		"Or provide a specific meeting ID."
	msgAskRecordingWhich = "Please list your recordings first, then say 'get recording 1'.\n\n" +
		"Or provide the meeting ID of the recording."
	msgAskUserEmail    = "Please provide the user's email address."
	msgAskNewUserEmail = "Sure, I can add a user. What is their email address?"

	msgUnknownReference = "I don't have %s %d from your last list. Say 'list my %ss' to refresh it."

	msgAuthFailed = "Zoom API authentication failed. Please check your Zoom API credentials.\n\n" +
		"The application may be using invalid or mock credentials. " +
		"Check the application logs for configuration details."
	msgTimeout = "Zoom is taking too long to respond. Please try again in a moment."

	msgBadDateTime = "I couldn't understand that date and time. Could you give them again? " +
		"(e.g., '2024-01-15' and '2pm')"
)
