package intent

import "strings"

// Intent identifies a recognizable user goal.
type Intent string

const (
	ScheduleMeeting   Intent = "SCHEDULE_MEETING"
	ListMeetings      Intent = "LIST_MEETINGS"
	GetMeeting        Intent = "GET_MEETING"
	UpdateMeeting     Intent = "UPDATE_MEETING"
	DeleteMeeting     Intent = "DELETE_MEETING"
	ListRecordings    Intent = "LIST_RECORDINGS"
	GetRecording      Intent = "GET_RECORDING"
	DownloadRecording Intent = "DOWNLOAD_RECORDING"
	GetUser           Intent = "GET_USER"
	ListUsers         Intent = "LIST_USERS"
	CreateUser        Intent = "CREATE_USER"
	Help              Intent = "HELP"
	Greeting          Intent = "GREETING"
	Unknown           Intent = "UNKNOWN"
)

var descriptions = map[Intent]string{
	ScheduleMeeting:   "Schedule a new meeting",
	ListMeetings:      "List upcoming meetings",
	GetMeeting:        "Get specific meeting details",
	UpdateMeeting:     "Update an existing meeting",
	DeleteMeeting:     "Cancel/delete a meeting",
	ListRecordings:    "List available recordings",
	GetRecording:      "Get specific recording details",
	DownloadRecording: "Download a recording",
	GetUser:           "Get user information",
	ListUsers:         "List users in organization",
	CreateUser:        "Create new user",
	Help:              "Show available commands",
	Greeting:          "User greeting",
	Unknown:           "Intent not recognized",
}

// All returns every known intent, Unknown last.
func All() []Intent {
	return []Intent{
		ScheduleMeeting, ListMeetings, GetMeeting, UpdateMeeting, DeleteMeeting,
		ListRecordings, GetRecording, DownloadRecording,
		GetUser, ListUsers, CreateUser,
		Help, Greeting, Unknown,
	}
}

// Parse maps a case-insensitive intent name to an Intent.
func Parse(name string) (Intent, bool) {
	in := Intent(strings.ToUpper(strings.TrimSpace(name)))
	_, ok := descriptions[in]
	return in, ok
}

func (i Intent) Description() string {
	if d, ok := descriptions[i]; ok {
		return d
	}
	return descriptions[Unknown]
}

// RequiresAuthentication reports whether handling the intent needs a provider credential.
func (i Intent) RequiresAuthentication() bool {
	switch i {
	case Greeting, Help, Unknown:
		return false
	default:
		_, known := descriptions[i]
		return known
	}
}

// IsWriteOperation reports whether the intent mutates provider state.
func (i Intent) IsWriteOperation() bool {
	switch i {
	case ScheduleMeeting, UpdateMeeting, DeleteMeeting, CreateUser:
		return true
	default:
		return false
	}
}

func (i Intent) String() string { return string(i) }
