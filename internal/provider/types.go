package provider

import "golang.org/x/oauth2"

// Credential authorizes provider calls on behalf of one user. Callers pass it
// through without inspecting the token.
type Credential struct {
	Token *oauth2.Token
	// Subject is the provider-side user the call acts as; "me" when empty.
	Subject string
}

func (c Credential) subject() string {
	if c.Subject == "" {
		return "me"
	}
	return c.Subject
}

// Meeting types as understood by the provider API.
const (
	MeetingTypeInstant   = 1
	MeetingTypeScheduled = 2
)

type MeetingSettings struct {
	HostVideo        bool      `json:"host_video"`
	ParticipantVideo bool      `json:"participant_video"`
	JoinBeforeHost   bool      `json:"join_before_host"`
	MuteUponEntry    bool      `json:"mute_upon_entry"`
	WaitingRoom      bool      `json:"waiting_room"`
	Invitees         []Invitee `json:"meeting_invitees,omitempty"`
}

type Invitee struct {
	Email string `json:"email"`
}

type Meeting struct {
	ID        int64            `json:"id"`
	UUID      string           `json:"uuid,omitempty"`
	Topic     string           `json:"topic"`
	Type      int              `json:"type"`
	Status    string           `json:"status,omitempty"`
	StartTime string           `json:"start_time,omitempty"`
	Duration  int              `json:"duration"`
	Timezone  string           `json:"timezone,omitempty"`
	Agenda    string           `json:"agenda,omitempty"`
	JoinURL   string           `json:"join_url,omitempty"`
	Password  string           `json:"password,omitempty"`
	HostEmail string           `json:"host_email,omitempty"`
	Settings  *MeetingSettings `json:"settings,omitempty"`
}

// MeetingRequest creates a meeting. StartTime is naive UTC text.
type MeetingRequest struct {
	Topic     string           `json:"topic"`
	Type      int              `json:"type"`
	StartTime string           `json:"start_time"`
	Duration  int              `json:"duration"`
	Timezone  string           `json:"timezone"`
	Agenda    string           `json:"agenda,omitempty"`
	Settings  *MeetingSettings `json:"settings,omitempty"`
}

// MeetingUpdate patches a meeting; zero fields are left unchanged.
type MeetingUpdate struct {
	Topic     string `json:"topic,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

func (u MeetingUpdate) Empty() bool {
	return u.Topic == "" && u.StartTime == "" && u.Duration == 0
}

type MeetingList struct {
	PageSize      int       `json:"page_size"`
	TotalRecords  int       `json:"total_records"`
	NextPageToken string    `json:"next_page_token,omitempty"`
	Meetings      []Meeting `json:"meetings"`
}

type RecordingFile struct {
	ID            string `json:"id"`
	FileType      string `json:"file_type"`
	FileSize      int64  `json:"file_size"`
	RecordingType string `json:"recording_type,omitempty"`
	PlayURL       string `json:"play_url,omitempty"`
	DownloadURL   string `json:"download_url,omitempty"`
	Status        string `json:"status,omitempty"`
}

type Recording struct {
	UUID           string          `json:"uuid"`
	MeetingID      int64           `json:"id"`
	Topic          string          `json:"topic"`
	StartTime      string          `json:"start_time"`
	Duration       int             `json:"duration"`
	TotalSize      int64           `json:"total_size"`
	RecordingCount int             `json:"recording_count"`
	ShareURL       string          `json:"share_url,omitempty"`
	Files          []RecordingFile `json:"recording_files"`
}

type RecordingList struct {
	From         string      `json:"from"`
	To           string      `json:"to"`
	TotalRecords int         `json:"total_records"`
	Recordings   []Recording `json:"meetings"`
}

// User account types.
const (
	UserTypeBasic    = 1
	UserTypeLicensed = 2
)

type User struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Type      int    `json:"type"`
	Status    string `json:"status,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Dept      string `json:"dept,omitempty"`
}

func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Email
	}
	return name
}

type UserList struct {
	PageSize     int    `json:"page_size"`
	TotalRecords int    `json:"total_records"`
	Users        []User `json:"users"`
}

type NewUser struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Type      int    `json:"type"`
}

// ListOptions narrows list calls. From and To are YYYY-MM-DD.
type ListOptions struct {
	Type     string
	PageSize int
	From     string
	To       string
}
