package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MockProvider keeps meetings, recordings, and users in memory so the bot
// works without Zoom credentials.
type MockProvider struct {
	mu         sync.Mutex
	nextID     int64
	meetings   map[int64]Meeting
	recordings map[int64]Recording
	users      map[string]User
	calls      map[string]int
}

func NewMockProvider() *MockProvider {
	p := &MockProvider{
		nextID:     85000000001,
		meetings:   make(map[int64]Meeting),
		recordings: make(map[int64]Recording),
		users:      make(map[string]User),
		calls:      make(map[string]int),
	}
	p.users["me"] = User{ID: "me", FirstName: "Demo", LastName: "Host", Email: "host@example.com", Type: UserTypeLicensed, Status: "active", Timezone: "UTC"}
	p.recordings[84000000001] = Recording{
		UUID:           "mock-recording-1",
		MeetingID:      84000000001,
		Topic:          "Weekly sync",
		StartTime:      "2024-01-08T15:00:00Z",
		Duration:       45,
		TotalSize:      52428800,
		RecordingCount: 1,
		ShareURL:       "https://zoom.example/rec/share/mock-recording-1",
		Files: []RecordingFile{{
			ID:            "mock-file-1",
			FileType:      "MP4",
			FileSize:      52428800,
			RecordingType: "shared_screen_with_speaker_view",
			PlayURL:       "https://zoom.example/rec/play/mock-file-1",
			DownloadURL:   "https://zoom.example/rec/download/mock-file-1",
			Status:        "completed",
		}},
	}
	return p
}

// Calls reports how many times op has been invoked.
func (p *MockProvider) Calls(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *MockProvider) begin(ctx context.Context, op string, cred Credential) error {
	select {
	case <-ctx.Done():
		return newError(op, KindTransient, 0, ctx.Err())
	default:
	}
	if cred.Token == nil || strings.TrimSpace(cred.Token.AccessToken) == "" {
		return newError(op, KindUnauthorized, 0, errors.New("missing access token"))
	}
	p.calls[op]++
	return nil
}

func (p *MockProvider) CreateMeeting(ctx context.Context, cred Credential, req MeetingRequest) (Meeting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "create meeting", cred); err != nil {
		return Meeting{}, err
	}
	if strings.TrimSpace(req.Topic) == "" {
		return Meeting{}, newError("create meeting", KindOther, 400, errors.New("topic is required"))
	}
	id := p.nextID
	p.nextID++
	m := Meeting{
		ID:        id,
		UUID:      fmt.Sprintf("mock-%d", id),
		Topic:     req.Topic,
		Type:      req.Type,
		Status:    "waiting",
		StartTime: req.StartTime,
		Duration:  req.Duration,
		Timezone:  req.Timezone,
		Agenda:    req.Agenda,
		JoinURL:   fmt.Sprintf("https://zoom.example/j/%d", id),
		Password:  "mock",
		HostEmail: p.users["me"].Email,
		Settings:  req.Settings,
	}
	if m.Type == 0 {
		m.Type = MeetingTypeScheduled
	}
	p.meetings[id] = m
	return m, nil
}

func (p *MockProvider) ListMeetings(ctx context.Context, cred Credential, opts ListOptions) (MeetingList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "list meetings", cred); err != nil {
		return MeetingList{}, err
	}
	ids := make([]int64, 0, len(p.meetings))
	for id := range p.meetings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	size := pageQuerySize(opts)
	out := MeetingList{PageSize: size, TotalRecords: len(ids)}
	for _, id := range ids {
		if len(out.Meetings) == size {
			break
		}
		out.Meetings = append(out.Meetings, p.meetings[id])
	}
	return out, nil
}

func (p *MockProvider) GetMeeting(ctx context.Context, cred Credential, meetingID string) (Meeting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "get meeting", cred); err != nil {
		return Meeting{}, err
	}
	m, ok := p.meetings[parseID(meetingID)]
	if !ok {
		return Meeting{}, notFound("get meeting", "meeting", meetingID)
	}
	return m, nil
}

func (p *MockProvider) UpdateMeeting(ctx context.Context, cred Credential, meetingID string, req MeetingUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "update meeting", cred); err != nil {
		return err
	}
	id := parseID(meetingID)
	m, ok := p.meetings[id]
	if !ok {
		return notFound("update meeting", "meeting", meetingID)
	}
	if req.Empty() {
		return newError("update meeting", KindOther, 400, errors.New("no fields to update"))
	}
	if req.Topic != "" {
		m.Topic = req.Topic
	}
	if req.StartTime != "" {
		m.StartTime = req.StartTime
	}
	if req.Duration > 0 {
		m.Duration = req.Duration
	}
	if req.Timezone != "" {
		m.Timezone = req.Timezone
	}
	p.meetings[id] = m
	return nil
}

func (p *MockProvider) DeleteMeeting(ctx context.Context, cred Credential, meetingID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "delete meeting", cred); err != nil {
		return err
	}
	id := parseID(meetingID)
	if _, ok := p.meetings[id]; !ok {
		return notFound("delete meeting", "meeting", meetingID)
	}
	delete(p.meetings, id)
	return nil
}

func (p *MockProvider) ListRecordings(ctx context.Context, cred Credential, opts ListOptions) (RecordingList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "list recordings", cred); err != nil {
		return RecordingList{}, err
	}
	ids := make([]int64, 0, len(p.recordings))
	for id := range p.recordings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := RecordingList{From: opts.From, To: opts.To, TotalRecords: len(ids)}
	for _, id := range ids {
		out.Recordings = append(out.Recordings, p.recordings[id])
	}
	return out, nil
}

func (p *MockProvider) GetRecording(ctx context.Context, cred Credential, meetingID string) (Recording, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "get recording", cred); err != nil {
		return Recording{}, err
	}
	r, ok := p.recordings[parseID(meetingID)]
	if !ok {
		return Recording{}, notFound("get recording", "recording", meetingID)
	}
	return r, nil
}

func (p *MockProvider) GetUser(ctx context.Context, cred Credential, userID string) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "get user", cred); err != nil {
		return User{}, err
	}
	key := strings.ToLower(strings.TrimSpace(userID))
	if key == "" {
		key = "me"
	}
	if u, ok := p.users[key]; ok {
		return u, nil
	}
	for _, u := range p.users {
		if strings.EqualFold(u.Email, key) {
			return u, nil
		}
	}
	return User{}, notFound("get user", "user", userID)
}

func (p *MockProvider) ListUsers(ctx context.Context, cred Credential, opts ListOptions) (UserList, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "list users", cred); err != nil {
		return UserList{}, err
	}
	out := UserList{PageSize: pageQuerySize(opts)}
	for _, u := range p.users {
		out.Users = append(out.Users, u)
	}
	sort.Slice(out.Users, func(i, j int) bool { return out.Users[i].Email < out.Users[j].Email })
	if len(out.Users) > out.PageSize {
		out.Users = out.Users[:out.PageSize]
	}
	out.TotalRecords = len(p.users)
	return out, nil
}

func (p *MockProvider) CreateUser(ctx context.Context, cred Credential, req NewUser) (User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(ctx, "create user", cred); err != nil {
		return User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return User{}, newError("create user", KindOther, 400, errors.New("email is required"))
	}
	for _, u := range p.users {
		if strings.EqualFold(u.Email, email) {
			return User{}, newError("create user", KindOther, 409, fmt.Errorf("user %s already exists", email))
		}
	}
	if req.Type == 0 {
		req.Type = UserTypeBasic
	}
	u := User{
		ID:        fmt.Sprintf("mock-user-%d", len(p.users)+1),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
		Type:      req.Type,
		Status:    "pending",
		Timezone:  "UTC",
	}
	p.users[u.ID] = u
	return u, nil
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

func pageQuerySize(opts ListOptions) int {
	size, _ := strconv.Atoi(pageQuery(opts).Get("page_size"))
	return size
}

func notFound(op, what, id string) *Error {
	return newError(op, KindNotFound, 404, fmt.Errorf("%s %s not found", what, id))
}
