package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ent0n29/meetingbot/internal/reliability"
)

const (
	DefaultBaseURL  = "https://api.zoom.us/v2"
	maxPageSize     = 300
	defaultPageSize = 30
)

// ZoomClient talks to the Zoom REST API.
type ZoomClient struct {
	baseURL string
	client  *http.Client
	retry   reliability.Policy
	logger  *slog.Logger
}

func NewZoomClient(baseURL string, retry reliability.Policy, logger *slog.Logger) *ZoomClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoomClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:  retry,
		logger: logger,
	}
}

// SetHTTPClient swaps the transport, mostly for tests.
func (c *ZoomClient) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.client = client
	}
}

func (c *ZoomClient) CreateMeeting(ctx context.Context, cred Credential, req MeetingRequest) (Meeting, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return Meeting{}, newError("create meeting", KindOther, 0, errors.New("topic is required"))
	}
	if req.Type == 0 {
		req.Type = MeetingTypeScheduled
	}
	var out Meeting
	path := "/users/" + url.PathEscape(cred.subject()) + "/meetings"
	if err := c.do(ctx, "create meeting", cred, http.MethodPost, path, nil, req, &out); err != nil {
		return Meeting{}, err
	}
	c.logger.Info("zoom meeting created", "meeting_id", out.ID)
	return out, nil
}

func (c *ZoomClient) ListMeetings(ctx context.Context, cred Credential, opts ListOptions) (MeetingList, error) {
	q := pageQuery(opts)
	kind := opts.Type
	if kind == "" {
		kind = "scheduled"
	}
	q.Set("type", kind)
	var out MeetingList
	path := "/users/" + url.PathEscape(cred.subject()) + "/meetings"
	if err := c.do(ctx, "list meetings", cred, http.MethodGet, path, q, nil, &out); err != nil {
		return MeetingList{}, err
	}
	return out, nil
}

func (c *ZoomClient) GetMeeting(ctx context.Context, cred Credential, meetingID string) (Meeting, error) {
	if err := requireID("get meeting", meetingID); err != nil {
		return Meeting{}, err
	}
	var out Meeting
	if err := c.do(ctx, "get meeting", cred, http.MethodGet, "/meetings/"+url.PathEscape(meetingID), nil, nil, &out); err != nil {
		return Meeting{}, err
	}
	return out, nil
}

func (c *ZoomClient) UpdateMeeting(ctx context.Context, cred Credential, meetingID string, req MeetingUpdate) error {
	if err := requireID("update meeting", meetingID); err != nil {
		return err
	}
	if req.Empty() {
		return newError("update meeting", KindOther, 0, errors.New("no fields to update"))
	}
	return c.do(ctx, "update meeting", cred, http.MethodPatch, "/meetings/"+url.PathEscape(meetingID), nil, req, nil)
}

func (c *ZoomClient) DeleteMeeting(ctx context.Context, cred Credential, meetingID string) error {
	if err := requireID("delete meeting", meetingID); err != nil {
		return err
	}
	return c.do(ctx, "delete meeting", cred, http.MethodDelete, "/meetings/"+url.PathEscape(meetingID), nil, nil, nil)
}

func (c *ZoomClient) ListRecordings(ctx context.Context, cred Credential, opts ListOptions) (RecordingList, error) {
	q := pageQuery(opts)
	if opts.From != "" {
		q.Set("from", opts.From)
	}
	if opts.To != "" {
		q.Set("to", opts.To)
	}
	var out RecordingList
	path := "/users/" + url.PathEscape(cred.subject()) + "/recordings"
	if err := c.do(ctx, "list recordings", cred, http.MethodGet, path, q, nil, &out); err != nil {
		return RecordingList{}, err
	}
	return out, nil
}

func (c *ZoomClient) GetRecording(ctx context.Context, cred Credential, meetingID string) (Recording, error) {
	if err := requireID("get recording", meetingID); err != nil {
		return Recording{}, err
	}
	var out Recording
	path := "/meetings/" + url.PathEscape(meetingID) + "/recordings"
	if err := c.do(ctx, "get recording", cred, http.MethodGet, path, nil, nil, &out); err != nil {
		return Recording{}, err
	}
	return out, nil
}

func (c *ZoomClient) GetUser(ctx context.Context, cred Credential, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		userID = cred.subject()
	}
	var out User
	if err := c.do(ctx, "get user", cred, http.MethodGet, "/users/"+url.PathEscape(userID), nil, nil, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *ZoomClient) ListUsers(ctx context.Context, cred Credential, opts ListOptions) (UserList, error) {
	q := pageQuery(opts)
	q.Set("status", "active")
	var out UserList
	if err := c.do(ctx, "list users", cred, http.MethodGet, "/users", q, nil, &out); err != nil {
		return UserList{}, err
	}
	return out, nil
}

func (c *ZoomClient) CreateUser(ctx context.Context, cred Credential, req NewUser) (User, error) {
	if strings.TrimSpace(req.Email) == "" {
		return User{}, newError("create user", KindOther, 0, errors.New("email is required"))
	}
	if req.Type == 0 {
		req.Type = UserTypeBasic
	}
	payload := struct {
		Action   string  `json:"action"`
		UserInfo NewUser `json:"user_info"`
	}{Action: "create", UserInfo: req}
	var out User
	if err := c.do(ctx, "create user", cred, http.MethodPost, "/users", nil, payload, &out); err != nil {
		return User{}, err
	}
	c.logger.Info("zoom user created", "zoom_user_id", out.ID)
	return out, nil
}

func (c *ZoomClient) do(ctx context.Context, op string, cred Credential, method, path string, query url.Values, body any, out any) error {
	if cred.Token == nil || strings.TrimSpace(cred.Token.AccessToken) == "" {
		return newError(op, KindUnauthorized, 0, errors.New("missing access token"))
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return newError(op, KindOther, 0, fmt.Errorf("marshal request: %w", err))
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var result error
	err := reliability.Retry(ctx, c.retry, func(attempt int) (bool, error) {
		result = c.once(ctx, op, cred, method, endpoint, payload, out)
		if result == nil {
			return false, nil
		}
		retryable := KindOf(result) == KindTransient && ctx.Err() == nil
		if retryable && attempt < c.retry.MaxRetries {
			c.logger.Warn("zoom request failed, retrying", "op", op, "attempt", attempt+1, "error", result)
		}
		return retryable, result
	})
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	// ctx ended while backing off.
	return newError(op, KindTransient, 0, err)
}

func (c *ZoomClient) once(ctx context.Context, op string, cred Credential, method, endpoint string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return newError(op, KindOther, 0, fmt.Errorf("create request: %w", err))
	}
	cred.Token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return newError(op, KindTransient, 0, fmt.Errorf("send request: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return newError(op, KindForStatus(res.StatusCode), res.StatusCode,
			fmt.Errorf("zoom http status %d: %s", res.StatusCode, apiMessage(body)))
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return newError(op, KindOther, res.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// apiMessage pulls the message field out of a Zoom error body.
func apiMessage(body []byte) string {
	var obj struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Message != "" {
		if obj.Code != 0 {
			return fmt.Sprintf("%s (code %d)", obj.Message, obj.Code)
		}
		return obj.Message
	}
	return strings.TrimSpace(string(body))
}

func pageQuery(opts ListOptions) url.Values {
	size := opts.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(size))
	return q
}

func requireID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return newError(op, KindOther, 0, errors.New("id is required"))
	}
	return nil
}
