package bigbluebutton

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// CreateSessionRequest carries everything the provider needs to open a room.
type CreateSessionRequest struct {
	MeetingID        string
	Name             string
	Welcome          string
	ModeratorSecret  string
	ViewerSecret     string
	LogoutURL        string
	Record           bool
	DurationMinutes  int
	PresentationName string
	PresentationURL  string
	Metadata         map[string]string
}

// CreateSessionResult is the provider's answer to a create call. Create is
// idempotent on the provider side: calling it for a running session succeeds
// and reports Running.
type CreateSessionResult struct {
	Success      bool
	Running      bool
	MeetingEnded bool
	MessageKey   string
	Message      string
}

// Recording describes one playable recording of a past session.
type Recording struct {
	RecordID    string
	MeetingID   string
	Name        string
	PlaybackURL string
	StartTime   time.Time
	EndTime     time.Time
	Published   bool
}

// API is the narrow capability set the rest of the service consumes. The
// HTTP client below implements it; tests substitute in-memory fakes.
type API interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResult, error)
	IsSessionRunning(ctx context.Context, meetingID string) (bool, error)
	ListRecordings(ctx context.Context, meetingID string) ([]Recording, error)
	JoinURL(meetingID, fullName, secret string, userID uint) string
}

// Config contains the endpoint and shared secret for the provider API.
type Config struct {
	BaseURL      string
	SharedSecret string
	Timeout      time.Duration
}

// Client talks to a BigBlueButton-compatible server over its checksum-signed
// HTTP API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
	logger  zerolog.Logger
}

// New constructs a provider client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.SharedSecret == "" {
		return nil, fmt.Errorf("provider base url and shared secret must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		secret:  cfg.SharedSecret,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "bigbluebutton").Logger(),
	}, nil
}

type apiResponse struct {
	ReturnCode           string         `xml:"returncode"`
	Running              string         `xml:"running"`
	HasBeenForciblyEnded string         `xml:"hasBeenForciblyEnded"`
	MessageKey           string         `xml:"messageKey"`
	Message              string         `xml:"message"`
	Recordings           []xmlRecording `xml:"recordings>recording"`
}

// Pre-upload payload for the create call. The provider fetches the listed
// documents itself and shows the first one as the default presentation.
type preUploadModules struct {
	XMLName xml.Name        `xml:"modules"`
	Modules []preUploadItem `xml:"module"`
}

type preUploadItem struct {
	Name      string              `xml:"name,attr"`
	Documents []preUploadDocument `xml:"document"`
}

type preUploadDocument struct {
	URL      string `xml:"url,attr"`
	Filename string `xml:"filename,attr,omitempty"`
}

type xmlRecording struct {
	RecordID  string `xml:"recordID"`
	MeetingID string `xml:"meetingID"`
	Name      string `xml:"name"`
	Published string `xml:"published"`
	StartTime int64  `xml:"startTime"`
	EndTime   int64  `xml:"endTime"`
	Playback  struct {
		Format []struct {
			Type string `xml:"type"`
			URL  string `xml:"url"`
		} `xml:"format"`
	} `xml:"playback"`
}

// CreateSession asks the provider to open (or confirm) the session.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (CreateSessionResult, error) {
	params := url.Values{}
	params.Set("meetingID", req.MeetingID)
	params.Set("name", req.Name)
	params.Set("attendeePW", req.ViewerSecret)
	params.Set("moderatorPW", req.ModeratorSecret)
	params.Set("record", strconv.FormatBool(req.Record))
	if req.Welcome != "" {
		params.Set("welcome", req.Welcome)
	}
	if req.LogoutURL != "" {
		params.Set("logoutURL", req.LogoutURL)
	}
	if req.DurationMinutes > 0 {
		params.Set("duration", strconv.Itoa(req.DurationMinutes))
	}
	for key, value := range req.Metadata {
		params.Set("meta_"+key, value)
	}

	body, err := preUploadBody(req)
	if err != nil {
		return CreateSessionResult{}, fmt.Errorf("failed to encode presentation payload: %w", err)
	}

	response, err := c.call(ctx, "create", params, body)
	if err != nil {
		return CreateSessionResult{}, err
	}

	result := CreateSessionResult{
		Success:      response.ReturnCode == "SUCCESS",
		Running:      response.Running == "true",
		MeetingEnded: response.HasBeenForciblyEnded == "true",
		MessageKey:   response.MessageKey,
		Message:      response.Message,
	}

	return result, nil
}

// IsSessionRunning polls the provider for live session state.
func (c *Client) IsSessionRunning(ctx context.Context, meetingID string) (bool, error) {
	params := url.Values{}
	params.Set("meetingID", meetingID)

	response, err := c.call(ctx, "isMeetingRunning", params, nil)
	if err != nil {
		return false, err
	}
	if response.ReturnCode != "SUCCESS" {
		return false, fmt.Errorf("provider returned %s: %s", response.ReturnCode, response.Message)
	}

	return response.Running == "true", nil
}

// ListRecordings fetches the recording descriptors for a session identity.
func (c *Client) ListRecordings(ctx context.Context, meetingID string) ([]Recording, error) {
	params := url.Values{}
	params.Set("meetingID", meetingID)

	response, err := c.call(ctx, "getRecordings", params, nil)
	if err != nil {
		return nil, err
	}
	if response.ReturnCode != "SUCCESS" {
		return nil, fmt.Errorf("provider returned %s: %s", response.ReturnCode, response.Message)
	}

	recordings := make([]Recording, 0, len(response.Recordings))
	for _, item := range response.Recordings {
		recording := Recording{
			RecordID:  item.RecordID,
			MeetingID: item.MeetingID,
			Name:      item.Name,
			Published: item.Published == "true",
			StartTime: time.UnixMilli(item.StartTime),
			EndTime:   time.UnixMilli(item.EndTime),
		}
		if len(item.Playback.Format) > 0 {
			recording.PlaybackURL = item.Playback.Format[0].URL
		}
		recordings = append(recordings, recording)
	}

	return recordings, nil
}

// JoinURL builds a signed browser join link for the given access secret.
func (c *Client) JoinURL(meetingID, fullName, secret string, userID uint) string {
	params := url.Values{}
	params.Set("meetingID", meetingID)
	params.Set("fullName", fullName)
	params.Set("password", secret)
	params.Set("userID", strconv.FormatUint(uint64(userID), 10))

	return c.signedURL("join", params)
}

// preUploadBody renders the XML document list for a create call, or nil when
// the session has no presentation attached.
func preUploadBody(req CreateSessionRequest) ([]byte, error) {
	if req.PresentationURL == "" {
		return nil, nil
	}

	modules := preUploadModules{
		Modules: []preUploadItem{{
			Name: "presentation",
			Documents: []preUploadDocument{{
				URL:      req.PresentationURL,
				Filename: req.PresentationName,
			}},
		}},
	}

	return xml.Marshal(modules)
}

func (c *Client) call(ctx context.Context, action string, params url.Values, body []byte) (apiResponse, error) {
	endpoint := c.signedURL(action, params)

	method := http.MethodGet
	var payload io.Reader
	if len(body) > 0 {
		method = http.MethodPost
		payload = bytes.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to build %s request: %w", action, err)
	}
	if len(body) > 0 {
		request.Header.Set("Content-Type", "application/xml")
	}

	response, err := c.http.Do(request)
	if err != nil {
		return apiResponse{}, fmt.Errorf("provider %s call failed: %w", action, err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return apiResponse{}, fmt.Errorf("provider %s call returned status %d", action, response.StatusCode)
	}

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("failed to read %s response: %w", action, err)
	}

	var parsed apiResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return apiResponse{}, fmt.Errorf("failed to decode %s response: %w", action, err)
	}

	c.logger.Debug().Str("action", action).Str("returncode", parsed.ReturnCode).Msg("provider call completed")

	return parsed, nil
}

// signedURL appends the SHA-1 checksum the provider requires on every call.
func (c *Client) signedURL(action string, params url.Values) string {
	query := params.Encode()
	checksum := sha1.Sum([]byte(action + query + c.secret))
	return fmt.Sprintf("%s/api/%s?%s&checksum=%x", c.baseURL, action, query, checksum)
}
