package pollclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Credentials carry the bearer token a client sends. The zero value is an
// anonymous caller.
type Credentials struct {
	Token string
}

type Session struct {
	ID          string     `json:"id"`
	Program     string     `json:"program"`
	Status      string     `json:"status"`
	Code        string     `json:"code,omitempty"`
	ServiceDate string     `json:"service_date"`
	StartedAt   time.Time  `json:"started_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

type Event struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	Location string `json:"location,omitempty"`
}

type ActiveCheckIn struct {
	Session Session `json:"session"`
	Event   Event   `json:"event"`
}

type RosterEntry struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	DisplayName string     `json:"display_name"`
	Phone       *string    `json:"phone,omitempty"`
	Adults      int        `json:"adults"`
	Children    int        `json:"children"`
	FirstTime   bool       `json:"first_time"`
	CheckedInAt time.Time  `json:"checked_in_at"`
	Awaiting    bool       `json:"awaiting_pickup,omitempty"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	Allergies   *string    `json:"allergies,omitempty"`
}

type RosterSummary struct {
	Program        string `json:"program"`
	Date           string `json:"date"`
	Entries        int    `json:"entries"`
	Members        int    `json:"members"`
	Guests         int    `json:"guests"`
	FirstTime      int    `json:"first_time"`
	Children       int    `json:"children"`
	AdultHeadcount int    `json:"adult_headcount"`
	ChildHeadcount int    `json:"child_headcount"`
	PickedUp       int    `json:"picked_up"`
	AwaitingPickup int    `json:"awaiting_pickup"`
}

type RosterQuery struct {
	Program   string
	Date      string
	Type      string
	FirstTime bool
	Search    string
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d (%s): %s", e.Status, e.Code, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient talks to the API rooted at baseURL, e.g. "https://church.example/api".
func NewClient(baseURL string, creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
		creds:   creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCredentials returns a copy of the client that authenticates as creds.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

// ActiveCheckIn returns the current worship service session, or nil when none
// is open.
func (c *Client) ActiveCheckIn(ctx context.Context) (*ActiveCheckIn, error) {
	var out *ActiveCheckIn
	if err := c.do(ctx, http.MethodGet, "/checkin/active", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProgramSessions maps each children's program to its active session; closed
// programs map to nil.
func (c *Client) ProgramSessions(ctx context.Context) (map[string]*Session, error) {
	out := map[string]*Session{}
	if err := c.do(ctx, http.MethodGet, "/programs/active-sessions", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProgramSession returns the active session of program, or nil.
func (c *Client) ProgramSession(ctx context.Context, program string) (*Session, error) {
	sessions, err := c.ProgramSessions(ctx)
	if err != nil {
		return nil, err
	}
	if session, ok := sessions[program]; ok {
		return session, nil
	}

	active, err := c.ActiveCheckIn(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil || active.Session.Program != program {
		return nil, nil
	}
	return &active.Session, nil
}

func (c *Client) Roster(ctx context.Context, query RosterQuery) ([]RosterEntry, error) {
	var out []RosterEntry
	if err := c.do(ctx, http.MethodGet, "/staff/programs/roster", query.values(), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []RosterEntry{}
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, program, date string) (*RosterSummary, error) {
	var out RosterSummary
	query := RosterQuery{Program: program, Date: date}
	if err := c.do(ctx, http.MethodGet, "/staff/programs/roster/summary", query.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (q RosterQuery) values() url.Values {
	values := url.Values{}
	values.Set("program", q.Program)
	if q.Date != "" {
		values.Set("date", q.Date)
	}
	if q.Type != "" {
		values.Set("type", q.Type)
	}
	if q.FirstTime {
		values.Set("first_time", "true")
	}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	return values
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(status int, data []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	if err := json.Unmarshal(data, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		switch {
		case envelope.Message != "":
			apiErr.Message = envelope.Message
		case envelope.Error.Message != "":
			apiErr.Message = envelope.Error.Message
		}
	}
	return apiErr
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
