// Package blockclient is a typed HTTP client for the blocks API. It mirrors
// the server's response envelope and the tagged assignment outcome, surfaces
// server error messages verbatim, and never retries on its own.
package blockclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Error is a non-2xx API response. Message carries the server-provided text
// verbatim when the body contained one.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// ErrRequestInFlight is returned when a mutating call is issued while another
// mutating call on the same client has not finished yet.
var ErrRequestInFlight = fmt.Errorf("blockclient: another mutating request is in flight")

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Error      *apiError       `json:"error"`
	Pagination *Pagination     `json:"pagination"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Client talks to a blocks API instance with a fixed bearer token. Mutating
// calls are serialized per instance: a second concurrent mutation fails with
// ErrRequestInFlight instead of pipelining behind the first.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	flight  chan struct{}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpc.Timeout = d
	}
}

// New builds a Client for the given base URL and bearer token. The base URL
// must include the server's API prefix, e.g. "https://portal.example.edu/api".
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: trimTrailingSlash(baseURL),
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		flight:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// ListGroups lists block groups matching the filter.
func (c *Client) ListGroups(ctx context.Context, filter GroupFilter) ([]Group, *Pagination, error) {
	q := url.Values{}
	if filter.Program != "" {
		q.Set("program", filter.Program)
	}
	if filter.Semester != "" {
		q.Set("semester", string(filter.Semester))
	}
	if filter.SchoolYear > 0 {
		q.Set("year", strconv.Itoa(filter.SchoolYear))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var groups []Group
	page, err := c.do(ctx, http.MethodGet, "/blocks/groups?"+q.Encode(), nil, &groups, false)
	if err != nil {
		return nil, nil, err
	}
	return groups, page, nil
}

// GroupDetail is a group with its sections, returned on creation.
type GroupDetail struct {
	Group
	Sections []Section `json:"sections"`
}

// CreateGroup creates a block group together with its initial section.
func (c *Client) CreateGroup(ctx context.Context, req CreateGroupRequest) (*GroupDetail, error) {
	var detail GroupDetail
	if _, err := c.do(ctx, http.MethodPost, "/blocks/groups", req, &detail, true); err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteGroup removes a group and all of its sections. It fails when any
// active assignment remains in the group.
func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/blocks/groups/"+url.PathEscape(groupID), nil, nil, true)
	return err
}

// ListSections lists a group's sections with their available slots.
func (c *Client) ListSections(ctx context.Context, groupID string) ([]Section, error) {
	var sections []Section
	if _, err := c.do(ctx, http.MethodGet, "/blocks/groups/"+url.PathEscape(groupID)+"/sections", nil, &sections, false); err != nil {
		return nil, err
	}
	return sections, nil
}

// CreateSection adds a section to an existing group.
func (c *Client) CreateSection(ctx context.Context, groupID string, req CreateSectionRequest) (*Section, error) {
	var section Section
	if _, err := c.do(ctx, http.MethodPost, "/blocks/groups/"+url.PathEscape(groupID)+"/sections", req, &section, true); err != nil {
		return nil, err
	}
	return &section, nil
}

// GroupSummary fetches the cached utilization summary of a group.
func (c *Client) GroupSummary(ctx context.Context, groupID string) (*GroupSummary, error) {
	var summary GroupSummary
	if _, err := c.do(ctx, http.MethodGet, "/blocks/groups/"+url.PathEscape(groupID)+"/summary", nil, &summary, false); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListAssignable lists students eligible for placement into a group.
func (c *Client) ListAssignable(ctx context.Context, query AssignableQuery) ([]Student, *Pagination, error) {
	q := url.Values{}
	q.Set("groupId", query.GroupID)
	q.Set("semester", string(query.Semester))
	q.Set("year", strconv.Itoa(query.SchoolYear))
	if query.Query != "" {
		q.Set("q", query.Query)
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	var students []Student
	page, err := c.do(ctx, http.MethodGet, "/blocks/assignable-students?"+q.Encode(), nil, &students, false)
	if err != nil {
		return nil, nil, err
	}
	return students, page, nil
}

// SectionStudents fetches the active roster of a section.
func (c *Client) SectionStudents(ctx context.Context, sectionID string) ([]RosterEntry, error) {
	var payload struct {
		Students []RosterEntry `json:"students"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/blocks/sections/"+url.PathEscape(sectionID)+"/students", nil, &payload, false); err != nil {
		return nil, err
	}
	return payload.Students, nil
}

// AssignStudent attempts a single placement. The outcome is a tagged union:
// OutcomeAssigned carries the committed assignment, OutcomeOverCapacity
// carries a resolution ID plus the allowed actions and suggested targets.
func (c *Client) AssignStudent(ctx context.Context, req AssignRequest) (*AssignmentOutcome, error) {
	var outcome AssignmentOutcome
	if _, err := c.do(ctx, http.MethodPost, "/blocks/assign-student", req, &outcome, true); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// BatchAssignResult is the union returned by AssignStudents. A batch of two
// or more students yields Summary; a batch of exactly one student degrades to
// single-assignment semantics and yields Outcome instead.
type BatchAssignResult struct {
	Summary *BatchSummary
	Outcome *AssignmentOutcome
}

// AssignStudents places a batch of students into one section. Failures within
// the batch never open resolution sessions.
func (c *Client) AssignStudents(ctx context.Context, req AssignBatchRequest) (*BatchAssignResult, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, http.MethodPost, "/blocks/assign-students", req, &raw, true); err != nil {
		return nil, err
	}

	// The outcome union is the only payload shape carrying a status tag.
	var probe struct {
		Status OutcomeStatus `json:"status"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	if probe.Status != "" {
		var outcome AssignmentOutcome
		if err := json.Unmarshal(raw, &outcome); err != nil {
			return nil, fmt.Errorf("decode batch response: %w", err)
		}
		return &BatchAssignResult{Outcome: &outcome}, nil
	}

	var summary BatchSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode batch response: %w", err)
	}
	return &BatchAssignResult{Summary: &summary}, nil
}

// RemoveAssignment removes an active assignment and returns the section with
// its decremented population.
func (c *Client) RemoveAssignment(ctx context.Context, assignmentID string) (*Section, error) {
	var section Section
	if _, err := c.do(ctx, http.MethodDelete, "/blocks/assignments/"+url.PathEscape(assignmentID), nil, &section, true); err != nil {
		return nil, err
	}
	return &section, nil
}

// GetResolution fetches a pending resolution session for re-display.
func (c *Client) GetResolution(ctx context.Context, resolutionID string) (*ResolutionSession, error) {
	var session ResolutionSession
	if _, err := c.do(ctx, http.MethodGet, "/blocks/overcapacity/"+url.PathEscape(resolutionID), nil, &session, false); err != nil {
		return nil, err
	}
	return &session, nil
}

// Decide applies one resolution action to a pending session.
func (c *Client) Decide(ctx context.Context, req DecisionRequest) (*DecisionResult, error) {
	var result DecisionResult
	if _, err := c.do(ctx, http.MethodPost, "/blocks/overcapacity/decision", req, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelResolution abandons a pending resolution session.
func (c *Client) CancelResolution(ctx context.Context, resolutionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/blocks/overcapacity/"+url.PathEscape(resolutionID)+"/cancel", nil, nil, true)
	return err
}

// ExportRoster requests a roster export and returns the signed download
// handle. Format is "csv" or "pdf".
func (c *Client) ExportRoster(ctx context.Context, sectionID, format string) (*ExportResult, error) {
	path := "/blocks/sections/" + url.PathEscape(sectionID) + "/export?format=" + url.QueryEscape(format)
	var result ExportResult
	if _, err := c.do(ctx, http.MethodPost, path, nil, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, mutating bool) (*Pagination, error) {
	if mutating {
		select {
		case c.flight <- struct{}{}:
			defer func() { <-c.flight }()
		default:
			return nil, ErrRequestInFlight
		}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if len(raw) > 0 {
		// Non-JSON bodies only occur on transport-level failures; fall back
		// to a bare status error below.
		_ = json.Unmarshal(raw, &env)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return env.Pagination, nil
}
