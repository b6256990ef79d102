package stagehubsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal Stagehub HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Request represents an internship request.
type Request struct {
	ID                int64   `json:"id"`
	InternIDs         []int64 `json:"intern_ids"`
	DirectionMemberID int64   `json:"direction_member_id"`
	DocumentPath      *string `json:"document_path,omitempty"`
	Status            string  `json:"status"`
	Comment           *string `json:"comment,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// Agreement represents an agreement request under negotiation.
type Agreement struct {
	ID                   int64   `json:"id"`
	RequestID            int64   `json:"request_id"`
	Status               string  `json:"status"`
	ThemeName            string  `json:"theme_name,omitempty"`
	DepartmentID         *int64  `json:"department_id,omitempty"`
	DomainID             *int64  `json:"domain_id,omitempty"`
	NatureOfInternship   string  `json:"nature_of_internship,omitempty"`
	Institution          string  `json:"institution,omitempty"`
	Specialty            string  `json:"specialty,omitempty"`
	DegreeSought         string  `json:"degree_sought,omitempty"`
	DepartmentHeadID     *int64  `json:"department_head_id,omitempty"`
	HostService          *string `json:"host_service,omitempty"`
	StartDate            string  `json:"start_date,omitempty"`
	EndDate              string  `json:"end_date,omitempty"`
	SessionsPerWeek      int     `json:"sessions_per_week,omitempty"`
	SessionDurationHours int     `json:"session_duration_hours,omitempty"`
	SupervisorID         *int64  `json:"supervisor_id,omitempty"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// Stage represents a running internship.
type Stage struct {
	ID                 int64   `json:"id"`
	AgreementRequestID int64   `json:"agreement_request_id"`
	InternIDs          []int64 `json:"intern_ids"`
	SupervisorID       int64   `json:"supervisor_id"`
	DepartmentID       int64   `json:"department_id"`
	DomainID           int64   `json:"domain_id"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	Status             string  `json:"status"`
	CreatedAt          string  `json:"created_at"`
}

// Convention represents a stage's signed convention document.
type Convention struct {
	ID           int64   `json:"id"`
	StageID      int64   `json:"stage_id"`
	DocumentPath string  `json:"document_path"`
	Status       string  `json:"status"`
	Comment      *string `json:"comment,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// Deposit represents a dissertation deposit.
type Deposit struct {
	ID             int64    `json:"id"`
	StageID        int64    `json:"stage_id"`
	SupervisorName string   `json:"supervisor_name"`
	InternNames    []string `json:"intern_names"`
	ThemeLines     []string `json:"theme_lines"`
	SubmittedAt    string   `json:"submitted_at"`
	Status         string   `json:"status"`
	ValidatedBy    *int64   `json:"validated_by,omitempty"`
	ValidatedAt    *string  `json:"validated_at,omitempty"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   int64          `json:"entity_id,omitempty"`
	ActorID    int64          `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateRequest opens an internship request for the given interns.
func (c *Client) CreateRequest(ctx context.Context, internIDs []int64) (Request, error) {
	body := map[string]any{"intern_ids": internIDs}
	var resp Request
	err := c.do(ctx, http.MethodPost, "requests", body, &resp)
	return resp, err
}

// GetRequest fetches a request by id.
func (c *Client) GetRequest(ctx context.Context, id int64) (Request, error) {
	var resp Request
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("requests/%d", id), nil, &resp)
	return resp, err
}

// DecideRequest accepts or rejects a pending request.
func (c *Client) DecideRequest(ctx context.Context, id int64, accept bool, comment string) (Request, error) {
	body := map[string]any{"accept": accept}
	if comment != "" {
		body["comment"] = comment
	}
	var resp Request
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("requests/%d/decision", id), body, &resp)
	return resp, err
}

// DeleteRequest hard-deletes a request without a dependent agreement.
func (c *Client) DeleteRequest(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("requests/%d", id), nil, nil)
}

// GetAgreement fetches an agreement by id.
func (c *Client) GetAgreement(ctx context.Context, id int64) (Agreement, error) {
	var resp Agreement
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("agreements/%d", id), nil, &resp)
	return resp, err
}

// UpdateAgreementDirection patches the direction member's section.
// Fields holds json-tagged values; omit keys to leave them unchanged.
func (c *Client) UpdateAgreementDirection(ctx context.Context, id int64, fields map[string]any) (Agreement, error) {
	var resp Agreement
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("agreements/%d/direction", id), fields, &resp)
	return resp, err
}

// UpdateAgreementHead patches the department head's section.
func (c *Client) UpdateAgreementHead(ctx context.Context, id int64, fields map[string]any) (Agreement, error) {
	var resp Agreement
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("agreements/%d/head", id), fields, &resp)
	return resp, err
}

// DecideAgreement accepts or rejects a fully negotiated agreement.
func (c *Client) DecideAgreement(ctx context.Context, id int64, accept bool) (Agreement, error) {
	var resp Agreement
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("agreements/%d/decision", id), map[string]any{"accept": accept}, &resp)
	return resp, err
}

// DeleteAgreement hard-deletes an agreement without a dependent stage.
func (c *Client) DeleteAgreement(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("agreements/%d", id), nil, nil)
}

// ListStages lists stages, optionally filtered by status.
func (c *Client) ListStages(ctx context.Context, status string) ([]Stage, error) {
	endpoint := "stages"
	if status != "" {
		endpoint += "?status=" + status
	}
	var resp []Stage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// SetStageStatus moves a stage along its lifecycle.
func (c *Client) SetStageStatus(ctx context.Context, id int64, status string) (Stage, error) {
	var resp Stage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("stages/%d/status", id), map[string]any{"status": status}, &resp)
	return resp, err
}

// ExtendStage pushes a running stage's end date out.
func (c *Client) ExtendStage(ctx context.Context, id int64, endDate string) (Stage, error) {
	var resp Stage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("stages/%d/extend", id), map[string]any{"end_date": endDate}, &resp)
	return resp, err
}

// AttachConvention files or replaces the convention document for a stage.
func (c *Client) AttachConvention(ctx context.Context, stageID int64, documentPath string) (Convention, error) {
	var resp Convention
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("stages/%d/convention", stageID), map[string]any{"document_path": documentPath}, &resp)
	return resp, err
}

// DecideConvention accepts or rejects a convention; acceptance
// activates the stage.
func (c *Client) DecideConvention(ctx context.Context, id int64, accept bool, comment string) (Convention, error) {
	body := map[string]any{"accept": accept}
	if comment != "" {
		body["comment"] = comment
	}
	var resp Convention
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("conventions/%d/decision", id), body, &resp)
	return resp, err
}

// CreateDeposit submits a deposit for a completed stage.
func (c *Client) CreateDeposit(ctx context.Context, stageID int64, themeLines []string) (Deposit, error) {
	body := map[string]any{"stage_id": stageID, "theme_lines": themeLines}
	var resp Deposit
	err := c.do(ctx, http.MethodPost, "deposits", body, &resp)
	return resp, err
}

// DecideDeposit approves or rejects a deposit.
func (c *Client) DecideDeposit(ctx context.Context, id int64, approve bool) (Deposit, error) {
	var resp Deposit
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("deposits/%d/decision", id), map[string]any{"approve": approve}, &resp)
	return resp, err
}

// UploadDocument stores raw document bytes and returns the stored name.
func (c *Client) UploadDocument(ctx context.Context, data []byte) (string, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base()+"/v1/documents", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	c.authorize(req)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	var out struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Path, nil
}

// Events returns recent audit log entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("events?limit=%d", limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
