// Package backend talks to the wellness agent backend (manager, scheduler,
// secretary and therapist agents behind one JSON HTTP API).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wellness-companion/internal/config"
)

// StartPlanningRequest identifies the user and planning window for a run.
type StartPlanningRequest struct {
	Email string `json:"email"`
	User  string `json:"user"`
	Days  int    `json:"days"`
}

// PlanningResult is the backend's answer to a start-planning call. A finished
// result carries no session; the raw text still holds the agent's analysis.
type PlanningResult struct {
	SessionID string `json:"session_id"`
	RawText   string `json:"raw_text"`
	Finished  bool   `json:"finished"`
	Message   string `json:"message"`
	LoginURL  string `json:"login_url"`
}

// DecisionResult reports the outcome of a single proposal decision.
type DecisionResult struct {
	Result struct {
		Status string `json:"status"`
	} `json:"result"`
	Finished bool `json:"finished"`
}

// Question is one burnout check-in item.
type Question struct {
	QID  string `json:"qid"`
	Text string `json:"text"`
}

// AnswerResult carries the updated burnout score (0..1 on the wire) and the
// backend's own interval suggestion.
type AnswerResult struct {
	BS              *float64 `json:"bs"`
	NextIntervalMin int      `json:"next_interval_min"`
}

// Client is an interface for the wellness backend API.
type Client interface {
	StartPlanning(ctx context.Context, req StartPlanningRequest) (*PlanningResult, error)
	Decide(ctx context.Context, sessionID string, accept bool) (*DecisionResult, error)
	CancelSession(ctx context.Context, sessionID string) error
	NextQuestion(ctx context.Context) (*Question, error)
	Answer(ctx context.Context, qid string, value int) (*AnswerResult, error)
	Support(ctx context.Context, user, message string) (string, error)
}

// apiClient is the concrete implementation of the backend client.
type apiClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new backend API client.
func NewClient(cfg *config.Config) Client {
	return &apiClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    cfg.BackendBaseURL,
	}
}

// StartPlanning asks the scheduler agent for additive calendar proposals.
func (c *apiClient) StartPlanning(ctx context.Context, req StartPlanningRequest) (*PlanningResult, error) {
	var result PlanningResult
	if err := c.postJSON(ctx, "/api/manager/schedule/start", req, &result); err != nil {
		return nil, fmt.Errorf("start planning: %w", err)
	}
	return &result, nil
}

// Decide submits one accept/reject decision against a proposal session.
func (c *apiClient) Decide(ctx context.Context, sessionID string, accept bool) (*DecisionResult, error) {
	body := map[string]interface{}{"session_id": sessionID, "accept": accept}
	var result DecisionResult
	if err := c.postJSON(ctx, "/api/manager/schedule/decision", body, &result); err != nil {
		return nil, fmt.Errorf("decision: %w", err)
	}
	return &result, nil
}

// CancelSession deletes a pending proposal session on the backend.
func (c *apiClient) CancelSession(ctx context.Context, sessionID string) error {
	body := map[string]interface{}{"session_id": sessionID}
	if err := c.postJSON(ctx, "/api/manager/schedule/cancel", body, nil); err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	return nil
}

// NextQuestion fetches the next burnout check-in item.
func (c *apiClient) NextQuestion(ctx context.Context) (*Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/manager/checkin/next", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend error: status %d", resp.StatusCode)
	}

	var q Question
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &q, nil
}

// Answer records a 1..5 answer to a check-in question.
func (c *apiClient) Answer(ctx context.Context, qid string, value int) (*AnswerResult, error) {
	body := map[string]interface{}{"qid": qid, "value": value}
	var result AnswerResult
	if err := c.postJSON(ctx, "/api/manager/checkin/answer", body, &result); err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}
	return &result, nil
}

// Support forwards a free-form message to the advisor/therapist path.
func (c *apiClient) Support(ctx context.Context, user, message string) (string, error) {
	body := map[string]interface{}{"user": user, "message": message}
	var result struct {
		Text string `json:"text"`
	}
	if err := c.postJSON(ctx, "/api/manager/support", body, &result); err != nil {
		return "", fmt.Errorf("support: %w", err)
	}
	return result.Text, nil
}

func (c *apiClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend error: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
