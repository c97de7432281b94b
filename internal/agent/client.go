// Package agent is the client for the external coding-agent service. All
// calls go through the stateless relay, which attaches the bearer token
// and forwards a single upstream request per invocation.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agentdash/internal/models"
)

// API is the session surface the orchestrator drives. No call retries; a
// failure propagates to the caller.
type API interface {
	ListSessions(ctx context.Context, limit int) ([]*models.Session, error)
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error)
	SendMessage(ctx context.Context, sessionID, text string) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
}

// CreateSessionRequest is the payload for starting a new agent session.
type CreateSessionRequest struct {
	Prompt string   `json:"prompt,omitempty"`
	Title  string   `json:"title,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Client implements API against a relay endpoint.
type Client struct {
	relayURL string
	apiKey   string
	http     *http.Client
}

// NewClient creates an agent client. relayURL is the relay server root
// (the client posts to {relayURL}/relay); apiKey is the agent-service
// bearer token forwarded inside the envelope.
func NewClient(relayURL, apiKey string) *Client {
	return &Client{
		relayURL: strings.TrimRight(relayURL, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// call posts one relay envelope and decodes the response body into out.
func (c *Client) call(ctx context.Context, action, sessionID string, payload map[string]any) ([]byte, error) {
	envelope := map[string]any{
		"action": action,
		"apiKey": c.apiKey,
	}
	if sessionID != "" {
		envelope["sessionId"] = sessionID
	}
	for k, v := range payload {
		envelope[k] = v
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/relay", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", action, err)
	}

	if resp.StatusCode >= 400 {
		var relayErr struct {
			Error json.RawMessage `json:"error"`
		}
		if err := json.Unmarshal(data, &relayErr); err == nil && len(relayErr.Error) > 0 {
			return nil, fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, string(relayErr.Error))
		}
		return nil, fmt.Errorf("%s: status %d: %s", action, resp.StatusCode, truncate(string(data), 200))
	}

	return data, nil
}

func (c *Client) ListSessions(ctx context.Context, limit int) ([]*models.Session, error) {
	payload := map[string]any{}
	if limit > 0 {
		payload["limit"] = limit
	}
	data, err := c.call(ctx, "listSessions", "", payload)
	if err != nil {
		return nil, err
	}

	wire, err := decodeSessionList(data)
	if err != nil {
		return nil, fmt.Errorf("listSessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(wire))
	for i := range wire {
		sessions = append(sessions, wire[i].toModel())
	}
	return sessions, nil
}

func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	payload := map[string]any{}
	if req.Prompt != "" {
		payload["prompt"] = req.Prompt
	}
	if req.Title != "" {
		payload["title"] = req.Title
	}
	if len(req.Tags) > 0 {
		payload["tags"] = req.Tags
	}

	data, err := c.call(ctx, "createSession", "", payload)
	if err != nil {
		return nil, err
	}

	var wire sessionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("createSession: decode response: %w", err)
	}
	if wire.SessionID == "" {
		return nil, fmt.Errorf("createSession: response has no session_id: %s", truncate(string(data), 120))
	}
	return wire.toModel(), nil
}

func (c *Client) SendMessage(ctx context.Context, sessionID, text string) error {
	_, err := c.call(ctx, "sendMessage", sessionID, map[string]any{"message": text})
	return err
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := c.call(ctx, "getSession", sessionID, nil)
	if err != nil {
		return nil, err
	}

	var wire sessionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("getSession: decode response: %w", err)
	}
	return wire.toModel(), nil
}
