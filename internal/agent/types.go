package agent

import (
	"encoding/json"
	"fmt"
	"time"

	"agentdash/internal/models"
)

// agentMessageType is the upstream type marker for messages authored by
// the agent itself. The wire schema here is the pinned contract for the
// agent service; nothing else in the codebase touches raw session JSON.
const agentMessageType = "devin_message"

type messageWire struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	Origin    string `json:"origin"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type sessionWire struct {
	SessionID   string        `json:"session_id"`
	Status      string        `json:"status"`
	Title       string        `json:"title"`
	Tags        []string      `json:"tags"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
	Messages []messageWire `json:"messages"`
}

// mapRole applies the uniform role-mapping rule: a message is assistant
// when the server marks it with the agent's own message type or an
// assistant/model role; everything else is user.
func mapRole(m messageWire) models.MessageRole {
	if m.Type == agentMessageType {
		return models.RoleAssistant
	}
	switch m.Role {
	case "assistant", "model":
		return models.RoleAssistant
	}
	switch m.Origin {
	case "assistant", "model":
		return models.RoleAssistant
	}
	return models.RoleUser
}

func parseWireTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MapMessages converts a server message list into the local model. The
// server list is ground truth: mapping is order-preserving and
// deterministic, so re-mapping an unchanged list yields an identical log.
func MapMessages(wire []messageWire) []models.Message {
	out := make([]models.Message, 0, len(wire))
	for _, m := range wire {
		out = append(out, models.Message{
			Role:      mapRole(m),
			Content:   m.Message,
			Timestamp: parseWireTime(m.Timestamp),
		})
	}
	return out
}

func (s sessionWire) toModel() *models.Session {
	sess := &models.Session{
		ID:        s.SessionID,
		Status:    models.SessionStatus(s.Status),
		Title:     s.Title,
		Tags:      s.Tags,
		CreatedAt: parseWireTime(s.CreatedAt),
		UpdatedAt: parseWireTime(s.UpdatedAt),
		Messages:  MapMessages(s.Messages),
	}
	if s.PullRequest != nil {
		sess.PullRequestURL = s.PullRequest.URL
	}
	return sess
}

// decodeSessionList accepts the two documented list shapes, a
// {"sessions": [...]} wrapper or a bare array, and rejects anything else
// rather than silently guessing.
func decodeSessionList(data []byte) ([]sessionWire, error) {
	var wrapper struct {
		Sessions *[]sessionWire `json:"sessions"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Sessions != nil {
		return *wrapper.Sessions, nil
	}

	var bare []sessionWire
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	return nil, fmt.Errorf("unexpected session list shape: %s", truncate(string(data), 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
