package models

import (
	"slices"
	"time"
)

// SessionStatus is the agent service's server-reported session status.
// The upstream value is free text; these constants cover the values the
// orchestrator branches on.
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
)

// Session is a unit of work tracked by the external coding-agent service.
// All fields are server-owned: the client only appends messages and polls
// for the authoritative copy.
type Session struct {
	ID             string
	Status         SessionStatus
	Title          string
	Tags           []string
	PullRequestURL string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Messages       []Message
}

// HasTag reports whether the session carries the given tag.
func (s *Session) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// MessageRole classifies a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleError     MessageRole = "error"
)

// Message is one entry in a session's chat log. Sequence order is display
// order. Pending marks an optimistic local append not yet confirmed by the
// server.
type Message struct {
	Role      MessageRole
	Content   string
	Timestamp time.Time
	Pending   bool
}

// ConfidenceAssessment is the agent's self-reported estimate of task
// success likelihood, parsed out of an assistant message. It is a local
// interpretation artifact, never stored server-side.
type ConfidenceAssessment struct {
	Score     int    `json:"score"`
	Reasoning string `json:"reasoning"`
}
