package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CredentialKind names one of the two bearer tokens the dashboard holds.
type CredentialKind string

const (
	CredentialGitHub CredentialKind = "github"
	CredentialAgent  CredentialKind = "agent"
)

// SessionHandle associates a persisted agent session with a
// (repository, issue) pair. At most one handle exists per pair.
type SessionHandle struct {
	ID           string
	RepoFullName string
	IssueNumber  int
	SessionID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store defines the local persistence interface for agentdash.
// It holds only client-side state: credentials and session handles.
type Store interface {
	// Credentials
	SetCredential(ctx context.Context, kind CredentialKind, value string) error
	GetCredential(ctx context.Context, kind CredentialKind) (string, error)

	// Session handles
	SaveSessionHandle(ctx context.Context, repoFullName string, issueNumber int, sessionID string) error
	GetSessionHandle(ctx context.Context, repoFullName string, issueNumber int) (string, error)
	ListSessionHandles(ctx context.Context, repoFullName string) ([]*SessionHandle, error)
	DeleteSessionHandle(ctx context.Context, repoFullName string, issueNumber int) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
