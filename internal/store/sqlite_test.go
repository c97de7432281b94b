package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

// --- Credentials ---

func TestCredentials_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SetCredential(ctx, CredentialGitHub, "ghp_abc123")
	require.NoError(t, err)

	got, err := s.GetCredential(ctx, CredentialGitHub)
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc123", got)
}

func TestCredentials_OverwriteOnSave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCredential(ctx, CredentialAgent, "old-token"))
	require.NoError(t, s.SetCredential(ctx, CredentialAgent, "new-token"))

	got, err := s.GetCredential(ctx, CredentialAgent)
	require.NoError(t, err)
	assert.Equal(t, "new-token", got)
}

func TestCredentials_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCredential(context.Background(), CredentialGitHub)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCredentials_KindsAreIndependent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetCredential(ctx, CredentialGitHub, "gh-token"))
	require.NoError(t, s.SetCredential(ctx, CredentialAgent, "agent-token"))

	gh, err := s.GetCredential(ctx, CredentialGitHub)
	require.NoError(t, err)
	ag, err := s.GetCredential(ctx, CredentialAgent)
	require.NoError(t, err)
	assert.Equal(t, "gh-token", gh)
	assert.Equal(t, "agent-token", ag)
}

// --- Session handles ---

func TestSessionHandle_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveSessionHandle(ctx, "user/repo", 42, "sess-abc")
	require.NoError(t, err)

	got, err := s.GetSessionHandle(ctx, "user/repo", 42)
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", got)
}

func TestSessionHandle_OnePerPair(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Saving twice for the same pair upserts, it never creates a second row
	require.NoError(t, s.SaveSessionHandle(ctx, "user/repo", 7, "sess-1"))
	require.NoError(t, s.SaveSessionHandle(ctx, "user/repo", 7, "sess-2"))

	got, err := s.GetSessionHandle(ctx, "user/repo", 7)
	require.NoError(t, err)
	assert.Equal(t, "sess-2", got)

	handles, err := s.ListSessionHandles(ctx, "user/repo")
	require.NoError(t, err)
	assert.Len(t, handles, 1)
}

func TestSessionHandle_ScopedToRepo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSessionHandle(ctx, "a/b", 1, "sess-a"))
	require.NoError(t, s.SaveSessionHandle(ctx, "x/y", 1, "sess-x"))

	got, err := s.GetSessionHandle(ctx, "a/b", 1)
	require.NoError(t, err)
	assert.Equal(t, "sess-a", got)

	handles, err := s.ListSessionHandles(ctx, "x/y")
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, "sess-x", handles[0].SessionID)
	assert.Equal(t, 1, handles[0].IssueNumber)
}

func TestSessionHandle_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSessionHandle(context.Background(), "user/repo", 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSessionHandle_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSessionHandle(ctx, "user/repo", 3, "sess-del"))
	require.NoError(t, s.DeleteSessionHandle(ctx, "user/repo", 3))

	_, err := s.GetSessionHandle(ctx, "user/repo", 3)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting a missing handle is not an error
	assert.NoError(t, s.DeleteSessionHandle(ctx, "user/repo", 3))
}
