package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdash/internal/models"
)

func newTestUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &UI{Out: out, ErrOut: errOut}, out, errOut
}

func TestInfo(t *testing.T) {
	u, out, _ := newTestUI()
	u.Info("hello %s", "world")
	assert.Contains(t, out.String(), "hello world")
}

func TestSuccess(t *testing.T) {
	u, out, _ := newTestUI()
	u.Success("done %d", 42)
	assert.Contains(t, out.String(), "done 42")
}

func TestWarning(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Warning("careful %s", "now")
	assert.Contains(t, errOut.String(), "careful now")
}

func TestError(t *testing.T) {
	u, _, errOut := newTestUI()
	u.Error("failed %s", "badly")
	assert.Contains(t, errOut.String(), "failed badly")
}

func TestVerboseLog_Enabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = true
	u.VerboseLog("detail %d", 1)
	assert.Contains(t, out.String(), "detail 1")
}

func TestVerboseLog_Disabled(t *testing.T) {
	u, out, _ := newTestUI()
	u.Verbose = false
	u.VerboseLog("detail %d", 1)
	assert.Empty(t, out.String())
}

func TestColorHelpers(t *testing.T) {
	// Color helpers should return non-empty strings
	assert.NotEmpty(t, Cyan("test"))
	assert.NotEmpty(t, Green("test"))
	assert.NotEmpty(t, Yellow("test"))
	assert.NotEmpty(t, Red("test"))
}

func TestIssueStateColor(t *testing.T) {
	assert.Contains(t, IssueStateColor(models.IssueStateOpen), "open")
	assert.Contains(t, IssueStateColor(models.IssueStateClosed), "closed")
	assert.Equal(t, "odd", IssueStateColor(models.IssueState("odd")))
}

func TestSessionStatusColor(t *testing.T) {
	assert.Contains(t, SessionStatusColor(models.SessionStatusRunning), "running")
	assert.Contains(t, SessionStatusColor(models.SessionStatusCompleted), "completed")
	assert.Equal(t, "paused", SessionStatusColor(models.SessionStatus("paused")))
}

func TestRoleColor(t *testing.T) {
	assert.Contains(t, RoleColor(models.RoleUser), "user")
	assert.Contains(t, RoleColor(models.RoleAssistant), "assistant")
	assert.Contains(t, RoleColor(models.RoleError), "error")
	assert.Contains(t, RoleColor(models.RoleSystem), "system")
}

func TestTable(t *testing.T) {
	u, out, _ := newTestUI()
	table := u.Table([]string{"Repository", "Issues"})
	require.NotNil(t, table)

	table.Append([]string{"acme/widgets", "12"})
	table.Append([]string{"acme/gadgets", "3"})
	err := table.Render()
	require.NoError(t, err)

	result := out.String()
	assert.True(t, strings.Contains(result, "acme/widgets"),
		"table output should contain repository names")
	assert.True(t, strings.Contains(result, "acme/gadgets"),
		"table output should contain repository names")
}
