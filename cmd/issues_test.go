package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdash/internal/models"
)

func TestIssueRow(t *testing.T) {
	is := &models.Issue{
		Number:    42,
		Title:     "Fix the widget resizer",
		State:     models.IssueStateOpen,
		User:      models.IssueAuthor{Login: "octocat"},
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}

	row := issueRow(is)
	require.Len(t, row, 5)
	assert.Equal(t, "42", row[0])
	assert.Equal(t, "Fix the widget resizer", row[1])
	assert.Contains(t, row[2], "open")
	assert.Equal(t, "octocat", row[3])
	assert.Equal(t, "2h ago", row[4])
}

func TestIssueRow_NoAuthor(t *testing.T) {
	is := &models.Issue{
		Number: 7,
		Title:  "Untitled report",
		State:  models.IssueStateClosed,
	}

	row := issueRow(is)
	require.Len(t, row, 5)
	assert.Contains(t, row[2], "closed")
	assert.Equal(t, "", row[3])
}
