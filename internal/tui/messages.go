package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"agentdash/internal/models"
	"agentdash/internal/orchestrator"
)

// GitHubAPI is the slice of the GitHub client the dashboard views use.
type GitHubAPI interface {
	ListRepos(ctx context.Context, page, perPage int) ([]*models.Repository, error)
	ListIssues(ctx context.Context, owner, repo string) ([]*models.Issue, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*models.Issue, error)
}

// Messages passed between commands and the root model.
type (
	reposLoadedMsg struct {
		repos []*models.Repository
	}

	issuesLoadedMsg struct {
		issues []*models.Issue
	}

	sessionsLoadedMsg struct {
		sessions []*models.Session
	}

	issueCreatedMsg struct {
		issue *models.Issue
	}

	chatOpenedMsg struct {
		err error
	}

	chatUpdatedMsg struct{}

	confidenceMsg struct {
		assessment *models.ConfidenceAssessment
		err        error
	}

	messageSentMsg struct {
		err error
	}

	executionStartedMsg struct {
		err error
	}

	errMsg struct {
		err error
	}
)

func (m *Model) loadReposCmd() tea.Cmd {
	return func() tea.Msg {
		repos, err := m.deps.GitHub.ListRepos(m.ctx, 1, 100)
		if err != nil {
			return errMsg{err}
		}
		return reposLoadedMsg{repos}
	}
}

func (m *Model) loadIssuesCmd(fullName string) tea.Cmd {
	return func() tea.Msg {
		owner, name, err := models.SplitFullName(fullName)
		if err != nil {
			return errMsg{err}
		}
		issues, err := m.deps.GitHub.ListIssues(m.ctx, owner, name)
		if err != nil {
			return errMsg{err}
		}
		return issuesLoadedMsg{issues}
	}
}

func (m *Model) loadSessionsCmd(fullName string) tea.Cmd {
	return func() tea.Msg {
		sessions, err := orchestrator.ListRepoSessions(m.ctx, m.deps.Agent, fullName, m.deps.SessionLimit)
		if err != nil {
			return errMsg{err}
		}
		return sessionsLoadedMsg{sessions}
	}
}

func (m *Model) createIssueCmd(fullName, title, body string) tea.Cmd {
	return func() tea.Msg {
		owner, name, err := models.SplitFullName(fullName)
		if err != nil {
			return errMsg{err}
		}
		issue, err := m.deps.GitHub.CreateIssue(m.ctx, owner, name, title, body)
		if err != nil {
			return errMsg{err}
		}
		return issueCreatedMsg{issue}
	}
}

func (m *Model) openIssueChatCmd(fullName string, issue *models.Issue) tea.Cmd {
	return func() tea.Msg {
		return chatOpenedMsg{err: m.orch.OpenIssueChat(m.ctx, fullName, issue)}
	}
}

func (m *Model) openSessionCmd(sessionID string) tea.Cmd {
	return func() tea.Msg {
		return chatOpenedMsg{err: m.orch.OpenSession(m.ctx, sessionID)}
	}
}

// pollConfidenceCmd blocks until the agent answers the confidence prompt or
// the chat context is cancelled.
func (m *Model) pollConfidenceCmd(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		ca, err := m.orch.PollConfidence(ctx)
		return confidenceMsg{assessment: ca, err: err}
	}
}

func (m *Model) sendMessageCmd(content string) tea.Cmd {
	return func() tea.Msg {
		return messageSentMsg{err: m.orch.SendMessage(m.ctx, content)}
	}
}

func (m *Model) startExecutionCmd() tea.Cmd {
	return func() tea.Msg {
		return executionStartedMsg{err: m.orch.StartExecution(m.ctx)}
	}
}

func (m *Model) refreshChatCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.orch.Refresh(m.ctx); err != nil {
			return errMsg{err}
		}
		return chatUpdatedMsg{}
	}
}
