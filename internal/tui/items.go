package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"agentdash/internal/models"
)

// RepoItem implements list.Item and list.DefaultItem
type RepoItem struct {
	Repo *models.Repository
}

// FilterValue implements list.Item
func (i RepoItem) FilterValue() string {
	return i.Repo.FullName
}

// Title implements list.DefaultItem
func (i RepoItem) Title() string {
	return i.Repo.FullName
}

// Description implements list.DefaultItem
func (i RepoItem) Description() string {
	parts := []string{}
	if i.Repo.Language != "" {
		parts = append(parts, i.Repo.Language)
	}
	if i.Repo.Stars > 0 {
		parts = append(parts, fmt.Sprintf("★ %d", i.Repo.Stars))
	}
	if i.Repo.Description != "" {
		parts = append(parts, i.Repo.Description)
	}
	if len(parts) == 0 {
		return "no description"
	}
	return strings.Join(parts, " · ")
}

// IssueItem implements list.Item and list.DefaultItem
type IssueItem struct {
	Issue *models.Issue
}

func (i IssueItem) FilterValue() string {
	return i.Issue.Title
}

func (i IssueItem) Title() string {
	return fmt.Sprintf("#%d %s", i.Issue.Number, i.Issue.Title)
}

func (i IssueItem) Description() string {
	desc := string(i.Issue.State)
	if i.Issue.User.Login != "" {
		desc += " · " + i.Issue.User.Login
	}
	return desc
}

// SessionItem implements list.Item and list.DefaultItem
type SessionItem struct {
	Session *models.Session
}

func (i SessionItem) FilterValue() string {
	return i.Session.Title
}

func (i SessionItem) Title() string {
	title := i.Session.Title
	if title == "" {
		title = i.Session.ID
	}
	return title
}

func (i SessionItem) Description() string {
	status := sessionStatusStyle(string(i.Session.Status)).Render(string(i.Session.Status))
	if i.Session.PullRequestURL != "" {
		return status + " · " + i.Session.PullRequestURL
	}
	return status
}

func repoItems(repos []*models.Repository) []list.Item {
	items := make([]list.Item, len(repos))
	for i, r := range repos {
		items[i] = RepoItem{Repo: r}
	}
	return items
}

func issueItems(issues []*models.Issue) []list.Item {
	items := make([]list.Item, len(issues))
	for i, issue := range issues {
		items[i] = IssueItem{Issue: issue}
	}
	return items
}

func sessionItems(sessions []*models.Session) []list.Item {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = SessionItem{Session: s}
	}
	return items
}

func newList(title string, width, height int) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = subtitleStyle
	return l
}
