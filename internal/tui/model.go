package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"agentdash/internal/agent"
	"agentdash/internal/llm"
	"agentdash/internal/models"
	"agentdash/internal/orchestrator"
)

type uiState int

const (
	stateRepos uiState = iota
	stateProject
	stateChat
	stateNewIssue
)

type projectTab int

const (
	tabIssues projectTab = iota
	tabSessions
)

// Deps carries everything the dashboard needs to operate.
type Deps struct {
	GitHub       GitHubAPI
	Agent        agent.API
	Handles      orchestrator.HandleStore
	Drafter      *llm.Client // optional; enables issue drafting
	Logger       *slog.Logger
	SessionLimit int
	Orchestrator orchestrator.Config
}

// Model is the root Bubble Tea model: repository list, per-repo project view
// with issue and session tabs, and the issue chat.
type Model struct {
	deps Deps
	ctx  context.Context
	log  *slog.Logger

	orch       *orchestrator.Orchestrator
	chatCancel context.CancelFunc

	state uiState
	tab   projectTab

	repos     list.Model
	issues    list.Model
	sessions  list.Model
	chat      *chatView
	issueForm *IssueForm

	repo   *models.Repository
	err    error
	width  int
	height int
}

func NewModel(deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.SessionLimit <= 0 {
		deps.SessionLimit = 100
	}

	m := &Model{
		deps:  deps,
		ctx:   context.Background(),
		log:   deps.Logger,
		state: stateRepos,
		chat:  newChatView(),
	}
	m.orch = orchestrator.New(deps.Agent, deps.Handles, deps.Orchestrator)
	m.repos = newList("Repositories", 80, 20)
	m.issues = newList("Issues", 80, 20)
	m.sessions = newList("Sessions", 80, 20)
	return m
}

// Run starts the dashboard and blocks until the user quits.
func Run(deps Deps) error {
	var p *tea.Program

	cfg := deps.Orchestrator
	cfg.Notify = func() {
		if p != nil {
			p.Send(chatUpdatedMsg{})
		}
	}
	deps.Orchestrator = cfg

	m := NewModel(deps)
	p = tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.loadReposCmd()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - 4
		if listHeight < 3 {
			listHeight = 3
		}
		m.repos.SetSize(m.width, listHeight)
		m.issues.SetSize(m.width, listHeight)
		m.sessions.SetSize(m.width, listHeight)
		m.chat.SetSize(m.width, m.height)
	case errMsg:
		m.err = msg.err
		return m, nil
	}

	switch m.state {
	case stateRepos:
		return m.updateRepos(msg)
	case stateProject:
		return m.updateProject(msg)
	case stateChat:
		return m.updateChat(msg)
	case stateNewIssue:
		return m.updateNewIssue(msg)
	}
	return m, nil
}

func (m *Model) updateRepos(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reposLoadedMsg:
		m.err = nil
		return m, m.repos.SetItems(repoItems(msg.repos))

	case tea.KeyMsg:
		// Don't intercept keys while the list filter is active.
		if m.repos.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			item, ok := m.repos.SelectedItem().(RepoItem)
			if !ok {
				return m, nil
			}
			m.repo = item.Repo
			m.tab = tabIssues
			m.state = stateProject
			m.err = nil
			return m, tea.Batch(
				m.loadIssuesCmd(m.repo.FullName),
				m.loadSessionsCmd(m.repo.FullName),
			)
		}
	}

	var cmd tea.Cmd
	m.repos, cmd = m.repos.Update(msg)
	return m, cmd
}

func (m *Model) updateProject(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case issuesLoadedMsg:
		return m, m.issues.SetItems(issueItems(msg.issues))

	case sessionsLoadedMsg:
		return m, m.sessions.SetItems(sessionItems(msg.sessions))

	case issueCreatedMsg:
		m.err = nil
		return m, m.loadIssuesCmd(m.repo.FullName)

	case tea.KeyMsg:
		if m.activeList().FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "esc":
			m.state = stateRepos
			m.err = nil
			return m, nil
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.tab == tabIssues {
				m.tab = tabSessions
			} else {
				m.tab = tabIssues
			}
			return m, nil
		case "n":
			if m.tab == tabIssues {
				m.issueForm = NewIssueForm(m.repo.FullName, m.deps.Drafter)
				m.state = stateNewIssue
				return m, m.issueForm.Init()
			}
		case "r":
			return m, tea.Batch(
				m.loadIssuesCmd(m.repo.FullName),
				m.loadSessionsCmd(m.repo.FullName),
			)
		case "enter":
			return m.openChat()
		}
	}

	var cmd tea.Cmd
	if m.tab == tabIssues {
		m.issues, cmd = m.issues.Update(msg)
	} else {
		m.sessions, cmd = m.sessions.Update(msg)
	}
	return m, cmd
}

// openChat opens the chat for the selected issue or session.
func (m *Model) openChat() (tea.Model, tea.Cmd) {
	m.err = nil
	switch m.tab {
	case tabIssues:
		item, ok := m.issues.SelectedItem().(IssueItem)
		if !ok {
			return m, nil
		}
		m.state = stateChat
		m.chat.title = fmt.Sprintf("%s #%d: %s", m.repo.FullName, item.Issue.Number, item.Issue.Title)
		m.chat.input.Focus()
		return m, m.openIssueChatCmd(m.repo.FullName, item.Issue)

	case tabSessions:
		item, ok := m.sessions.SelectedItem().(SessionItem)
		if !ok {
			return m, nil
		}
		m.state = stateChat
		m.chat.title = item.Title()
		m.chat.input.Focus()
		return m, m.openSessionCmd(item.Session.ID)
	}
	return m, nil
}

func (m *Model) updateChat(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chatOpenedMsg:
		snap := m.orch.Snapshot()
		m.chat.Render(snap)
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		// New sessions wait for the confidence reply in the background.
		if snap.State == orchestrator.StateAwaitingConfidence {
			ctx, cancel := context.WithCancel(m.ctx)
			m.chatCancel = cancel
			return m, m.pollConfidenceCmd(ctx)
		}
		return m, nil

	case chatUpdatedMsg:
		m.chat.Render(m.orch.Snapshot())
		return m, nil

	case confidenceMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.log.Warn("confidence polling ended", "error", msg.err)
		}
		m.chat.Render(m.orch.Snapshot())
		return m, nil

	case messageSentMsg, executionStartedMsg:
		m.chat.Render(m.orch.Snapshot())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.closeChat()
			return m, m.loadSessionsCmd(m.repo.FullName)
		case "ctrl+c":
			m.closeChat()
			return m, tea.Quit
		case "enter":
			content := m.chat.input.Value()
			if content == "" {
				return m, nil
			}
			m.chat.input.Reset()
			return m, m.sendMessageCmd(content)
		case "ctrl+s":
			return m, m.startExecutionCmd()
		case "ctrl+r":
			return m, m.refreshChatCmd()
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.chat.input, cmd = m.chat.input.Update(msg)
	cmds = append(cmds, cmd)
	m.chat.viewport, cmd = m.chat.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) activeList() *list.Model {
	if m.tab == tabIssues {
		return &m.issues
	}
	return &m.sessions
}

func (m *Model) closeChat() {
	if m.chatCancel != nil {
		m.chatCancel()
		m.chatCancel = nil
	}
	m.state = stateProject
	m.err = nil
}

func (m *Model) updateNewIssue(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.issueForm.Update(msg)
	m.issueForm = updated.(*IssueForm)

	if m.issueForm.Completed {
		result := m.issueForm.Result()
		m.state = stateProject
		m.issueForm = nil

		if result.Cancelled {
			return m, nil
		}
		return m, m.createIssueCmd(m.repo.FullName, result.Title, result.Body)
	}

	return m, cmd
}

func (m *Model) View() string {
	switch m.state {
	case stateRepos:
		view := m.repos.View()
		view += "\n" + helpStyle.Render("enter open · / filter · q quit")
		return m.withError(view)

	case stateProject:
		tabs := renderTabs(m.tab)
		var view string
		if m.tab == tabIssues {
			view = m.issues.View()
		} else {
			view = m.sessions.View()
		}
		help := "enter chat · tab switch · n new issue · r refresh · esc back"
		return m.withError(titleStyle.Render(m.repo.FullName) + "\n" + tabs + "\n" + view + "\n" + helpStyle.Render(help))

	case stateChat:
		return m.withError(m.chat.View(m.orch.Snapshot()))

	case stateNewIssue:
		if m.issueForm != nil {
			return m.issueForm.View()
		}
	}
	return ""
}

func (m *Model) withError(view string) string {
	if m.err != nil {
		return view + "\n" + errorStyle.Render(m.err.Error())
	}
	return view
}

func renderTabs(active projectTab) string {
	issues := tabStyle.Render("Issues")
	sessions := tabStyle.Render("Sessions")
	if active == tabIssues {
		issues = activeTabStyle.Render("Issues")
	} else {
		sessions = activeTabStyle.Render("Sessions")
	}
	return issues + sessions
}
