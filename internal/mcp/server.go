package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"agentdash/internal/agent"
	"agentdash/internal/models"
	"agentdash/internal/orchestrator"
)

// GitHubAPI is the slice of the GitHub client the MCP tools use.
type GitHubAPI interface {
	ListRepos(ctx context.Context, page, perPage int) ([]*models.Repository, error)
	ListIssues(ctx context.Context, owner, repo string) ([]*models.Issue, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string) (*models.Issue, error)
}

// Server wraps the dashboard's data layer and exposes it as MCP tools.
type Server struct {
	gh      GitHubAPI
	agent   agent.API
	handles orchestrator.HandleStore
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(gh GitHubAPI, api agent.API, handles orchestrator.HandleStore) *Server {
	return &Server{
		gh:      gh,
		agent:   api,
		handles: handles,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("agentdash", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listReposTool())
	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.openIssueChatTool())
	srv.AddTool(s.sendMessageTool())
	srv.AddTool(s.sessionStatusTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// dash_list_repos
func (s *Server) listReposTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_list_repos",
		mcp.WithDescription("List the authenticated user's GitHub repositories, most recently updated first. Returns a JSON array with full_name, description, language, and star count."),
		mcp.WithNumber("page", mcp.Description("Page number (default 1)")),
		mcp.WithNumber("per_page", mcp.Description("Results per page (default 30, max 100)")),
	)
	return tool, s.handleListRepos
}

func (s *Server) handleListRepos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := request.GetInt("page", 1)
	perPage := request.GetInt("per_page", 30)

	repos, err := s.gh.ListRepos(ctx, page, perPage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list repositories: %v", err)), nil
	}

	type repoOut struct {
		FullName    string `json:"full_name"`
		Description string `json:"description"`
		Language    string `json:"language"`
		Stars       int    `json:"stars"`
		URL         string `json:"url"`
		UpdatedAt   string `json:"updated_at"`
	}

	out := make([]repoOut, len(repos))
	for i, r := range repos {
		out[i] = repoOut{
			FullName:    r.FullName,
			Description: r.Description,
			Language:    r.Language,
			Stars:       r.Stars,
			URL:         r.URL,
			UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal repositories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// dash_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_list_issues",
		mcp.WithDescription("List open issues for a repository. Pull requests are excluded. Returns a JSON array with number, title, body, state, and author."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository full name, e.g. owner/name")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fullName, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	owner, name, err := models.SplitFullName(fullName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issues, err := s.gh.ListIssues(ctx, owner, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	type issueOut struct {
		Number    int    `json:"number"`
		Title     string `json:"title"`
		Body      string `json:"body,omitempty"`
		State     string `json:"state"`
		Author    string `json:"author"`
		URL       string `json:"url"`
		CreatedAt string `json:"created_at"`
	}

	out := make([]issueOut, len(issues))
	for i, issue := range issues {
		out[i] = issueOut{
			Number:    issue.Number,
			Title:     issue.Title,
			Body:      issue.Body,
			State:     string(issue.State),
			Author:    issue.User.Login,
			URL:       issue.URL,
			CreatedAt: issue.CreatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// dash_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_create_issue",
		mcp.WithDescription("Create a new GitHub issue in a repository. Returns the created issue as JSON."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository full name, e.g. owner/name")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("body", mcp.Description("Issue body in GitHub markdown")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fullName, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	owner, name, err := models.SplitFullName(fullName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := request.GetString("body", "")

	issue, err := s.gh.CreateIssue(ctx, owner, name, title, body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}

	result := map[string]any{
		"number":     issue.Number,
		"title":      issue.Title,
		"state":      string(issue.State),
		"url":        issue.URL,
		"created_at": issue.CreatedAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// dash_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_list_sessions",
		mcp.WithDescription("List recent coding-agent sessions. Optionally filter to sessions tagged with one repository. Returns a JSON array with id, title, status, tags, and pull request URL when one exists."),
		mcp.WithString("repo", mcp.Description("Repository full name to filter by")),
		mcp.WithNumber("limit", mcp.Description("Maximum sessions to return (default 100)")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", 100)

	sessions, err := s.agent.ListSessions(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if repo := request.GetString("repo", ""); repo != "" {
		sessions = orchestrator.FilterByRepo(sessions, repo)
	}

	type sessionOut struct {
		ID             string   `json:"id"`
		Title          string   `json:"title"`
		Status         string   `json:"status"`
		Tags           []string `json:"tags"`
		PullRequestURL string   `json:"pull_request_url,omitempty"`
		UpdatedAt      string   `json:"updated_at"`
	}

	out := make([]sessionOut, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionOut{
			ID:             sess.ID,
			Title:          sess.Title,
			Status:         string(sess.Status),
			Tags:           sess.Tags,
			PullRequestURL: sess.PullRequestURL,
			UpdatedAt:      sess.UpdatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// dash_open_issue_chat
func (s *Server) openIssueChatTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_open_issue_chat",
		mcp.WithDescription("Open (or resume) the agent session bound to a repository issue. At most one session exists per issue; a saved session is resumed, otherwise a new tagged session is created and asked for a confidence assessment. Returns the session id and state."),
		mcp.WithString("repo", mcp.Required(), mcp.Description("Repository full name, e.g. owner/name")),
		mcp.WithNumber("issue_number", mcp.Required(), mcp.Description("Issue number")),
		mcp.WithString("issue_title", mcp.Description("Issue title, used when a new session is created")),
		mcp.WithString("issue_body", mcp.Description("Issue body, used when a new session is created")),
	)
	return tool, s.handleOpenIssueChat
}

func (s *Server) handleOpenIssueChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fullName, err := request.RequireString("repo")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: repo"), nil
	}
	number, err := request.RequireInt("issue_number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_number"), nil
	}

	issue := &models.Issue{
		Number: number,
		Title:  request.GetString("issue_title", fmt.Sprintf("Issue #%d", number)),
		Body:   request.GetString("issue_body", ""),
	}

	o := orchestrator.New(s.agent, s.handles, orchestrator.Config{})
	if err := o.OpenIssueChat(ctx, fullName, issue); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to open issue chat: %v", err)), nil
	}

	snap := o.Snapshot()
	result := map[string]any{
		"session_id": snap.SessionID,
		"state":      string(snap.State),
		"repo":       fullName,
		"issue":      number,
	}

	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// dash_send_message
func (s *Server) sendMessageTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_send_message",
		mcp.WithDescription("Send a message to an existing agent session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Agent session ID")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
	)
	return tool, s.handleSendMessage
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	message, err := request.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: message"), nil
	}

	if err := s.agent.SendMessage(ctx, sessionID, message); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to send message: %v", err)), nil
	}

	result := map[string]any{
		"session_id": sessionID,
		"sent":       true,
	}
	data, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(data)), nil
}

// dash_session_status
func (s *Server) sessionStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("dash_session_status",
		mcp.WithDescription("Fetch one agent session with its full message history. Includes a parsed confidence assessment when the agent has produced one."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Agent session ID")),
	)
	return tool, s.handleSessionStatus
}

func (s *Server) handleSessionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}

	sess, err := s.agent.GetSession(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to fetch session: %v", err)), nil
	}

	type messageOut struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp,omitempty"`
	}

	msgs := make([]messageOut, len(sess.Messages))
	for i, m := range sess.Messages {
		msgs[i] = messageOut{Role: string(m.Role), Content: m.Content}
		if !m.Timestamp.IsZero() {
			msgs[i].Timestamp = m.Timestamp.Format(time.RFC3339)
		}
	}

	result := map[string]any{
		"id":       sess.ID,
		"title":    sess.Title,
		"status":   string(sess.Status),
		"tags":     sess.Tags,
		"messages": msgs,
	}
	if sess.PullRequestURL != "" {
		result["pull_request_url"] = sess.PullRequestURL
	}
	for i := len(sess.Messages) - 1; i >= 0; i-- {
		if sess.Messages[i].Role != models.RoleAssistant {
			continue
		}
		if ca, ok := orchestrator.ParseConfidence(sess.Messages[i].Content); ok {
			result["confidence"] = ca
			break
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal session: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
