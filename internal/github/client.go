// Package github is a thin REST client for the GitHub API surface the
// dashboard consumes: the authenticated user, their repositories, and
// per-repository issues.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agentdash/internal/models"
)

const defaultBaseURL = "https://api.github.com"

// User is the authenticated GitHub user.
type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Client calls the GitHub REST API with a bearer token. The token is
// threaded in explicitly so tests and multi-account use need no ambient
// state.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a GitHub client authenticated with the given token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// APIError is an upstream GitHub error, propagated unchanged.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: status %d: %s", e.Status, e.Body)
}

// GetUser returns the authenticated user.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListRepos lists the authenticated user's repositories, most recently
// updated first.
func (c *Client) ListRepos(ctx context.Context, page, perPage int) ([]*models.Repository, error) {
	q := url.Values{}
	q.Set("sort", "updated")
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var repos []*models.Repository
	if err := c.do(ctx, http.MethodGet, "/user/repos", q, nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// ListIssues lists issues for one repository. GitHub returns pull requests
// through the same endpoint; those are filtered out.
func (c *Client) ListIssues(ctx context.Context, owner, repo string) ([]*models.Issue, error) {
	type issueWire struct {
		models.Issue
		PullRequest *struct{} `json:"pull_request"`
	}

	var wire []issueWire
	path := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &wire); err != nil {
		return nil, err
	}

	issues := make([]*models.Issue, 0, len(wire))
	for i := range wire {
		if wire[i].PullRequest != nil {
			continue
		}
		issue := wire[i].Issue
		issues = append(issues, &issue)
	}
	return issues, nil
}

// CreateIssue opens a new issue in the repository.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string) (*models.Issue, error) {
	req := map[string]string{"title": title, "body": body}
	var issue models.Issue
	path := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)
	if err := c.do(ctx, http.MethodPost, path, nil, req, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}
