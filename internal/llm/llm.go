package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"agentdash/internal/models"
)

// DraftedIssue holds the LLM-generated fields for a new GitHub issue.
type DraftedIssue struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Client wraps the Anthropic API for issue drafting and chat summaries.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildDraftPrompt constructs the system and user prompts for issue drafting.
func buildDraftPrompt(repoFullName, title, notes string) (system string, user string) {
	system = `You draft GitHub issues for a software repository. Given a working title and rough notes, return a JSON object with exactly two fields:

- "title": a concise, specific issue title (improve the working title if needed)
- "body": a well-structured issue body in GitHub markdown. Include a short summary, reproduction steps or context when the notes suggest them, and acceptance criteria. Write it so a coding agent can pick the issue up and start working immediately.

Rules:
- Return valid JSON only, no markdown fencing or explanation
- Do not invent facts that are not in the notes; leave gaps as open questions instead
- Keep the body under 300 words`

	var sb strings.Builder
	sb.WriteString("Repository: ")
	sb.WriteString(repoFullName)
	sb.WriteString("\n\nWorking title: ")
	sb.WriteString(title)
	sb.WriteString("\n")
	if notes != "" {
		sb.WriteString("\nNotes:\n")
		sb.WriteString(notes)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// DraftIssue expands a working title and rough notes into a ready-to-file
// issue title and body.
func (c *Client) DraftIssue(ctx context.Context, repoFullName, title, notes string) (*DraftedIssue, error) {
	systemPrompt, userPrompt := buildDraftPrompt(repoFullName, title, notes)

	text, err := c.complete(ctx, systemPrompt, userPrompt, 2048)
	if err != nil {
		return nil, err
	}

	var draft DraftedIssue
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	if draft.Title == "" {
		draft.Title = title
	}
	return &draft, nil
}

// SummarizeSession condenses a session's chat log into a one-line status
// suitable for the session list.
func (c *Client) SummarizeSession(ctx context.Context, sess *models.Session) (string, error) {
	system := `You summarize a conversation between a developer and an AI coding agent. Return a single plain-text sentence (no JSON, no markdown) stating what the agent is doing or has done. Mention a pull request if one was opened.`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %q, status %s.\n\n", sess.Title, sess.Status)
	for _, m := range sess.Messages {
		fmt.Fprintf(&sb, "[%s] %s\n", m.Role, m.Content)
	}
	if sess.PullRequestURL != "" {
		fmt.Fprintf(&sb, "\nPull request: %s\n", sess.PullRequestURL)
	}

	text, err := c.complete(ctx, system, sb.String(), 256)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// complete runs a single-turn completion and returns the first text block,
// with any markdown fencing stripped.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int64) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}
	return stripFencing(text), nil
}

// stripFencing removes markdown code fencing if present.
func stripFencing(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}
