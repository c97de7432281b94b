package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"agentdash/internal/llm"
)

// IssueFormResult contains the result of the new-issue dialog.
type IssueFormResult struct {
	Cancelled bool
	Title     string
	Body      string
}

// IssueForm is a Bubble Tea component for filing a new GitHub issue.
// When a drafter is available the notes are expanded into a full issue body
// on submit; otherwise the notes become the body as-is.
type IssueForm struct {
	Completed bool
	form      *huh.Form
	repo      string
	drafter   *llm.Client
	useDraft  bool
	result    IssueFormResult
	notes     string
}

// NewIssueForm creates a new issue creation form for the given repository.
func NewIssueForm(repo string, drafter *llm.Client) *IssueForm {
	f := &IssueForm{
		repo:     repo,
		drafter:  drafter,
		useDraft: drafter != nil,
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Description(fmt.Sprintf("New issue in %s", repo)).
			Value(&f.result.Title).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("title is required")
				}
				return nil
			}),
		huh.NewText().
			Title("Notes").
			Description("Rough notes; these become the issue body").
			Value(&f.notes).
			CharLimit(4000),
	}
	if drafter != nil {
		fields = append(fields, huh.NewConfirm().
			Title("Expand notes into a full issue body?").
			Value(&f.useDraft).
			Affirmative("Draft it").
			Negative("Use as-is"))
	}

	f.form = huh.NewForm(huh.NewGroup(fields...))
	return f
}

func (f *IssueForm) Init() tea.Cmd {
	return f.form.Init()
}

func (f *IssueForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle Escape or Ctrl+C to cancel
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" || keyMsg.String() == "ctrl+c" {
			f.result.Cancelled = true
			f.Completed = true
			return f, nil
		}
	}

	form, cmd := f.form.Update(msg)
	if hf, ok := form.(*huh.Form); ok {
		f.form = hf
	}

	if f.form.State == huh.StateCompleted {
		f.Completed = true
		f.finalize()
		return f, nil
	}

	return f, cmd
}

// finalize fills in the issue body, optionally running the notes through the
// drafter. Draft failures fall back to the raw notes.
func (f *IssueForm) finalize() {
	notes := strings.TrimSpace(f.notes)
	f.result.Body = notes

	if f.useDraft && f.drafter != nil {
		draft, err := f.drafter.DraftIssue(context.Background(), f.repo, f.result.Title, notes)
		if err == nil {
			f.result.Title = draft.Title
			f.result.Body = draft.Body
		}
	}
}

func (f *IssueForm) View() string {
	if f.form != nil {
		return titleStyle.Render("New Issue") + "\n" + f.form.View()
	}
	return ""
}

// Result returns the form result.
func (f *IssueForm) Result() IssueFormResult {
	return f.result
}
