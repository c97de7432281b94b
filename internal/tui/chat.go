package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"agentdash/internal/models"
	"agentdash/internal/orchestrator"
)

// chatView renders one issue chat: the message log, the confidence banner,
// and the input line.
type chatView struct {
	viewport viewport.Model
	input    textinput.Model
	title    string
	width    int
	height   int
}

func newChatView() *chatView {
	ti := textinput.New()
	ti.Placeholder = "Message the agent..."
	ti.CharLimit = 4000
	ti.Focus()

	return &chatView{
		viewport: viewport.New(80, 20),
		input:    ti,
	}
}

func (c *chatView) SetSize(width, height int) {
	c.width = width
	c.height = height
	// Title, confidence banner slot, input line, and help line take the rest.
	vh := height - 7
	if vh < 3 {
		vh = 3
	}
	c.viewport.Width = width
	c.viewport.Height = vh
	c.input.Width = width - 4
}

// Render rebuilds the viewport content from a snapshot and pins the view to
// the newest message.
func (c *chatView) Render(snap orchestrator.Snapshot) {
	var b strings.Builder
	for _, msg := range snap.Messages {
		b.WriteString(renderMessage(msg))
		b.WriteString("\n")
	}
	if len(snap.Messages) == 0 {
		b.WriteString(systemMsgStyle.Render("No messages yet."))
		b.WriteString("\n")
	}
	c.viewport.SetContent(b.String())
	c.viewport.GotoBottom()
}

func renderMessage(msg models.Message) string {
	var label string
	var style lipgloss.Style
	switch msg.Role {
	case models.RoleUser:
		label, style = "you", userMsgStyle
	case models.RoleAssistant:
		label, style = "agent", assistantMsgStyle
	case models.RoleError:
		label, style = "error", errorMsgStyle
	default:
		label, style = "system", systemMsgStyle
	}

	text := style.Render(msg.Content)
	if msg.Pending {
		return fmt.Sprintf("%s %s %s", subtitleStyle.Render(label+":"), text, pendingStyle.Render("(sending...)"))
	}
	return fmt.Sprintf("%s %s", subtitleStyle.Render(label+":"), text)
}

func (c *chatView) View(snap orchestrator.Snapshot) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(c.title))
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render(stateLabel(snap)))
	b.WriteString("\n")
	b.WriteString(c.viewport.View())
	b.WriteString("\n")

	if snap.Confidence != nil && snap.State == orchestrator.StateReadyForExecution {
		banner := fmt.Sprintf("Confidence: %d/100: %s\nPress ctrl+s to start execution.",
			snap.Confidence.Score, snap.Confidence.Reasoning)
		b.WriteString(confidenceStyle.Render(banner))
		b.WriteString("\n")
	}

	b.WriteString(c.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter send · ctrl+s start execution · ctrl+r refresh · esc back"))
	return b.String()
}

func stateLabel(snap orchestrator.Snapshot) string {
	switch snap.State {
	case orchestrator.StateCreating:
		return "Creating session..."
	case orchestrator.StateAwaitingConfidence:
		return "Waiting for the agent's confidence assessment..."
	case orchestrator.StateReadyForExecution:
		return "Assessment received. Ready to start execution."
	case orchestrator.StateRunning:
		label := "Agent is working."
		if snap.Status != "" {
			label = fmt.Sprintf("Agent is working (status: %s).", snap.Status)
		}
		return label
	default:
		return "Opening chat..."
	}
}
