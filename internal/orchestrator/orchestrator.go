package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"agentdash/internal/agent"
	"agentdash/internal/models"
	"agentdash/internal/store"
)

// State describes where a chat stands in its lifecycle.
type State string

const (
	StateUninitialized      State = "uninitialized"
	StateCreating           State = "creating"
	StateAwaitingConfidence State = "awaiting-confidence"
	StateReadyForExecution  State = "ready-for-execution"
	StateRunning            State = "running"
)

// ErrNoAssessment is returned when confidence polling exhausts its attempt
// budget without the agent producing a parseable assessment.
var ErrNoAssessment = errors.New("no confidence assessment received")

// HandleStore is the slice of the store the orchestrator needs: the mapping
// from a repository issue to the agent session that works on it.
// GetSessionHandle must return an error wrapping store.ErrNotFound when no
// handle exists; any other error is treated as a lookup failure, not as
// permission to create a second session for the issue.
type HandleStore interface {
	SaveSessionHandle(ctx context.Context, repoFullName string, issueNumber int, sessionID string) error
	GetSessionHandle(ctx context.Context, repoFullName string, issueNumber int) (string, error)
}

// Config carries the orchestrator's tunables. Zero values fall back to the
// defaults set by normalize.
type Config struct {
	// PollInterval is the initial delay between confidence polls. The delay
	// doubles after each empty poll and is capped at thirty seconds.
	PollInterval time.Duration
	// PollMaxAttempts bounds the confidence polling loop.
	PollMaxAttempts int
	// ReconcileDelay is how long to wait after sending a message before
	// re-fetching the session to confirm the optimistic local copy.
	ReconcileDelay time.Duration
	Logger         *slog.Logger
	// Notify, when set, is invoked after every snapshot change. It is called
	// without the orchestrator lock held.
	Notify func()
}

const maxPollInterval = 30 * time.Second

func (c Config) normalize() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 3 * time.Second
	}
	if c.PollMaxAttempts <= 0 {
		c.PollMaxAttempts = 30
	}
	if c.ReconcileDelay <= 0 {
		c.ReconcileDelay = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Snapshot is a copy of the orchestrator's visible state, safe to hand to a
// view layer while the orchestrator keeps mutating in the background.
type Snapshot struct {
	State      State
	SessionID  string
	Status     models.SessionStatus
	Messages   []models.Message
	Confidence *models.ConfidenceAssessment
}

// Orchestrator drives a single issue chat: it owns the session handle, the
// local message log, and the confidence workflow that gates execution.
type Orchestrator struct {
	agent   agent.API
	handles HandleStore
	cfg     Config
	log     *slog.Logger

	mu         sync.Mutex
	state      State
	repo       string
	issue      *models.Issue
	sessionID  string
	status     models.SessionStatus
	messages   []models.Message
	confidence *models.ConfidenceAssessment
}

func New(api agent.API, handles HandleStore, cfg Config) *Orchestrator {
	cfg = cfg.normalize()
	return &Orchestrator{
		agent:   api,
		handles: handles,
		cfg:     cfg,
		log:     cfg.Logger,
		state:   StateUninitialized,
	}
}

// Snapshot returns a copy of the current chat state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := Snapshot{
		State:     o.state,
		SessionID: o.sessionID,
		Status:    o.status,
		Messages:  slices.Clone(o.messages),
	}
	if o.confidence != nil {
		c := *o.confidence
		snap.Confidence = &c
	}
	return snap
}

func (o *Orchestrator) notify() {
	if o.cfg.Notify != nil {
		o.cfg.Notify()
	}
}

func (o *Orchestrator) appendMessage(m models.Message) {
	o.mu.Lock()
	o.messages = append(o.messages, m)
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) appendError(err error) {
	o.appendMessage(models.Message{
		Role:      models.RoleError,
		Content:   err.Error(),
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) appendSystem(content string) {
	o.appendMessage(models.Message{
		Role:      models.RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.notify()
}

// confidencePrompt is the instruction sent right after a session is created.
const confidencePrompt = `Before you start working, reply with a single JSON object of the form {"score": <number 0-100>, "reasoning": "<short explanation>"} estimating your confidence that you can resolve this task. Reply with only the JSON object.`

// executionPrompt is the message that kicks off actual work once confidence
// has been reviewed.
const executionPrompt = "Confidence acknowledged. Please proceed: implement the fix and open a pull request when you are done."

// issuePrompt builds the initial task description given to the agent.
func issuePrompt(repoFullName string, issue *models.Issue) string {
	body := issue.Body
	if body == "" {
		body = "(no description)"
	}
	return fmt.Sprintf("Work on the following GitHub issue in %s.\n\nIssue #%d: %s\n\n%s\n\nIssue URL: %s",
		repoFullName, issue.Number, issue.Title, body, issue.URL)
}

// OpenIssueChat binds the orchestrator to an issue. If a session handle is
// already persisted for the repo/issue pair the existing session is resumed;
// otherwise exactly one new session is created, tagged, and persisted. The
// confidence request is sent for new sessions; call PollConfidence afterwards
// to wait for the reply.
func (o *Orchestrator) OpenIssueChat(ctx context.Context, repoFullName string, issue *models.Issue) error {
	o.mu.Lock()
	o.repo = repoFullName
	o.issue = issue
	o.messages = nil
	o.confidence = nil
	o.sessionID = ""
	o.state = StateUninitialized
	o.mu.Unlock()
	o.notify()

	existing, err := o.handles.GetSessionHandle(ctx, repoFullName, issue.Number)
	switch {
	case err == nil && existing != "":
		return o.resume(ctx, existing)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		// A failed lookup is not proof there is no session. Creating one
		// here could leave the issue with two.
		o.appendError(fmt.Errorf("look up session handle: %w", err))
		return err
	}

	o.setState(StateCreating)

	sess, err := o.agent.CreateSession(ctx, agent.CreateSessionRequest{
		Prompt: issuePrompt(repoFullName, issue),
		Title:  fmt.Sprintf("%s #%d: %s", repoFullName, issue.Number, issue.Title),
		Tags:   []string{models.RepoTag(repoFullName), models.IssueTag(issue.Number)},
	})
	if err != nil {
		o.setState(StateUninitialized)
		o.appendError(fmt.Errorf("create session: %w", err))
		return err
	}

	o.mu.Lock()
	o.sessionID = sess.ID
	o.status = sess.Status
	o.mu.Unlock()

	if err := o.handles.SaveSessionHandle(ctx, repoFullName, issue.Number, sess.ID); err != nil {
		// The session exists upstream even if the handle did not persist, so
		// keep going and let the user know.
		o.log.Error("persist session handle", "session_id", sess.ID, "error", err)
		o.appendError(fmt.Errorf("save session handle: %w", err))
	}

	o.appendSystem(fmt.Sprintf("Session %s created for issue #%d.", sess.ID, issue.Number))
	o.setState(StateAwaitingConfidence)

	if err := o.agent.SendMessage(ctx, sess.ID, confidencePrompt); err != nil {
		o.appendError(fmt.Errorf("request confidence assessment: %w", err))
		return err
	}
	o.appendSystem("Requested a confidence assessment from the agent.")
	return nil
}

// OpenSession attaches to an already-known session, for chats opened from the
// session list rather than from an issue.
func (o *Orchestrator) OpenSession(ctx context.Context, sessionID string) error {
	o.mu.Lock()
	o.repo = ""
	o.issue = nil
	o.messages = nil
	o.confidence = nil
	o.sessionID = sessionID
	o.state = StateUninitialized
	o.mu.Unlock()
	o.notify()

	return o.resume(ctx, sessionID)
}

func (o *Orchestrator) resume(ctx context.Context, sessionID string) error {
	sess, err := o.agent.GetSession(ctx, sessionID)
	if err != nil {
		o.appendError(fmt.Errorf("load session %s: %w", sessionID, err))
		return err
	}

	next := StateAwaitingConfidence
	if sess.Status == models.SessionStatusRunning {
		next = StateRunning
	}

	o.mu.Lock()
	o.sessionID = sess.ID
	o.status = sess.Status
	o.messages = slices.Clone(sess.Messages)
	o.state = next
	o.mu.Unlock()
	o.notify()
	return nil
}

// PollConfidence waits for the agent to answer the confidence prompt. It
// re-fetches the session on a doubling interval until the newest assistant
// message parses as an assessment, the attempt budget is spent, or ctx is
// cancelled. Fetch and parse failures are logged and count as attempts.
func (o *Orchestrator) PollConfidence(ctx context.Context) (*models.ConfidenceAssessment, error) {
	o.mu.Lock()
	sessionID := o.sessionID
	o.mu.Unlock()
	if sessionID == "" {
		return nil, errors.New("no active session")
	}

	interval := o.cfg.PollInterval
	for attempt := 1; attempt <= o.cfg.PollMaxAttempts; attempt++ {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		if interval *= 2; interval > maxPollInterval {
			interval = maxPollInterval
		}

		sess, err := o.agent.GetSession(ctx, sessionID)
		if err != nil {
			o.log.Warn("confidence poll", "attempt", attempt, "error", err)
			continue
		}

		ca, ok := latestAssessment(sess.Messages)
		if !ok {
			o.log.Debug("confidence poll: no assessment yet", "attempt", attempt)
			continue
		}

		o.mu.Lock()
		o.confidence = ca
		o.status = sess.Status
		o.messages = slices.Clone(sess.Messages)
		o.state = StateReadyForExecution
		o.mu.Unlock()
		o.notify()
		return ca, nil
	}

	o.appendSystem("The agent did not return a confidence assessment in time. You can still message it directly.")
	return nil, ErrNoAssessment
}

// latestAssessment scans from the newest message backwards for an assistant
// reply that parses as a confidence assessment.
func latestAssessment(msgs []models.Message) (*models.ConfidenceAssessment, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != models.RoleAssistant {
			continue
		}
		if ca, ok := ParseConfidence(msgs[i].Content); ok {
			return ca, true
		}
	}
	return nil, false
}

// SendMessage delivers user text to the session. The message is appended
// locally as pending right away; once the send succeeds and ReconcileDelay
// passes, the session is re-fetched and the local log reconciled against it.
func (o *Orchestrator) SendMessage(ctx context.Context, content string) error {
	o.mu.Lock()
	sessionID := o.sessionID
	o.mu.Unlock()
	if sessionID == "" {
		return errors.New("no active session")
	}

	o.appendMessage(models.Message{
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Pending:   true,
	})

	if err := o.agent.SendMessage(ctx, sessionID, content); err != nil {
		o.appendError(fmt.Errorf("send message: %w", err))
		return err
	}

	timer := time.NewTimer(o.cfg.ReconcileDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}
	return o.Refresh(ctx)
}

// Refresh re-fetches the session and reconciles the local log against it.
// Pending local messages the server has not echoed back yet are kept at the
// tail; everything else is replaced by the server's view.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.mu.Lock()
	sessionID := o.sessionID
	o.mu.Unlock()
	if sessionID == "" {
		return errors.New("no active session")
	}

	sess, err := o.agent.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.status = sess.Status
	o.messages = reconcile(o.messages, sess.Messages)
	if o.state == StateRunning && sess.Status != models.SessionStatusRunning {
		o.state = StateReadyForExecution
	}
	o.mu.Unlock()
	o.notify()
	return nil
}

// reconcile merges the server's message log with locally pending messages.
// The server list is authoritative; a pending message survives only until the
// server echoes a user message with the same content.
func reconcile(local, server []models.Message) []models.Message {
	merged := slices.Clone(server)
	for _, m := range local {
		if m.Pending && !serverHasUserContent(server, m.Content) {
			merged = append(merged, m)
		}
	}
	return merged
}

func serverHasUserContent(msgs []models.Message, content string) bool {
	for _, m := range msgs {
		if m.Role == models.RoleUser && m.Content == content {
			return true
		}
	}
	return false
}

// StartExecution tells the agent to go ahead with the work. The session is
// optimistically marked running; the next Refresh confirms it.
func (o *Orchestrator) StartExecution(ctx context.Context) error {
	o.mu.Lock()
	sessionID := o.sessionID
	state := o.state
	o.mu.Unlock()
	if sessionID == "" {
		return errors.New("no active session")
	}
	if state != StateAwaitingConfidence && state != StateReadyForExecution {
		return fmt.Errorf("cannot start execution from state %q", state)
	}

	if err := o.agent.SendMessage(ctx, sessionID, executionPrompt); err != nil {
		o.appendError(fmt.Errorf("start execution: %w", err))
		return err
	}

	o.mu.Lock()
	o.status = models.SessionStatusRunning
	o.state = StateRunning
	o.mu.Unlock()
	o.appendSystem("Execution started. The agent is now working on the issue.")
	return nil
}

// ListRepoSessions fetches recent sessions and keeps only those tagged with
// the given repository.
func ListRepoSessions(ctx context.Context, api agent.API, repoFullName string, limit int) ([]*models.Session, error) {
	sessions, err := api.ListSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FilterByRepo(sessions, repoFullName), nil
}

// FilterByRepo retains the sessions carrying the repository's tag.
func FilterByRepo(sessions []*models.Session, repoFullName string) []*models.Session {
	tag := models.RepoTag(repoFullName)
	var out []*models.Session
	for _, s := range sessions {
		if s.HasTag(tag) {
			out = append(out, s)
		}
	}
	return out
}
