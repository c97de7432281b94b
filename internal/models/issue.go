package models

import "time"

// IssueState represents the state of a source-control issue.
type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// IssueAuthor identifies the user that opened an issue.
type IssueAuthor struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Issue is a source-control issue scoped to one repository. Number is the
// stable key used to associate a persisted agent session with the issue.
type Issue struct {
	ID        int64       `json:"id"`
	Number    int         `json:"number"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	State     IssueState  `json:"state"`
	URL       string      `json:"html_url"`
	CreatedAt time.Time   `json:"created_at"`
	User      IssueAuthor `json:"user"`
}
