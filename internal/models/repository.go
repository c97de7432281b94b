package models

import (
	"fmt"
	"strings"
	"time"
)

// Repository is an immutable snapshot of a source-control repository.
// Selecting one is the root context for issue and session operations.
type Repository struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"` // owner/name
	Description string    `json:"description"`
	Stars       int       `json:"stargazers_count"`
	URL         string    `json:"html_url"`
	UpdatedAt   time.Time `json:"updated_at"`
	Language    string    `json:"language"`
}

// SplitFullName returns the owner and name halves of an "owner/name" string.
func SplitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q (want owner/name)", fullName)
	}
	return parts[0], parts[1], nil
}

// RepoTag is the session tag encoding repository affinity.
func RepoTag(fullName string) string {
	return "repo:" + fullName
}

// IssueTag is the session tag encoding issue affinity.
func IssueTag(number int) string {
	return fmt.Sprintf("issue:%d", number)
}
