package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDraftPrompt(t *testing.T) {
	t.Run("with notes", func(t *testing.T) {
		system, user := buildDraftPrompt("acme/widgets", "Crash on empty input", "panics when argv is empty\nseen on v1.2 only")

		assert.Contains(t, system, "JSON")
		assert.Contains(t, system, `"title"`)
		assert.Contains(t, system, `"body"`)

		assert.Contains(t, user, "Repository: acme/widgets")
		assert.Contains(t, user, "Crash on empty input")
		assert.Contains(t, user, "seen on v1.2 only")
	})

	t.Run("without notes", func(t *testing.T) {
		_, user := buildDraftPrompt("acme/widgets", "Add dark mode", "")

		assert.Contains(t, user, "Add dark mode")
		assert.NotContains(t, user, "Notes:")
	})

	t.Run("long notes are preserved", func(t *testing.T) {
		notes := strings.Repeat("x", 10000)
		_, user := buildDraftPrompt("acme/widgets", "big one", notes)
		assert.Contains(t, user, notes)
	})
}

func TestStripFencing(t *testing.T) {
	t.Run("plain text untouched", func(t *testing.T) {
		assert.Equal(t, `{"title": "t"}`, stripFencing(`{"title": "t"}`))
	})

	t.Run("json fence removed", func(t *testing.T) {
		in := "```json\n{\"title\": \"t\", \"body\": \"b\"}\n```"
		assert.Equal(t, `{"title": "t", "body": "b"}`, stripFencing(in))
	})

	t.Run("bare fence removed", func(t *testing.T) {
		in := "```\nhello\n```"
		assert.Equal(t, "hello", stripFencing(in))
	})

	t.Run("surrounding whitespace trimmed", func(t *testing.T) {
		assert.Equal(t, "hi", stripFencing("  hi \n"))
	})
}
