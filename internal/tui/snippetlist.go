package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/gitpulse/internal/logscan"
)

// SnippetListModel is an immutable model for the snippets of one failed job.
type SnippetListModel struct {
	snippets []logscan.Snippet
	cursor   int
}

// NewSnippetListModel creates a snippet list model.
func NewSnippetListModel(snippets []logscan.Snippet) SnippetListModel {
	return SnippetListModel{snippets: snippets, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m SnippetListModel) MoveDown() SnippetListModel {
	if m.cursor < len(m.snippets)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m SnippetListModel) MoveUp() SnippetListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Cursor returns the current cursor position.
func (m SnippetListModel) Cursor() int {
	return m.cursor
}

// Snippets returns the full snippet slice.
func (m SnippetListModel) Snippets() []logscan.Snippet {
	return m.snippets
}

// View renders one line per snippet: where it starts and its first non-blank line.
func (m SnippetListModel) View() string {
	if len(m.snippets) == 0 {
		return "No error lines found in this log."
	}
	var sb strings.Builder
	for i, s := range m.snippets {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		where := fmt.Sprintf("line %d", s.StartLine+1)
		if s.Truncated || s.StartLine < 0 {
			where = "truncated"
		}
		sb.WriteString(fmt.Sprintf("%s%-10s %3d lines  %s\n",
			prefix,
			where,
			len(s.Lines),
			truncate(preview(s.Lines), 50),
		))
	}
	return sb.String()
}

func preview(lines []string) string {
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			return t
		}
	}
	return ""
}
