package logscan_test

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/gitpulse/internal/logscan"
)

func numbered(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	return lines
}

func TestExtract_ContextAroundMatch(t *testing.T) {
	lines := numbered(40)
	lines[20] = "Error: cannot find module 'x'"

	snippets := logscan.New().Extract(strings.Join(lines, "\n"))

	require.Len(t, snippets, 1)
	assert.Equal(t, 15, snippets[0].StartLine)
	assert.Len(t, snippets[0].Lines, 16)
	assert.Equal(t, "line 15", snippets[0].Lines[0])
	assert.Equal(t, "line 30", snippets[0].Lines[15])
	assert.False(t, snippets[0].Truncated)
}

func TestExtract_DistantMatchesStaySeparate(t *testing.T) {
	lines := numbered(100)
	lines[10] = "panic: runtime error"
	lines[60] = "##[error]Process completed with exit code 1."

	snippets := logscan.New().Extract(strings.Join(lines, "\n"))

	require.Len(t, snippets, 2)
	assert.Equal(t, 5, snippets[0].StartLine)
	assert.Equal(t, 55, snippets[1].StartLine)
}

func TestExtract_TouchingRegionsMerge(t *testing.T) {
	lines := numbered(60)
	lines[10] = "FAILED tests/test_api.py"
	// 10+10 = 20 and 26-5 = 21 touch
	lines[26] = "fatal: not a git repository"

	snippets := logscan.New().Extract(strings.Join(lines, "\n"))

	require.Len(t, snippets, 1)
	assert.Equal(t, 5, snippets[0].StartLine)
	assert.Len(t, snippets[0].Lines, 32)
}

func TestExtract_FallsBackToTail(t *testing.T) {
	lines := numbered(200)

	snippets := logscan.New().Extract(strings.Join(lines, "\n"))

	require.Len(t, snippets, 1)
	assert.Len(t, snippets[0].Lines, 80)
	assert.Equal(t, "line 120", snippets[0].Lines[0])
	assert.Equal(t, "line 199", snippets[0].Lines[79])
}

func TestExtract_EmptyLogYieldsNothing(t *testing.T) {
	assert.Empty(t, logscan.New().Extract(""))
	assert.Empty(t, logscan.New().Extract("\n  \n"))
}

func TestExtract_TruncatesOverBudget(t *testing.T) {
	lines := numbered(40)
	lines[5] = "Error: one"
	lines[30] = "Error: two"

	snippets := logscan.New(logscan.WithMaxLines(20)).Extract(strings.Join(lines, "\n"))

	require.Len(t, snippets, 1)
	assert.True(t, snippets[0].Truncated)
	assert.Len(t, snippets[0].Lines, 20)
	assert.True(t, strings.HasSuffix(snippets[0].Text(), "\n... (truncated)"))
}

func TestExtract_StripsTimestamps(t *testing.T) {
	raw := "2025-03-04T10:30:45.1234567Z Run npm test\n" +
		"2025-03-04T10:30:46Z TypeError: undefined is not a function"

	snippets := logscan.New().Extract(raw)

	require.Len(t, snippets, 1)
	assert.Equal(t, []string{"Run npm test", "TypeError: undefined is not a function"}, snippets[0].Lines)
}

func TestExtract_ExitCodeZeroIsNotAnError(t *testing.T) {
	raw := "step one\nProcess completed with exit code 0."

	snippets := logscan.New().Extract(raw)

	require.Len(t, snippets, 1)
	assert.Equal(t, 0, snippets[0].StartLine, "tail fallback")
}

func TestExtract_ExtraPatterns(t *testing.T) {
	lines := numbered(50)
	lines[25] = "E2E_BROKEN flow checkout"
	extra, err := logscan.CompilePatterns([]string{`E2E_BROKEN`})
	require.NoError(t, err)

	snippets := logscan.New(logscan.WithPatterns(extra...)).Extract(strings.Join(lines, "\n"))

	require.Len(t, snippets, 1)
	assert.Equal(t, 20, snippets[0].StartLine)
}

func TestCompilePatterns_RejectsInvalid(t *testing.T) {
	_, err := logscan.CompilePatterns([]string{`(`})
	require.Error(t, err)
}

func TestStripTimestamps_LeavesOtherLines(t *testing.T) {
	in := "no timestamp here\n2025-03-04T10:30:45.1Z kept"
	assert.Equal(t, "no timestamp here\nkept", logscan.StripTimestamps(in))
}

func TestPattern_DefaultsCompile(t *testing.T) {
	for _, p := range logscan.DefaultPatterns() {
		assert.NotEmpty(t, p.Name)
		assert.IsType(t, &regexp.Regexp{}, p.Expr)
	}
}
