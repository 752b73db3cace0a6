package logscan

import (
	"fmt"
	"regexp"
)

// Pattern is a named expression whose match marks a line as an error line.
type Pattern struct {
	Name string
	Expr *regexp.Regexp
}

// DefaultPatterns returns the built-in error markers, in matching order.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "actions-error", Expr: regexp.MustCompile(`(?i)##\[error\]`)},
		{Name: "error", Expr: regexp.MustCompile(`(?i)Error:`)},
		{Name: "fail", Expr: regexp.MustCompile(`FAIL `)},
		{Name: "failed", Expr: regexp.MustCompile(`FAILED`)},
		{Name: "rust-error", Expr: regexp.MustCompile(`(?i)error\[`)},
		{Name: "panic", Expr: regexp.MustCompile(`(?i)panic:`)},
		{Name: "exception", Expr: regexp.MustCompile(`(?i)Exception:`)},
		{Name: "assertion", Expr: regexp.MustCompile(`(?i)AssertionError`)},
		{Name: "type-error", Expr: regexp.MustCompile(`(?i)TypeError:`)},
		{Name: "reference-error", Expr: regexp.MustCompile(`(?i)ReferenceError:`)},
		{Name: "syntax-error", Expr: regexp.MustCompile(`(?i)SyntaxError:`)},
		{Name: "build-failed", Expr: regexp.MustCompile(`(?i)Build failed`)},
		{Name: "exit-code", Expr: regexp.MustCompile(`Process completed with exit code [^0]`)},
		{Name: "command-failed", Expr: regexp.MustCompile(`(?i)Command failed`)},
		{Name: "fatal", Expr: regexp.MustCompile(`(?i)fatal:`)},
	}
}

// CompilePatterns compiles user supplied expressions, naming them by
// position.
func CompilePatterns(exprs []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(exprs))
	for i, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid log pattern %q: %w", expr, err)
		}
		patterns = append(patterns, Pattern{Name: fmt.Sprintf("extra-%d", i+1), Expr: re})
	}
	return patterns, nil
}

// timestampPrefix matches the ISO-8601 prefix CI runners put on every line.
var timestampPrefix = regexp.MustCompile(`(?m)^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z `)
