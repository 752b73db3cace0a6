// Package report renders dashboards as styled text, JSON, YAML or the
// Prometheus text exposition format.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/waabox/gitpulse/internal/dashboard"
)

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatProm Format = "prom"
)

// ErrUnsupportedFormat is returned when a format does not apply to what is
// being rendered.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat parses a format name. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatProm:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (use text, json, yaml or prom)", ErrUnsupportedFormat, s)
}

// CI writes a CI report.
func CI(w io.Writer, f Format, r dashboard.CIReport) error {
	switch f {
	case FormatText:
		return NewText(w).CI(r)
	case FormatProm:
		return writeFamilies(w, ciFamilies(r))
	}
	return encode(w, f, r)
}

// CheckDetail reports whether f can render a single inspection. The prom
// format only carries the aggregate reports.
func CheckDetail(f Format) error {
	if f == FormatProm {
		return fmt.Errorf("%w: %q does not apply to an inspection (use text, json or yaml)", ErrUnsupportedFormat, f)
	}
	return nil
}

// Inspection writes a workflow inspection.
func Inspection(w io.Writer, f Format, ins dashboard.Inspection) error {
	if err := CheckDetail(f); err != nil {
		return err
	}
	if f == FormatText {
		return NewText(w).Inspection(ins)
	}
	return encode(w, f, ins)
}

// Issues writes the issue triage dashboard.
func Issues(w io.Writer, f Format, r dashboard.IssueReport) error {
	switch f {
	case FormatText:
		return NewText(w).Issues(r)
	case FormatProm:
		return writeFamilies(w, issueFamilies(r))
	}
	return encode(w, f, r)
}

// Item writes a single issue or pull request inspection.
func Item(w io.Writer, f Format, it dashboard.ItemInspection) error {
	if err := CheckDetail(f); err != nil {
		return err
	}
	if f == FormatText {
		return NewText(w).Item(it)
	}
	return encode(w, f, it)
}

func encode(w io.Writer, f Format, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}
