package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// FormatTable is the human-readable terminal output format.
	FormatTable = "table"

	// FormatJSON is the machine-readable JSON document format.
	FormatJSON = "json"

	// FormatYAML is the machine-readable YAML document format.
	FormatYAML = "yaml"

	// FormatHTML is the standalone chart page format.
	FormatHTML = "html"
)

// ErrUnsupportedFormat indicates the requested output format is not supported.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Formats returns the canonical output formats.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatYAML, FormatHTML}
}

// NormalizeFormat canonicalizes a user-provided output format string.
func NormalizeFormat(format string) string {
	return strings.ToLower(strings.TrimSpace(format))
}

// ValidateFormat checks whether a format is supported and returns its
// canonical form.
func ValidateFormat(format string) (string, error) {
	normalized := NormalizeFormat(format)
	if slices.Contains(Formats(), normalized) {
		return normalized, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Write renders the report in the given output format.
func Write(w io.Writer, format string, r *Report) error {
	switch NormalizeFormat(format) {
	case FormatTable:
		return WriteTable(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatYAML:
		return WriteYAML(w, r)
	case FormatHTML:
		return WriteHTML(w, r)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteJSON writes the report as an indented JSON document.
func WriteJSON(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// WriteYAML writes the report as a YAML document.
func WriteYAML(w io.Writer, r *Report) error {
	encoded, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("yaml write: %w", err)
	}

	return nil
}
