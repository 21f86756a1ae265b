// Package query compiles structurally-described filters into parameterized
// SQL WHERE fragments and guards every identifier that can end up embedded
// in generated SQL text.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier reports a table or column name that failed the
// identifier grammar. This check is the sole sanitization boundary between
// caller-supplied strings and generated SQL text.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// identifierRegex validates normalized SQL identifiers: a letter followed by
// up to 127 letters, digits, underscores, dollars, or hashes.
var identifierRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_$#]{0,127}$`)

// NormalizeIdentifier trims and uppercases a raw identifier and validates it
// against the identifier grammar. kind labels the identifier in error
// messages ("table", "column", "filter column", "payload column").
func NormalizeIdentifier(raw, kind string) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return "", fmt.Errorf("%w: empty %s name", ErrInvalidIdentifier, kind)
	}
	if !identifierRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %s name %q must match a bare SQL identifier", ErrInvalidIdentifier, kind, raw)
	}
	return name, nil
}
