// Package format turns the lightly marked-up text produced by the language
// model into an HTML fragment for the chat widget.
package format

import (
	"fmt"
	"strings"
)

// Formatter converts model output into an HTML fragment. Implementations are
// pure and safe for concurrent use.
type Formatter interface {
	Format(text string) string
}

const (
	KindLegacy   = "legacy"
	KindMarkdown = "markdown"
)

// New returns the Formatter registered under kind. An empty kind selects the
// legacy transducer.
func New(kind string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindLegacy:
		return Legacy{}, nil
	case KindMarkdown:
		return NewMarkdown(), nil
	default:
		return nil, fmt.Errorf("format: unknown formatter %q", kind)
	}
}
