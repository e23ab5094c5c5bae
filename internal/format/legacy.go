package format

import (
	"regexp"
	"strings"
)

// jsSpace matches one ECMAScript whitespace or line terminator, which is wider
// than the RE2 \s class.
const jsSpace = `[\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}]`

var (
	boldRun       = regexp.MustCompile(`\*\*` + jsSpace + `*`)
	trailingBold  = regexp.MustCompile(`\*\*$`)
	bullet        = regexp.MustCompile(`\*` + jsSpace)
	trailingItem  = regexp.MustCompile(`(\*\*)$`)
	adjacentBolds = regexp.MustCompile(`<strong>([^\n\r\x{2028}\x{2029}]*?)<strong>`)
)

// Legacy is the substitution-based formatter the chat widget was built
// against. It is not a parser: list items are never closed and emphasis is
// only paired when two openings sit on the same line. Keep the output stable;
// clients style against it.
type Legacy struct{}

func (Legacy) Format(text string) string {
	s := boldRun.ReplaceAllLiteralString(text, "<strong> ")
	s = trailingBold.ReplaceAllLiteralString(s, "</strong> ")
	s = bullet.ReplaceAllLiteralString(s, "<li> ")
	s = trailingItem.ReplaceAllLiteralString(s, "</li> ")
	s = adjacentBolds.ReplaceAllString(s, "<strong> $1 </strong>")

	if strings.Contains(s, "<li> ") {
		s = "<ul> " + s + " </ul>"
	}
	return s
}
