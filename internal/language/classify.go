package language

import (
	"strings"
)

// Classifier assigns a Class to every line of a file using per-language
// lexical tables. The zero value is ready to use and safe for concurrent
// callers; per-file scan state lives inside each Classify call.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns one Class per input line. Block comment and string state
// carries across lines; whitespace-only lines are Blank regardless of state,
// and code presence dominates comment presence on mixed lines. Languages
// without a lexical table go through a conservative line-marker fallback.
func (c *Classifier) Classify(lang Language, lines []string) []Class {
	syn, ok := syntaxTables[lang]
	if !ok {
		syn = &fallbackSyntax
	}

	s := scanner{syn: syn}
	out := make([]Class, len(lines))

	for i, line := range lines {
		out[i] = s.classifyLine(line)
	}

	return out
}

// scanner holds the lexical state carried across one file's lines.
type scanner struct {
	syn        *syntax
	blockPair  delimiterPair
	blockDepth int
	stringEnd  string // Non-empty while inside a string literal.
	rawString  bool
}

func (s *scanner) classifyLine(line string) Class {
	if strings.TrimSpace(line) == "" {
		return Blank
	}

	sawCode := s.stringEnd != ""
	sawComment := s.blockDepth > 0

	i := 0
	for i < len(line) {
		switch {
		case s.stringEnd != "":
			i = s.scanString(line, i)
		case s.blockDepth > 0:
			i = s.scanBlock(line, i)
			sawComment = true
		default:
			i = s.scanNormal(line, i, &sawCode, &sawComment)
		}
	}

	switch {
	case sawCode:
		return Code
	case sawComment:
		return Comment
	default:
		return Blank
	}
}

// scanString consumes string literal content until its closing delimiter.
// Raw strings take no escapes.
func (s *scanner) scanString(line string, i int) int {
	for i < len(line) {
		if !s.rawString && line[i] == '\\' {
			i += 2
			continue
		}

		if strings.HasPrefix(line[i:], s.stringEnd) {
			width := len(s.stringEnd)
			s.stringEnd = ""
			s.rawString = false

			return i + width
		}

		i++
	}

	return i
}

// scanBlock consumes block comment content, tracking nesting depth where the
// language nests.
func (s *scanner) scanBlock(line string, i int) int {
	for i < len(line) {
		if strings.HasPrefix(line[i:], s.blockPair.end) {
			s.blockDepth--
			i += len(s.blockPair.end)

			if s.blockDepth == 0 {
				return i
			}

			continue
		}

		if s.syn.nested && strings.HasPrefix(line[i:], s.blockPair.start) {
			s.blockDepth++
			i += len(s.blockPair.start)

			continue
		}

		i++
	}

	return i
}

// scanNormal advances one token outside comments and strings. Raw string
// openers are tried before plain quotes and block openers before line
// markers, so the longer, more specific delimiter wins ("--[[" over "--",
// `"""` over `"`).
func (s *scanner) scanNormal(line string, i int, sawCode, sawComment *bool) int {
	rest := line[i:]

	for _, pair := range s.syn.rawStrings {
		if strings.HasPrefix(rest, pair.start) {
			*sawCode = true
			s.stringEnd = pair.end
			s.rawString = true

			return i + len(pair.start)
		}
	}

	for _, pair := range s.syn.blockComments {
		if strings.HasPrefix(rest, pair.start) {
			*sawComment = true
			s.blockPair = pair
			s.blockDepth = 1

			return i + len(pair.start)
		}
	}

	for _, marker := range s.syn.lineComments {
		if strings.HasPrefix(rest, marker) {
			*sawComment = true

			return len(line)
		}
	}

	for _, pair := range s.syn.strings {
		if strings.HasPrefix(rest, pair.start) {
			*sawCode = true
			s.stringEnd = pair.end
			s.rawString = false

			return i + len(pair.start)
		}
	}

	if line[i] != ' ' && line[i] != '\t' && line[i] != '\r' {
		*sawCode = true
	}

	return i + 1
}
