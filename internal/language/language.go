// Package language detects file languages and classifies lines as code,
// comment or blank.
package language

import (
	"path"

	"github.com/src-d/enry/v2"
)

// Language is a detected language tag. Values follow linguist naming
// ("Go", "Python", "C++"); files nothing recognizes carry Unknown.
type Language string

// Unknown tags files no detection rule matched.
const Unknown Language = "unknown"

// Class is the classification of a single line.
type Class uint8

const (
	// Code lines contain at least one executable or declarative token.
	Code Class = iota
	// Comment lines contain only comment content.
	Comment
	// Blank lines are empty or whitespace-only.
	Blank
)

// String returns the lowercase class name.
func (c Class) String() string {
	switch c {
	case Code:
		return "code"
	case Comment:
		return "comment"
	case Blank:
		return "blank"
	default:
		return "invalid"
	}
}

// Detect resolves the language of a file from its repository path and
// content. Content may be nil when only the name should be considered.
// Detection runs enry's strategies (extension, filename, shebang, content
// heuristics) over the basename.
func Detect(filePath string, content []byte) Language {
	lang := enry.GetLanguage(path.Base(filePath), content)
	if lang == "" {
		return Unknown
	}

	return Language(lang)
}
