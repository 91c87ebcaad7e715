package language_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gitsleuth/gitsleuth/internal/language"
)

const (
	code    = language.Code
	comment = language.Comment
	blank   = language.Blank
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lang  language.Language
		lines []string
		want  []language.Class
	}{
		{
			name: "go mixed file",
			lang: "Go",
			lines: []string{
				"package main",
				"",
				"// doc comment",
				"func main() {",
				"\t/* block",
				"\tstill block */",
				"\tx := 1 // trailing",
				"}",
			},
			want: []language.Class{code, blank, comment, code, comment, comment, code, code},
		},
		{
			name: "go raw string suppresses markers",
			lang: "Go",
			lines: []string{
				"s := `start raw",
				"// inside raw",
				"end`",
				"x++",
			},
			want: []language.Class{code, code, code, code},
		},
		{
			name: "c block comment carries across lines",
			lang: "C",
			lines: []string{
				"int x;",
				"/*",
				"  inside",
				"*/",
				"int y;",
			},
			want: []language.Class{code, comment, comment, comment, code},
		},
		{
			name: "whitespace only is blank even inside block comment",
			lang: "C",
			lines: []string{
				"/*",
				"   ",
				"*/",
			},
			want: []language.Class{comment, blank, comment},
		},
		{
			name: "code after block close dominates",
			lang: "C",
			lines: []string{
				"/* note */ int z;",
			},
			want: []language.Class{code},
		},
		{
			name: "python docstrings count as code",
			lang: "Python",
			lines: []string{
				"def f():",
				"    '''",
				"    docs with # marker",
				"    '''",
				"    return 1  # trailing",
				"# pure comment",
			},
			want: []language.Class{code, code, code, code, code, comment},
		},
		{
			name: "python string hides comment marker",
			lang: "Python",
			lines: []string{
				`x = "a # not a comment"`,
			},
			want: []language.Class{code},
		},
		{
			name: "rust nested block comments",
			lang: "Rust",
			lines: []string{
				"/* outer /* inner */ still outer */",
				"fn main() {}",
			},
			want: []language.Class{comment, code},
		},
		{
			name: "lua long comment wins over line marker",
			lang: "Lua",
			lines: []string{
				"--[[ long",
				"comment ]]",
				`print("x")`,
				"-- line comment",
			},
			want: []language.Class{comment, comment, code, comment},
		},
		{
			name: "html multi line comment",
			lang: "HTML",
			lines: []string{
				"<div>",
				"<!-- note -->",
				"<!-- multi",
				"  line -->",
				"</div>",
			},
			want: []language.Class{code, comment, comment, comment, code},
		},
		{
			name: "sql dashes",
			lang: "SQL",
			lines: []string{
				"-- fetch users",
				"SELECT * FROM users;",
			},
			want: []language.Class{comment, code},
		},
		{
			name: "unknown language fallback markers",
			lang: language.Unknown,
			lines: []string{
				"# note",
				"-- note",
				"; note",
				"anything else",
			},
			want: []language.Class{comment, comment, comment, code},
		},
		{
			name: "plain text is code",
			lang: "Text",
			lines: []string{
				"just words",
				"",
				"more words",
			},
			want: []language.Class{code, blank, code},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := language.NewClassifier().Classify(tt.lang, tt.lines)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	t.Parallel()

	got := language.NewClassifier().Classify("Go", nil)
	assert.Empty(t, got)
}

func TestClassify_StateResetsBetweenCalls(t *testing.T) {
	t.Parallel()

	c := language.NewClassifier()

	first := c.Classify("C", []string{"/* unterminated"})
	assert.Equal(t, []language.Class{comment}, first)

	second := c.Classify("C", []string{"int x;"})
	assert.Equal(t, []language.Class{code}, second)
}
