package language

// delimiterPair is a matched opener and closer.
type delimiterPair struct {
	start string
	end   string
}

// syntax is the lexical table driving line classification for one language.
type syntax struct {
	// lineComments start a comment running to end of line.
	lineComments []string

	// blockComments span lines; nested controls whether openers stack.
	blockComments []delimiterPair
	nested        bool

	// strings are escapable quoted forms; rawStrings take no escapes and
	// suppress comment markers until closed (backticks, triple quotes).
	strings    []delimiterPair
	rawStrings []delimiterPair
}

var (
	doubleQuote = delimiterPair{`"`, `"`}
	singleQuote = delimiterPair{`'`, `'`}

	cBlock   = []delimiterPair{{"/*", "*/"}}
	cQuotes  = []delimiterPair{doubleQuote, singleQuote}
	xmlBlock = []delimiterPair{{"<!--", "-->"}}

	hashLine = syntax{
		lineComments: []string{"#"},
		strings:      cQuotes,
	}

	cFamily = syntax{
		lineComments:  []string{"//"},
		blockComments: cBlock,
		strings:       cQuotes,
	}
)

// syntaxTables maps linguist language names to their lexical rules.
// Languages missing here classify through the conservative fallback.
var syntaxTables = map[Language]*syntax{
	"Go": {
		lineComments:  []string{"//"},
		blockComments: cBlock,
		strings:       cQuotes,
		rawStrings:    []delimiterPair{{"`", "`"}},
	},
	"C":           &cFamily,
	"C++":         &cFamily,
	"C#":          &cFamily,
	"Java":        &cFamily,
	"Kotlin":      &cFamily,
	"Swift":       &cFamily,
	"Objective-C": &cFamily,
	"Scala": {
		lineComments:  []string{"//"},
		blockComments: cBlock,
		nested:        true,
		strings:       cQuotes,
	},
	"Rust": {
		lineComments:  []string{"//"},
		blockComments: cBlock,
		nested:        true,
		strings:       []delimiterPair{doubleQuote},
	},
	"JavaScript": {
		lineComments:  []string{"//"},
		blockComments: cBlock,
		strings:       cQuotes,
		rawStrings:    []delimiterPair{{"`", "`"}},
	},
	"TypeScript": {
		lineComments:  []string{"//"},
		blockComments: cBlock,
		strings:       cQuotes,
		rawStrings:    []delimiterPair{{"`", "`"}},
	},
	"Python": {
		lineComments: []string{"#"},
		strings:      cQuotes,
		rawStrings:   []delimiterPair{{`"""`, `"""`}, {"'''", "'''"}},
	},
	"Ruby": {
		lineComments:  []string{"#"},
		blockComments: []delimiterPair{{"=begin", "=end"}},
		strings:       cQuotes,
	},
	"PHP": {
		lineComments:  []string{"//", "#"},
		blockComments: cBlock,
		strings:       cQuotes,
	},
	"Shell":      &hashLine,
	"Makefile":   &hashLine,
	"Dockerfile": &hashLine,
	"YAML":       &hashLine,
	"TOML":       &hashLine,
	"INI": {
		lineComments: []string{";", "#"},
	},
	"JSON": {
		strings: []delimiterPair{doubleQuote},
	},
	"Perl": &hashLine,
	"R":    &hashLine,
	"Elixir": {
		lineComments: []string{"#"},
		strings:      cQuotes,
		rawStrings:   []delimiterPair{{`"""`, `"""`}},
	},
	"Haskell": {
		lineComments:  []string{"--"},
		blockComments: []delimiterPair{{"{-", "-}"}},
		nested:        true,
		strings:       []delimiterPair{doubleQuote},
	},
	"Lua": {
		lineComments:  []string{"--"},
		blockComments: []delimiterPair{{"--[[", "]]"}},
		strings:       cQuotes,
	},
	"SQL": {
		lineComments:  []string{"--"},
		blockComments: cBlock,
		strings:       []delimiterPair{singleQuote, doubleQuote},
	},
	"CSS": {
		blockComments: cBlock,
		strings:       cQuotes,
	},
	"SCSS": {
		lineComments:  []string{"//"},
		blockComments: cBlock,
		strings:       cQuotes,
	},
	"HTML":     {blockComments: xmlBlock, strings: cQuotes},
	"XML":      {blockComments: xmlBlock, strings: cQuotes},
	"Markdown": {blockComments: xmlBlock},
	"Text":     {},
}

// fallbackSyntax approximates languages without a table: common line markers
// only, no block or string state.
var fallbackSyntax = syntax{
	lineComments: []string{"//", "#", ";", "--"},
}
