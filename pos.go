package mindbend

import "fmt"

// Pos is a 1-based position used only for diagnostics: a source character
// offset in tokens and lexer errors, a token index in AST nodes and parser
// errors.
// The lexer rejects whitespace and newlines outright (spec §4.1), so a
// Mindbend source that reaches the parser is a single unbroken run of
// symbols: a line/column pair, useful for the teacher's own multi-line
// grammar language, would be dead weight here.
type Pos int

func (p Pos) String() string {
	return fmt.Sprintf("%d", int(p))
}
