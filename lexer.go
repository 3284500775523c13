package mindbend

import (
	"github.com/golang/glog"
)

// Lexer turns a Mindbend source string into a token stream (spec §4.1).
// It holds the input as bytes — the language forbids Unicode source and
// whitespace outright, so byte-at-a-time scanning with a 1-based
// character-count position is exact.
type Lexer struct {
	src    []byte
	cursor int
	pos    Pos
}

// NewLexer returns a Lexer ready to scan src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: []byte(src)}
}

// Tokenize scans the whole source and returns its token stream with the
// mandatory terminator (spec §4.1) popped off, or the first diagnostic
// encountered.
func Tokenize(src string) ([]Token, error) {
	l := NewLexer(src)
	toks, err := l.scanAll()
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("mindbend: lexer produced %d tokens", len(toks))
	if len(toks) == 0 || toks[len(toks)-1].Kind != TokTripleSixEqO {
		return nil, errOrgExprMustEndInDeath()
	}
	return toks[:len(toks)-1], nil
}

func (l *Lexer) peek() (byte, bool) {
	if l.cursor >= len(l.src) {
		return 0, false
	}
	return l.src[l.cursor], true
}

func (l *Lexer) next() (byte, bool) {
	c, ok := l.peek()
	if !ok {
		return 0, false
	}
	l.cursor++
	l.pos++
	return c, true
}

func (l *Lexer) scanAll() ([]Token, error) {
	var toks []Token
	for {
		c, ok := l.next()
		if !ok {
			break
		}
		switch {
		case c == ' ' || c == '\n':
			return nil, errWhitespace(l.pos)
		case c == '~':
			toks = append(toks, Token{Kind: TokTilde, Pos: l.pos})
		case c == '$':
			tok, err := l.scanPrimitive()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case c == '^':
			tok, err := l.scan666()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case c == '-':
			tok, err := l.scanRegion()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case c == '\\':
			tok, err := l.scanDrill()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case c == 'l':
			tok, err := l.scanLabel()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case c == 'i':
			tok, err := l.scanConditionalJump()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case c == 'j':
			tok, err := l.scanJump()
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
		case (c >= '0' && c <= '9') || (c >= 'A' && c <= 'E'):
			toks = append(toks, Token{Kind: TokCellIdent, Pos: l.pos, Cell: cellNibble(c)})
		default:
			return nil, errUnrecognizedToken(l.pos)
		}
	}
	return toks, nil
}

func cellNibble(c byte) int {
	if c >= '0' && c <= '9' {
		return int(c - '0')
	}
	return int(c-'A') + 10
}

func (l *Lexer) scanPrimitive() (Token, error) {
	startPos := l.pos
	c, ok := l.next()
	if !ok {
		return Token{}, errExpected(startPos, "primitive identifier or index")
	}
	switch {
	case isPrimitiveSymbolChar(c) || isPrimitiveIndexChar(c):
		return Token{Kind: TokPrimitiveIdent, Pos: startPos, Primitive: string(c)}, nil
	case c == '>':
		n, ok := l.next()
		if !ok || n != '<' {
			return Token{}, errUnrecognizedToken(l.pos)
		}
		return Token{Kind: TokPrimitiveIdent, Pos: startPos, Primitive: "><"}, nil
	case c == '<':
		n, ok := l.next()
		if !ok || n != '>' {
			return Token{}, errUnrecognizedToken(l.pos)
		}
		return Token{Kind: TokPrimitiveIdent, Pos: startPos, Primitive: "<>"}, nil
	default:
		return Token{}, errInvalidPrimitive(startPos)
	}
}

func (l *Lexer) expectRun(c byte, n int) error {
	for i := 0; i < n; i++ {
		next, ok := l.next()
		if !ok || next != c {
			return errUnrecognizedToken(l.pos)
		}
	}
	return nil
}

// scan666 scans the remainder of TripleSix and its optional '=M'/'=O'/'='
// suffix. The leading '^' has already been consumed by the caller.
func (l *Lexer) scan666() (Token, error) {
	startPos := l.pos
	if err := l.expectRun('^', 5); err != nil {
		return Token{}, err
	}
	if err := l.expectRun('6', 3); err != nil {
		return Token{}, err
	}
	if err := l.expectRun('^', 6); err != nil {
		return Token{}, err
	}
	if c, ok := l.peek(); ok && c == '=' {
		l.next()
		if n, ok := l.peek(); ok {
			switch n {
			case 'M':
				l.next()
				return Token{Kind: TokTripleSixEqM, Pos: startPos}, nil
			case 'O':
				l.next()
				return Token{Kind: TokTripleSixEqO, Pos: startPos}, nil
			}
		}
		return Token{Kind: TokTripleSixEq, Pos: startPos}, nil
	}
	return Token{Kind: TokTripleSix, Pos: startPos}, nil
}

func (l *Lexer) scanRegion() (Token, error) {
	startPos := l.pos
	n, ok := l.next()
	if !ok || n != '>' {
		return Token{}, errUnrecognizedToken(l.pos)
	}
	c, ok := l.peek()
	if !ok || (c != 'L' && c != 'C') {
		return Token{}, errUnrecognizedToken(l.pos)
	}
	l.next()
	region := RegionCells
	if c == 'L' {
		region = RegionLayers
	}
	return Token{Kind: TokRegionIdent, Pos: startPos, Region: region}, nil
}

func (l *Lexer) scanDrill() (Token, error) {
	startPos := l.pos
	for _, want := range []byte{'\\', '|', '/', '/'} {
		c, ok := l.next()
		if !ok || c != want {
			return Token{}, errUnrecognizedToken(l.pos)
		}
	}
	return Token{Kind: TokDrill, Pos: startPos}, nil
}

func (l *Lexer) expectLiteral(lit string) error {
	for i := 0; i < len(lit); i++ {
		c, ok := l.next()
		if !ok || c != lit[i] {
			return errExpected(l.pos, string(lit[i]))
		}
	}
	return nil
}

func (l *Lexer) readUntilColon() (string, error) {
	var name []byte
	for {
		c, ok := l.next()
		if !ok {
			return "", errExpected(l.pos, ":")
		}
		if c == ':' {
			return string(name), nil
		}
		name = append(name, c)
	}
}

func (l *Lexer) scanLabel() (Token, error) {
	startPos := l.pos
	if err := l.expectLiteral("abel:"); err != nil {
		return Token{}, err
	}
	name, err := l.readUntilColon()
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: TokLabel, Pos: startPos, Name: name}, nil
}

func (l *Lexer) scanJump() (Token, error) {
	startPos := l.pos
	if err := l.expectLiteral("mp:"); err != nil {
		return Token{}, err
	}
	name, err := l.readUntilColon()
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: TokJump, Pos: startPos, Name: name}, nil
}

func (l *Lexer) scanConditionalJump() (Token, error) {
	startPos := l.pos
	if err := l.expectLiteral("jmp:"); err != nil {
		return Token{}, err
	}
	name, err := l.readUntilColon()
	if err != nil {
		return Token{}, err
	}
	return Token{Kind: TokConditionalJump, Pos: startPos, Name: name}, nil
}
