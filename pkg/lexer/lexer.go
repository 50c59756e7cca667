// Package lexer turns COOL source text into a token stream. It is a
// state machine over the states below; lexical errors are materialized
// as ERROR tokens in the stream rather than aborting the run.
package lexer

import (
	"bytes"
	"regexp"

	"coolr/pkg/config"
	"coolr/pkg/token"
)

type state int

const (
	stateDefault state = iota
	stateLineComment
	stateBlockComment
	stateString
	stateStringEscape
	stateBrokenString
)

// pattern table for the default state. Recognition is longest-match;
// on equal length the earlier entry wins, which is why keywords and
// boolean literals precede the identifier patterns.
var patterns = []struct {
	re   *regexp.Regexp
	kind token.Type
}{
	{regexp.MustCompile(`^(?i)class\b`), token.Class},
	{regexp.MustCompile(`^(?i)if\b`), token.If},
	{regexp.MustCompile(`^(?i)else\b`), token.Else},
	{regexp.MustCompile(`^(?i)fi\b`), token.Fi},
	{regexp.MustCompile(`^(?i)in\b`), token.In},
	{regexp.MustCompile(`^(?i)inherits\b`), token.Inherits},
	{regexp.MustCompile(`^(?i)let\b`), token.Let},
	{regexp.MustCompile(`^(?i)loop\b`), token.Loop},
	{regexp.MustCompile(`^(?i)pool\b`), token.Pool},
	{regexp.MustCompile(`^(?i)then\b`), token.Then},
	{regexp.MustCompile(`^(?i)while\b`), token.While},
	{regexp.MustCompile(`^(?i)case\b`), token.Case},
	{regexp.MustCompile(`^(?i)esac\b`), token.Esac},
	{regexp.MustCompile(`^(?i)of\b`), token.Of},
	{regexp.MustCompile(`^(?i)new\b`), token.New},
	{regexp.MustCompile(`^(?i)isvoid\b`), token.IsVoid},
	{regexp.MustCompile(`^(?i)not\b`), token.Not},
	// boolean literals must start with a lowercase letter
	{regexp.MustCompile(`^(t[rR][uU][eE]|f[aA][lL][sS][eE])\b`), token.BoolConst},
	{regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*`), token.ObjectID},
	{regexp.MustCompile(`^[A-Z][a-zA-Z0-9_]*`), token.TypeID},
	{regexp.MustCompile(`^[0-9]+`), token.IntConst},
	{regexp.MustCompile(`^<=`), token.Le},
	{regexp.MustCompile(`^<-`), token.Assign},
	{regexp.MustCompile(`^=>`), token.DArrow},
	{regexp.MustCompile(`^\+`), token.Plus},
	{regexp.MustCompile(`^-`), token.Minus},
	{regexp.MustCompile(`^\*`), token.Star},
	{regexp.MustCompile(`^/`), token.Slash},
	{regexp.MustCompile(`^<`), token.Lt},
	{regexp.MustCompile(`^=`), token.Eq},
	{regexp.MustCompile(`^\(`), token.LParen},
	{regexp.MustCompile(`^\)`), token.RParen},
	{regexp.MustCompile(`^\{`), token.LBrace},
	{regexp.MustCompile(`^\}`), token.RBrace},
	{regexp.MustCompile(`^:`), token.Colon},
	{regexp.MustCompile(`^;`), token.Semi},
	{regexp.MustCompile(`^\.`), token.Dot},
	{regexp.MustCompile(`^,`), token.Comma},
	{regexp.MustCompile(`^@`), token.At},
	{regexp.MustCompile(`^~`), token.Tilde},
}

var whitespaceRe = regexp.MustCompile(`^[ \t\v\r\f\n]+`)

type Lexer struct {
	source []byte
	pos    int
	line   int
	state  state
	nest   int
	sb     bytes.Buffer
	tokens []token.Token
}

func New(source []byte) *Lexer {
	return &Lexer{source: source, line: 1}
}

// Scan tokenizes the whole input and returns the token stream.
func (l *Lexer) Scan() []token.Token {
	for l.pos < len(l.source) {
		switch l.state {
		case stateLineComment:
			l.lineComment()
		case stateBlockComment:
			l.blockComment()
		case stateString:
			l.stringScan()
		case stateStringEscape:
			l.stringEscape()
		case stateBrokenString:
			l.brokenString()
		default:
			l.defaultScan()
		}
	}

	// end of input reached mid-construct
	switch l.state {
	case stateBlockComment:
		l.addError("EOF in comment")
	case stateString, stateStringEscape:
		l.addError("EOF in string constant")
	}
	l.state = stateDefault

	return l.tokens
}

func (l *Lexer) add(t token.Token) {
	l.tokens = append(l.tokens, t)
}

func (l *Lexer) addError(msg string) {
	l.add(token.Token{Type: token.Error, Line: l.line, Value: msg})
}

func (l *Lexer) defaultScan() {
	rest := l.source[l.pos:]

	// ignore whitespace, counting newlines
	if m := whitespaceRe.Find(rest); m != nil {
		l.line += bytes.Count(m, []byte{'\n'})
		l.pos += len(m)
		rest = l.source[l.pos:]
	}
	if len(rest) == 0 {
		return
	}

	// first, check for strings and comments; these cause a state
	// transition. a close marker with no matching open is an error
	switch {
	case bytes.HasPrefix(rest, []byte("--")):
		l.pos += 2
		l.state = stateLineComment
		return
	case bytes.HasPrefix(rest, []byte("(*")):
		l.pos += 2
		l.nest = 1
		l.state = stateBlockComment
		return
	case rest[0] == '"':
		l.pos++
		l.sb.Reset()
		l.state = stateString
		return
	case bytes.HasPrefix(rest, []byte("*)")):
		l.pos += 2
		l.addError("Unmatched *)")
		return
	}

	// otherwise, identify tokens by longest match over the table
	best, bestLen := -1, 0
	for i, p := range patterns {
		if m := p.re.Find(rest); len(m) > bestLen {
			best, bestLen = i, len(m)
		}
	}
	if best < 0 {
		// no match found
		l.addError(string(rest[0]))
		l.pos++
		return
	}

	lexeme := string(rest[:bestLen])
	switch kind := patterns[best].kind; kind {
	case token.BoolConst:
		l.add(token.Token{Type: kind, Line: l.line, Flag: lexeme[0] == 't'})
	case token.IntConst, token.TypeID, token.ObjectID:
		l.add(token.Token{Type: kind, Line: l.line, Value: lexeme})
	default:
		l.add(token.Token{Type: kind, Line: l.line})
	}
	l.pos += bestLen
}

func (l *Lexer) lineComment() {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		l.pos++
		if c == '\n' {
			l.line++
			l.state = stateDefault
			return
		}
	}
}

func (l *Lexer) blockComment() {
	// block comments nest; the counter tracks the depth
	for l.pos < len(l.source) {
		rest := l.source[l.pos:]
		if bytes.HasPrefix(rest, []byte("(*")) {
			l.nest++
			l.pos += 2
			continue
		}
		if bytes.HasPrefix(rest, []byte("*)")) {
			l.nest--
			l.pos += 2
			if l.nest == 0 {
				l.state = stateDefault
				return
			}
			continue
		}
		if l.source[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
}

func (l *Lexer) stringScan() {
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		l.pos++

		if l.sb.Len() > config.MaxStringLen {
			l.addError("String constant too long")
			l.sb.Reset()
			l.state = stateBrokenString
			return
		}

		switch c {
		case '"':
			l.add(token.Token{Type: token.StrConst, Line: l.line, Value: l.sb.String()})
			l.sb.Reset()
			l.state = stateDefault
			return
		case '\\':
			l.state = stateStringEscape
			return
		case '\n':
			l.line++
			l.sb.Reset()
			l.addError("Unterminated string constant")
			l.state = stateDefault
			return
		case 0:
			l.addError("String contains null character.")
			l.sb.Reset()
			l.state = stateBrokenString
			return
		default:
			l.sb.WriteByte(c)
		}
	}
}

func (l *Lexer) stringEscape() {
	c := l.source[l.pos]
	l.pos++

	switch c {
	case 0:
		l.addError("String contains escaped null character.")
		l.sb.Reset()
		l.state = stateBrokenString
		return
	case '\n':
		l.line++
		l.sb.WriteByte('\n')
	case 'n':
		l.sb.WriteByte('\n')
	case 't':
		l.sb.WriteByte('\t')
	case 'b':
		l.sb.WriteByte('\b')
	case 'f':
		l.sb.WriteByte('\f')
	default:
		l.sb.WriteByte(c)
	}

	l.state = stateString
}

// brokenString consumes input after a string error until an unescaped
// newline or a closing quote, then resumes normal scanning.
func (l *Lexer) brokenString() {
	escaped := false
	for l.pos < len(l.source) {
		c := l.source[l.pos]
		l.pos++
		switch c {
		case '\\':
			escaped = true
		case '\n':
			l.line++
			if !escaped {
				l.state = stateDefault
				return
			}
			escaped = false
		case '"':
			l.state = stateDefault
			return
		default:
			escaped = false
		}
	}
}
