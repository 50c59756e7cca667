package token

import (
	"fmt"
	"io"

	"coolr/pkg/util"
)

type Type int

const (
	// the order of these constants has no effect on lexing; the
	// order of the lexer's pattern table breaks longest-match ties,
	// so that e.g. "class" is CLASS, not an object identifier
	Class Type = iota
	If
	Else
	Fi
	In
	Inherits
	Let
	Loop
	Pool
	Then
	While
	Case
	Esac
	Of
	New
	IsVoid
	Not
	BoolConst
	IntConst
	StrConst
	ObjectID
	TypeID
	Plus
	Minus
	Star
	Slash
	Lt
	Eq
	Le
	LParen
	RParen
	LBrace
	RBrace
	Colon
	Semi
	Dot
	Comma
	At
	Tilde
	DArrow
	Assign
	Error
)

// TypeNames maps token types to the names used by the Stanford
// support code, so dumps can be checked against its grading tests.
var TypeNames = map[Type]string{
	Class:     "CLASS",
	If:        "IF",
	Else:      "ELSE",
	Fi:        "FI",
	In:        "IN",
	Inherits:  "INHERITS",
	Let:       "LET",
	Loop:      "LOOP",
	Pool:      "POOL",
	Then:      "THEN",
	While:     "WHILE",
	Case:      "CASE",
	Esac:      "ESAC",
	Of:        "OF",
	New:       "NEW",
	IsVoid:    "ISVOID",
	Not:       "NOT",
	BoolConst: "BOOL_CONST",
	IntConst:  "INT_CONST",
	StrConst:  "STR_CONST",
	ObjectID:  "OBJECTID",
	TypeID:    "TYPEID",
	Plus:      "'+'",
	Minus:     "'-'",
	Star:      "'*'",
	Slash:     "'/'",
	Lt:        "'<'",
	Eq:        "'='",
	Le:        "LE",
	LParen:    "'('",
	RParen:    "')'",
	LBrace:    "'{'",
	RBrace:    "'}'",
	Colon:     "':'",
	Semi:      "';'",
	Dot:       "'.'",
	Comma:     "','",
	At:        "'@'",
	Tilde:     "'~'",
	DArrow:    "DARROW",
	Assign:    "ASSIGN",
	Error:     "ERROR",
}

// Token is one lexeme of the source program. Value carries the
// payload for literals, identifiers and error messages; Flag carries
// the value of a boolean literal.
type Token struct {
	Type  Type
	Line  int
	Value string
	Flag  bool
}

func (t Token) Name() string {
	if name, ok := TypeNames[t.Type]; ok {
		return name
	}
	return "UNKNOWN"
}

// Dump writes the token in the `#<line> KIND [payload]` format used
// by the --lex stage.
func (t Token) Dump(w io.Writer) {
	switch t.Type {
	case StrConst:
		fmt.Fprintf(w, "#%d STR_CONST %s\n", t.Line, util.Quote(t.Value))
	case BoolConst:
		value := "false"
		if t.Flag {
			value = "true"
		}
		fmt.Fprintf(w, "#%d BOOL_CONST %s\n", t.Line, value)
	case IntConst, TypeID, ObjectID:
		fmt.Fprintf(w, "#%d %s %s\n", t.Line, t.Name(), t.Value)
	case Error:
		fmt.Fprintf(w, "#%d ERROR %s\n", t.Line, util.Quote(t.Value))
	default:
		fmt.Fprintf(w, "#%d %s\n", t.Line, t.Name())
	}
}

// Display renders the token the way parser diagnostics expect it,
// e.g. `OBJECTID = x` or `'+'`.
func (t Token) Display() string {
	switch t.Type {
	case StrConst:
		return "STR_CONST = " + util.Quote(t.Value)
	case BoolConst:
		if t.Flag {
			return "BOOL_CONST = true"
		}
		return "BOOL_CONST = false"
	case IntConst:
		return "INT_CONST = " + t.Value
	case TypeID:
		return "TYPEID = " + t.Value
	case ObjectID:
		return "OBJECTID = " + t.Value
	case Error:
		return "ERROR = " + util.Quote(t.Value)
	default:
		return t.Name()
	}
}
