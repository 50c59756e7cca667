package token

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func dumpString(t Token) string {
	var buf bytes.Buffer
	t.Dump(&buf)
	return buf.String()
}

func TestDumpFormats(t *testing.T) {
	cases := []struct {
		tok  Token
		want string
	}{
		{Token{Type: Class, Line: 1}, "#1 CLASS\n"},
		{Token{Type: TypeID, Line: 1, Value: "A"}, "#1 TYPEID A\n"},
		{Token{Type: ObjectID, Line: 3, Value: "x"}, "#3 OBJECTID x\n"},
		{Token{Type: IntConst, Line: 1, Value: "42"}, "#1 INT_CONST 42\n"},
		{Token{Type: BoolConst, Line: 2, Flag: true}, "#2 BOOL_CONST true\n"},
		{Token{Type: BoolConst, Line: 2}, "#2 BOOL_CONST false\n"},
		{Token{Type: Le, Line: 4}, "#4 LE\n"},
		{Token{Type: DArrow, Line: 4}, "#4 DARROW\n"},
		{Token{Type: Assign, Line: 4}, "#4 ASSIGN\n"},
		{Token{Type: LBrace, Line: 1}, "#1 '{'\n"},
		{Token{Type: StrConst, Line: 1, Value: "hi"}, "#1 STR_CONST \"hi\"\n"},
		{Token{Type: Error, Line: 7, Value: "Unmatched *)"}, "#7 ERROR \"Unmatched *)\"\n"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, dumpString(tc.tok))
	}
}

func TestDumpStringEscapes(t *testing.T) {
	cases := []struct {
		value string
		want  string
	}{
		{"a\nb", "#1 STR_CONST \"a\\nb\"\n"},
		{"a\tb", "#1 STR_CONST \"a\\tb\"\n"},
		{"a\bb", "#1 STR_CONST \"a\\bb\"\n"},
		{"a\fb", "#1 STR_CONST \"a\\fb\"\n"},
		{"a\\b", "#1 STR_CONST \"a\\\\b\"\n"},
		{"a\"b", "#1 STR_CONST \"a\\\"b\"\n"},
		{"a\rb", "#1 STR_CONST \"a\\015b\"\n"},
		{"a\x1bb", "#1 STR_CONST \"a\\033b\"\n"},
		{"a\x01b", "#1 STR_CONST \"a\\001b\"\n"},
	}
	for _, tc := range cases {
		tok := Token{Type: StrConst, Line: 1, Value: tc.value}
		assert.Equal(t, tc.want, dumpString(tok))
	}
}

func TestDisplayForms(t *testing.T) {
	cases := []struct {
		tok  Token
		want string
	}{
		{Token{Type: ObjectID, Value: "x"}, "OBJECTID = x"},
		{Token{Type: TypeID, Value: "Main"}, "TYPEID = Main"},
		{Token{Type: IntConst, Value: "7"}, "INT_CONST = 7"},
		{Token{Type: StrConst, Value: "s"}, "STR_CONST = \"s\""},
		{Token{Type: BoolConst, Flag: true}, "BOOL_CONST = true"},
		{Token{Type: Semi}, "';'"},
		{Token{Type: Class}, "CLASS"},
		{Token{Type: Error, Value: "EOF in comment"}, "ERROR = \"EOF in comment\""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.tok.Display())
	}
}
