package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLongAndShortFlags(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	var lex bool
	fs.String(&out, "out", "o", "out.S", "output file", "file")
	fs.Bool(&lex, "lex", "", false, "stop after lexing")

	require.NoError(t, fs.Parse([]string{"prog.cl", "--out", "x.S", "--lex"}))
	assert.Equal(t, "x.S", out)
	assert.True(t, lex)
	assert.Equal(t, []string{"prog.cl"}, fs.Args())
}

func TestParseShorthandAndInline(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "out", "o", "out.S", "output file", "file")

	require.NoError(t, fs.Parse([]string{"-o", "a.S"}))
	assert.Equal(t, "a.S", out)

	require.NoError(t, fs.Parse([]string{"--out=b.S"}))
	assert.Equal(t, "b.S", out)
}

func TestParseDefaults(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	var lex bool
	fs.String(&out, "out", "o", "out.S", "output file", "file")
	fs.Bool(&lex, "lex", "", false, "stop after lexing")

	require.NoError(t, fs.Parse([]string{"prog.cl"}))
	assert.Equal(t, "out.S", out)
	assert.False(t, lex)
}

func TestParseErrors(t *testing.T) {
	fs := NewFlagSet("test")
	var out string
	fs.String(&out, "out", "o", "out.S", "output file", "file")

	assert.Error(t, fs.Parse([]string{"--unknown"}))
	assert.Error(t, fs.Parse([]string{"--out"}))
}

func TestDoubleDashStopsFlagParsing(t *testing.T) {
	fs := NewFlagSet("test")
	var lex bool
	fs.Bool(&lex, "lex", "", false, "stop after lexing")

	require.NoError(t, fs.Parse([]string{"--", "--lex"}))
	assert.False(t, lex)
	assert.Equal(t, []string{"--lex"}, fs.Args())
}
