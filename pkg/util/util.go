package util

import (
	"fmt"
	"os"
	"strings"
)

// Reserved names shared across the pipeline.
const (
	Self = "self"

	TypeObject   = "Object"
	TypeIO       = "IO"
	TypeInt      = "Int"
	TypeBool     = "Bool"
	TypeString   = "String"
	TypeSelfType = "SELF_TYPE"
	TypeNoType   = "_no_type"
	TypePrimSlot = "prim_slot"
	TypeMain     = "Main"

	MethodMain = "main"

	AttrVal      = "val"
	AttrStrField = "str_field"
)

// EscapeString renders the non-printable characters of s as escape
// sequences, matching the format of the Stanford support code.
func EscapeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			sb.WriteString("\\n")
		case '\r':
			sb.WriteString("\\015")
		case '\x1b':
			sb.WriteString("\\033")
		case '\t':
			sb.WriteString("\\t")
		case '\b':
			sb.WriteString("\\b")
		case '\f':
			sb.WriteString("\\f")
		case '"':
			sb.WriteString("\\\"")
		case '\\':
			sb.WriteString("\\\\")
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, "\\%03d", c)
			}
		}
	}
	return sb.String()
}

// Quote returns s escaped and wrapped in double quotes.
func Quote(s string) string {
	return "\"" + EscapeString(s) + "\""
}

// ParserError reports a syntax error in the Flex/Bison-compatible
// format and halts compilation. what is the display form of the
// offending token, or "EOF" when the stream ended unexpectedly.
func ParserError(line int, what string) {
	fmt.Printf("Line %d: syntax error at or near %s\n", line, what)
	fmt.Println("Compilation halted due to lex and parse errors")
	os.Exit(1)
}

// SemantError reports a static semantic error and halts compilation.
// A line of 0 suppresses the line prefix (used for program-level
// errors such as a missing Main class).
func SemantError(line int, msg string) {
	if line > 0 {
		fmt.Printf("Line %d: %s\n", line, msg)
	} else {
		fmt.Println(msg)
	}
	fmt.Println("Compilation halted due to static semantic errors.")
	os.Exit(1)
}

// Fatalf reports a non-compilation error (I/O and the like) on stderr
// and exits.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "coolr: error: "+format+"\n", args...)
	os.Exit(2)
}
