package codegen

import (
	"fmt"
	"strings"
)

// register and runtime label names
const (
	eax = "eax"
	ebx = "ebx"
	ecx = "ecx"
	edx = "edx"
	esi = "esi"
	edi = "edi"
	ebp = "ebp"
	esp = "esp"
	al  = "al"

	selfptr     = "selfptr"
	heapptr     = "heapptr"
	heapstart   = "heapstart"
	heapend     = "heapend"
	inputbuffer = "inputbuffer"

	emptyString         = "empty_string"
	uninitializedString = "uninitialized_string"
	uninitializedInt    = "uninitialized_int"
	uninitializedBool   = "uninitialized_bool"
)

func ptr(a string) string { return "[" + a + "]" }

func ptrOff(a string, offset int) string {
	if offset >= 0 {
		return fmt.Sprintf("[%s+%d]", a, offset)
	}
	return fmt.Sprintf("[%s-%d]", a, -offset)
}

func bytePtr(a string) string  { return "BYTE [" + a + "]" }
func dwordPtr(a string) string { return "DWORD [" + a + "]" }

func dwordPtrOff(a string, offset int) string {
	return "DWORD " + ptrOff(a, offset)
}

// ins writes one indented instruction line.
func (c *Context) ins(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "  "+format+"\n", args...)
}

func (c *Context) label(name string) {
	fmt.Fprintf(c.w, "%s:\n", name)
}

func (c *Context) comment(text string) {
	fmt.Fprintf(c.w, "; %s\n", text)
}

func (c *Context) newline() {
	fmt.Fprintln(c.w)
}

func (c *Context) dd(value string) {
	c.ins("dd %s", value)
}

func (c *Context) ddInt(value int) {
	c.ins("dd %d", value)
}

func (c *Context) ddNamed(label, value string) {
	c.ins("%s dd %s", label, value)
}

func (c *Context) dataSection() {
	fmt.Fprintln(c.w, "section .data")
}

func (c *Context) textSection() {
	fmt.Fprintln(c.w, "section .text")
}

func (c *Context) staticString(label, value string) {
	c.ins("%s db `%s`, 0", label, asmEscape(value))
}

func (c *Context) emptyMemory(size int) {
	c.ins("times %d db 0", size)
}

func (c *Context) syscall() {
	c.ins("int 0x80")
}

// replaceSelfptr saves the current selfptr on the stack and installs
// tmp in its place; restoreSelfptr undoes it.
func (c *Context) replaceSelfptr(tmp string) {
	c.ins("mov ecx, %s", ptr(selfptr))
	c.ins("push ecx")
	c.ins("mov %s, %s", dwordPtr(selfptr), tmp)
}

func (c *Context) restoreSelfptr() {
	c.ins("pop ecx")
	c.ins("mov %s, ecx", dwordPtr(selfptr))
}

// asmEscape renders value for a NASM backquoted string literal.
func asmEscape(value string) string {
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch c {
		case '\n':
			sb.WriteString("\\n")
		case '\t':
			sb.WriteString("\\t")
		case '\r':
			sb.WriteString("\\r")
		case '\b':
			sb.WriteString("\\b")
		case '\f':
			sb.WriteString("\\f")
		case '\\':
			sb.WriteString("\\\\")
		case '`':
			sb.WriteString("\\`")
		default:
			if c >= 0x20 && c < 0x7f {
				sb.WriteByte(c)
			} else {
				fmt.Fprintf(&sb, "\\x%02x", c)
			}
		}
	}
	return sb.String()
}
