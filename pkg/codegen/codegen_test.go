package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coolr/pkg/config"
	"coolr/pkg/lexer"
	"coolr/pkg/parser"
	"coolr/pkg/semant"
)

// compile runs the whole pipeline over src and returns the context
// and the generated assembly text.
func compile(t *testing.T, src string) (*Context, string) {
	t.Helper()
	tokens := lexer.New([]byte(src)).Scan()
	prog := parser.New(tokens).Parse()
	ct := semant.Analyze(prog)

	c := NewContext(ct)
	var buf bytes.Buffer
	require.NoError(t, c.Generate(prog, &buf))
	return c, buf.String()
}

const minimalSrc = "class Main { main() : Int { 2+3 }; };"

func TestGenerateMinimalProgram(t *testing.T) {
	_, asm := compile(t, minimalSrc)

	// section layout: data, text, data
	assert.Equal(t, 2, strings.Count(asm, "section .data"))
	assert.Equal(t, 1, strings.Count(asm, "section .text"))
	assert.Less(t, strings.Index(asm, "section .data"), strings.Index(asm, "section .text"))

	for _, label := range []string{
		"Main_proto:",
		"Main_dispatch_table:",
		"Main._init:",
		"Main.main:",
		"Object.abort:",
		"Object.copy:",
		"IO.out_string:",
		"String.substr:",
		"_strlen:",
		"_strcmp:",
		"_allocate_memory:",
		"_start:",
		"_dispatch_to_void:",
		"_match_on_void:",
		"_no_match:",
		"_index_out_of_bounds:",
		"_out_of_memory:",
		"heapstart:",
		"inputbuffer:",
	} {
		assert.Contains(t, asm, label)
	}

	// the heap reservation and input buffer
	assert.Contains(t, asm, fmt.Sprintf("times %d db 0", config.HeapSize))
	assert.Contains(t, asm, fmt.Sprintf("times %d db 0", config.MaxStringLen+1))

	// the entry point wires Main together
	assert.Contains(t, asm, "call Main._init")
	assert.Contains(t, asm, "call Main.main")
}

func TestDispatchTableMonotonicity(t *testing.T) {
	c, asm := compile(t, `
class P {
	m() : Int { 1 };
	n() : Int { 2 };
};
class C inherits P {
	n() : Int { 3 };
};
class Main { main() : Int { 1 }; };
`)

	// inherited methods keep their slot in the subclass table
	assert.Equal(t, c.methodOffset("P", "m"), c.methodOffset("C", "m"))
	assert.Equal(t, c.methodOffset("P", "n"), c.methodOffset("C", "n"))

	// _init is slot 0 and the Object methods fill the next three
	// slots, so P's own methods start at offset 16
	assert.Equal(t, 16, c.methodOffset("P", "m"))
	assert.Equal(t, 20, c.methodOffset("P", "n"))

	// the override replaced the entry in place
	assert.Contains(t, asm, "dd C.n")
	assert.Contains(t, asm, "dd P.n")
	assert.Contains(t, asm, "dd P.m")
}

func TestAttributeOffsetMonotonicity(t *testing.T) {
	c, _ := compile(t, `
class P {
	a : Int;
	b : Bool;
};
class C inherits P {
	d : Int;
};
class Main { main() : Int { 1 }; };
`)

	headerBytes := config.NumObjHeaders * config.WordSize
	assert.Equal(t, headerBytes, c.attrOffset("P", "a"))
	assert.Equal(t, headerBytes+4, c.attrOffset("P", "b"))

	// a subclass's own attributes come after the inherited ones
	assert.Equal(t, headerBytes+8, c.attrOffset("C", "d"))
}

func TestStringInterning(t *testing.T) {
	_, asm := compile(t, `
class Main inherits IO {
	main() : Object {
		{
			out_string("hello");
			out_string("hello");
			out_string("other");
		}
	};
};
`)

	helloLabel := fmt.Sprintf("string_%016x", xxhash.Sum64String("hello"))
	otherLabel := fmt.Sprintf("string_%016x", xxhash.Sum64String("other"))

	// identical literals share one data-section entry
	assert.Equal(t, 1, strings.Count(asm, helloLabel+" db"))
	assert.Equal(t, 1, strings.Count(asm, otherLabel+" db"))
	assert.Equal(t, 2, strings.Count(asm, "push "+helloLabel))
}

func TestClassTags(t *testing.T) {
	c, _ := compile(t, minimalSrc)

	seen := make(map[int]string)
	for cls, tag := range c.tags {
		assert.GreaterOrEqual(t, tag, config.ClassTagBase, "class %s", cls)
		if prev, dup := seen[tag]; dup {
			t.Errorf("classes %s and %s share tag %d", prev, cls, tag)
		}
		seen[tag] = cls
	}

	// every table class got a tag
	for _, name := range []string{"Object", "IO", "Int", "Bool", "String", "Main"} {
		_, ok := c.tags[name]
		assert.True(t, ok, "no tag for %s", name)
	}
}

func TestObjectHeaderShape(t *testing.T) {
	c, asm := compile(t, minimalSrc)

	// Int carries one attribute slot after the five header words
	intProto := extractBlock(asm, "Int_proto:")
	assert.Contains(t, intProto, fmt.Sprintf("dd %d", c.tags["Int"]))
	assert.Contains(t, intProto, "dd Int_typename")
	assert.Contains(t, intProto, fmt.Sprintf("dd %d", (config.NumObjHeaders+1)*config.WordSize))
	assert.Contains(t, intProto, "dd Int_dispatch_table")
	assert.Contains(t, intProto, "dd Object_proto")

	// Object is the root: its parent pointer is 0
	objectProto := extractBlock(asm, "Object_proto:")
	assert.Contains(t, objectProto, "dd 0")
}

func TestDispatchEmitsVoidCheck(t *testing.T) {
	_, asm := compile(t, `
class A { f() : Int { 0 }; };
class Main {
	x : A;
	main() : Object { x.f() };
};
`)
	assert.Contains(t, asm, "je _dispatch_to_void")
	// dynamic dispatch goes through the table pointer in the header
	assert.Contains(t, asm, "mov eax, [eax+12]")
}

func TestStaticDispatchUsesNamedTable(t *testing.T) {
	c, asm := compile(t, `
class A { f() : Int { 0 }; };
class B inherits A { f() : Int { 1 }; };
class Main {
	b : B;
	main() : Object { b@A.f() };
};
`)
	offset := c.methodOffset("A", "f")
	assert.Contains(t, asm, fmt.Sprintf("mov eax, [A_dispatch_table+%d]", offset))
}

func TestCaseWalksPrototypeChain(t *testing.T) {
	_, asm := compile(t, `
class A { };
class Main {
	main() : Object {
		{
			new A;
			case (let x : A in x) of y : A => y; esac;
		}
	};
};
`)
	assert.Contains(t, asm, "je _match_on_void")
	assert.Contains(t, asm, "jmp _no_match")
	// the parent prototype pointer lives at offset 16
	assert.Contains(t, asm, "mov eax, [eax+16]")
	assert.Contains(t, asm, "mov ebx, [A_proto]")
}

func TestNewSelfTypeIndirectsThroughDispatchTable(t *testing.T) {
	_, asm := compile(t, `
class A { f() : SELF_TYPE { new SELF_TYPE }; };
class Main { main() : Int { 1 }; };
`)
	// _init is dispatch slot 0: load the table, call its first entry
	assert.Contains(t, asm, "mov eax, [eax+12]")
	assert.Contains(t, asm, "call eax")
}

func TestUninitializedBasicAttributeDefaults(t *testing.T) {
	_, asm := compile(t, `
class Main {
	i : Int;
	s : String;
	b : Bool;
	o : Object;
	main() : Int { 1 };
};
`)
	proto := extractBlock(asm, "Main_proto:")
	assert.Contains(t, proto, "dd uninitialized_int")
	assert.Contains(t, proto, "dd uninitialized_string")
	assert.Contains(t, proto, "dd uninitialized_bool")
	// non-basic attributes start void
	assert.Contains(t, proto, "dd 0")
}

func TestWhileReturnsVoid(t *testing.T) {
	_, asm := compile(t, `
class Main {
	b : Bool;
	main() : Object { while b loop 1 pool };
};
`)
	assert.Contains(t, asm, "xor eax, eax")
}

// extractBlock returns the lines from a label up to the next blank
// line.
func extractBlock(asm, label string) string {
	start := strings.Index(asm, label)
	if start < 0 {
		return ""
	}
	rest := asm[start:]
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		return rest[:end]
	}
	return rest
}
