// Package codegen emits 32-bit x86 assembly (NASM syntax, Linux
// int 0x80 syscalls) for a type-checked COOL program. Emission is
// streaming: prototypes and dispatch tables first, then the text
// segment, then string constants, the heap and the input buffer.
package codegen

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/cespare/xxhash/v2"

	"coolr/pkg/ast"
	"coolr/pkg/config"
	"coolr/pkg/semant"
	"coolr/pkg/util"
)

type offsetKey struct {
	cls  string
	name string
}

// Context carries all code-generation state: the output sink, the
// class table, the scope stack, the class tag allocator, the
// attribute and method offset tables, and the string intern pool.
type Context struct {
	w    *bufio.Writer
	ct   *semant.ClassTable
	prog *ast.ProgramNode

	scopes scopeStack

	strings map[string]string
	tags    map[string]int
	nextTag int

	attrOffsets   map[offsetKey]int
	methodOffsets map[offsetKey]int

	currentClass string
}

func NewContext(ct *semant.ClassTable) *Context {
	return &Context{
		ct:            ct,
		strings:       make(map[string]string),
		tags:          make(map[string]int),
		nextTag:       config.ClassTagBase,
		attrOffsets:   make(map[offsetKey]int),
		methodOffsets: make(map[offsetKey]int),
	}
}

// Generate writes the complete assembly for the program to w.
func (c *Context) Generate(prog *ast.Node, w io.Writer) error {
	c.prog = prog.Data.(*ast.ProgramNode)
	c.w = bufio.NewWriter(w)

	c.scopes.enterScope()

	// first data segment: prototypes and dispatch tables
	c.dataSection()
	c.buildClassPrototypes()
	c.printDispatchTables()

	// text segment
	c.textSection()
	c.buildTextSegment()

	// second data segment: static strings, heap and input buffer
	c.dataSection()
	c.printStringConstants()
	c.printHeap()
	c.printInputBuffer()

	return c.w.Flush()
}

// --- class tags, offsets, string pool ---

// classTag returns the unique tag of a class, allocating one on
// first use.
func (c *Context) classTag(cls string) int {
	if tag, ok := c.tags[cls]; ok {
		return tag
	}
	c.tags[cls] = c.nextTag
	c.nextTag++
	return c.tags[cls]
}

func (c *Context) setAttrOffset(cls, attr string, offset int) {
	c.attrOffsets[offsetKey{cls, attr}] = offset
}

func (c *Context) attrOffset(cls, attr string) int {
	offset, ok := c.attrOffsets[offsetKey{cls, attr}]
	if !ok {
		panic(fmt.Sprintf("codegen: no offset for attribute %s.%s", cls, attr))
	}
	return offset
}

func (c *Context) setMethodOffset(cls, method string, offset int) {
	c.methodOffsets[offsetKey{cls, method}] = offset
}

func (c *Context) methodOffset(cls, method string) int {
	offset, ok := c.methodOffsets[offsetKey{cls, method}]
	if !ok {
		panic(fmt.Sprintf("codegen: no offset for method %s.%s", cls, method))
	}
	return offset
}

// internString registers a string constant in the pool and returns
// its data-section label. Labels are derived from a content hash, so
// identical literals share one entry.
func (c *Context) internString(value string) string {
	label := fmt.Sprintf("string_%016x", xxhash.Sum64String(value))
	c.strings[label] = value
	return label
}

// --- data segment ---

// objSize is the byte size of an instance: the headers plus one word
// per attribute across the whole ancestry.
func (c *Context) objSize(cls string) int {
	size := config.NumObjHeaders
	for _, name := range c.ct.Ancestry(cls) {
		size += len(c.ct.Class(name).AttrNodes())
	}
	return size * config.WordSize
}

func reversed(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[len(names)-1-i] = name
	}
	return out
}

func (c *Context) buildClassPrototypes() {
	c.label(selfptr)
	c.ddInt(0)
	c.newline()

	for _, clsname := range c.ct.Names() {
		cls := c.ct.Class(clsname)

		c.comment("class " + clsname)
		c.label(clsname + "_proto")

		// unique class tag
		c.ddInt(c.classTag(clsname))

		// typename
		c.dd(clsname + "_typename")
		c.strings[clsname+"_typename"] = clsname

		// object size = (number of attributes + number of headers) * word size
		c.ddInt(c.objSize(clsname))

		// dispatch pointer
		c.dd(clsname + "_dispatch_table")

		// parent prototype; Object is the root
		if clsname == util.TypeObject {
			c.ddInt(0)
		} else {
			c.dd(cls.Base + "_proto")
		}

		count := config.NumObjHeaders
		for _, ancestor := range reversed(c.ct.Ancestry(clsname)) {
			if ancestor == util.TypeString {
				// the String object is special: val is a raw int
				// length and str_field points at raw bytes
				c.setAttrOffset(ancestor, util.AttrVal, config.WordSize*count)
				count++
				c.comment("attribute val")
				c.ddInt(0)
				c.setAttrOffset(ancestor, util.AttrStrField, config.WordSize*count)
				count++
				c.comment("attribute str_field")
				c.dd(emptyString)
				continue
			}

			for _, attr := range c.ct.Class(ancestor).AttrNodes() {
				// inherited attributes cannot be redefined, so there
				// is no overriding to account for
				ad := attr.Data.(*ast.AttrNode)
				c.setAttrOffset(ancestor, ad.Name, config.WordSize*count)
				count++
				c.comment("attribute " + ad.Name)
				switch ad.TypeName {
				case util.TypeString:
					c.dd(uninitializedString)
				case util.TypeInt:
					c.dd(uninitializedInt)
				case util.TypeBool:
					c.dd(uninitializedBool)
				default:
					// other classes default to void
					c.ddInt(0)
				}
			}
		}

		c.newline()
	}

	c.codeUninitializedBasicObjects()
}

func (c *Context) printDispatchTables() {
	c.comment("dispatch tables")

	for _, clsname := range c.ct.Names() {
		c.label(clsname + "_dispatch_table")

		// methods are inherited root-down; overriding replaces the
		// entry in place, preserving the slot
		type entry struct{ cls, method string }
		var methods []entry

		for _, ancestor := range reversed(c.ct.Ancestry(clsname)) {
			for _, method := range c.ct.Class(ancestor).MethodNodes() {
				name := method.Data.(*ast.MethodNode).Name
				overridden := false
				for i := range methods {
					if methods[i].method == name {
						methods[i] = entry{ancestor, name}
						overridden = true
						break
					}
				}
				if !overridden {
					methods = append(methods, entry{ancestor, name})
				}
			}
		}

		// slot 0 is the internal initializer
		c.dd(clsname + "._init")

		count := 1
		for _, m := range methods {
			c.dd(m.cls + "." + m.method)
			c.setMethodOffset(clsname, m.method, config.WordSize*count)
			count++
		}

		c.newline()
	}
}

func (c *Context) printStringConstants() {
	c.comment("string constants")

	labels := make([]string, 0, len(c.strings))
	for label := range c.strings {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		c.staticString(label, c.strings[label])
	}

	c.codeBuiltinStaticStrings()
}

func (c *Context) printHeap() {
	c.ddNamed(heapptr, heapstart)
	c.label(heapstart)
	c.emptyMemory(config.HeapSize)
	c.label(heapend)
	c.newline()
}

func (c *Context) printInputBuffer() {
	c.label(inputbuffer)
	c.emptyMemory(config.MaxStringLen + 1)
	c.newline()
}

// --- text segment ---

func (c *Context) buildTextSegment() {
	fmt.Fprintln(c.w, "global _start")
	c.newline()

	c.comment("built-in methods")
	c.codeBuiltinMethods()

	c.codeInitializers()

	c.comment("user-defined methods")
	for _, clsNode := range c.prog.Classes {
		cls := clsNode.Data.(*ast.ClassNode)
		for _, method := range cls.MethodNodes() {
			md := method.Data.(*ast.MethodNode)

			c.currentClass = cls.Name
			c.scopes.enterScope()

			// attributes first, then the formals; formals are
			// registered in reverse because arguments are pushed
			// left to right
			for _, ancestor := range reversed(c.ct.Ancestry(cls.Name)) {
				for _, attr := range c.ct.Class(ancestor).AttrNodes() {
					name := attr.Data.(*ast.AttrNode).Name
					c.scopes.addAttribute(name, c.attrOffset(ancestor, name))
				}
			}
			for i := len(md.Formals) - 1; i >= 0; i-- {
				c.scopes.addParameter(md.Formals[i].Data.(*ast.FormalNode).Name)
			}

			c.label(cls.Name + "." + md.Name)
			c.ins("enter 0, 0")
			c.genExpr(md.Body)
			c.ins("leave")

			// the callee cleans up the dispatch arguments
			c.ins("ret %d", len(md.Formals)*config.WordSize)
			c.newline()

			c.scopes.exitScope()
		}
	}

	c.codeInternalRoutines()
	c.codeEntrypoint()
	c.codeErrorProcedures()
}

// codeInitializers emits the per-class _init methods. A user class's
// _init clones the prototype and then evaluates the inherited
// attribute initializers in declaration order, root-down, with self
// bound to the new object.
func (c *Context) codeInitializers() {
	c.comment("internal initializer methods")

	for _, clsNode := range c.prog.Classes {
		cls := clsNode.Data.(*ast.ClassNode)
		c.label(cls.Name + "._init")

		// clone the prototype through the allocator
		c.ins("mov eax, %s", cls.Name+"_proto")
		c.ins("mov ebx, %s", ptrOff(eax, 8))
		c.ins("push eax")
		c.ins("push ebx")
		c.ins("call _allocate_memory")
		c.ins("mov edi, eax")
		c.ins("pop esi")
		c.ins("mov ecx, %s", ptrOff(esi, 8))
		c.ins("cld")
		c.ins("rep movsb")

		// evaluate initializers with self bound to the new object;
		// attributes are in scope because initializers may refer to
		// other attributes
		oldClass := c.currentClass
		c.currentClass = cls.Name
		c.replaceSelfptr(eax)
		c.ins("push eax")

		c.scopes.enterScope()
		ancestry := reversed(c.ct.Ancestry(cls.Name))
		for _, ancestor := range ancestry {
			for _, attr := range c.ct.Class(ancestor).AttrNodes() {
				name := attr.Data.(*ast.AttrNode).Name
				c.scopes.addAttribute(name, c.attrOffset(ancestor, name))
			}
		}

		for _, ancestor := range ancestry {
			for _, attr := range c.ct.Class(ancestor).AttrNodes() {
				ad := attr.Data.(*ast.AttrNode)
				c.comment("evaluate initializer " + ad.Name)

				// a clean frame, clear of the init bookkeeping on
				// the stack
				c.ins("enter 0, 0")
				c.genExpr(ad.Init)
				c.ins("leave")

				c.ins("pop edi")
				c.ins("mov %s, eax", ptrOff(edi, c.attrOffset(ancestor, ad.Name)))
				c.ins("push edi")
			}
		}
		c.scopes.exitScope()

		c.currentClass = oldClass
		c.ins("pop eax")
		c.restoreSelfptr()
		c.ins("ret")
		c.newline()
	}

	// the basic classes have no user initializers; their _init is a
	// plain allocate-and-copy
	for _, cls := range []string{util.TypeObject, util.TypeInt, util.TypeBool, util.TypeString, util.TypeIO} {
		attrNum := len(c.ct.Class(cls).AttrNodes())
		size := (config.NumObjHeaders + attrNum) * config.WordSize

		c.label(cls + "._init")
		c.ins("push %d", size)
		c.ins("call _allocate_memory")
		c.ins("push eax")
		c.ins("mov edi, eax")
		c.ins("mov esi, %s", cls+"_proto")
		c.ins("mov ecx, %d", size)
		c.ins("cld")
		c.ins("rep movsb")
		c.ins("pop eax")
		c.ins("ret")
		c.newline()
	}
}

// --- expressions ---

// makeNewIntObject boxes the value (a register or immediate) into a
// fresh Int object left in eax.
func (c *Context) makeNewIntObject(value string) {
	c.ins("push %s", value)
	c.replaceSelfptr("Int_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("pop ebx")
	c.ins("mov %s, ebx", dwordPtrOff(eax, c.attrOffset(util.TypeInt, util.AttrVal)))
}

func (c *Context) makeNewBoolObject(value string) {
	c.ins("push %s", value)
	c.replaceSelfptr("Bool_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("pop ebx")
	c.ins("mov %s, ebx", dwordPtrOff(eax, c.attrOffset(util.TypeBool, util.AttrVal)))
}

// genLocation emits code leaving the address of the binding's slot
// in eax.
func (c *Context) genLocation(name string) {
	b := c.scopes.location(name)
	switch b.kind {
	case bindSelf:
		c.ins("lea eax, %s", ptr(selfptr))
	case bindAttribute:
		c.ins("mov eax, %s", ptr(selfptr))
		c.ins("add eax, %d", b.offset)
	case bindParameter:
		c.ins("lea eax, %s", ptrOff(ebp, config.WordSize*b.offset))
	case bindLocal:
		c.ins("lea eax, %s", ptrOff(ebp, -config.WordSize*b.offset))
	}
}

// genBinaryInt evaluates both operands of an arithmetic or comparison
// node, leaving the left unboxed value in ebx and the right in eax.
func (c *Context) genBinaryInt(d *ast.BinaryNode) {
	valOff := c.attrOffset(util.TypeInt, util.AttrVal)
	c.genExpr(d.Left)
	c.ins("mov eax, %s", ptrOff(eax, valOff))
	c.ins("push eax")
	c.genExpr(d.Right)
	c.ins("mov eax, %s", ptrOff(eax, valOff))
	c.ins("pop ebx")
}

// genExpr emits code for an expression, leaving the result object
// pointer in eax.
func (c *Context) genExpr(n *ast.Node) {
	switch d := n.Data.(type) {
	case *ast.NoExprNode:
		// an absent initializer still yields the default object for
		// the basic types; everything else starts void
		switch d.DeclaredType {
		case util.TypeString, util.TypeInt, util.TypeBool:
			c.replaceSelfptr(d.DeclaredType + "_proto")
			c.ins("call Object.copy")
			c.restoreSelfptr()
		default:
			c.ins("mov eax, 0")
		}

	case *ast.IntNode:
		c.makeNewIntObject(d.Value)

	case *ast.StringNode:
		label := c.internString(d.Value)
		c.replaceSelfptr("String_proto")
		c.ins("call Object.copy")
		c.restoreSelfptr()
		c.ins("mov ebx, eax")
		c.ins("add eax, %d", c.attrOffset(util.TypeString, util.AttrStrField))
		c.ins("mov %s, %s", dwordPtr(eax), label)
		c.ins("sub eax, 4")
		c.ins("push eax")
		c.ins("push %s", label)
		c.ins("call _strlen")
		c.ins("pop ebx")
		c.ins("mov %s, eax", ptr(ebx))
		c.ins("lea eax, %s", ptrOff(ebx, -config.NumObjHeaders*config.WordSize))

	case *ast.BoolNode:
		value := "0"
		if d.Value {
			value = "1"
		}
		c.makeNewBoolObject(value)

	case *ast.ObjectNode:
		c.genLocation(d.Name)
		c.ins("mov eax, %s", ptr(eax))

	case *ast.AssignNode:
		c.genExpr(d.Expr)
		c.ins("push eax")
		c.ins("mov ebx, eax")
		c.genLocation(d.Name)
		c.ins("mov %s, ebx", ptr(eax))
		c.ins("pop eax")

	case *ast.NewNode:
		if d.TypeName == util.TypeSelfType {
			// the dynamic class of self decides which _init runs;
			// every class's _init is at dispatch offset 0
			c.ins("mov eax, %s", ptr(selfptr))
			c.ins("mov eax, %s", ptrOff(eax, 12))
			c.ins("mov eax, %s", ptr(eax))
			c.ins("call eax")
		} else {
			c.ins("call %s._init", d.TypeName)
		}

	case *ast.UnaryNode:
		switch n.Type {
		case ast.IsVoid:
			c.genExpr(d.Expr)
			c.ins("cmp eax, 0")
			c.ins("setz al")
			c.ins("movzx eax, al")
			c.makeNewBoolObject(eax)
		case ast.Neg:
			c.genExpr(d.Expr)
			c.ins("add eax, %d", c.attrOffset(util.TypeInt, util.AttrVal))
			c.ins("mov eax, %s", ptr(eax))
			c.ins("neg eax")
			c.makeNewIntObject(eax)
		default: // not
			c.genExpr(d.Expr)
			c.ins("add eax, %d", c.attrOffset(util.TypeBool, util.AttrVal))
			c.ins("mov eax, %s", ptr(eax))
			c.ins("xor eax, 1")
			c.makeNewBoolObject(eax)
		}

	case *ast.BinaryNode:
		c.genBinary(n, d)

	case *ast.CondNode:
		c.genExpr(d.Pred)
		c.ins("mov eax, %s", ptrOff(eax, c.attrOffset(util.TypeBool, util.AttrVal)))
		c.ins("test eax, eax")
		c.ins("jne %s", uniqueLabel(".cond_true", n))
		c.label(uniqueLabel(".cond_false", n))
		c.genExpr(d.Else)
		c.ins("jmp %s", uniqueLabel(".cond_over", n))
		c.label(uniqueLabel(".cond_true", n))
		c.genExpr(d.Then)
		c.label(uniqueLabel(".cond_over", n))

	case *ast.LoopNode:
		c.label(uniqueLabel(".while_begin", n))
		c.genExpr(d.Pred)
		c.ins("mov eax, %s", ptrOff(eax, c.attrOffset(util.TypeBool, util.AttrVal)))
		c.ins("test eax, eax")
		c.ins("je %s", uniqueLabel(".while_end", n))
		c.genExpr(d.Body)
		c.ins("jmp %s", uniqueLabel(".while_begin", n))
		c.label(uniqueLabel(".while_end", n))
		// loops return void
		c.ins("xor eax, eax")

	case *ast.BlockNode:
		for _, expr := range d.Exprs {
			c.genExpr(expr)
		}

	case *ast.CaseNode:
		c.genCase(n, d)

	case *ast.LetNode:
		c.scopes.enterScope()
		for _, init := range d.Inits {
			id := init.Data.(*ast.LetInitNode)
			c.genExpr(id.Expr)
			c.ins("push eax")
			c.scopes.addLocal(id.Name)
		}
		c.genExpr(d.Body)
		c.scopes.exitScope()
		c.ins("add esp, %d", len(d.Inits)*config.WordSize)

	case *ast.DispatchNode:
		objectType := d.Recv.Typ
		if objectType == util.TypeSelfType {
			objectType = c.currentClass
		}

		// save the old selfptr
		c.ins("mov eax, %s", ptr(selfptr))
		c.ins("push eax")

		// pass the dispatch arguments in order
		for _, arg := range d.Args {
			c.genExpr(arg)
			c.ins("push eax")
		}

		// the receiver is evaluated after the arguments; dispatching
		// on void is a runtime error
		c.genExpr(d.Recv)
		c.ins("cmp eax, 0")
		c.ins("je _dispatch_to_void")

		c.ins("mov ebx, eax")
		c.ins("mov eax, %s", ptrOff(eax, 12))
		c.ins("mov eax, %s", ptrOff(eax, c.methodOffset(objectType, d.Method)))

		// overwrite the selfptr and execute the dispatch
		c.ins("mov %s, ebx", ptr(selfptr))
		c.ins("call eax")

		// restore the selfptr
		c.ins("pop ebx")
		c.ins("mov %s, ebx", ptr(selfptr))

	case *ast.StaticDispatchNode:
		c.ins("mov eax, %s", ptr(selfptr))
		c.ins("push eax")

		for _, arg := range d.Args {
			c.genExpr(arg)
			c.ins("push eax")
		}

		c.genExpr(d.Recv)
		c.ins("cmp eax, 0")
		c.ins("je _dispatch_to_void")

		c.ins("mov ebx, eax")

		// static binding: use the named class's dispatch table
		c.ins("mov eax, %s", ptrOff(d.StaticType+"_dispatch_table", c.methodOffset(d.StaticType, d.Method)))

		c.ins("mov %s, ebx", ptr(selfptr))
		c.ins("call eax")

		c.ins("pop ebx")
		c.ins("mov %s, ebx", ptr(selfptr))

	default:
		panic(fmt.Sprintf("codegen: unexpected node type %d", n.Type))
	}
}

func (c *Context) genBinary(n *ast.Node, d *ast.BinaryNode) {
	switch n.Type {
	case ast.Plus:
		c.genBinaryInt(d)
		c.ins("add eax, ebx")
		c.makeNewIntObject(eax)

	case ast.Sub:
		c.genBinaryInt(d)
		c.ins("sub ebx, eax")
		c.ins("mov eax, ebx")
		c.makeNewIntObject(eax)

	case ast.Mul:
		c.genBinaryInt(d)
		c.ins("imul ebx")
		c.makeNewIntObject(eax)

	case ast.Divide:
		c.genBinaryInt(d)
		c.ins("xchg eax, ebx")
		c.ins("xor edx, edx")
		c.ins("idiv ebx")
		c.makeNewIntObject(eax)

	case ast.Lt:
		// the left value is in ebx, so the comparison is reversed
		c.genBinaryInt(d)
		c.ins("cmp eax, ebx")
		c.ins("setg al")
		c.ins("movzx eax, al")
		c.makeNewBoolObject(eax)

	case ast.Leq:
		c.genBinaryInt(d)
		c.ins("cmp eax, ebx")
		c.ins("setge al")
		c.ins("movzx eax, al")
		c.makeNewBoolObject(eax)

	case ast.Eq:
		c.comment("equals expression")
		switch typ := d.Left.Typ; typ {
		case util.TypeString:
			// string equality compares contents, like C's strcmp
			strField := c.attrOffset(util.TypeString, util.AttrStrField)
			c.genExpr(d.Left)
			c.ins("mov eax, %s", ptrOff(eax, strField))
			c.ins("push eax")
			c.genExpr(d.Right)
			c.ins("mov eax, %s", ptrOff(eax, strField))
			c.ins("push eax")
			c.ins("call _strcmp")
		case util.TypeInt, util.TypeBool:
			valOff := c.attrOffset(typ, util.AttrVal)
			c.genExpr(d.Left)
			c.ins("mov eax, %s", ptrOff(eax, valOff))
			c.ins("push eax")
			c.genExpr(d.Right)
			c.ins("mov eax, %s", ptrOff(eax, valOff))
			c.ins("pop ebx")
			c.ins("cmp eax, ebx")
			c.ins("setz al")
			c.ins("movzx eax, al")
			c.makeNewBoolObject(eax)
		default:
			// object equality is pointer identity
			c.genExpr(d.Left)
			c.ins("push eax")
			c.genExpr(d.Right)
			c.ins("pop ebx")
			c.ins("cmp eax, ebx")
			c.ins("setz al")
			c.ins("movzx eax, al")
			c.makeNewBoolObject(eax)
		}
	}
}

// genCase emits the runtime type test of a case expression: walk the
// prototype chain of the scrutinee, comparing the class tag at each
// level against every branch's tag; the first match wins. Reaching
// the root without a match is a runtime error, as is a void
// scrutinee.
func (c *Context) genCase(n *ast.Node, d *ast.CaseNode) {
	c.genExpr(d.Target)

	c.ins("cmp eax, 0")
	c.ins("je _match_on_void")
	// the scrutinee becomes a stack variable bound in each branch
	c.ins("push eax")

	c.label(uniqueLabel(".case_branch_start", n))
	c.ins("mov ecx, %s", ptr(eax))

	for i, branch := range d.Branches {
		bd := branch.Data.(*ast.BranchNode)
		c.ins("mov ebx, %s", ptr(bd.TypeName+"_proto"))
		c.ins("cmp ecx, ebx")
		c.ins("je %s", uniqueLabel(fmt.Sprintf(".case_branch_%d", i), n))
	}

	// no branch matched at this level: climb to the parent
	// prototype; only Object has 0 there
	c.ins("mov eax, %s", ptrOff(eax, 16))
	c.ins("cmp eax, 0")
	c.ins("je %s", uniqueLabel(".case_branch_error", n))
	c.ins("jmp %s", uniqueLabel(".case_branch_start", n))

	for i, branch := range d.Branches {
		bd := branch.Data.(*ast.BranchNode)

		c.scopes.enterScope()
		c.scopes.addLocal(bd.Name)

		c.label(uniqueLabel(fmt.Sprintf(".case_branch_%d", i), n))
		c.genExpr(bd.Expr)
		c.ins("jmp %s", uniqueLabel(".case_finish", n))

		c.scopes.exitScope()
	}

	c.label(uniqueLabel(".case_branch_error", n))
	c.ins("jmp _no_match")

	c.label(uniqueLabel(".case_finish", n))
	// drop the scrutinee stack variable
	c.ins("add esp, 4")
}

// uniqueLabel derives a label from the identity of the node, so
// every conditional, loop and case in the program gets its own.
func uniqueLabel(name string, n *ast.Node) string {
	return fmt.Sprintf("%s_%p", name, n)
}
