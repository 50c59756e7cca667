package codegen

// Hand-written x86 implementations of the built-in COOL methods and
// the internal runtime routines, emitted verbatim into every output.

import (
	"coolr/pkg/config"
	"coolr/pkg/util"
)

// runtime error message strings
const (
	abortErrStr          = "Abort called from class '"
	dispatchToVoidErrStr = "Dispatch to void\n"
	outOfMemoryErrStr    = "Out of memory\n"
	indexOutOfBoundsStr  = "Index out of range\n"
	matchOnVoidErrStr    = "Match on void in case statement\n"
	noMatchErrStr        = "No match in case statement\n"
)

// codeUninitializedBasicObjects emits the shared default objects that
// Int, Bool and String attribute slots point at in prototypes.
func (c *Context) codeUninitializedBasicObjects() {
	c.label(uninitializedString)
	c.ddInt(c.classTag(util.TypeString))
	c.dd("String_typename")
	c.ddInt((config.NumObjHeaders + 2) * config.WordSize)
	c.dd("String_dispatch_table")
	c.dd("Object_proto")
	c.ddInt(0)
	c.dd(emptyString)
	c.newline()

	c.label(uninitializedInt)
	c.ddInt(c.classTag(util.TypeInt))
	c.dd("Int_typename")
	c.ddInt((config.NumObjHeaders + 1) * config.WordSize)
	c.dd("Int_dispatch_table")
	c.dd("Object_proto")
	c.ddInt(0)
	c.newline()

	c.label(uninitializedBool)
	c.ddInt(c.classTag(util.TypeBool))
	c.dd("Bool_typename")
	c.ddInt((config.NumObjHeaders + 1) * config.WordSize)
	c.dd("Bool_dispatch_table")
	c.dd("Object_proto")
	c.ddInt(0)
	c.newline()
}

func (c *Context) codeBuiltinStaticStrings() {
	c.staticString(emptyString, "")
	c.newline()

	c.comment("error messages")
	c.staticString("_abort_error_msg", abortErrStr)
	c.staticString("_dispatch_to_void_msg", dispatchToVoidErrStr)
	c.staticString("_out_of_memory_msg", outOfMemoryErrStr)
	c.staticString("_index_out_of_bounds_msg", indexOutOfBoundsStr)
	c.staticString("_match_on_void_msg", matchOnVoidErrStr)
	c.staticString("_no_match_msg", noMatchErrStr)
	c.newline()
}

func (c *Context) codeBuiltinMethods() {
	strField := func() int { return c.attrOffset(util.TypeString, util.AttrStrField) }
	strVal := func() int { return c.attrOffset(util.TypeString, util.AttrVal) }
	intVal := func() int { return c.attrOffset(util.TypeInt, util.AttrVal) }

	// Object.abort: print the message and the dynamic class name,
	// then exit with an error
	c.label("Object.abort")
	c.ins("enter 0, 0")
	c.ins("mov eax, 4")
	c.ins("mov ebx, 1")
	c.ins("mov ecx, _abort_error_msg")
	c.ins("mov edx, %d", len(abortErrStr))
	c.syscall()
	c.ins("mov eax, %s", ptr(selfptr))
	c.ins("push eax")
	c.ins("call Object.type_name")
	c.ins("add eax, %d", strField())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("mov ecx, eax")
	c.ins("push ecx")
	c.ins("call _strlen")
	c.ins("mov edx, eax")
	c.ins("mov eax, 4")
	c.ins("mov ebx, 1")
	c.syscall()
	c.ins("mov eax, 4")
	c.ins("mov ebx, 1")
	c.ins("push 10")
	c.ins("mov ecx, esp")
	c.ins("mov edx, 1")
	c.syscall()
	c.ins("jmp _error_exit")
	c.newline()

	// Object.type_name: a fresh String holding the class name from
	// the object header
	c.label("Object.type_name")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptr(selfptr))
	c.ins("add eax, 4")
	c.ins("mov eax, %s", ptr(eax))
	c.ins("push eax")
	c.replaceSelfptr("String_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("add eax, %d", strField())
	c.ins("pop ebx")
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("sub eax, 4")
	c.ins("push eax")
	c.ins("push ebx")
	c.ins("call _strlen")
	c.ins("pop ebx")
	c.ins("mov %s, eax", ptr(ebx))
	c.ins("mov eax, ebx")
	c.ins("sub eax, %d", config.NumObjHeaders*config.WordSize)
	c.ins("leave")
	c.ins("ret")
	c.newline()

	// Object.copy: allocate the object's size and copy it bytewise
	c.label("Object.copy")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptr(selfptr))
	c.ins("add eax, 8")
	c.ins("mov eax, %s", ptr(eax))
	c.ins("push eax")
	c.ins("push eax")
	c.ins("call _allocate_memory")
	c.ins("pop ecx")
	c.ins("mov edi, eax")
	c.ins("mov esi, %s", ptr(selfptr))
	c.ins("cld")
	c.ins("rep movsb")
	c.ins("leave")
	c.ins("ret")
	c.newline()

	c.label("IO.out_string")
	c.ins("enter 0, 0")
	c.ins("mov ecx, %s", ptrOff(ebp, 8))
	c.ins("add ecx, %d", strField())
	c.ins("mov ecx, %s", ptr(ecx))
	c.ins("push ecx")
	c.ins("push ecx")
	c.ins("call _strlen")
	c.ins("mov edx, eax")
	c.ins("pop ecx")
	c.ins("mov eax, 4")
	c.ins("mov ebx, 1")
	c.syscall()
	c.ins("mov eax, %s", ptr(selfptr))
	c.ins("leave")
	c.ins("ret 4")
	c.newline()

	// IO.out_int: a leading '-' for negatives, then the digits by
	// recursive divide-by-ten
	c.label("IO.out_int")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptrOff(ebp, 8))
	c.ins("add eax, %d", config.NumObjHeaders*config.WordSize)
	c.ins("mov eax, %s", ptr(eax))
	c.ins("test eax, eax")
	c.ins("jns .print_positive")
	c.ins("push eax")
	c.ins("push 45")
	c.ins("mov ebx, 1")
	c.ins("lea ecx, %s", ptr(esp))
	c.ins("mov edx, 1")
	c.ins("mov eax, 4")
	c.syscall()
	c.ins("add esp, 4")
	c.ins("pop eax")
	c.ins("neg eax")
	c.label(".print_positive")
	c.ins("call .start")
	c.ins("leave")
	c.ins("ret 4")
	c.label(".start")
	c.ins("push eax")
	c.ins("push edx")
	c.ins("xor edx, edx")
	c.ins("mov ecx, 10")
	c.ins("div ecx")
	c.ins("test eax, eax")
	c.ins("je .finish")
	c.ins("call .start")
	c.label(".finish")
	c.ins("lea eax, %s", ptrOff(edx, 0x30))
	c.ins("mov ebx, 1")
	c.ins("push eax")
	c.ins("lea ecx, %s", ptr(esp))
	c.ins("mov edx, 1")
	c.ins("mov eax, 4")
	c.syscall()
	c.ins("add esp, 4")
	c.ins("pop edx")
	c.ins("pop eax")
	c.ins("ret")
	c.newline()

	// IO.in_string: read a line from stdin into the static buffer
	// and build a String from it
	c.label("IO.in_string")
	c.ins("enter 0, 0")
	c.ins("mov eax, 3")
	c.ins("mov ebx, 0")
	c.ins("mov ecx, %s", inputbuffer)
	c.ins("mov edx, %d", config.MaxStringLen)
	c.syscall()
	c.ins("xor eax, eax")
	c.ins("mov edi, %s", inputbuffer)
	c.label(".loop")
	c.ins("cmp %s, 10", bytePtr(edi))
	c.ins("je .done")
	c.ins("inc edi")
	c.ins("inc eax")
	c.ins("jmp .loop")
	c.label(".done")
	c.ins("push eax")
	c.ins("inc eax")
	c.ins("push eax")
	c.ins("call _allocate_memory")
	c.ins("mov edi, eax")
	c.ins("mov esi, %s", inputbuffer)
	c.ins("pop ecx")
	c.ins("push edi")
	c.ins("push ecx")
	c.ins("cld")
	c.ins("rep movsb")
	c.ins("mov %s, 0", bytePtr(edi))
	c.replaceSelfptr("String_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov edx, eax")
	c.ins("add eax, %d", strVal())
	c.ins("pop ebx")
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("add eax, %d", strField()-strVal())
	c.ins("pop ebx")
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("mov eax, edx")
	c.ins("leave")
	c.ins("ret")
	c.newline()

	// IO.in_int: read a line and convert it to an Int
	c.label("IO.in_int")
	c.ins("enter 0, 0")
	c.ins("call IO.in_string")
	c.ins("mov edi, %s", ptrOff(eax, strField()))
	c.ins("mov ebx, %s", ptrOff(eax, strVal()))
	c.ins("add edi, ebx")
	c.ins("dec edi")
	c.ins("xor ecx, ecx")
	c.ins("mov edx, 1")
	c.label(".loop")
	c.ins("test ebx, ebx")
	c.ins("je .done")
	c.ins("movzx eax, %s", bytePtr(edi))
	c.ins("sub eax, 0x30")
	c.ins("push edx")
	c.ins("mul edx")
	c.ins("pop edx")
	c.ins("add ecx, eax")
	c.ins("dec edi")
	c.ins("dec ebx")
	c.ins("mov eax, edx")
	c.ins("mov edx, 10")
	c.ins("mul edx")
	c.ins("mov edx, eax")
	c.ins("jmp .loop")
	c.label(".done")
	c.ins("push ecx")
	c.replaceSelfptr("Int_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov edx, eax")
	c.ins("add eax, %d", intVal())
	c.ins("pop ebx")
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("mov eax, edx")
	c.ins("leave")
	c.ins("ret")
	c.newline()

	// String.length: box the val attribute into a fresh Int
	c.label("String.length")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptr(selfptr))
	c.ins("add eax, %d", strVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("push eax")
	c.replaceSelfptr("Int_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov edx, eax")
	c.ins("add eax, %d", intVal())
	c.ins("pop ebx")
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("mov eax, edx")
	c.ins("leave")
	c.ins("ret")
	c.newline()

	// String.concat: allocate the combined length and copy both
	// byte sequences
	c.label("String.concat")
	c.ins("enter 0, 0")
	c.ins("call String.length")
	c.ins("add eax, %d", intVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("push eax")
	c.ins("mov edi, %s", ptrOff(ebp, 8))
	c.ins("mov ecx, %s", ptr(selfptr))
	c.ins("push ecx")
	c.ins("mov %s, edi", dwordPtr(selfptr))
	c.ins("call String.length")
	c.ins("add eax, %d", intVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("pop ecx")
	c.ins("mov %s, ecx", dwordPtr(selfptr))
	c.ins("push eax")
	c.ins("mov eax, %s", ptrOff(ebp, -4))
	c.ins("mov ebx, %s", ptrOff(ebp, -8))
	c.ins("add eax, ebx")
	c.ins("push eax")
	c.ins("inc eax")
	c.ins("push eax")
	c.ins("call _allocate_memory")
	c.ins("mov edi, eax")
	c.ins("mov esi, %s", ptr(selfptr))
	c.ins("add esi, %d", strField())
	c.ins("mov esi, %s", ptr(esi))
	c.ins("mov ecx, %s", ptrOff(ebp, -4))
	c.ins("cld")
	c.ins("rep movsb")
	c.ins("mov esi, %s", ptrOff(ebp, 8))
	c.ins("add esi, %d", strField())
	c.ins("mov esi, %s", ptr(esi))
	c.ins("mov ecx, %s", ptrOff(ebp, -8))
	c.ins("inc ecx")
	c.ins("cld")
	c.ins("rep movsb")
	c.ins("push eax")
	c.replaceSelfptr("String_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov ebx, eax")
	c.ins("add eax, %d", strField())
	c.ins("pop ecx")
	c.ins("mov %s, ecx", ptr(eax))
	c.ins("sub eax, 4")
	c.ins("pop ecx")
	c.ins("mov %s, ecx", ptr(eax))
	c.ins("mov eax, ebx")
	c.ins("leave")
	c.ins("ret 4")
	c.newline()

	// String.substr: bounds-checked substring copy
	c.label("String.substr")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptrOff(ebp, 12))
	c.ins("add eax, %d", intVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("cmp eax, 0")
	c.ins("jl .error")
	c.ins("mov ebx, %s", ptrOff(ebp, 8))
	c.ins("add ebx, %d", intVal())
	c.ins("mov ebx, %s", ptr(ebx))
	c.ins("add ebx, eax")
	c.ins("push ebx")
	c.ins("call String.length")
	c.ins("add eax, %d", intVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("pop ebx")
	c.ins("cmp ebx, eax")
	c.ins("jg .error")
	c.ins("mov eax, %s", ptrOff(ebp, 8))
	c.ins("add eax, %d", intVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("inc eax")
	c.ins("push eax")
	c.ins("call _allocate_memory")
	c.ins("mov edi, eax")
	c.ins("mov ecx, %s", ptrOff(ebp, 8))
	c.ins("add ecx, %d", intVal())
	c.ins("mov ecx, %s", ptr(ecx))
	c.ins("mov esi, %s", ptr(selfptr))
	c.ins("add esi, %d", strField())
	c.ins("mov esi, %s", ptr(esi))
	c.ins("mov eax, %s", ptrOff(ebp, 12))
	c.ins("add eax, %d", intVal())
	c.ins("mov eax, %s", ptr(eax))
	c.ins("add esi, eax")
	c.ins("push edi")
	c.ins("push ecx")
	c.ins("cld")
	c.ins("rep movsb")
	c.ins("mov %s, 0", bytePtr(edi))
	c.ins("pop ebx")
	c.ins("pop eax")
	c.ins("jmp .done")
	c.label(".error")
	c.ins("jmp _index_out_of_bounds")
	c.label(".done")
	c.ins("push eax")
	c.ins("push ebx")
	c.replaceSelfptr("String_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov edx, eax")
	c.ins("pop ebx")
	c.ins("add eax, %d", strVal())
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("pop ebx")
	c.ins("add eax, 4")
	c.ins("mov %s, ebx", ptr(eax))
	c.ins("mov eax, edx")
	c.ins("leave")
	c.ins("ret 8")
	c.newline()
}

func (c *Context) codeInternalRoutines() {
	boolVal := c.attrOffset(util.TypeBool, util.AttrVal)

	// length of a null-terminated string
	c.label("_strlen")
	c.ins("enter 0, 0")
	c.ins("xor eax, eax")
	c.ins("mov edi, %s", ptrOff(ebp, 8))
	c.label(".loop")
	c.ins("cmp %s, 0", bytePtr(edi))
	c.ins("je .done")
	c.ins("inc edi")
	c.ins("inc eax")
	c.ins("jmp .loop")
	c.label(".done")
	c.ins("leave")
	c.ins("ret 4")
	c.newline()

	// compare two null-terminated strings, returning a boxed Bool
	c.label("_strcmp")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptrOff(ebp, 8))
	c.ins("mov ebx, %s", ptrOff(ebp, 12))
	c.label(".loopstart")
	c.ins("movzx ecx, %s", bytePtr(eax))
	c.ins("movzx edx, %s", bytePtr(ebx))
	c.ins("cmp ecx, edx")
	c.ins("jne .notequal")
	c.ins("test ecx, ecx")
	c.ins("je .equal")
	c.ins("inc eax")
	c.ins("inc ebx")
	c.ins("jmp .loopstart")
	c.label(".equal")
	c.replaceSelfptr("Bool_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov edx, eax")
	c.ins("add eax, %d", boolVal)
	c.ins("mov %s, 1", dwordPtr(eax))
	c.ins("mov eax, edx")
	c.ins("jmp .done")
	c.label(".notequal")
	c.replaceSelfptr("Bool_proto")
	c.ins("call Object.copy")
	c.restoreSelfptr()
	c.ins("mov edx, eax")
	c.ins("add eax, %d", boolVal)
	c.ins("mov %s, 0", dwordPtr(eax))
	c.ins("mov eax, edx")
	c.label(".done")
	c.ins("leave")
	c.ins("ret 8")
	c.newline()

	// bump-pointer allocation over the fixed heap
	c.label("_allocate_memory")
	c.ins("enter 0, 0")
	c.ins("mov eax, %s", ptr(heapptr))
	c.ins("mov ebx, %s", heapend)
	c.ins("mov ecx, eax")
	c.ins("add ecx, %s", ptrOff(ebp, 8))
	c.ins("cmp ecx, ebx")
	c.ins("jg .failed")
	c.ins("mov %s, ecx", ptr(heapptr))
	c.ins("leave")
	c.ins("ret 4")
	c.label(".failed")
	c.ins("jmp _out_of_memory")
	c.newline()
}

// codeEntrypoint emits _start: initialize Main, bind it as self, run
// Main.main and exit cleanly.
func (c *Context) codeEntrypoint() {
	c.label("_start")
	c.ins("enter 0, 0")
	c.ins("call Main._init")
	c.ins("mov %s, eax", ptr(selfptr))
	c.ins("call Main.main")
	c.ins("jmp _exit")
	c.newline()

	c.label("_exit")
	c.ins("mov eax, 1")
	c.ins("mov ebx, 0")
	c.syscall()
	c.newline()
}

// codeErrorProcedures emits the runtime error stubs; each prints a
// fixed message and exits with status 1.
func (c *Context) codeErrorProcedures() {
	c.label("_error_exit")
	c.ins("mov eax, 1")
	c.ins("mov ebx, 1")
	c.syscall()
	c.newline()

	stub := func(label, msgLabel, msg string) {
		c.label(label)
		c.ins("mov eax, 4")
		c.ins("mov ebx, 1")
		c.ins("mov ecx, %s", msgLabel)
		c.ins("mov edx, %d", len(msg))
		c.syscall()
		c.ins("jmp _error_exit")
		c.newline()
	}

	stub("_dispatch_to_void", "_dispatch_to_void_msg", dispatchToVoidErrStr)
	stub("_out_of_memory", "_out_of_memory_msg", outOfMemoryErrStr)
	stub("_index_out_of_bounds", "_index_out_of_bounds_msg", indexOutOfBoundsStr)
	stub("_match_on_void", "_match_on_void_msg", matchOnVoidErrStr)
	stub("_no_match", "_no_match_msg", noMatchErrStr)
}
