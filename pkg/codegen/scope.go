package codegen

import (
	"fmt"

	"coolr/pkg/util"
)

// The scope stack records how to address every in-scope binding.
// Each binding is a tagged descriptor rendered to assembly at the
// point of use: attributes live at a fixed offset from the self
// pointer, method parameters above the base pointer, and let/case
// locals below it.

type bindKind int

const (
	bindAttribute bindKind = iota
	bindParameter
	bindLocal
	bindSelf
)

type binding struct {
	name   string
	kind   bindKind
	offset int
}

type scope struct {
	stackBase int
	stackOff  int
	argCount  int
	bindings  []binding
}

// addLocal registers a stack variable. The stack grows downwards, so
// the rendered offset from ebp is negative; the depth counts locals
// pushed across all active scopes.
func (s *scope) addLocal(name string) {
	s.stackOff++
	s.bindings = append(s.bindings, binding{name: name, kind: bindLocal, offset: s.stackOff + s.stackBase})
}

// addParameter registers a method parameter. Arguments sit above the
// saved base pointer and return address; formals are registered in
// reverse order because the caller pushes them left to right.
func (s *scope) addParameter(name string) {
	s.argCount++
	s.bindings = append(s.bindings, binding{name: name, kind: bindParameter, offset: s.argCount + 1})
}

func (s *scope) addAttribute(name string, offset int) {
	s.bindings = append(s.bindings, binding{name: name, kind: bindAttribute, offset: offset})
}

func (s *scope) find(name string) (binding, bool) {
	for i := len(s.bindings) - 1; i >= 0; i-- {
		if s.bindings[i].name == name {
			return s.bindings[i], true
		}
	}
	return binding{}, false
}

type scopeStack struct {
	scopes     []*scope
	localCount int
}

func (ss *scopeStack) enterScope() {
	ss.scopes = append(ss.scopes, &scope{stackBase: ss.localCount})
}

func (ss *scopeStack) exitScope() {
	top := ss.scopes[len(ss.scopes)-1]
	ss.localCount -= top.stackOff
	ss.scopes = ss.scopes[:len(ss.scopes)-1]
}

func (ss *scopeStack) addLocal(name string) {
	ss.scopes[len(ss.scopes)-1].addLocal(name)
	ss.localCount++
}

func (ss *scopeStack) addParameter(name string) {
	ss.scopes[len(ss.scopes)-1].addParameter(name)
}

func (ss *scopeStack) addAttribute(name string, offset int) {
	ss.scopes[len(ss.scopes)-1].addAttribute(name, offset)
}

// location returns the descriptor of the closest definition of name.
// The reserved name self resolves to the process-global self slot.
func (ss *scopeStack) location(name string) binding {
	if name == util.Self {
		return binding{name: name, kind: bindSelf}
	}
	for i := len(ss.scopes) - 1; i >= 0; i-- {
		if b, ok := ss.scopes[i].find(name); ok {
			return b
		}
	}
	panic(fmt.Sprintf("codegen: object %s not found in scope", name))
}
