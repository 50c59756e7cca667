package semant

import (
	"coolr/pkg/ast"
	"coolr/pkg/util"
)

// ObjectEnv is a stack of scopes mapping variable names to their
// declared types.
type ObjectEnv struct {
	scopes []map[string]string
}

func (e *ObjectEnv) EnterScope() {
	e.scopes = append(e.scopes, make(map[string]string))
}

func (e *ObjectEnv) ExitScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *ObjectEnv) Add(name, typeName string) {
	e.scopes[len(e.scopes)-1][name] = typeName
}

// Probe checks only the current scope; shadowing a name from an
// outer scope is legal.
func (e *ObjectEnv) Probe(name string) bool {
	_, ok := e.scopes[len(e.scopes)-1][name]
	return ok
}

// Lookup returns the closest definition of name, or "" if undefined.
func (e *ObjectEnv) Lookup(name string) string {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if typeName, ok := e.scopes[i][name]; ok {
			return typeName
		}
	}
	return ""
}

type methodKey struct {
	cls    string
	method string
}

// MethodEnv is the global method environment: a flat mapping from
// (class, method) to the method definition. Inherited methods are
// copied into each subclass's entries, so dispatch resolution is a
// single lookup.
type MethodEnv struct {
	methods map[methodKey]*ast.Node
}

func NewMethodEnv() *MethodEnv {
	return &MethodEnv{methods: make(map[methodKey]*ast.Node)}
}

func (e *MethodEnv) Exists(cls, method string) bool {
	_, ok := e.methods[methodKey{cls, method}]
	return ok
}

func (e *MethodEnv) Find(cls, method string) *ast.Node {
	return e.methods[methodKey{cls, method}]
}

func (e *MethodEnv) Set(cls string, method *ast.Node) {
	e.methods[methodKey{cls, method.Data.(*ast.MethodNode).Name}] = method
}

// TypeEnvironment is the state of semantic analysis: the object and
// method environments plus the class currently being analyzed (used
// to resolve SELF_TYPE).
type TypeEnvironment struct {
	Objects ObjectEnv
	Methods *MethodEnv
	Cls     *ast.ClassNode
}

// resolve maps SELF_TYPE to the name of the current class and leaves
// every other type untouched.
func (env *TypeEnvironment) resolve(typeName string) string {
	if typeName == util.TypeSelfType {
		return env.Cls.Name
	}
	return typeName
}
