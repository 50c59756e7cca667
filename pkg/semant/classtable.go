package semant

import (
	"fmt"
	"sort"

	"coolr/pkg/ast"
	"coolr/pkg/util"
)

// ClassTable stores class definitions by name and validates the class
// hierarchy: reserved names, multiple definitions, illegal base
// classes, the Main entry point, and the shape of the inheritance
// graph.
type ClassTable struct {
	Classes map[string]*ast.Node
}

func installBasicClasses(classes map[string]*ast.Node) {
	method := func(name string, returnType string, formals ...*ast.Node) *ast.Node {
		return ast.NewMethod(0, name, formals, returnType, nil)
	}
	formal := func(name, typeName string) *ast.Node {
		return ast.NewFormal(0, name, typeName)
	}
	attr := func(name, typeName string) *ast.Node {
		return ast.NewAttr(0, name, typeName, ast.NewNoExpr(0, typeName))
	}

	object := ast.NewClass(0, util.TypeObject, "")
	object.Data.(*ast.ClassNode).Features = []*ast.Node{
		method("abort", util.TypeObject),
		method("type_name", util.TypeString),
		method("copy", util.TypeSelfType),
	}

	io := ast.NewClass(0, util.TypeIO, util.TypeObject)
	io.Data.(*ast.ClassNode).Features = []*ast.Node{
		method("out_string", util.TypeSelfType, formal("arg", util.TypeString)),
		method("out_int", util.TypeSelfType, formal("arg", util.TypeInt)),
		method("in_string", util.TypeString),
		method("in_int", util.TypeInt),
	}

	intClass := ast.NewClass(0, util.TypeInt, util.TypeObject)
	intClass.Data.(*ast.ClassNode).Features = []*ast.Node{
		attr(util.AttrVal, util.TypePrimSlot),
	}

	boolClass := ast.NewClass(0, util.TypeBool, util.TypeObject)
	boolClass.Data.(*ast.ClassNode).Features = []*ast.Node{
		attr(util.AttrVal, util.TypePrimSlot),
	}

	stringClass := ast.NewClass(0, util.TypeString, util.TypeObject)
	stringClass.Data.(*ast.ClassNode).Features = []*ast.Node{
		attr(util.AttrVal, util.TypeInt),
		attr(util.AttrStrField, util.TypePrimSlot),
		method("length", util.TypeInt),
		method("concat", util.TypeString, formal("arg", util.TypeString)),
		method("substr", util.TypeString, formal("arg1", util.TypeInt), formal("arg2", util.TypeInt)),
	}

	classes[util.TypeObject] = object
	classes[util.TypeIO] = io
	classes[util.TypeInt] = intClass
	classes[util.TypeBool] = boolClass
	classes[util.TypeString] = stringClass
}

// NewClassTable builds the table from the user classes, installing
// the basic classes first. Any violation halts compilation.
func NewClassTable(classes []*ast.Node) *ClassTable {
	ct := &ClassTable{Classes: make(map[string]*ast.Node)}
	installBasicClasses(ct.Classes)

	for _, cls := range classes {
		d := cls.Data.(*ast.ClassNode)

		switch d.Name {
		case util.TypeInt, util.TypeString, util.TypeBool, util.TypeIO, util.TypeObject, util.TypeSelfType:
			util.SemantError(cls.Line, fmt.Sprintf("Redefinition of basic class %s.", d.Name))
		}

		if _, ok := ct.Classes[d.Name]; ok {
			util.SemantError(cls.Line, fmt.Sprintf("Class %s was previously defined.", d.Name))
		}

		switch d.Base {
		case util.TypeInt, util.TypeString, util.TypeBool, util.TypeSelfType:
			util.SemantError(cls.Line, fmt.Sprintf("Class %s cannot inherit class %s.", d.Name, d.Base))
		}

		ct.Classes[d.Name] = cls
	}

	main, ok := ct.Classes[util.TypeMain]
	if !ok {
		util.SemantError(0, "Class Main is not defined.")
	}

	mainMethodExists := false
	for _, m := range main.Data.(*ast.ClassNode).MethodNodes() {
		if m.Data.(*ast.MethodNode).Name == util.MethodMain {
			mainMethodExists = true
			break
		}
	}
	if !mainMethodExists {
		util.SemantError(main.Line, "No main() method defined in Main.")
	}

	ct.checkInheritanceGraph()
	return ct
}

func (ct *ClassTable) checkInheritanceGraph() {
	// the base-class references of the class nodes already form an
	// adjacency-list representation of the graph

	// verify that all parent classes exist
	for _, name := range ct.Names() {
		if name == util.TypeObject {
			continue
		}
		cls := ct.Classes[name]
		base := cls.Data.(*ast.ClassNode).Base
		if _, ok := ct.Classes[base]; !ok {
			util.SemantError(cls.Line, fmt.Sprintf("Class %s inherits from an undefined class %s.", name, base))
		}
	}

	// walk the ancestors of every class; revisiting the start node,
	// or failing to reach Object within |classes| steps, is a cycle
	for _, name := range ct.Names() {
		cls := ct.Classes[name]
		ancestor := name
		ancestorClass := cls
		for steps := 0; ancestor != util.TypeObject; steps++ {
			ancestor = ancestorClass.Data.(*ast.ClassNode).Base
			if ancestor == name || steps > len(ct.Classes) {
				util.SemantError(cls.Line, fmt.Sprintf("Class %s directly or indirectly inherits from itself.", name))
			}
			ancestorClass = ct.Classes[ancestor]
		}
	}
}

// Names returns all class names in sorted order.
func (ct *ClassTable) Names() []string {
	names := make([]string, 0, len(ct.Classes))
	for name := range ct.Classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ct *ClassTable) Exists(name string) bool {
	_, ok := ct.Classes[name]
	return ok
}

// Class returns the data of the named class; the name must exist.
func (ct *ClassTable) Class(name string) *ast.ClassNode {
	cls, ok := ct.Classes[name]
	if !ok {
		panic(fmt.Sprintf("semant: unknown class %s", name))
	}
	return cls.Data.(*ast.ClassNode)
}

// Ancestry returns name, its parent, and so on up to Object.
func (ct *ClassTable) Ancestry(name string) []string {
	var ancestry []string
	node := name
	for node != util.TypeObject {
		ancestry = append(ancestry, node)
		node = ct.Class(node).Base
	}
	return append(ancestry, util.TypeObject)
}

// Lub returns the least upper bound of two classes: the first entry
// of a's ancestry that appears in b's. Object is the fallback.
func (ct *ClassTable) Lub(a, b string) string {
	ancestryA := ct.Ancestry(a)
	ancestryB := ct.Ancestry(b)

	for _, ca := range ancestryA {
		for _, cb := range ancestryB {
			if ca == cb {
				return ca
			}
		}
	}
	return util.TypeObject
}

// LubAll folds Lub over a non-empty list of class names.
func (ct *ClassTable) LubAll(names []string) string {
	lub := names[0]
	for _, name := range names {
		lub = ct.Lub(lub, name)
	}
	return lub
}
