// Package semant implements the semantic analyzer: it builds the
// class table, the global method environment across inherited
// classes, and annotates every expression node with its checked type.
// Analysis halts at the first violation.
package semant

import (
	"fmt"

	"coolr/pkg/ast"
	"coolr/pkg/util"
)

type analyzer struct {
	ct  *ClassTable
	env *TypeEnvironment
}

// Analyze typechecks the program, annotating the AST in place, and
// returns the class table for code generation.
func Analyze(prog *ast.Node) *ClassTable {
	d := prog.Data.(*ast.ProgramNode)

	ct := NewClassTable(d.Classes)
	a := &analyzer{
		ct:  ct,
		env: &TypeEnvironment{Methods: NewMethodEnv()},
	}
	a.buildMethodEnv()

	for _, cls := range d.Classes {
		a.analyzeClass(cls)
	}
	return ct
}

// buildMethodEnv populates the global method environment. For each
// class the ancestry is walked from Object downward, copying every
// ancestor's methods into the class's own entries; a class's own
// methods may override, subject to the exact-signature rules.
func (a *analyzer) buildMethodEnv() {
	for _, name := range a.ct.Names() {
		a.addClassToMethodEnv(a.ct.Classes[name], name)
	}
}

func (a *analyzer) addClassToMethodEnv(cls *ast.Node, clsName string) {
	d := cls.Data.(*ast.ClassNode)

	if d.Name != util.TypeObject {
		// methods are inherited from the parent, so recurse until
		// Object; the target class name stays the same because the
		// parent methods are added to THIS class
		a.addClassToMethodEnv(a.ct.Classes[d.Base], clsName)
	}

	// tracks methods added at this level, to tell overriding apart
	// from a repeated definition within one class
	added := make(map[string]bool)

	for _, method := range d.MethodNodes() {
		md := method.Data.(*ast.MethodNode)

		for _, formal := range md.Formals {
			fd := formal.Data.(*ast.FormalNode)
			if fd.Name == util.Self {
				util.SemantError(formal.Line, "'self' cannot be the name of a formal parameter.")
			}
			if fd.TypeName == util.TypeSelfType {
				util.SemantError(formal.Line, fmt.Sprintf("Formal parameter %s cannot have type SELF_TYPE.", fd.Name))
			}
		}

		if a.env.Methods.Exists(clsName, md.Name) {
			// overriding an inherited method, unless the name was
			// already added by this very class
			if added[md.Name] {
				util.SemantError(method.Line, fmt.Sprintf("Method %s is multiply defined.", md.Name))
			}

			original := a.env.Methods.Find(clsName, md.Name).Data.(*ast.MethodNode)

			// the return type must match exactly, not just conform
			if original.ReturnType != md.ReturnType {
				util.SemantError(method.Line, fmt.Sprintf("Attempted to override method %s with a different return type.", md.Name))
			}

			if len(md.Formals) != len(original.Formals) {
				util.SemantError(method.Line, fmt.Sprintf("Incompatible number of formal parameters in redefined method %s.", md.Name))
			}

			for i, formal := range md.Formals {
				newType := formal.Data.(*ast.FormalNode).TypeName
				origType := original.Formals[i].Data.(*ast.FormalNode).TypeName
				if newType != origType {
					util.SemantError(formal.Line, fmt.Sprintf("In redefined method %s, parameter type %s is different from original type %s.", md.Name, newType, origType))
				}
			}
		}

		added[md.Name] = true
		a.env.Methods.Set(clsName, method)
	}
}

// buildClassObjectEnv adds the attributes of cls and all its
// ancestors to the object environment, root-down. Redeclaring an
// attribute anywhere in the chain is an error.
func (a *analyzer) buildClassObjectEnv(cls *ast.Node) {
	d := cls.Data.(*ast.ClassNode)

	if d.Name != util.TypeObject {
		a.buildClassObjectEnv(a.ct.Classes[d.Base])
	}

	for _, attr := range d.AttrNodes() {
		ad := attr.Data.(*ast.AttrNode)

		if a.env.Objects.Probe(ad.Name) {
			util.SemantError(attr.Line, fmt.Sprintf("Attribute %s is already defined in class %s or an inherited class.", ad.Name, d.Name))
		}
		if ad.Name == util.Self {
			util.SemantError(attr.Line, "'self' cannot be the name of an attribute.")
		}

		a.env.Objects.Add(ad.Name, ad.TypeName)
	}
}

func (a *analyzer) analyzeClass(cls *ast.Node) {
	d := cls.Data.(*ast.ClassNode)

	a.env.Cls = d
	a.env.Objects.EnterScope()

	a.buildClassObjectEnv(cls)
	a.env.Objects.Add(util.Self, util.TypeSelfType)

	for _, feature := range d.Features {
		switch feature.Type {
		case ast.Attr:
			a.analyzeAttribute(feature)
		case ast.Method:
			a.analyzeMethod(feature)
		}
	}

	a.env.Objects.ExitScope()
}

func (a *analyzer) analyzeAttribute(attr *ast.Node) {
	d := attr.Data.(*ast.AttrNode)

	inferred := a.typecheck(d.Init)
	resolvedInferred := a.env.resolve(inferred)

	if resolvedInferred != util.TypeNoType {
		resolvedDeclared := a.env.resolve(d.TypeName)
		if a.ct.Lub(resolvedInferred, resolvedDeclared) != resolvedDeclared {
			util.SemantError(d.Init.Line, fmt.Sprintf("Inferred type of initialization expression %s does not match declared type %s.", inferred, d.TypeName))
		}
	}
}

func (a *analyzer) analyzeMethod(method *ast.Node) {
	d := method.Data.(*ast.MethodNode)

	if d.ReturnType != util.TypeSelfType && !a.ct.Exists(d.ReturnType) {
		util.SemantError(method.Line, fmt.Sprintf("Undefined return type %s in method %s.", d.ReturnType, d.Name))
	}

	a.env.Objects.EnterScope()

	// the formals are in scope for the method body. Probe rather
	// than Lookup: shadowing an attribute is legal, repeating a
	// formal is not
	for _, formal := range d.Formals {
		fd := formal.Data.(*ast.FormalNode)
		if a.env.Objects.Probe(fd.Name) {
			util.SemantError(formal.Line, fmt.Sprintf("Formal parameter %s is multiply defined.", fd.Name))
		}
		a.env.Objects.Add(fd.Name, fd.TypeName)
	}

	inferred := a.typecheck(d.Body)
	resolvedInferred := a.env.resolve(inferred)
	resolvedReturn := a.env.resolve(d.ReturnType)

	// a declared SELF_TYPE return requires the body to actually be
	// SELF_TYPE; a merely conforming concrete type would let
	// subclasses return the parent class
	if (d.ReturnType == util.TypeSelfType && inferred != util.TypeSelfType) ||
		a.ct.Lub(resolvedReturn, resolvedInferred) != resolvedReturn {
		util.SemantError(d.Body.Line, fmt.Sprintf("Inferred return type %s of method %s does not conform to declared return type %s.", inferred, d.Name, d.ReturnType))
	}

	a.env.Objects.ExitScope()
}

// typecheck infers the type of an expression, annotates the node,
// and returns the inferred type. SELF_TYPE is propagated unchanged
// where the rules call for it.
func (a *analyzer) typecheck(n *ast.Node) string {
	result := a.inferType(n)
	n.Typ = result
	return result
}

func (a *analyzer) inferType(n *ast.Node) string {
	env := a.env

	switch d := n.Data.(type) {
	case *ast.NoExprNode:
		return util.TypeNoType

	case *ast.IntNode:
		return util.TypeInt

	case *ast.StringNode:
		return util.TypeString

	case *ast.BoolNode:
		return util.TypeBool

	case *ast.ObjectNode:
		if d.Name == util.Self {
			return util.TypeSelfType
		}
		typ := env.Objects.Lookup(d.Name)
		if typ == "" {
			util.SemantError(n.Line, fmt.Sprintf("Undeclared identifier %s.", d.Name))
		}
		return typ

	case *ast.AssignNode:
		if d.Name == util.Self {
			util.SemantError(n.Line, "Cannot assign to 'self'.")
		}
		declared := env.Objects.Lookup(d.Name)
		if declared == "" {
			util.SemantError(n.Line, "Target identifier has not been declared")
		}

		inferred := a.typecheck(d.Expr)
		resolvedDeclared := env.resolve(declared)
		resolvedInferred := env.resolve(inferred)

		if a.ct.Lub(resolvedDeclared, resolvedInferred) != resolvedDeclared {
			util.SemantError(n.Line, fmt.Sprintf("Type %s of assigned expression does not conform to declared type %s of identifier %s.", inferred, declared, d.Name))
		}
		return inferred

	case *ast.NewNode:
		if !a.ct.Exists(env.resolve(d.TypeName)) {
			util.SemantError(n.Line, fmt.Sprintf("'new' keyword used with undefined type %s", d.TypeName))
		}
		return d.TypeName

	case *ast.UnaryNode:
		inferred := a.typecheck(d.Expr)
		switch n.Type {
		case ast.IsVoid:
			// isvoid accepts any expression
			return util.TypeBool
		case ast.Neg:
			if inferred != util.TypeInt {
				util.SemantError(d.Expr.Line, fmt.Sprintf("Invalid type %s for integer complement operation.", inferred))
			}
			return util.TypeInt
		default: // not
			if inferred != util.TypeBool {
				util.SemantError(d.Expr.Line, fmt.Sprintf("Invalid type %s for not operation.", inferred))
			}
			return util.TypeBool
		}

	case *ast.BinaryNode:
		first := a.typecheck(d.Left)
		second := a.typecheck(d.Right)

		if n.Type == ast.Eq {
			// eq is defined for all types, but a basic type may
			// only be compared with itself
			basic := func(t string) bool {
				return t == util.TypeInt || t == util.TypeString || t == util.TypeBool
			}
			if (basic(first) || basic(second)) && first != second {
				util.SemantError(n.Line, "Illegal comparison with a basic type.")
			}
			return util.TypeBool
		}

		if first != util.TypeInt || second != util.TypeInt {
			util.SemantError(n.Line, fmt.Sprintf("non-Int arguments: %s + %s", first, second))
		}
		switch n.Type {
		case ast.Lt, ast.Leq:
			return util.TypeBool
		default:
			return util.TypeInt
		}

	case *ast.CondNode:
		predType := a.typecheck(d.Pred)
		thenType := a.typecheck(d.Then)
		elseType := a.typecheck(d.Else)

		if predType != util.TypeBool {
			util.SemantError(d.Pred.Line, fmt.Sprintf("Conditional predicate must be Bool, not %s.", predType))
		}

		if thenType == util.TypeSelfType && elseType == util.TypeSelfType {
			return util.TypeSelfType
		}
		return a.ct.Lub(env.resolve(thenType), env.resolve(elseType))

	case *ast.LoopNode:
		predType := a.typecheck(d.Pred)
		a.typecheck(d.Body)

		if predType != util.TypeBool {
			util.SemantError(d.Pred.Line, "Loop condition does not have type Bool.")
		}
		return util.TypeObject

	case *ast.BlockNode:
		var last string
		for _, expr := range d.Exprs {
			last = a.typecheck(expr)
		}
		return last

	case *ast.CaseNode:
		a.typecheck(d.Target)

		var declaredTypes []string
		var branchTypes []string
		allSelfType := true

		for _, branch := range d.Branches {
			bd := branch.Data.(*ast.BranchNode)

			// the branch identifier is in scope in the branch body
			env.Objects.EnterScope()
			env.Objects.Add(bd.Name, bd.TypeName)

			branchType := a.typecheck(bd.Expr)
			if branchType != util.TypeSelfType {
				allSelfType = false
			}

			for _, prev := range declaredTypes {
				if prev == bd.TypeName {
					util.SemantError(bd.Expr.Line, fmt.Sprintf("Duplicate branch %s in case statement.", bd.TypeName))
				}
			}
			declaredTypes = append(declaredTypes, bd.TypeName)
			branchTypes = append(branchTypes, env.resolve(branchType))

			env.Objects.ExitScope()
		}

		if allSelfType {
			return util.TypeSelfType
		}
		return a.ct.LubAll(branchTypes)

	case *ast.LetNode:
		// the let variables are visible in the body and in the
		// initializers that follow their own
		env.Objects.EnterScope()

		for _, init := range d.Inits {
			id := init.Data.(*ast.LetInitNode)
			initType := a.typecheck(id.Expr)

			if id.Name == util.Self {
				util.SemantError(id.Expr.Line, "'self' cannot be bound in a 'let' expression.")
			}

			resolvedInit := env.resolve(initType)
			resolvedDeclared := env.resolve(id.TypeName)

			// an initializer expression is optional, so no-type
			// passes
			if resolvedInit != util.TypeNoType {
				if a.ct.Lub(resolvedInit, resolvedDeclared) != resolvedDeclared {
					util.SemantError(id.Expr.Line, fmt.Sprintf("Inferred type %s of initialization of %s does not conform to identifier's declared type %s.", initType, id.Name, id.TypeName))
				}
			}

			env.Objects.Add(id.Name, id.TypeName)
		}

		bodyType := a.typecheck(d.Body)
		for _, init := range d.Inits {
			init.Typ = bodyType
		}

		env.Objects.ExitScope()
		return bodyType

	case *ast.DispatchNode:
		objType := a.typecheck(d.Recv)
		resolvedClass := env.resolve(objType)

		if !env.Methods.Exists(resolvedClass, d.Method) {
			util.SemantError(d.Recv.Line, fmt.Sprintf("Dispatch to undefined method %s.", d.Method))
		}

		method := env.Methods.Find(resolvedClass, d.Method)
		md := method.Data.(*ast.MethodNode)

		if len(d.Args) != len(md.Formals) {
			util.SemantError(method.Line, fmt.Sprintf("Method %s in class %s takes %d argument(s), %d argument(s) provided.", d.Method, resolvedClass, len(md.Formals), len(d.Args)))
		}

		for i, arg := range d.Args {
			fd := md.Formals[i].Data.(*ast.FormalNode)
			argType := a.typecheck(arg)
			resolvedArg := env.resolve(argType)

			if a.ct.Lub(fd.TypeName, resolvedArg) != fd.TypeName {
				util.SemantError(arg.Line, fmt.Sprintf("In call of method %s, type %s of parameter %s does not conform to declared type %s.", d.Method, argType, fd.Name, fd.TypeName))
			}
		}

		// a SELF_TYPE return refers to the class of the receiver,
		// not the class under analysis
		if md.ReturnType == util.TypeSelfType {
			return objType
		}
		return md.ReturnType

	case *ast.StaticDispatchNode:
		objType := a.typecheck(d.Recv)
		resolvedStatic := env.resolve(d.StaticType)
		resolvedObj := env.resolve(objType)

		if a.ct.Lub(resolvedObj, resolvedStatic) != resolvedStatic {
			util.SemantError(d.Recv.Line, fmt.Sprintf("Expression type %s does not conform to declared static dispatch type %s.", objType, d.StaticType))
		}

		if !env.Methods.Exists(resolvedStatic, d.Method) {
			util.SemantError(d.Recv.Line, fmt.Sprintf("Dispatch to undefined method %s.", d.Method))
		}

		method := env.Methods.Find(resolvedStatic, d.Method)
		md := method.Data.(*ast.MethodNode)

		if len(d.Args) != len(md.Formals) {
			util.SemantError(method.Line, fmt.Sprintf("Method %s in class %s takes %d argument(s), %d argument(s) provided.", d.Method, resolvedStatic, len(md.Formals), len(d.Args)))
		}

		for i, arg := range d.Args {
			fd := md.Formals[i].Data.(*ast.FormalNode)
			argType := a.typecheck(arg)
			resolvedArg := env.resolve(argType)

			if a.ct.Lub(fd.TypeName, resolvedArg) != fd.TypeName {
				util.SemantError(arg.Line, fmt.Sprintf("Parameter %d of method %s in class %s accepts expressions of type %s, type %s provided.", i+1, d.Method, resolvedStatic, fd.TypeName, argType))
			}
		}

		if md.ReturnType == util.TypeSelfType {
			return objType
		}
		return md.ReturnType

	default:
		panic(fmt.Sprintf("semant: unexpected node type %d", n.Type))
	}
}
