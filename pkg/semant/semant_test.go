package semant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coolr/pkg/ast"
	"coolr/pkg/lexer"
	"coolr/pkg/parser"
	"coolr/pkg/util"
)

func analyze(src string) (*ClassTable, *ast.Node) {
	tokens := lexer.New([]byte(src)).Scan()
	prog := parser.New(tokens).Parse()
	return Analyze(prog), prog
}

// methodBody finds the body of a method in the analyzed program.
func methodBody(t *testing.T, prog *ast.Node, clsName, methodName string) *ast.Node {
	t.Helper()
	for _, cls := range prog.Data.(*ast.ProgramNode).Classes {
		cd := cls.Data.(*ast.ClassNode)
		if cd.Name != clsName {
			continue
		}
		for _, m := range cd.MethodNodes() {
			md := m.Data.(*ast.MethodNode)
			if md.Name == methodName {
				return md.Body
			}
		}
	}
	t.Fatalf("method %s.%s not found", clsName, methodName)
	return nil
}

const diamondSrc = `
class A { };
class B inherits A { };
class C inherits A { };
class D inherits B { };
class Main { main() : Int { 1 }; };
`

func TestLubLaws(t *testing.T) {
	ct, _ := analyze(diamondSrc)

	// lub(a, a) = a
	assert.Equal(t, "A", ct.Lub("A", "A"))

	// lub(a, Object) = Object
	assert.Equal(t, "Object", ct.Lub("B", "Object"))

	// commutativity
	assert.Equal(t, ct.Lub("B", "C"), ct.Lub("C", "B"))

	// nearest common ancestor
	assert.Equal(t, "A", ct.Lub("B", "C"))
	assert.Equal(t, "A", ct.Lub("D", "C"))
	assert.Equal(t, "B", ct.Lub("D", "B"))

	// the lub is an ancestor of both operands
	lub := ct.Lub("D", "C")
	assert.Contains(t, ct.Ancestry("D"), lub)
	assert.Contains(t, ct.Ancestry("C"), lub)

	// unrelated classes meet at Object
	assert.Equal(t, "Object", ct.Lub("Main", "D"))
}

func TestLubAll(t *testing.T) {
	ct, _ := analyze(diamondSrc)
	assert.Equal(t, "A", ct.LubAll([]string{"B", "C", "D"}))
	assert.Equal(t, "B", ct.LubAll([]string{"D", "B"}))
	assert.Equal(t, "Object", ct.LubAll([]string{"Int", "String"}))
}

func TestAncestryTerminatesAtObject(t *testing.T) {
	ct, _ := analyze(diamondSrc)
	for _, name := range ct.Names() {
		ancestry := ct.Ancestry(name)
		require.NotEmpty(t, ancestry)
		assert.Equal(t, name, ancestry[0])
		assert.Equal(t, "Object", ancestry[len(ancestry)-1])
		assert.LessOrEqual(t, len(ancestry), len(ct.Classes))
	}
}

func TestBasicClassesInstalled(t *testing.T) {
	ct, _ := analyze("class Main { main() : Int { 1 }; };")
	for _, name := range []string{"Object", "IO", "Int", "Bool", "String"} {
		assert.True(t, ct.Exists(name), "class %s", name)
	}
	assert.False(t, ct.Exists("SELF_TYPE"))

	// String's layout: a length and the raw bytes
	str := ct.Class("String")
	attrs := str.AttrNodes()
	require.Len(t, attrs, 2)
	assert.Equal(t, "val", attrs[0].Data.(*ast.AttrNode).Name)
	assert.Equal(t, "str_field", attrs[1].Data.(*ast.AttrNode).Name)
}

func TestConditionalLub(t *testing.T) {
	_, prog := analyze(`
class A { };
class B inherits A { };
class C inherits A { };
class Main {
	p : Bool;
	main() : A { if p then (new B) else (new C) fi };
};
`)
	body := methodBody(t, prog, "Main", "main")
	require.Equal(t, ast.Cond, body.Type)
	assert.Equal(t, "A", body.Typ)

	d := body.Data.(*ast.CondNode)
	assert.Equal(t, "Bool", d.Pred.Typ)
	assert.Equal(t, "B", d.Then.Typ)
	assert.Equal(t, "C", d.Else.Typ)
}

func TestSelfTypeDispatch(t *testing.T) {
	_, prog := analyze(`
class A { f() : SELF_TYPE { self }; };
class Main {
	a : A;
	main() : A { a.f() };
};
`)
	// a SELF_TYPE return becomes the receiver's static type
	body := methodBody(t, prog, "Main", "main")
	assert.Equal(t, "A", body.Typ)
}

func TestSelfTypePropagation(t *testing.T) {
	_, prog := analyze(`
class A {
	id() : SELF_TYPE { self };
	chain() : SELF_TYPE { id() };
};
class Main { main() : Int { 1 }; };
`)
	// dispatching on self keeps SELF_TYPE alive
	body := methodBody(t, prog, "A", "chain")
	assert.Equal(t, "SELF_TYPE", body.Typ)
}

func TestCaseTypeIsLubOfBranches(t *testing.T) {
	_, prog := analyze(`
class A { };
class B inherits A { };
class C inherits A { };
class Main {
	x : A;
	main() : A { case x of b : B => b; c : C => c; esac };
};
`)
	body := methodBody(t, prog, "Main", "main")
	require.Equal(t, ast.TypCase, body.Type)
	assert.Equal(t, "A", body.Typ)
}

func TestLetBindingVisibleToLaterInitializers(t *testing.T) {
	// earlier let bindings are in scope for later initializers
	_, prog := analyze(`
class Main {
	main() : Int { let x : Int <- 1, y : Int <- x + 1 in y };
};
`)
	body := methodBody(t, prog, "Main", "main")
	assert.Equal(t, "Int", body.Typ)
}

func TestWhileHasTypeObject(t *testing.T) {
	_, prog := analyze(`
class Main {
	b : Bool;
	main() : Object { while b loop 1 pool };
};
`)
	body := methodBody(t, prog, "Main", "main")
	assert.Equal(t, "Object", body.Typ)
}

func TestMethodOverrideWithExactSignature(t *testing.T) {
	// an exact-signature override is accepted
	ct, _ := analyze(`
class A { m(x : Int) : Bool { true }; };
class B inherits A { m(x : Int) : Bool { false }; };
class Main { main() : Int { 1 }; };
`)
	assert.True(t, ct.Exists("B"))
}

// collectExprs gathers every expression node in the tree.
func collectExprs(n *ast.Node, out *[]*ast.Node) {
	if n == nil {
		return
	}
	switch d := n.Data.(type) {
	case *ast.ProgramNode:
		for _, c := range d.Classes {
			collectExprs(c, out)
		}
	case *ast.ClassNode:
		for _, f := range d.Features {
			collectExprs(f, out)
		}
	case *ast.AttrNode:
		collectExprs(d.Init, out)
	case *ast.MethodNode:
		collectExprs(d.Body, out)
	case *ast.FormalNode:
	case *ast.NoExprNode:
		*out = append(*out, n)
	case *ast.AssignNode:
		*out = append(*out, n)
		collectExprs(d.Expr, out)
	case *ast.UnaryNode:
		*out = append(*out, n)
		collectExprs(d.Expr, out)
	case *ast.BinaryNode:
		*out = append(*out, n)
		collectExprs(d.Left, out)
		collectExprs(d.Right, out)
	case *ast.CondNode:
		*out = append(*out, n)
		collectExprs(d.Pred, out)
		collectExprs(d.Then, out)
		collectExprs(d.Else, out)
	case *ast.LoopNode:
		*out = append(*out, n)
		collectExprs(d.Pred, out)
		collectExprs(d.Body, out)
	case *ast.BlockNode:
		*out = append(*out, n)
		for _, e := range d.Exprs {
			collectExprs(e, out)
		}
	case *ast.LetNode:
		*out = append(*out, n)
		for _, init := range d.Inits {
			collectExprs(init.Data.(*ast.LetInitNode).Expr, out)
		}
		collectExprs(d.Body, out)
	case *ast.CaseNode:
		*out = append(*out, n)
		collectExprs(d.Target, out)
		for _, b := range d.Branches {
			collectExprs(b.Data.(*ast.BranchNode).Expr, out)
		}
	case *ast.DispatchNode:
		*out = append(*out, n)
		collectExprs(d.Recv, out)
		for _, a := range d.Args {
			collectExprs(a, out)
		}
	case *ast.StaticDispatchNode:
		*out = append(*out, n)
		collectExprs(d.Recv, out)
		for _, a := range d.Args {
			collectExprs(a, out)
		}
	default:
		*out = append(*out, n)
	}
}

func TestTypeAnnotationTotality(t *testing.T) {
	_, prog := analyze(`
class A { f(n : Int) : SELF_TYPE { self }; };
class Main inherits IO {
	a : A <- new A;
	s : String;
	main() : Object {
		{
			out_string("x\n");
			a.f(1 + 2 * 3);
			if isvoid a then ~1 else not false fi;
			let y : Int in while y < 1 loop y <- y + 1 pool;
			case a of v : A => v; o : Object => o; esac;
		}
	};
};
`)

	var exprs []*ast.Node
	collectExprs(prog, &exprs)
	require.NotEmpty(t, exprs)

	for _, e := range exprs {
		if e.Type == ast.NoExpr {
			// absent initializers keep the sentinel
			assert.Equal(t, util.TypeNoType, e.Typ)
			continue
		}
		assert.NotEqual(t, util.TypeNoType, e.Typ, "node type %d line %d missing checked type", e.Type, e.Line)
	}
}
