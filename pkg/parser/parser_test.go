package parser

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coolr/pkg/ast"
	"coolr/pkg/lexer"
)

func parseProgram(src string) *ast.Node {
	tokens := lexer.New([]byte(src)).Scan()
	return New(tokens).Parse()
}

// parseExprString wraps an expression in a minimal program and
// returns the parsed method body.
func parseExprString(t *testing.T, expr string) *ast.Node {
	t.Helper()
	prog := parseProgram("class Main { main() : Object { " + expr + " }; };")
	classes := prog.Data.(*ast.ProgramNode).Classes
	require.Len(t, classes, 1)
	features := classes[0].Data.(*ast.ClassNode).Features
	require.Len(t, features, 1)
	return features[0].Data.(*ast.MethodNode).Body
}

func requireBinary(t *testing.T, n *ast.Node, kind ast.NodeType) *ast.BinaryNode {
	t.Helper()
	require.Equal(t, kind, n.Type)
	return n.Data.(*ast.BinaryNode)
}

func intValue(t *testing.T, n *ast.Node) string {
	t.Helper()
	require.Equal(t, ast.Int, n.Type)
	return n.Data.(*ast.IntNode).Value
}

func TestPrecedenceMulOverPlus(t *testing.T) {
	// 1+2*3 parses as Plus(1, Mul(2, 3))
	root := requireBinary(t, parseExprString(t, "1+2*3"), ast.Plus)
	assert.Equal(t, "1", intValue(t, root.Left))
	mul := requireBinary(t, root.Right, ast.Mul)
	assert.Equal(t, "2", intValue(t, mul.Left))
	assert.Equal(t, "3", intValue(t, mul.Right))
}

func TestParenthesesAreOpaque(t *testing.T) {
	// (1+2)*3 parses as Mul(Plus(1, 2), 3)
	root := requireBinary(t, parseExprString(t, "(1+2)*3"), ast.Mul)
	plus := requireBinary(t, root.Left, ast.Plus)
	assert.Equal(t, "1", intValue(t, plus.Left))
	assert.Equal(t, "2", intValue(t, plus.Right))
	assert.Equal(t, "3", intValue(t, root.Right))
}

func TestLeftAssociativity(t *testing.T) {
	// 1-2-3 parses as Sub(Sub(1, 2), 3)
	root := requireBinary(t, parseExprString(t, "1-2-3"), ast.Sub)
	inner := requireBinary(t, root.Left, ast.Sub)
	assert.Equal(t, "1", intValue(t, inner.Left))
	assert.Equal(t, "2", intValue(t, inner.Right))
	assert.Equal(t, "3", intValue(t, root.Right))
}

func TestMixedPrecedenceChain(t *testing.T) {
	// 1*2+3*4 parses as Plus(Mul(1, 2), Mul(3, 4))
	root := requireBinary(t, parseExprString(t, "1*2+3*4"), ast.Plus)
	requireBinary(t, root.Left, ast.Mul)
	requireBinary(t, root.Right, ast.Mul)
}

func TestComparisonBindsLoosest(t *testing.T) {
	// 1+2 < 3*4 parses as Lt(Plus, Mul)
	root := requireBinary(t, parseExprString(t, "1+2 < 3*4"), ast.Lt)
	requireBinary(t, root.Left, ast.Plus)
	requireBinary(t, root.Right, ast.Mul)
}

func TestNotSpansComparison(t *testing.T) {
	// not 1 < 2 parses as Not(Lt(1, 2))
	body := parseExprString(t, "not 1 < 2")
	require.Equal(t, ast.Comp, body.Type)
	requireBinary(t, body.Data.(*ast.UnaryNode).Expr, ast.Lt)
}

func TestNegBindsTighterThanPlus(t *testing.T) {
	// ~1+2 parses as Plus(Neg(1), 2)
	root := requireBinary(t, parseExprString(t, "~1+2"), ast.Plus)
	require.Equal(t, ast.Neg, root.Left.Type)
	assert.Equal(t, "2", intValue(t, root.Right))
}

func TestDispatchBindsTighterThanOperators(t *testing.T) {
	// a+b.f() parses as Plus(a, Dispatch(b, f)), not
	// Dispatch(Plus(a, b), f)
	root := requireBinary(t, parseExprString(t, "a+b.f()"), ast.Plus)
	require.Equal(t, ast.Object, root.Left.Type)
	assert.Equal(t, "a", root.Left.Data.(*ast.ObjectNode).Name)

	require.Equal(t, ast.Dispatch, root.Right.Type)
	d := root.Right.Data.(*ast.DispatchNode)
	assert.Equal(t, "f", d.Method)
	require.Equal(t, ast.Object, d.Recv.Type)
	assert.Equal(t, "b", d.Recv.Data.(*ast.ObjectNode).Name)
}

func TestDispatchResultAsOperand(t *testing.T) {
	// a.f()+b parses as Plus(Dispatch(a, f), b)
	root := requireBinary(t, parseExprString(t, "a.f()+b"), ast.Plus)
	require.Equal(t, ast.Dispatch, root.Left.Type)
	require.Equal(t, ast.Object, root.Right.Type)
}

func TestParenthesizedReceiver(t *testing.T) {
	// (1+2).f() dispatches on the whole parenthesized expression
	body := parseExprString(t, "(1+2).f()")
	require.Equal(t, ast.Dispatch, body.Type)
	d := body.Data.(*ast.DispatchNode)
	requireBinary(t, d.Recv, ast.Plus)
}

func TestChainedDispatch(t *testing.T) {
	body := parseExprString(t, "a.f().g(1)")
	require.Equal(t, ast.Dispatch, body.Type)
	outer := body.Data.(*ast.DispatchNode)
	assert.Equal(t, "g", outer.Method)
	require.Len(t, outer.Args, 1)
	require.Equal(t, ast.Dispatch, outer.Recv.Type)
	assert.Equal(t, "f", outer.Recv.Data.(*ast.DispatchNode).Method)
}

func TestSelfDispatchShorthand(t *testing.T) {
	// f(x) is shorthand for self.f(x)
	body := parseExprString(t, "f(x)")
	require.Equal(t, ast.Dispatch, body.Type)
	d := body.Data.(*ast.DispatchNode)
	assert.Equal(t, "f", d.Method)
	require.Equal(t, ast.Object, d.Recv.Type)
	assert.Equal(t, "self", d.Recv.Data.(*ast.ObjectNode).Name)
	require.Len(t, d.Args, 1)
}

func TestStaticDispatch(t *testing.T) {
	body := parseExprString(t, "a@B.f(1, 2)")
	require.Equal(t, ast.StaticDispatch, body.Type)
	d := body.Data.(*ast.StaticDispatchNode)
	assert.Equal(t, "B", d.StaticType)
	assert.Equal(t, "f", d.Method)
	require.Len(t, d.Args, 2)
	require.Equal(t, ast.Object, d.Recv.Type)
}

func TestAssignSpansBinaryOperators(t *testing.T) {
	// x <- 1 + 2 assigns the whole sum
	body := parseExprString(t, "x <- 1 + 2")
	require.Equal(t, ast.Assign, body.Type)
	requireBinary(t, body.Data.(*ast.AssignNode).Expr, ast.Plus)
}

func TestControlStructures(t *testing.T) {
	body := parseExprString(t, "if x < 1 then 2 else 3 fi")
	require.Equal(t, ast.Cond, body.Type)
	cd := body.Data.(*ast.CondNode)
	requireBinary(t, cd.Pred, ast.Lt)

	body = parseExprString(t, "while x loop y pool")
	require.Equal(t, ast.Loop, body.Type)

	body = parseExprString(t, "{ 1; 2; 3; }")
	require.Equal(t, ast.Block, body.Type)
	require.Len(t, body.Data.(*ast.BlockNode).Exprs, 3)

	body = parseExprString(t, "case x of a : A => 1; b : B => 2; esac")
	require.Equal(t, ast.TypCase, body.Type)
	caseData := body.Data.(*ast.CaseNode)
	require.Len(t, caseData.Branches, 2)
	branch := caseData.Branches[0].Data.(*ast.BranchNode)
	assert.Equal(t, "a", branch.Name)
	assert.Equal(t, "A", branch.TypeName)
}

func TestLetInitializers(t *testing.T) {
	body := parseExprString(t, "let x : Int <- 1, y : String in x")
	require.Equal(t, ast.Let, body.Type)
	d := body.Data.(*ast.LetNode)
	require.Len(t, d.Inits, 2)

	first := d.Inits[0].Data.(*ast.LetInitNode)
	assert.Equal(t, "x", first.Name)
	assert.Equal(t, "Int", first.TypeName)
	require.Equal(t, ast.Int, first.Expr.Type)

	second := d.Inits[1].Data.(*ast.LetInitNode)
	assert.Equal(t, "y", second.Name)
	// no initializer expression
	require.Equal(t, ast.NoExpr, second.Expr.Type)

	require.Equal(t, ast.Object, d.Body.Type)
}

func TestClassStructure(t *testing.T) {
	prog := parseProgram(`class A inherits B {
		x : Int;
		f(a : Int, b : String) : SELF_TYPE { self };
	};
	class Main { main() : Int { 1 }; };`)

	classes := prog.Data.(*ast.ProgramNode).Classes
	require.Len(t, classes, 2)

	a := classes[0].Data.(*ast.ClassNode)
	assert.Equal(t, "A", a.Name)
	assert.Equal(t, "B", a.Base)
	require.Len(t, a.Features, 2)

	attr := a.Features[0].Data.(*ast.AttrNode)
	assert.Equal(t, "x", attr.Name)
	require.Equal(t, ast.NoExpr, attr.Init.Type)

	method := a.Features[1].Data.(*ast.MethodNode)
	assert.Equal(t, "f", method.Name)
	assert.Equal(t, "SELF_TYPE", method.ReturnType)
	require.Len(t, method.Formals, 2)
	assert.Equal(t, "b", method.Formals[1].Data.(*ast.FormalNode).Name)

	main := classes[1].Data.(*ast.ClassNode)
	assert.Equal(t, "Object", main.Base)
}

func TestLetDumpNesting(t *testing.T) {
	prog := parseProgram("class Main { main() : Object { let x : Int <- 1, y : Int in x }; };")

	var buf bytes.Buffer
	ast.Dump(&buf, prog)

	want := `#1
_program
  #1
  _class
    Main
    Object
    (
    #1
    _method
      main
      Object
      #1
      _let
        x
        Int
        #1
        _int
          1
        : _no_type
        #1
        _let
          y
          Int
          #1
          _no_expr
          : _no_type
          #1
          _object
            x
          : _no_type
        : _no_type
      : _no_type
    )
`

	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("let dump mismatch (-want +got):\n%s", diff)
	}
}
