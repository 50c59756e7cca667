package ast

import (
	"fmt"
	"io"
	"strings"

	"coolr/pkg/util"
)

// Dump writes the tree rooted at n in the layout of the Stanford
// support code, so the output can be checked against its grading
// tests. Expression nodes close with a `: <type>` line; before
// semantic analysis that type is the no-type sentinel.
func Dump(w io.Writer, n *Node) {
	dump(w, n, 0)
}

func pad(w io.Writer, spaces int, format string, args ...interface{}) {
	fmt.Fprint(w, strings.Repeat(" ", spaces))
	fmt.Fprintf(w, format+"\n", args...)
}

func head(w io.Writer, n *Node, spaces int, tag string) {
	pad(w, spaces, "#%d", n.Line)
	pad(w, spaces, "%s", tag)
}

func typeSuffix(w io.Writer, n *Node, spaces int) {
	pad(w, spaces, ": %s", n.Typ)
}

func dump(w io.Writer, n *Node, spaces int) {
	switch d := n.Data.(type) {
	case *ProgramNode:
		head(w, n, spaces, "_program")
		for _, cls := range d.Classes {
			dump(w, cls, spaces+2)
		}

	case *ClassNode:
		head(w, n, spaces, "_class")
		pad(w, spaces+2, "%s", d.Name)
		pad(w, spaces+2, "%s", d.Base)
		pad(w, spaces+2, "(")
		for _, feature := range d.Features {
			dump(w, feature, spaces+2)
		}
		pad(w, spaces+2, ")")

	case *AttrNode:
		head(w, n, spaces, "_attr")
		pad(w, spaces+2, "%s", d.Name)
		pad(w, spaces+2, "%s", d.TypeName)
		dump(w, d.Init, spaces+2)

	case *MethodNode:
		head(w, n, spaces, "_method")
		pad(w, spaces+2, "%s", d.Name)
		for _, formal := range d.Formals {
			dump(w, formal, spaces+2)
		}
		pad(w, spaces+2, "%s", d.ReturnType)
		dump(w, d.Body, spaces+2)

	case *FormalNode:
		head(w, n, spaces, "_formal")
		pad(w, spaces+2, "%s", d.Name)
		pad(w, spaces+2, "%s", d.TypeName)

	case *NoExprNode:
		head(w, n, spaces, "_no_expr")
		typeSuffix(w, n, spaces)

	case *IntNode:
		head(w, n, spaces, "_int")
		pad(w, spaces+2, "%s", d.Value)
		typeSuffix(w, n, spaces)

	case *StringNode:
		head(w, n, spaces, "_string")
		pad(w, spaces+2, "%s", util.Quote(d.Value))
		typeSuffix(w, n, spaces)

	case *BoolNode:
		head(w, n, spaces, "_bool")
		value := 0
		if d.Value {
			value = 1
		}
		pad(w, spaces+2, "%d", value)
		typeSuffix(w, n, spaces)

	case *ObjectNode:
		head(w, n, spaces, "_object")
		pad(w, spaces+2, "%s", d.Name)
		typeSuffix(w, n, spaces)

	case *AssignNode:
		head(w, n, spaces, "_assign")
		pad(w, spaces+2, "%s", d.Name)
		dump(w, d.Expr, spaces+2)
		typeSuffix(w, n, spaces)

	case *NewNode:
		head(w, n, spaces, "_new")
		pad(w, spaces+2, "%s", d.TypeName)
		typeSuffix(w, n, spaces)

	case *UnaryNode:
		head(w, n, spaces, unaryTag(n.Type))
		dump(w, d.Expr, spaces+2)
		typeSuffix(w, n, spaces)

	case *BinaryNode:
		head(w, n, spaces, binaryTag(n.Type))
		dump(w, d.Left, spaces+2)
		dump(w, d.Right, spaces+2)
		typeSuffix(w, n, spaces)

	case *CondNode:
		head(w, n, spaces, "_cond")
		dump(w, d.Pred, spaces+2)
		dump(w, d.Then, spaces+2)
		dump(w, d.Else, spaces+2)
		typeSuffix(w, n, spaces)

	case *LoopNode:
		head(w, n, spaces, "_loop")
		dump(w, d.Pred, spaces+2)
		dump(w, d.Body, spaces+2)
		typeSuffix(w, n, spaces)

	case *BlockNode:
		head(w, n, spaces, "_block")
		for _, expr := range d.Exprs {
			dump(w, expr, spaces+2)
		}
		typeSuffix(w, n, spaces)

	case *LetNode:
		dumpLet(w, n, d, spaces)

	case *LetInitNode:
		head(w, n, spaces, "_let")
		pad(w, spaces+2, "%s", d.Name)
		pad(w, spaces+2, "%s", d.TypeName)
		dump(w, d.Expr, spaces+2)

	case *CaseNode:
		head(w, n, spaces, "_typcase")
		dump(w, d.Target, spaces+2)
		for _, branch := range d.Branches {
			dump(w, branch, spaces+2)
		}
		typeSuffix(w, n, spaces)

	case *BranchNode:
		head(w, n, spaces, "_branch")
		pad(w, spaces+2, "%s", d.Name)
		pad(w, spaces+2, "%s", d.TypeName)
		dump(w, d.Expr, spaces+2)

	case *DispatchNode:
		head(w, n, spaces, "_dispatch")
		dump(w, d.Recv, spaces+2)
		pad(w, spaces+2, "%s", d.Method)
		pad(w, spaces+2, "(")
		for _, arg := range d.Args {
			dump(w, arg, spaces+2)
		}
		pad(w, spaces+2, ")")
		typeSuffix(w, n, spaces)

	case *StaticDispatchNode:
		head(w, n, spaces, "_static_dispatch")
		dump(w, d.Recv, spaces+2)
		pad(w, spaces+2, "%s", d.StaticType)
		pad(w, spaces+2, "%s", d.Method)
		pad(w, spaces+2, "(")
		for _, arg := range d.Args {
			dump(w, arg, spaces+2)
		}
		pad(w, spaces+2, ")")
		typeSuffix(w, n, spaces)
	}
}

// dumpLet flattens a let with multiple initializers into the nested
// `_let` layout the grading tests expect: every initializer after the
// first prints as a nested _let, each one indented two more spaces,
// with the body at the deepest level.
func dumpLet(w io.Writer, n *Node, d *LetNode, spaces int) {
	first := d.Inits[0].Data.(*LetInitNode)
	head(w, n, spaces, "_let")
	pad(w, spaces+2, "%s", first.Name)
	pad(w, spaces+2, "%s", first.TypeName)
	dump(w, first.Expr, spaces+2)

	extra := 2
	for _, init := range d.Inits[1:] {
		dump(w, init, spaces+extra)
		extra += 2
	}

	dump(w, d.Body, spaces+extra)

	for i := len(d.Inits) - 1; i > 0; i-- {
		extra -= 2
		pad(w, spaces+extra, ": %s", d.Inits[i].Typ)
	}

	typeSuffix(w, n, spaces)
}

func unaryTag(t NodeType) string {
	switch t {
	case IsVoid:
		return "_isvoid"
	case Neg:
		return "_neg"
	case Comp:
		return "_comp"
	}
	return "_unary"
}

func binaryTag(t NodeType) string {
	switch t {
	case Plus:
		return "_plus"
	case Sub:
		return "_sub"
	case Mul:
		return "_mul"
	case Divide:
		return "_divide"
	case Lt:
		return "_lt"
	case Leq:
		return "_leq"
	case Eq:
		return "_eq"
	}
	return "_binary"
}
