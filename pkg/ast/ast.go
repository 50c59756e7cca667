// Package ast defines the abstract syntax tree of a COOL program.
// Each node carries its source line and, for expressions, the type
// assigned during semantic analysis.
package ast

import "coolr/pkg/util"

type NodeType int

const (
	Program NodeType = iota
	Class
	Attr
	Method
	Formal

	// expressions
	NoExpr
	Int
	String
	Bool
	Object
	Assign
	New
	IsVoid
	Plus
	Sub
	Mul
	Divide
	Lt
	Leq
	Eq
	Neg
	Comp
	Cond
	Loop
	Block
	Let
	LetInit
	TypCase
	Branch
	Dispatch
	StaticDispatch
)

type Associativity int

const (
	AssocLeft Associativity = iota
	AssocNone
)

// Node is one AST node. Data holds the variant payload; Typ is the
// checked type of an expression node, the no-type sentinel until
// semantic analysis assigns it. Parent and Paren exist for the
// operator-rotation pass in the parser: Parent links are only valid
// while the parser climbs an operator sub-tree, and Paren marks a
// parenthesized operator node as opaque to rotation.
type Node struct {
	Type   NodeType
	Line   int
	Typ    string
	Parent *Node
	Paren  bool
	Data   interface{}
}

// --- node data structs ---

type ProgramNode struct{ Classes []*Node }
type ClassNode struct {
	Name     string
	Base     string
	Features []*Node
}
type AttrNode struct {
	Name     string
	TypeName string
	Init     *Node
}
type MethodNode struct {
	Name       string
	Formals    []*Node
	ReturnType string
	Body       *Node
}
type FormalNode struct{ Name, TypeName string }

type NoExprNode struct{ DeclaredType string }
type IntNode struct{ Value string }
type StringNode struct{ Value string }
type BoolNode struct{ Value bool }
type ObjectNode struct{ Name string }
type AssignNode struct {
	Name string
	Expr *Node
}
type NewNode struct{ TypeName string }
type UnaryNode struct{ Expr *Node }
type BinaryNode struct{ Left, Right *Node }
type CondNode struct{ Pred, Then, Else *Node }
type LoopNode struct{ Pred, Body *Node }
type BlockNode struct{ Exprs []*Node }
type LetNode struct {
	Inits []*Node
	Body  *Node
}
type LetInitNode struct {
	Name     string
	TypeName string
	Expr     *Node
}
type CaseNode struct {
	Target   *Node
	Branches []*Node
}
type BranchNode struct {
	Name     string
	TypeName string
	Expr     *Node
}
type DispatchNode struct {
	Recv   *Node
	Method string
	Args   []*Node
}
type StaticDispatchNode struct {
	Recv       *Node
	StaticType string
	Method     string
	Args       []*Node
}

// --- constructors ---

func newNode(t NodeType, line int, data interface{}) *Node {
	return &Node{Type: t, Line: line, Typ: util.TypeNoType, Data: data}
}

func NewProgram(line int, classes []*Node) *Node {
	return newNode(Program, line, &ProgramNode{Classes: classes})
}
func NewClass(line int, name, base string) *Node {
	return newNode(Class, line, &ClassNode{Name: name, Base: base})
}
func NewAttr(line int, name, typeName string, init *Node) *Node {
	return newNode(Attr, line, &AttrNode{Name: name, TypeName: typeName, Init: init})
}
func NewMethod(line int, name string, formals []*Node, returnType string, body *Node) *Node {
	return newNode(Method, line, &MethodNode{Name: name, Formals: formals, ReturnType: returnType, Body: body})
}
func NewFormal(line int, name, typeName string) *Node {
	return newNode(Formal, line, &FormalNode{Name: name, TypeName: typeName})
}
func NewNoExpr(line int, declaredType string) *Node {
	return newNode(NoExpr, line, &NoExprNode{DeclaredType: declaredType})
}
func NewInt(line int, value string) *Node {
	return newNode(Int, line, &IntNode{Value: value})
}
func NewString(line int, value string) *Node {
	return newNode(String, line, &StringNode{Value: value})
}
func NewBool(line int, value bool) *Node {
	return newNode(Bool, line, &BoolNode{Value: value})
}
func NewObject(line int, name string) *Node {
	return newNode(Object, line, &ObjectNode{Name: name})
}
func NewAssign(line int, name string, expr *Node) *Node {
	return newNode(Assign, line, &AssignNode{Name: name, Expr: expr})
}
func NewNew(line int, typeName string) *Node {
	return newNode(New, line, &NewNode{TypeName: typeName})
}
func NewUnary(t NodeType, line int) *Node {
	return newNode(t, line, &UnaryNode{})
}
func NewBinary(t NodeType, line int) *Node {
	return newNode(t, line, &BinaryNode{})
}
func NewCond(line int, pred, then, els *Node) *Node {
	return newNode(Cond, line, &CondNode{Pred: pred, Then: then, Else: els})
}
func NewLoop(line int, pred, body *Node) *Node {
	return newNode(Loop, line, &LoopNode{Pred: pred, Body: body})
}
func NewBlock(line int, exprs []*Node) *Node {
	return newNode(Block, line, &BlockNode{Exprs: exprs})
}
func NewLet(line int) *Node {
	return newNode(Let, line, &LetNode{})
}
func NewLetInit(line int, name, typeName string, expr *Node) *Node {
	return newNode(LetInit, line, &LetInitNode{Name: name, TypeName: typeName, Expr: expr})
}
func NewCase(line int, target *Node) *Node {
	return newNode(TypCase, line, &CaseNode{Target: target})
}
func NewBranch(line int, name, typeName string, expr *Node) *Node {
	return newNode(Branch, line, &BranchNode{Name: name, TypeName: typeName, Expr: expr})
}
func NewDispatch(line int, recv *Node, method string, args []*Node) *Node {
	return newNode(Dispatch, line, &DispatchNode{Recv: recv, Method: method, Args: args})
}
func NewStaticDispatch(line int, recv *Node, staticType, method string, args []*Node) *Node {
	return newNode(StaticDispatch, line, &StaticDispatchNode{Recv: recv, StaticType: staticType, Method: method, Args: args})
}

// AttrNodes returns the class's attribute features in declaration
// order.
func (c *ClassNode) AttrNodes() []*Node {
	var attrs []*Node
	for _, f := range c.Features {
		if f.Type == Attr {
			attrs = append(attrs, f)
		}
	}
	return attrs
}

// MethodNodes returns the class's method features in declaration
// order.
func (c *ClassNode) MethodNodes() []*Node {
	var methods []*Node
	for _, f := range c.Features {
		if f.Type == Method {
			methods = append(methods, f)
		}
	}
	return methods
}

// --- operator metadata, used transiently during parsing ---

// Precedence returns the binding strength of an operator node;
// smaller binds tighter.
func Precedence(t NodeType) int {
	switch t {
	case Neg:
		return 2
	case IsVoid:
		return 3
	case Mul, Divide:
		return 4
	case Plus, Sub:
		return 5
	case Lt, Leq, Eq:
		return 6
	case Comp:
		return 7
	default:
		return -1
	}
}

func Assoc(t NodeType) Associativity {
	switch t {
	case Lt, Leq, Eq:
		return AssocNone
	default:
		return AssocLeft
	}
}

// IsOperation reports whether n is an operator node that takes part
// in precedence rotation.
func IsOperation(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case Plus, Sub, Mul, Divide, Lt, Leq, Eq, Neg, Comp, IsVoid:
		return true
	default:
		return false
	}
}

func IsBinaryOp(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Type {
	case Plus, Sub, Mul, Divide, Lt, Leq, Eq:
		return true
	default:
		return false
	}
}

// Last returns the right-most operand of an operator node.
func Last(n *Node) *Node {
	switch d := n.Data.(type) {
	case *BinaryNode:
		return d.Right
	case *UnaryNode:
		return d.Expr
	default:
		return nil
	}
}

// SetLast replaces the right-most operand of an operator node.
func SetLast(n *Node, e *Node) {
	switch d := n.Data.(type) {
	case *BinaryNode:
		d.Right = e
	case *UnaryNode:
		d.Expr = e
	}
}
