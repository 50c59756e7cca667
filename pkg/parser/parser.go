// Package parser builds the AST by recursive descent. Expressions are
// parsed in two steps: a head expression, then a post pass that
// absorbs binary operators and dispatches, rotating operator
// sub-trees to enforce precedence and associativity.
package parser

import (
	"coolr/pkg/ast"
	"coolr/pkg/token"
	"coolr/pkg/util"
)

type Parser struct {
	tokens []token.Token
	pos    int
}

func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// --- token stream helpers ---

func (p *Parser) eof() bool { return p.pos >= len(p.tokens) }

func (p *Parser) get() (token.Token, bool) {
	if p.eof() {
		return token.Token{}, false
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, true
}

func (p *Parser) peek() (token.Token, bool) {
	if p.eof() {
		return token.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) unget(n int) { p.pos -= n }

func (p *Parser) consume() {
	if !p.eof() {
		p.pos++
	}
}

// lineNumber is the line of the most recently consumed token.
func (p *Parser) lineNumber() int {
	if p.pos >= 1 && p.pos <= len(p.tokens) {
		return p.tokens[p.pos-1].Line
	}
	return 1
}

// errorAt aborts with a syntax error for tok; ok is false when the
// stream ended unexpectedly.
func (p *Parser) errorAt(tok token.Token, ok bool) {
	if !ok {
		util.ParserError(p.lineNumber(), "EOF")
	}
	util.ParserError(tok.Line, tok.Display())
}

func (p *Parser) errorNext() {
	tok, ok := p.get()
	p.errorAt(tok, ok)
}

// peekIs reports whether the next token has the supplied type; an
// exhausted stream is a syntax error.
func (p *Parser) peekIs(t token.Type) bool {
	tok, ok := p.peek()
	if !ok {
		p.errorNext()
	}
	return tok.Type == t
}

// mustGet consumes the next token, requiring it to have the supplied
// type.
func (p *Parser) mustGet(t token.Type) token.Token {
	tok, ok := p.get()
	if !ok || tok.Type != t {
		p.errorAt(tok, ok)
	}
	return tok
}

// --- program structure ---

func (p *Parser) Parse() *ast.Node {
	prog := ast.NewProgram(p.lineNumber(), nil)
	d := prog.Data.(*ast.ProgramNode)

	// at least one class is required
	for {
		t, ok := p.get()
		if !ok || t.Type != token.Class {
			p.errorAt(t, ok)
		}
		d.Classes = append(d.Classes, p.parseClass())
		if p.eof() {
			break
		}
	}
	return prog
}

func (p *Parser) parseClass() *ast.Node {
	next, ok := p.get()
	if !ok || next.Type != token.TypeID {
		p.errorAt(next, ok)
	}

	// unless otherwise specified, all classes inherit from Object
	cls := ast.NewClass(p.lineNumber(), next.Value, util.TypeObject)
	d := cls.Data.(*ast.ClassNode)

	t, ok := p.peek()
	if !ok {
		p.errorNext()
	}
	switch t.Type {
	case token.Inherits:
		p.consume()
		next, ok = p.get()
		if !ok || next.Type != token.TypeID {
			p.errorAt(next, ok)
		}
		d.Base = next.Value
	case token.LBrace:
	default:
		p.errorNext()
	}

	p.mustGet(token.LBrace)
	p.parseFeatures(d)
	p.mustGet(token.RBrace)
	p.mustGet(token.Semi)

	return cls
}

func (p *Parser) parseFeatures(cls *ast.ClassNode) {
	for {
		if !p.peekIs(token.ObjectID) {
			// done parsing class features
			return
		}
		name, _ := p.get()

		t, ok := p.peek()
		if !ok {
			p.errorNext()
		}
		switch t.Type {
		case token.Colon:
			// attribute feature
			p.consume()
			typ := p.mustGet(token.TypeID)

			attr := ast.NewAttr(p.lineNumber(), name.Value, typ.Value, nil)
			ad := attr.Data.(*ast.AttrNode)

			if p.peekIs(token.Assign) {
				p.consume()
				ad.Init = p.parseExpression()
			} else {
				ad.Init = ast.NewNoExpr(p.lineNumber(), typ.Value)
			}

			p.mustGet(token.Semi)
			cls.Features = append(cls.Features, attr)

		case token.LParen:
			// method feature
			p.consume()
			method := ast.NewMethod(p.lineNumber(), name.Value, nil, "", nil)
			md := method.Data.(*ast.MethodNode)

			md.Formals = p.parseFormals()

			if !p.peekIs(token.Colon) {
				p.errorNext()
			}
			p.consume()
			if !p.peekIs(token.TypeID) {
				p.errorNext()
			}
			typ, _ := p.get()
			md.ReturnType = typ.Value

			p.mustGet(token.LBrace)
			md.Body = p.parseExpression()
			p.mustGet(token.RBrace)
			p.mustGet(token.Semi)

			cls.Features = append(cls.Features, method)

		default:
			p.errorNext()
		}
	}
}

func (p *Parser) parseFormals() []*ast.Node {
	var formals []*ast.Node
	for {
		t, ok := p.peek()
		if !ok {
			p.errorNext()
		}
		switch t.Type {
		case token.RParen:
			p.consume()
			return formals

		case token.ObjectID:
			name, _ := p.get()
			if !p.peekIs(token.Colon) {
				p.errorNext()
			}
			p.consume()
			if !p.peekIs(token.TypeID) {
				p.errorNext()
			}
			typ, _ := p.get()
			formals = append(formals, ast.NewFormal(p.lineNumber(), name.Value, typ.Value))

			if p.peekIs(token.Comma) {
				p.consume()
			} else if !p.peekIs(token.RParen) {
				p.errorNext()
			}

		default:
			p.errorNext()
		}
	}
}

// --- expressions ---

func (p *Parser) parseExpression() *ast.Node {
	// expressions that start with an expression (e.g. <expr> + <expr>)
	// are handled in postExpression
	return p.postExpression(p.parseSingleExpression())
}

func (p *Parser) parseSingleExpression() *ast.Node {
	if expr := p.parseAssignment(); expr != nil {
		return expr
	}
	if expr := p.parseSelfDispatch(); expr != nil {
		return expr
	}
	if expr := p.parseConditional(); expr != nil {
		return expr
	}
	if expr := p.parseWhile(); expr != nil {
		return expr
	}
	if expr := p.parseBlock(); expr != nil {
		return expr
	}
	if expr := p.parseLet(); expr != nil {
		return expr
	}
	if expr := p.parseCase(); expr != nil {
		return expr
	}
	if expr := p.parseNew(); expr != nil {
		return expr
	}
	if expr := p.parseUnary(token.IsVoid, ast.IsVoid); expr != nil {
		return expr
	}
	if expr := p.parseUnary(token.Tilde, ast.Neg); expr != nil {
		return expr
	}
	if expr := p.parseUnary(token.Not, ast.Comp); expr != nil {
		return expr
	}
	if expr := p.parseLiteral(); expr != nil {
		return expr
	}
	if expr := p.parseIdentifier(); expr != nil {
		return expr
	}
	if expr := p.parseParentheses(); expr != nil {
		return expr
	}

	// no expression matches the next token
	p.errorNext()
	return nil
}

func (p *Parser) parseLiteral() *ast.Node {
	t, ok := p.peek()
	if !ok {
		p.errorNext()
	}
	switch t.Type {
	case token.IntConst:
		p.consume()
		return ast.NewInt(p.lineNumber(), t.Value)
	case token.StrConst:
		p.consume()
		return ast.NewString(p.lineNumber(), t.Value)
	case token.BoolConst:
		p.consume()
		return ast.NewBool(p.lineNumber(), t.Flag)
	}
	return nil
}

func (p *Parser) parseIdentifier() *ast.Node {
	if p.peekIs(token.ObjectID) {
		t, _ := p.get()
		return ast.NewObject(p.lineNumber(), t.Value)
	}
	return nil
}

func (p *Parser) parseAssignment() *ast.Node {
	t1, ok1 := p.get()
	if !ok1 {
		p.errorAt(t1, ok1)
	}
	t2, ok2 := p.get()
	if !ok2 {
		p.errorAt(t2, ok2)
	}

	if t1.Type == token.ObjectID && t2.Type == token.Assign {
		node := ast.NewAssign(p.lineNumber(), t1.Value, nil)
		node.Data.(*ast.AssignNode).Expr = p.parseExpression()
		return node
	}

	p.unget(2)
	return nil
}

func (p *Parser) parseNew() *ast.Node {
	if p.peekIs(token.New) {
		p.consume()
		next, ok := p.get()
		if !ok || next.Type != token.TypeID {
			// 'new' only applies to type identifiers
			p.errorAt(next, ok)
		}
		return ast.NewNew(p.lineNumber(), next.Value)
	}
	return nil
}

func (p *Parser) parseUnary(tok token.Type, kind ast.NodeType) *ast.Node {
	if p.peekIs(tok) {
		p.consume()
		node := ast.NewUnary(kind, p.lineNumber())
		node.Data.(*ast.UnaryNode).Expr = p.parseSingleExpression()
		return node
	}
	return nil
}

func (p *Parser) parseConditional() *ast.Node {
	if p.peekIs(token.If) {
		p.consume()
		node := ast.NewCond(p.lineNumber(), nil, nil, nil)
		d := node.Data.(*ast.CondNode)

		d.Pred = p.parseExpression()
		p.mustGet(token.Then)
		d.Then = p.parseExpression()
		p.mustGet(token.Else)
		d.Else = p.parseExpression()
		p.mustGet(token.Fi)

		return node
	}
	return nil
}

func (p *Parser) parseWhile() *ast.Node {
	if p.peekIs(token.While) {
		p.consume()
		node := ast.NewLoop(p.lineNumber(), nil, nil)
		d := node.Data.(*ast.LoopNode)

		d.Pred = p.parseExpression()
		p.mustGet(token.Loop)
		d.Body = p.parseExpression()
		p.mustGet(token.Pool)

		return node
	}
	return nil
}

func (p *Parser) parseBlock() *ast.Node {
	if p.peekIs(token.LBrace) {
		p.consume()
		node := ast.NewBlock(p.lineNumber(), nil)
		d := node.Data.(*ast.BlockNode)

		// at least one expression is required; each is terminated
		// by a semicolon
		for {
			d.Exprs = append(d.Exprs, p.parseExpression())
			p.mustGet(token.Semi)
			if p.peekIs(token.RBrace) {
				break
			}
		}
		p.consume()
		return node
	}
	return nil
}

func (p *Parser) parseLet() *ast.Node {
	if !p.peekIs(token.Let) {
		return nil
	}
	p.consume()
	node := ast.NewLet(p.lineNumber())
	d := node.Data.(*ast.LetNode)

	// at least one initializer is required
	for {
		name, ok := p.get()
		if !ok || name.Type != token.ObjectID {
			p.errorAt(name, ok)
		}
		p.mustGet(token.Colon)
		typ, ok := p.get()
		if !ok || typ.Type != token.TypeID {
			p.errorAt(typ, ok)
		}

		init := ast.NewLetInit(p.lineNumber(), name.Value, typ.Value, nil)
		id := init.Data.(*ast.LetInitNode)

		if p.peekIs(token.Assign) {
			p.consume()
			id.Expr = p.parseExpression()
		} else {
			id.Expr = ast.NewNoExpr(p.lineNumber(), typ.Value)
		}
		d.Inits = append(d.Inits, init)

		t, ok := p.peek()
		if !ok || (t.Type != token.In && t.Type != token.Comma) {
			p.errorAt(t, ok)
		}
		got, _ := p.get()
		if got.Type == token.In {
			break
		}
	}

	d.Body = p.parseExpression()
	return node
}

func (p *Parser) parseCase() *ast.Node {
	if !p.peekIs(token.Case) {
		return nil
	}
	p.consume()
	node := ast.NewCase(p.lineNumber(), nil)
	d := node.Data.(*ast.CaseNode)

	d.Target = p.parseExpression()
	p.mustGet(token.Of)

	// at least one branch is required
	for {
		name, ok := p.get()
		if !ok || name.Type != token.ObjectID {
			p.errorAt(name, ok)
		}
		p.mustGet(token.Colon)
		typ, ok := p.get()
		if !ok || typ.Type != token.TypeID {
			p.errorAt(typ, ok)
		}
		p.mustGet(token.DArrow)

		branch := ast.NewBranch(p.lineNumber(), name.Value, typ.Value, nil)
		branch.Data.(*ast.BranchNode).Expr = p.parseExpression()
		d.Branches = append(d.Branches, branch)

		p.mustGet(token.Semi)
		if p.peekIs(token.Esac) {
			break
		}
	}
	p.consume()
	return node
}

func (p *Parser) parseParentheses() *ast.Node {
	if p.peekIs(token.LParen) {
		p.consume()
		expr := p.parseExpression()

		// a parenthesized operator is opaque to precedence rotation
		if ast.IsOperation(expr) {
			expr.Paren = true
		}

		next, ok := p.get()
		if !ok || next.Type != token.RParen {
			p.errorAt(next, ok)
		}
		return expr
	}
	return nil
}

// parseSelfDispatch handles the ObjId '(' ... ')' shorthand for
// self.ObjId(...).
func (p *Parser) parseSelfDispatch() *ast.Node {
	line := p.lineNumber()
	t1, ok1 := p.get()
	if !ok1 {
		p.errorAt(t1, ok1)
	}
	t2, ok2 := p.get()
	if !ok2 {
		p.errorAt(t2, ok2)
	}

	if t1.Type == token.ObjectID && t2.Type == token.LParen {
		selfObj := ast.NewObject(line, util.Self)
		return ast.NewDispatch(p.lineNumber(), selfObj, t1.Value, p.parseDispatchArgs())
	}

	p.unget(2)
	return nil
}

// parseDispatchArgs parses a comma-separated argument list up to and
// including the closing parenthesis. A trailing comma is an error.
func (p *Parser) parseDispatchArgs() []*ast.Node {
	var args []*ast.Node
	for !p.peekIs(token.RParen) {
		args = append(args, p.parseExpression())
		if p.peekIs(token.RParen) {
			break
		}
		if !p.peekIs(token.Comma) {
			p.errorNext()
		}
		p.consume()
		if p.peekIs(token.RParen) {
			p.errorNext()
		}
	}
	p.consume()
	return args
}

// postExpression absorbs binary operators and dispatches following a
// head expression. Operator nodes are inserted into the existing
// operator sub-tree by walking to the right-most operand and climbing
// parents until the incoming operator binds strictly tighter; the new
// node then steals that ancestor's right child. Parenthesized
// sub-trees are atomic. Dispatch binds tighter than any operator and
// replaces only the right-most operand.
func (p *Parser) postExpression(expr *ast.Node) *ast.Node {
	for {
		t, ok := p.peek()
		if !ok {
			p.errorNext()
		}

		var prevOp *ast.Node
		if ast.IsOperation(expr) {
			prevOp = expr
		}

		// find the right-most operation in the tree, recording
		// parent links along the spine
		rightMost := prevOp
		if prevOp != nil {
			for {
				last := ast.Last(rightMost)
				if !ast.IsOperation(last) {
					break
				}
				last.Parent = rightMost
				rightMost = last
			}
		}

		var node *ast.Node
		switch t.Type {
		case token.Plus:
			node = ast.NewBinary(ast.Plus, 0)
		case token.Minus:
			node = ast.NewBinary(ast.Sub, 0)
		case token.Star:
			node = ast.NewBinary(ast.Mul, 0)
		case token.Slash:
			node = ast.NewBinary(ast.Divide, 0)
		case token.Lt:
			node = ast.NewBinary(ast.Lt, 0)
		case token.Le:
			node = ast.NewBinary(ast.Leq, 0)
		case token.Eq:
			node = ast.NewBinary(ast.Eq, 0)

		case token.Dot:
			p.consume()
			method := p.mustGet(token.ObjectID)
			p.mustGet(token.LParen)
			line := p.lineNumber()

			if prevOp != nil && !prevOp.Paren {
				// e.g. `a + b.f()`: the dispatch takes over the
				// right-most operand of the operator tree
				d := ast.NewDispatch(line, ast.Last(rightMost), method.Value, p.parseDispatchArgs())
				ast.SetLast(rightMost, d)
			} else {
				expr = ast.NewDispatch(line, expr, method.Value, p.parseDispatchArgs())
			}
			continue

		case token.At:
			p.consume()
			staticType := p.mustGet(token.TypeID)
			p.mustGet(token.Dot)
			method := p.mustGet(token.ObjectID)
			p.mustGet(token.LParen)
			line := p.lineNumber()

			if prevOp != nil && !prevOp.Paren {
				d := ast.NewStaticDispatch(line, ast.Last(rightMost), staticType.Value, method.Value, p.parseDispatchArgs())
				ast.SetLast(rightMost, d)
			} else {
				expr = ast.NewStaticDispatch(line, expr, staticType.Value, method.Value, p.parseDispatchArgs())
			}
			continue

		default:
			return expr
		}

		// binary operator: consume it and parse the next operand
		opTok, _ := p.get()
		node.Line = p.lineNumber()
		next := p.parseSingleExpression()

		// chaining non-associative operations without parentheses
		// (e.g. a = b = c) is a syntax error
		if ast.IsBinaryOp(expr) && ast.Assoc(expr.Type) == ast.AssocNone && ast.Assoc(node.Type) == ast.AssocNone {
			p.errorAt(opTok, true)
		}

		nd := node.Data.(*ast.BinaryNode)
		if prevOp != nil && !prevOp.Paren {
			// find the insertion point in the operator tree
			cur := rightMost
			for {
				if ast.Precedence(node.Type) < ast.Precedence(cur.Type) {
					// the new operator binds tighter: steal the
					// right child
					nd.Left = ast.Last(cur)
					nd.Right = next
					ast.SetLast(cur, node)
					break
				}
				// a chain further down the right spine (e.g.
				// not a = b = c) is a syntax error as well
				if ast.Precedence(node.Type) == ast.Precedence(cur.Type) && ast.Assoc(node.Type) == ast.AssocNone {
					p.errorAt(opTok, true)
				}
				if cur.Parent == nil {
					// looser than the whole tree: the previous
					// expression becomes the left child, which also
					// enforces left-associativity
					nd.Left = expr
					nd.Right = next
					expr = node
					break
				}
				cur = cur.Parent
			}
		} else {
			nd.Left = expr
			nd.Right = next
			expr = node
		}
	}
}
