// Package parser builds an internal/ast tree from a token stream. It is a
// standard recursive-descent parser with precedence climbing for
// expressions; the lexer/parser layer is treated as an external
// collaborator, so it
// is kept deliberately small.
package parser

import (
	"fmt"

	"github.com/philtomson/hotwright/internal/ast"
	"github.com/philtomson/hotwright/internal/lexer"
	"github.com/philtomson/hotwright/internal/token"
)

// Parser consumes tokens from a Lexer one at a time with a single token of
// lookahead.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	errs []error
}

// New creates a Parser over src.
func New(src string) *Parser {
	p := &Parser{lex: lexer.New(src)}
	p.next()
	return p
}

// Parse scans the whole source into a *ast.Program. Parsing continues past
// the first error to collect as many diagnostics as possible; the returned
// error slice is non-empty if any were recorded.
func Parse(src string) (*ast.Program, []error) {
	p := New(src)
	prog := p.parseProgram()
	return prog, p.errs
}

func (p *Parser) next() {
	p.cur = p.lex.Next()
	for p.cur.Kind == token.Error {
		p.errorf("%s", p.cur.Text)
		p.cur = p.lex.Next()
	}
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("line %d: %s", p.cur.Line, fmt.Sprintf(format, args...)))
}

func (p *Parser) pos() ast.Pos { return ast.Pos{Line: p.cur.Line, Col: p.cur.Col} }

func (p *Parser) expect(k token.Kind) token.Token {
	t := p.cur
	if t.Kind != k {
		p.errorf("expected %s, got %s %q", k, t.Kind, t.Text)
	} else {
		p.next()
	}
	return t
}

func (p *Parser) accept(k token.Kind) bool {
	if p.cur.Kind == k {
		p.next()
		return true
	}
	return false
}

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	for p.cur.Kind != token.EOF {
		decls := p.parseTopLevel()
		if len(decls) > 0 {
			prog.Items = append(prog.Items, decls...)
		} else {
			p.next() // avoid looping forever on an unparseable token
		}
	}
	return prog
}

func isTypeKeyword(k token.Kind) bool {
	switch k {
	case token.KwInt, token.KwBool, token.KwChar, token.KwUnsigned, token.KwBitInt:
		return true
	}
	return false
}

func (p *Parser) parseTopLevel() []ast.Decl {
	// `void` is not a reserved keyword here; it is accepted only as the
	// return type of a function definition such as `void main()`.
	if p.cur.Kind == token.Ident && p.cur.Text == "void" {
		p.next()
		pos := p.pos()
		name := p.expect(token.Ident).Text
		return []ast.Decl{p.parseFunctionDef(pos, name)}
	}
	if !isTypeKeyword(p.cur.Kind) {
		p.errorf("expected a type, got %s %q", p.cur.Kind, p.cur.Text)
		return nil
	}
	typ := p.parseType()
	pos := p.pos()
	name := p.expect(token.Ident).Text

	if p.cur.Kind == token.LParen {
		return []ast.Decl{p.parseFunctionDef(pos, name)}
	}
	decls := p.parseVarDeclList(pos, typ, name)
	p.expect(token.Semicolon)
	items := make([]ast.Decl, len(decls))
	for i, d := range decls {
		items[i] = d
	}
	return items
}

func (p *Parser) parseType() ast.Type {
	switch p.cur.Kind {
	case token.KwInt:
		p.next()
		return ast.TypeInt
	case token.KwBool:
		p.next()
		return ast.TypeBool
	case token.KwChar:
		p.next()
		return ast.TypeChar
	case token.KwUnsigned:
		p.next()
		return ast.TypeUnsigned
	case token.KwBitInt:
		p.next()
		if p.accept(token.LParen) {
			p.expect(token.Number)
			p.expect(token.RParen)
		}
		return ast.TypeBitInt
	default:
		p.errorf("expected a type")
		p.next()
		return ast.TypeInt
	}
}

// parseVarDeclList parses `name [= init] (, name [= init])*` sharing typ,
// returning one *ast.VarDecl per declarator (without consuming the
// terminating ';').
func (p *Parser) parseVarDeclList(pos ast.Pos, typ ast.Type, firstName string) []*ast.VarDecl {
	var decls []*ast.VarDecl
	name := firstName
	for {
		vd := &ast.VarDecl{Pos: pos, Type: typ, Name: name}
		if p.accept(token.LBracket) {
			sz := p.parseConstInt()
			vd.ArraySize = sz
			p.expect(token.RBracket)
		}
		if p.accept(token.Assign) {
			vd.Initializer = p.parseExpr()
		}
		decls = append(decls, vd)
		if !p.accept(token.Comma) {
			break
		}
		pos = p.pos()
		name = p.expect(token.Ident).Text
	}
	return decls
}

func (p *Parser) parseConstInt() int {
	if p.cur.Kind == token.Minus {
		p.next()
		n := p.expect(token.Number)
		return -parseIntLiteral(n.Text)
	}
	n := p.expect(token.Number)
	return parseIntLiteral(n.Text)
}

func (p *Parser) parseFunctionDef(pos ast.Pos, name string) *ast.FunctionDef {
	p.expect(token.LParen)
	var params []string
	for p.cur.Kind != token.RParen {
		if isTypeKeyword(p.cur.Kind) {
			p.parseType()
		}
		params = append(params, p.expect(token.Ident).Text)
		if !p.accept(token.Comma) {
			break
		}
	}
	p.expect(token.RParen)
	body := p.parseBlock()
	return &ast.FunctionDef{Pos: pos, Name: name, Params: params, Body: body}
}

func (p *Parser) parseBlock() *ast.Block {
	pos := p.pos()
	p.expect(token.LBrace)
	b := &ast.Block{Pos: pos}
	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		b.Stmts = append(b.Stmts, p.parseStmt()...)
	}
	p.expect(token.RBrace)
	return b
}

// parseStmt returns a slice because a declaration statement with multiple
// comma-separated declarators expands to multiple *ast.VarDecl statements.
func (p *Parser) parseStmt() []ast.Stmt {
	switch p.cur.Kind {
	case token.LBrace:
		return []ast.Stmt{p.parseBlock()}
	case token.KwIf:
		return []ast.Stmt{p.parseIf()}
	case token.KwWhile:
		return []ast.Stmt{p.parseWhile()}
	case token.KwFor:
		return []ast.Stmt{p.parseFor()}
	case token.KwSwitch:
		return []ast.Stmt{p.parseSwitch()}
	case token.KwBreak:
		pos := p.pos()
		p.next()
		p.expect(token.Semicolon)
		return []ast.Stmt{&ast.Break{Pos: pos}}
	case token.KwContinue:
		pos := p.pos()
		p.next()
		p.expect(token.Semicolon)
		return []ast.Stmt{&ast.Continue{Pos: pos}}
	case token.KwReturn:
		pos := p.pos()
		p.next()
		var v ast.Expr
		if p.cur.Kind != token.Semicolon {
			v = p.parseExpr()
		}
		p.expect(token.Semicolon)
		return []ast.Stmt{&ast.Return{Pos: pos, Value: v}}
	case token.Semicolon:
		p.next()
		return nil
	default:
		if isTypeKeyword(p.cur.Kind) {
			pos := p.pos()
			typ := p.parseType()
			name := p.expect(token.Ident).Text
			decls := p.parseVarDeclList(pos, typ, name)
			p.expect(token.Semicolon)
			stmts := make([]ast.Stmt, len(decls))
			for i, d := range decls {
				stmts[i] = d
			}
			return stmts
		}
		s := p.parseSimpleStmt()
		p.expect(token.Semicolon)
		return []ast.Stmt{s}
	}
}

// parseSimpleStmt parses an assignment or a bare expression, used both as a
// standalone statement and inside a for-loop's init/update clauses.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	pos := p.pos()
	lhs := p.parseExpr()
	if p.accept(token.Assign) {
		rhs := p.parseExpr()
		return &ast.Assignment{Pos: pos, LHS: lhs, RHS: rhs}
	}
	return &ast.ExprStmt{Pos: pos, X: lhs}
}

func (p *Parser) parseIf() *ast.If {
	pos := p.pos()
	p.expect(token.KwIf)
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	then := p.parseBlockOrStmt()
	var els *ast.Block
	if p.accept(token.KwElse) {
		if p.cur.Kind == token.KwIf {
			inner := p.parseIf()
			els = &ast.Block{Pos: inner.Pos, Stmts: []ast.Stmt{inner}}
		} else {
			els = p.parseBlockOrStmt()
		}
	}
	return &ast.If{Pos: pos, Cond: cond, Then: then, Else: els}
}

// parseBlockOrStmt accepts either a brace-delimited block or a single
// statement, wrapping the latter in a one-statement Block.
func (p *Parser) parseBlockOrStmt() *ast.Block {
	if p.cur.Kind == token.LBrace {
		return p.parseBlock()
	}
	pos := p.pos()
	stmts := p.parseStmt()
	return &ast.Block{Pos: pos, Stmts: stmts}
}

func (p *Parser) parseWhile() *ast.While {
	pos := p.pos()
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	body := p.parseBlockOrStmt()
	return &ast.While{Pos: pos, Cond: cond, Body: body}
}

func (p *Parser) parseFor() *ast.For {
	pos := p.pos()
	p.expect(token.KwFor)
	p.expect(token.LParen)

	f := &ast.For{Pos: pos}
	if p.cur.Kind != token.Semicolon {
		if isTypeKeyword(p.cur.Kind) {
			dpos := p.pos()
			typ := p.parseType()
			name := p.expect(token.Ident).Text
			decls := p.parseVarDeclList(dpos, typ, name)
			f.Init = decls[0]
		} else {
			f.Init = p.parseSimpleStmt()
		}
	}
	p.expect(token.Semicolon)

	if p.cur.Kind != token.Semicolon {
		f.Cond = p.parseExpr()
	}
	p.expect(token.Semicolon)

	if p.cur.Kind != token.RParen {
		f.Update = p.parseSimpleStmt()
	}
	p.expect(token.RParen)

	f.Body = p.parseBlockOrStmt()
	return f
}

func (p *Parser) parseSwitch() *ast.Switch {
	pos := p.pos()
	p.expect(token.KwSwitch)
	p.expect(token.LParen)
	scrutinee := p.parseExpr()
	p.expect(token.RParen)
	p.expect(token.LBrace)

	sw := &ast.Switch{Pos: pos, Scrutinee: scrutinee}
	for p.cur.Kind == token.KwCase || p.cur.Kind == token.KwDefault {
		c := &ast.Case{Pos: p.pos()}
		if p.accept(token.KwCase) {
			lit := p.parseExpr()
			if n, ok := lit.(*ast.NumberLiteral); ok {
				c.Value = n
			} else {
				p.errorf("case label must be a constant")
			}
		} else {
			p.expect(token.KwDefault)
		}
		p.expect(token.Colon)
		for p.cur.Kind != token.KwCase && p.cur.Kind != token.KwDefault && p.cur.Kind != token.RBrace {
			c.Body = append(c.Body, p.parseStmt()...)
		}
		sw.Cases = append(sw.Cases, c)
	}
	p.expect(token.RBrace)
	return sw
}

// --- Expressions, by ascending precedence: || && equality relational additive multiplicative unary primary ---

func (p *Parser) parseExpr() ast.Expr { return p.parseOr() }

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.cur.Kind == token.OrOr {
		pos := p.pos()
		p.next()
		right := p.parseAnd()
		left = &ast.BinaryOp{Pos: pos, Op: "||", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseBitOr()
	for p.cur.Kind == token.AndAnd {
		pos := p.pos()
		p.next()
		right := p.parseBitOr()
		left = &ast.BinaryOp{Pos: pos, Op: "&&", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitAnd()
	for p.cur.Kind == token.Pipe {
		pos := p.pos()
		p.next()
		right := p.parseBitAnd()
		left = &ast.BinaryOp{Pos: pos, Op: "|", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseEquality()
	for p.cur.Kind == token.Amp {
		pos := p.pos()
		p.next()
		right := p.parseEquality()
		left = &ast.BinaryOp{Pos: pos, Op: "&", Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.cur.Kind == token.Eq || p.cur.Kind == token.NotEq {
		op := "=="
		if p.cur.Kind == token.NotEq {
			op = "!="
		}
		pos := p.pos()
		p.next()
		right := p.parseRelational()
		left = &ast.BinaryOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseAdditive()
	for {
		var op string
		switch p.cur.Kind {
		case token.Less:
			op = "<"
		case token.LessEq:
			op = "<="
		case token.Greater:
			op = ">"
		case token.GreaterEq:
			op = ">="
		default:
			return left
		}
		pos := p.pos()
		p.next()
		right := p.parseAdditive()
		left = &ast.BinaryOp{Pos: pos, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.cur.Kind == token.Plus || p.cur.Kind == token.Minus {
		op := "+"
		if p.cur.Kind == token.Minus {
			op = "-"
		}
		pos := p.pos()
		p.next()
		right := p.parseMultiplicative()
		left = &ast.BinaryOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.cur.Kind == token.Star || p.cur.Kind == token.Slash {
		op := "*"
		if p.cur.Kind == token.Slash {
			op = "/"
		}
		pos := p.pos()
		p.next()
		right := p.parseUnary()
		left = &ast.BinaryOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.cur.Kind {
	case token.Not, token.Minus:
		pos := p.pos()
		op := p.cur.Text
		p.next()
		return &ast.UnaryOp{Pos: pos, Op: op, X: p.parseUnary()}
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.pos()
	switch p.cur.Kind {
	case token.Number:
		text := p.cur.Text
		p.next()
		return &ast.NumberLiteral{Pos: pos, Value: int64(parseIntLiteral(text))}
	case token.KwTrue:
		p.next()
		return &ast.BoolLiteral{Pos: pos, Value: true}
	case token.KwFalse:
		p.next()
		return &ast.BoolLiteral{Pos: pos, Value: false}
	case token.LParen:
		p.next()
		e := p.parseExpr()
		p.expect(token.RParen)
		return e
	case token.Ident:
		name := p.cur.Text
		p.next()
		if p.cur.Kind == token.LBracket {
			p.next()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			return &ast.ArrayAccess{Pos: pos, Name: name, Index: idx}
		}
		if p.cur.Kind == token.LParen {
			p.next()
			var args []ast.Expr
			for p.cur.Kind != token.RParen {
				args = append(args, p.parseExpr())
				if !p.accept(token.Comma) {
					break
				}
			}
			p.expect(token.RParen)
			return &ast.CallExpr{Pos: pos, Name: name, Args: args}
		}
		return &ast.Identifier{Pos: pos, Name: name}
	default:
		p.errorf("unexpected token %s %q in expression", p.cur.Kind, p.cur.Text)
		p.next()
		return &ast.NumberLiteral{Pos: pos, Value: 0}
	}
}

func parseIntLiteral(text string) int {
	n := 0
	if len(text) > 2 && (text[1] == 'x' || text[1] == 'X') {
		for _, c := range text[2:] {
			n *= 16
			switch {
			case c >= '0' && c <= '9':
				n += int(c - '0')
			case c >= 'a' && c <= 'f':
				n += int(c-'a') + 10
			case c >= 'A' && c <= 'F':
				n += int(c-'A') + 10
			}
		}
		return n
	}
	for _, c := range text {
		n = n*10 + int(c-'0')
	}
	return n
}
