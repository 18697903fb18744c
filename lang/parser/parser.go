// Package parser implements a small recursive-descent parser over the
// token stream produced by the scanner, building the AST consumed by the
// code generator. The grammar is deliberately tiny: assignments,
// if/else, while, and expressions over int/float/string/bool literals,
// names, and the print/input builtins.
package parser

import (
	"fmt"
	"strconv"

	"github.com/mna/pvm/lang/ast"
	"github.com/mna/pvm/lang/scanner"
	"github.com/mna/pvm/lang/token"
)

// Error is a syntax error tied to a source position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Parse scans and parses src into a Program.
func Parse(src string) (*ast.Program, error) {
	lexemes, err := scanner.Scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: lexemes}
	return p.parseProgram()
}

type parser struct {
	toks []scanner.Lexeme
	pos  int
}

func (p *parser) cur() scanner.Lexeme  { return p.toks[p.pos] }
func (p *parser) at(t token.Token) bool { return p.cur().Tok == t }

func (p *parser) advance() scanner.Lexeme {
	l := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return l
}

func (p *parser) expect(t token.Token) (scanner.Lexeme, error) {
	if !p.at(t) {
		return scanner.Lexeme{}, &Error{Pos: p.cur().Pos, Msg: fmt.Sprintf("expected %s, got %s", t, p.cur().Tok)}
	}
	return p.advance(), nil
}

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		for p.at(token.SEMI) {
			p.advance()
		}
		if p.at(token.EOF) {
			break
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
		for p.at(token.SEMI) {
			p.advance()
		}
	}
	return prog, nil
}

// parseSimpleBlock parses a `:`-introduced, `;`-separated run of
// statements. This language has no indentation, so a block has no
// terminator of its own: it collects statements until the next `;` is
// immediately followed by `else` (closing an `if`'s `then` branch) or by
// end of input. The `;` immediately before `else`, if any, is left
// unconsumed for the caller (parseIf) to swallow while looking for
// `else`.
func (p *parser) parseSimpleBlock() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if !p.at(token.SEMI) {
			return stmts, nil
		}
		if next := p.toks[p.pos+1].Tok; next == token.ELSE || next == token.EOF {
			return stmts, nil
		}
		p.advance() // ';' separating two statements in the same block
	}
}

func (p *parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Tok {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.IDENT:
		if p.toks[p.pos+1].Tok == token.ASSIGN {
			return p.parseAssign()
		}
		return p.parseExprStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseAssign() (ast.Stmt, error) {
	name := p.advance()
	if _, err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Position: name.Pos, Name: name.Lit, Value: val}, nil
}

func (p *parser) parseExprStmt() (ast.Stmt, error) {
	pos := p.cur().Pos
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Position: pos, X: x}, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	pos := p.advance().Pos // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	then, err := p.parseSimpleBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Position: pos, Cond: cond, Then: then}
	for p.at(token.SEMI) && p.toks[p.pos+1].Tok == token.ELSE {
		p.advance()
	}
	if p.at(token.ELSE) {
		p.advance()
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		els, err := p.parseSimpleBlock()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
	}
	return stmt, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	pos := p.advance().Pos // 'while'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	body, err := p.parseSimpleBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Position: pos, Cond: cond, Body: body}, nil
}

// Expression grammar, lowest to highest precedence:
//
//	expr    -> or
//	or      -> and ('or' and)*
//	and     -> not ('and' not)*
//	not     -> 'not' not | cmp
//	cmp     -> sum (('<'|'<='|'>'|'>='|'=='|'!=') sum)*
//	sum     -> term (('+'|'-') term)*
//	term    -> unary (('*'|'/'|'%') unary)*
//	unary   -> '-' unary | primary
//	primary -> literal | name | call | '(' expr ')'
func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		pos := p.advance().Pos
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Position: pos, Op: token.OR, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		pos := p.advance().Pos
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Position: pos, Op: token.AND, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.at(token.NOT) {
		pos := p.advance().Pos
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Position: pos, Op: token.NOT, X: x}, nil
	}
	return p.parseCmp()
}

var cmpOps = map[token.Token]bool{
	token.LT: true, token.LE: true, token.GT: true, token.GE: true,
	token.EQL: true, token.NEQ: true,
}

func (p *parser) parseCmp() (ast.Expr, error) {
	x, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	for cmpOps[p.cur().Tok] {
		op := p.advance()
		y, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Position: op.Pos, Op: op.Tok, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseSum() (ast.Expr, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.advance()
		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Position: op.Pos, Op: op.Tok, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseTerm() (ast.Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.advance()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Position: op.Pos, Op: op.Tok, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.at(token.MINUS) {
		pos := p.advance().Pos
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Position: pos, Op: token.MINUS, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Tok {
	case token.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Lit, 10, 32)
		if err != nil {
			return nil, &Error{Pos: tok.Pos, Msg: err.Error()}
		}
		return &ast.IntLit{Position: tok.Pos, Value: int32(v)}, nil
	case token.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lit, 64)
		if err != nil {
			return nil, &Error{Pos: tok.Pos, Msg: err.Error()}
		}
		return &ast.FloatLit{Position: tok.Pos, Value: v}, nil
	case token.STRING:
		p.advance()
		return &ast.StringLit{Position: tok.Pos, Value: tok.Lit}, nil
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{Position: tok.Pos, Value: true}, nil
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{Position: tok.Pos, Value: false}, nil
	case token.LPAREN:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return x, nil
	case token.IDENT:
		if p.toks[p.pos+1].Tok == token.LPAREN {
			return p.parseCall()
		}
		p.advance()
		return &ast.Name{Position: tok.Pos, Ident: tok.Lit}, nil
	}
	return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected token %s", tok.Tok)}
}

func (p *parser) parseCall() (ast.Expr, error) {
	name := p.advance()
	p.advance() // '('
	var args []ast.Expr
	for !p.at(token.RPAREN) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CallExpr{Position: name.Pos, Func: name.Lit, Args: args}, nil
}
