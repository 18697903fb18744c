// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the code generator. This layer is a thin, routine
// recursive-descent surface over the grammar; the interesting design lives
// one level down, in the compiler and machine packages.
package ast

import "github.com/mna/pvm/lang/token"

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Position
}

// Program is the root of a parsed source file: an ordered list of
// statements executed in sequence.
type Program struct {
	Stmts []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) == 0 {
		return token.Position{Line: 1, Col: 1}
	}
	return p.Stmts[0].Pos()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// AssignStmt is `name = expr`.
type AssignStmt struct {
	Position token.Position
	Name     string
	Value    Expr
}

// ExprStmt is a bare expression evaluated for its side effects, e.g. a call
// to print(...) or input(...).
type ExprStmt struct {
	Position token.Position
	X        Expr
}

// IfStmt is `if cond: then else: else_` (Else may be nil).
type IfStmt struct {
	Position token.Position
	Cond     Expr
	Then     []Stmt
	Else     []Stmt
}

// WhileStmt is `while cond: body`.
type WhileStmt struct {
	Position token.Position
	Cond     Expr
	Body     []Stmt
}

func (s *AssignStmt) Pos() token.Position { return s.Position }
func (s *ExprStmt) Pos() token.Position   { return s.Position }
func (s *IfStmt) Pos() token.Position     { return s.Position }
func (s *WhileStmt) Pos() token.Position  { return s.Position }

func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}

// IntLit is an integer literal.
type IntLit struct {
	Position token.Position
	Value    int32
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Position token.Position
	Value    float64
}

// StringLit is a string literal.
type StringLit struct {
	Position token.Position
	Value    string
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Position token.Position
	Value    bool
}

// Name is a variable reference.
type Name struct {
	Position token.Position
	Ident    string
}

// BinaryExpr is `X Op Y`.
type BinaryExpr struct {
	Position token.Position
	Op       token.Token
	X, Y     Expr
}

// UnaryExpr is `Op X`.
type UnaryExpr struct {
	Position token.Position
	Op       token.Token
	X        Expr
}

// CallExpr is a call to a builtin, e.g. `print(a, b)` or `input()`.
type CallExpr struct {
	Position token.Position
	Func     string
	Args     []Expr
}

func (x *IntLit) Pos() token.Position     { return x.Position }
func (x *FloatLit) Pos() token.Position   { return x.Position }
func (x *StringLit) Pos() token.Position  { return x.Position }
func (x *BoolLit) Pos() token.Position    { return x.Position }
func (x *Name) Pos() token.Position       { return x.Position }
func (x *BinaryExpr) Pos() token.Position { return x.Position }
func (x *UnaryExpr) Pos() token.Position  { return x.Position }
func (x *CallExpr) Pos() token.Position   { return x.Position }

func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*Name) exprNode()       {}
func (*BinaryExpr) exprNode() {}
func (*UnaryExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
