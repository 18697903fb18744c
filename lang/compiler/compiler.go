package compiler

import (
	"github.com/mna/pvm/lang/ast"
	"github.com/mna/pvm/lang/token"
)

// Compile walks prog and produces the bytecode Program. An AST resulting
// from a successful parse should always generate a valid, executable
// compiled program or a CompileError/NameError/TypeError describing why
// not. When withDebug is true, a pc-to-line/column table is recorded
// alongside the code.
func Compile(prog *ast.Program, withDebug bool) (*Program, error) {
	c := &compiler{
		constants: NewConstantPool(),
		symbols:   NewSymbolTable(),
		code:      NewCodeBuffer(),
		withDebug: withDebug,
	}
	for _, stmt := range prog.Stmts {
		if c.depth != 0 {
			return nil, &CompileError{Pos: stmt.Pos(), Msg: "internal: non-zero stack depth at statement boundary"}
		}
		if err := c.compileStmt(stmt); err != nil {
			return nil, err
		}
	}
	if c.depth != 0 {
		return nil, &CompileError{Msg: "internal: non-zero stack depth at end of program"}
	}
	c.code.EmitOp(HALT)
	if err := c.code.Finalize(); err != nil {
		return nil, err
	}

	return &Program{
		Version:    CurrentVersion,
		Debug:      withDebug,
		Constants:  c.constants.All(),
		Symbols:    c.symbols.All(),
		Code:       c.code.Bytes(),
		DebugLines: c.debugLines,
	}, nil
}

// compiler holds the codegen state for a single Program.
type compiler struct {
	constants *ConstantPool
	symbols   *SymbolTable
	code      *CodeBuffer

	depth int // symbolic operand-stack depth tracker

	withDebug  bool
	debugLines []LineEntry
}

func (c *compiler) push(n int) { c.depth += n }

func (c *compiler) mark(pos token.Position) {
	if !c.withDebug {
		return
	}
	c.debugLines = append(c.debugLines, LineEntry{
		PC:     uint32(c.code.Len()),
		Line:   uint32(pos.Line),
		Column: uint16(pos.Col),
	})
}

func (c *compiler) emitLoadConst(idx uint32) {
	if idx < 256 {
		c.code.EmitOp1(LOAD_CONST, uint8(idx))
	} else {
		c.code.EmitOp2(LOAD_CONST_W, uint16(idx))
	}
	c.push(stackEffect[LOAD_CONST])
}

func (c *compiler) emitLoadVar(idx uint32) {
	if idx < 256 {
		c.code.EmitOp1(LOAD_VAR, uint8(idx))
	} else {
		c.code.EmitOp2(LOAD_VAR_W, uint16(idx))
	}
	c.push(stackEffect[LOAD_VAR])
}

func (c *compiler) emitStoreVar(idx uint32) {
	if idx < 256 {
		c.code.EmitOp1(STORE_VAR, uint8(idx))
	} else {
		c.code.EmitOp2(STORE_VAR_W, uint16(idx))
	}
	c.push(stackEffect[STORE_VAR])
}

func (c *compiler) emitOp(op Opcode) {
	c.code.EmitOp(op)
	c.push(stackEffect[op])
}

func (c *compiler) compileStmt(s ast.Stmt) error {
	c.mark(s.Pos())
	switch s := s.(type) {
	case *ast.AssignStmt:
		return c.compileAssign(s)
	case *ast.ExprStmt:
		return c.compileExprStmt(s)
	case *ast.IfStmt:
		return c.compileIf(s)
	case *ast.WhileStmt:
		return c.compileWhile(s)
	default:
		return &CompileError{Pos: s.Pos(), Msg: "unknown statement node"}
	}
}

func (c *compiler) compileAssign(s *ast.AssignStmt) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	slot := c.symbols.Declare(s.Name)
	sym, _ := c.symbols.At(slot)
	c.emitStoreVar(sym.Value)
	return nil
}

// compileExprStmt evaluates an expression for its side effects only. Since
// every expression has a net stack effect of +1, a bare expression
// statement pops the leftover value unless the expression is itself a
// call that was compiled to leave nothing behind (print/input desugar to
// exactly this net-zero case already, see compileCallStmt).
func (c *compiler) compileExprStmt(s *ast.ExprStmt) error {
	if call, ok := s.X.(*ast.CallExpr); ok {
		return c.compileCallStmt(call)
	}
	if err := c.compileExpr(s.X); err != nil {
		return err
	}
	c.emitOp(POP)
	return nil
}

func (c *compiler) compileIf(s *ast.IfStmt) error {
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	elseLabel := c.code.NewLabel()
	c.code.EmitJump(JMP_IF_FALSE, elseLabel)
	c.push(stackEffect[JMP_IF_FALSE])

	depthAtBranch := c.depth
	for _, st := range s.Then {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	depthAfterThen := c.depth

	var endLabel labelID
	hasElse := len(s.Else) > 0
	if hasElse {
		endLabel = c.code.NewLabel()
		c.code.EmitJump(JMP, endLabel)
	}
	c.code.BindLabel(elseLabel)

	c.depth = depthAtBranch
	for _, st := range s.Else {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	if c.depth != depthAfterThen {
		return &CompileError{Pos: s.Pos(), Msg: "internal: stack depth mismatch between if/else branches"}
	}
	if hasElse {
		c.code.BindLabel(endLabel)
	}
	return nil
}

func (c *compiler) compileWhile(s *ast.WhileStmt) error {
	loopTop := c.code.NewLabel()
	loopEnd := c.code.NewLabel()
	c.code.BindLabel(loopTop)

	depthAtTop := c.depth
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	c.code.EmitJump(JMP_IF_FALSE, loopEnd)
	c.push(stackEffect[JMP_IF_FALSE])

	for _, st := range s.Body {
		if err := c.compileStmt(st); err != nil {
			return err
		}
	}
	if c.depth != depthAtTop {
		return &CompileError{Pos: s.Pos(), Msg: "internal: stack depth mismatch at loop top"}
	}
	c.code.EmitJump(JMP, loopTop)
	c.code.BindLabel(loopEnd)
	return nil
}

func (c *compiler) compileExpr(e ast.Expr) error {
	switch e := e.(type) {
	case *ast.IntLit:
		idx := c.constants.Intern(Constant{Kind: ConstInt, I: e.Value})
		c.emitLoadConst(idx)
	case *ast.FloatLit:
		idx := c.constants.Intern(Constant{Kind: ConstFloat, F: e.Value})
		c.emitLoadConst(idx)
	case *ast.StringLit:
		idx := c.constants.Intern(Constant{Kind: ConstString, S: e.Value})
		c.emitLoadConst(idx)
	case *ast.BoolLit:
		idx := c.constants.Intern(Constant{Kind: ConstBool, B: e.Value})
		c.emitLoadConst(idx)
	case *ast.Name:
		idx, ok := c.symbols.Lookup(e.Ident)
		if !ok {
			return &NameError{Pos: e.Position, Name: e.Ident}
		}
		sym, _ := c.symbols.At(idx)
		if sym.Kind != SymVar {
			return &NameError{Pos: e.Position, Name: e.Ident}
		}
		c.emitLoadVar(sym.Value)
	case *ast.UnaryExpr:
		return c.compileUnary(e)
	case *ast.BinaryExpr:
		return c.compileBinary(e)
	case *ast.CallExpr:
		return c.compileCallExpr(e)
	default:
		return &CompileError{Pos: e.Pos(), Msg: "unknown expression node"}
	}
	return nil
}

func (c *compiler) compileUnary(e *ast.UnaryExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	switch e.Op {
	case token.MINUS:
		c.emitOp(NEG)
	case token.NOT:
		c.emitOp(NOT)
	default:
		return &CompileError{Pos: e.Position, Msg: "unsupported unary operator"}
	}
	return nil
}

var binOpcodes = map[token.Token]Opcode{
	token.PLUS: ADD, token.MINUS: SUB, token.STAR: MUL, token.SLASH: DIV, token.PERCENT: MOD,
	token.EQL: EQ, token.NEQ: NEQ, token.LT: LT, token.LE: LE, token.GT: GT, token.GE: GE,
	token.AND: AND, token.OR: OR,
}

func (c *compiler) compileBinary(e *ast.BinaryExpr) error {
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	if err := c.compileExpr(e.Y); err != nil {
		return err
	}
	op, ok := binOpcodes[e.Op]
	if !ok {
		return &CompileError{Pos: e.Position, Msg: "unsupported binary operator"}
	}
	if err := staticTypeCheck(e); err != nil {
		return err
	}
	c.emitOp(op)
	return nil
}

// staticTypeCheck rejects the one operator/operand combination that is
// decidable purely from literal syntax: a string literal added to a
// non-string literal. Anything involving a variable is left to the
// runtime TypeError, since its value is not known at compile time.
func staticTypeCheck(e *ast.BinaryExpr) error {
	if e.Op != token.PLUS {
		return nil
	}
	_, xIsStr := e.X.(*ast.StringLit)
	_, yIsStr := e.Y.(*ast.StringLit)
	if !isLiteral(e.X) || !isLiteral(e.Y) {
		return nil
	}
	if xIsStr != yIsStr {
		return &TypeError{Pos: e.Position, Msg: "cannot add a string and a non-string literal"}
	}
	return nil
}

func isLiteral(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit:
		return true
	default:
		return false
	}
}

// compileCallExpr compiles a call used as a sub-expression (its result is
// needed), e.g. `x = input()`. Builtins always go through the CALL
// opcode in this position since the direct PRINT/INPUT opcodes are only
// emitted for the canonical statement-position desugaring in
// compileCallStmt.
func (c *compiler) compileCallExpr(e *ast.CallExpr) error {
	tag, argc, err := c.checkBuiltinCall(e)
	if err != nil {
		return err
	}
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	symIdx := c.declareBuiltinSymbol(e.Func, tag)
	c.code.EmitCall(uint16(symIdx), uint8(argc))
	c.push(1 - argc) // fn result replaces the argc arguments
	return nil
}

// compileCallStmt compiles a call in statement position. This is where
// the canonical single-argument print(...) desugars to the direct PRINT
// opcode (net stack effect 0, matching the worked example in spec.md
// §6), and a zero-argument input() desugars to the direct INPUT opcode
// followed by a POP (its result is unused in statement position).
func (c *compiler) compileCallStmt(e *ast.CallExpr) error {
	switch e.Func {
	case "print":
		if len(e.Args) == 1 {
			// Always intern "print" as a constant, mirroring the canonical
			// bytecode: the literal is recorded even though the direct PRINT
			// opcode does not reference it, a leftover of always resolving the
			// callee name before deciding which opcode form to emit.
			c.constants.Intern(Constant{Kind: ConstString, S: "print"})
			if err := c.compileExpr(e.Args[0]); err != nil {
				return err
			}
			c.emitOp(PRINT)
			return nil
		}
		return c.compileGeneralCall(e, BuiltinPrint)
	case "input":
		if len(e.Args) == 0 {
			c.emitOp(INPUT)
			c.emitOp(POP)
			return nil
		}
		if len(e.Args) == 1 {
			return c.compileGeneralCall(e, BuiltinInput)
		}
		return &CompileError{Pos: e.Position, Msg: "input takes at most one argument"}
	default:
		return &NameError{Pos: e.Position, Name: e.Func}
	}
}

func (c *compiler) compileGeneralCall(e *ast.CallExpr, tag uint32) error {
	for _, a := range e.Args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	symIdx := c.declareBuiltinSymbol(e.Func, tag)
	c.code.EmitCall(uint16(symIdx), uint8(len(e.Args)))
	c.push(1 - len(e.Args)) // CALL pops argc args, pushes one result
	c.emitOp(POP)           // drop the unused call result in statement position
	return nil
}

func (c *compiler) declareBuiltinSymbol(name string, tag uint32) uint32 {
	return c.symbols.DeclareBuiltin(name, tag)
}

func (c *compiler) checkBuiltinCall(e *ast.CallExpr) (tag uint32, argc int, err error) {
	switch e.Func {
	case "print":
		return BuiltinPrint, len(e.Args), nil
	case "input":
		if len(e.Args) > 1 {
			return 0, 0, &CompileError{Pos: e.Position, Msg: "input takes at most one argument"}
		}
		return BuiltinInput, len(e.Args), nil
	default:
		return 0, 0, &NameError{Pos: e.Position, Name: e.Func}
	}
}
