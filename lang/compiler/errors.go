package compiler

import (
	"fmt"

	"github.com/mna/pvm/lang/token"
)

// NameError reports a read of an undeclared variable.
type NameError struct {
	Pos  token.Position
	Name string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%s: name error: undeclared variable %q", e.Pos, e.Name)
}

// TypeError reports an operator applied to statically-known-incompatible
// literal types, decided at compile time.
type TypeError struct {
	Pos token.Position
	Msg string
}

func (e *TypeError) Error() string { return fmt.Sprintf("%s: type error: %s", e.Pos, e.Msg) }

// CompileError reports a malformed AST or an internal code generation
// failure (e.g. an unresolved branch label or a stack-depth mismatch at a
// control-flow merge point).
type CompileError struct {
	Pos token.Position
	Msg string
}

func (e *CompileError) Error() string {
	if (e.Pos == token.Position{}) {
		return fmt.Sprintf("compile error: %s", e.Msg)
	}
	return fmt.Sprintf("%s: compile error: %s", e.Pos, e.Msg)
}
