package machine

import (
	"fmt"

	"github.com/mna/pvm/lang/compiler"
)

// arith implements ADD, SUB, MUL, DIV, MOD per spec.md §4.1: both numeric
// operands same kind is the common path; an Int paired with a Float
// promotes the Int to Float before applying the operator. ADD additionally
// accepts two Strings, which it concatenates. Division and modulo by a
// zero operand report ArithmeticError rather than panicking or producing
// an infinity, matching the spec's error taxonomy.
func (vm *VM) arith(op compiler.Opcode) error {
	b, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.Pop()
	if err != nil {
		return err
	}

	if op == compiler.ADD && a.Kind == KindString && b.Kind == KindString {
		return vm.stack.Push(Str(a.S + b.S))
	}

	if !isNumeric(a) || !isNumeric(b) {
		return &TypeError{Msg: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, a.Kind, b.Kind)}
	}

	if a.Kind == KindInt && b.Kind == KindInt {
		result, err := intArith(op, a.I, b.I)
		if err != nil {
			return err
		}
		return vm.stack.Push(Int(result))
	}

	x, y := asFloat(a), asFloat(b)
	result, err := floatArith(op, x, y)
	if err != nil {
		return err
	}
	return vm.stack.Push(Float(result))
}

func isNumeric(v Value) bool { return v.Kind == KindInt || v.Kind == KindFloat }

func asFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}

func intArith(op compiler.Opcode, a, b int32) (int32, error) {
	switch op {
	case compiler.ADD:
		return a + b, nil
	case compiler.SUB:
		return a - b, nil
	case compiler.MUL:
		return a * b, nil
	case compiler.DIV:
		if b == 0 {
			return 0, &ArithmeticError{Msg: "division by zero"}
		}
		return a / b, nil
	case compiler.MOD:
		if b == 0 {
			return 0, &ArithmeticError{Msg: "modulo by zero"}
		}
		return a % b, nil
	default:
		return 0, &InvalidOpcode{Op: byte(op)}
	}
}

func floatArith(op compiler.Opcode, a, b float64) (float64, error) {
	switch op {
	case compiler.ADD:
		return a + b, nil
	case compiler.SUB:
		return a - b, nil
	case compiler.MUL:
		return a * b, nil
	case compiler.DIV:
		if b == 0 {
			return 0, &ArithmeticError{Msg: "division by zero"}
		}
		return a / b, nil
	case compiler.MOD:
		if b == 0 {
			return 0, &ArithmeticError{Msg: "modulo by zero"}
		}
		return mod(a, b), nil
	default:
		return 0, &InvalidOpcode{Op: byte(op)}
	}
}

func mod(a, b float64) float64 {
	r := a - b*float64(int64(a/b))
	return r
}

// neg implements NEG: numeric negation, Int stays Int, Float stays Float.
func (vm *VM) neg() error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	switch v.Kind {
	case KindInt:
		return vm.stack.Push(Int(-v.I))
	case KindFloat:
		return vm.stack.Push(Float(-v.F))
	default:
		return &TypeError{Msg: fmt.Sprintf("unsupported operand type for neg: %s", v.Kind)}
	}
}

// compare implements EQ, NEQ, LT, LE, GT, GE. Equality is defined across
// all kinds (mismatched kinds are simply unequal, never an error);
// ordering requires two numerics (with Int/Float promotion) or two
// Strings (lexicographic), per spec.md §4.1.
func (vm *VM) compare(op compiler.Opcode) error {
	b, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.Pop()
	if err != nil {
		return err
	}

	if op == compiler.EQ || op == compiler.NEQ {
		eq := valuesEqual(a, b)
		if op == compiler.NEQ {
			eq = !eq
		}
		return vm.stack.Push(Bool(eq))
	}

	var cmp int
	switch {
	case isNumeric(a) && isNumeric(b):
		x, y := asFloat(a), asFloat(b)
		cmp = cmpFloat(x, y)
	case a.Kind == KindString && b.Kind == KindString:
		cmp = cmpString(a.S, b.S)
	default:
		return &TypeError{Msg: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, a.Kind, b.Kind)}
	}

	var result bool
	switch op {
	case compiler.LT:
		result = cmp < 0
	case compiler.LE:
		result = cmp <= 0
	case compiler.GT:
		result = cmp > 0
	case compiler.GE:
		result = cmp >= 0
	default:
		return &InvalidOpcode{Op: byte(op)}
	}
	return vm.stack.Push(Bool(result))
}

func valuesEqual(a, b Value) bool {
	if isNumeric(a) && isNumeric(b) {
		return asFloat(a) == asFloat(b)
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindString:
		return a.S == b.S
	case KindBool:
		return a.B == b.B
	case KindNull:
		return true
	default:
		return false
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// logical implements AND/OR with the Boolean-only operand policy of
// spec.md §4.1: both operands must already be Booleans, unlike Truthy's
// wider coercion used for jump conditions.
func (vm *VM) logical(op compiler.Opcode) error {
	b, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if a.Kind != KindBool || b.Kind != KindBool {
		return &TypeError{Msg: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, a.Kind, b.Kind)}
	}
	var result bool
	if op == compiler.AND {
		result = a.B && b.B
	} else {
		result = a.B || b.B
	}
	return vm.stack.Push(Bool(result))
}

// not implements NOT, restricted to Boolean operands.
func (vm *VM) not() error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if v.Kind != KindBool {
		return &TypeError{Msg: fmt.Sprintf("unsupported operand type for not: %s", v.Kind)}
	}
	return vm.stack.Push(Bool(!v.B))
}
