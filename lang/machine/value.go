// Package machine implements the stack-based virtual machine that
// executes a compiled Program: the operand stack, call stack, variable
// store, and the opcode dispatch loop, wired to the constant and symbol
// tables the Program carries.
package machine

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is the runtime-tagged union manipulated by the machine. It is a
// plain sum type, not a duck-typed interface: dispatch on arithmetic,
// comparison and conversion switches explicitly on Kind, per spec.md §9's
// "tagged runtime values" design note.
type Value struct {
	Kind Kind
	I    int32
	F    float64
	S    string
	B    bool
}

// Null is the sole Value of kind KindNull.
var Null = Value{Kind: KindNull}

// Int returns an Integer value.
func Int(i int32) Value { return Value{Kind: KindInt, I: i} }

// Float returns a Float value.
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }

// Str returns a String value.
func Str(s string) Value { return Value{Kind: KindString, S: s} }

// Bool returns a Boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Truthy implements the boolean-conversion rule from spec.md §4.1:
// Boolean -> itself; Integer/Float -> non-zero; String -> non-empty;
// Null -> false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I != 0
	case KindFloat:
		return v.F != 0
	case KindString:
		return v.S != ""
	case KindNull:
		return false
	default:
		return false
	}
}

// String returns the canonical textual form used by PRINT: integers
// without a decimal point, floats with at least one decimal digit,
// strings without quotes, booleans as lowercase true/false, null as
// "null".
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(int64(v.I), 10)
	case KindFloat:
		return formatFloat(v.F)
	case KindString:
		return v.S
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("<invalid value kind %d>", v.Kind)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.':
			return s
		case 'e', 'E':
			return s[:i] + ".0" + s[i:]
		}
	}
	return s + ".0"
}
