// Package disasm renders a compiled Program's code section back into a
// human-readable textual form, one line per instruction, resolving
// constant-pool and symbol-table indices to their values/names. It backs
// the CLI's --show-bytecode output.
package disasm

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mna/pvm/lang/compiler"
)

// Print writes one line per instruction in p's code section to w, in the
// form:
//
//	<pc>\t<op>\t<operand>
//
// where <operand> resolves LOAD_CONST[_W] to the constant's literal text,
// LOAD_VAR[_W]/STORE_VAR[_W] to the variable's name (looked up by storage
// slot, not symbol-table position), CALL to the callee's name and argc
// (looked up by symbol-table index), and jumps to the absolute target
// offset.
func Print(w io.Writer, p *compiler.Program) error {
	return compiler.Walk(p.Code, func(ins compiler.Instruction) error {
		operand := formatOperand(p, ins)
		if operand == "" {
			_, err := fmt.Fprintf(w, "%04d\t%s\n", ins.PC, ins.Op)
			return err
		}
		_, err := fmt.Fprintf(w, "%04d\t%s\t%s\n", ins.PC, ins.Op, operand)
		return err
	})
}

func formatOperand(p *compiler.Program, ins compiler.Instruction) string {
	switch ins.Op {
	case compiler.LOAD_CONST, compiler.LOAD_CONST_W:
		return formatConstRef(p, ins.Arg)
	case compiler.LOAD_VAR, compiler.LOAD_VAR_W, compiler.STORE_VAR, compiler.STORE_VAR_W:
		return formatVarSlot(p, ins.Arg)
	case compiler.CALL:
		sym := compiler.CallSymbol(ins.Arg)
		argc := compiler.CallArgc(ins.Arg)
		return fmt.Sprintf("%s/%d", formatSymRef(p, sym), argc)
	case compiler.JMP, compiler.JMP_IF_FALSE, compiler.JMP_IF_TRUE:
		return fmt.Sprintf("-> %04d", ins.Arg)
	default:
		return ""
	}
}

func formatConstRef(p *compiler.Program, idx uint32) string {
	if int(idx) >= len(p.Constants) {
		return fmt.Sprintf("#%d <out of range>", idx)
	}
	c := p.Constants[idx]
	switch c.Kind {
	case compiler.ConstInt:
		return fmt.Sprintf("#%d (%d)", idx, c.I)
	case compiler.ConstFloat:
		return fmt.Sprintf("#%d (%s)", idx, strconv.FormatFloat(c.F, 'g', -1, 64))
	case compiler.ConstString:
		return fmt.Sprintf("#%d (%q)", idx, c.S)
	case compiler.ConstBool:
		return fmt.Sprintf("#%d (%t)", idx, c.B)
	default:
		return fmt.Sprintf("#%d", idx)
	}
}

// formatSymRef resolves idx as a direct symbol-table index, the form CALL
// packs (see compileGeneralCall/compileCallExpr).
func formatSymRef(p *compiler.Program, idx uint32) string {
	if int(idx) >= len(p.Symbols) {
		return fmt.Sprintf("@%d <out of range>", idx)
	}
	return fmt.Sprintf("@%d (%s)", idx, p.Symbols[idx].Name)
}

// formatVarSlot resolves slot as a variable-store slot index (the
// SymVar's Value, not its symbol-table position), the form
// LOAD_VAR/STORE_VAR pack.
func formatVarSlot(p *compiler.Program, slot uint32) string {
	for _, s := range p.Symbols {
		if s.Kind == compiler.SymVar && s.Value == slot {
			return fmt.Sprintf("$%d (%s)", slot, s.Name)
		}
	}
	return fmt.Sprintf("$%d <unknown>", slot)
}
