package maincmd

import (
	"fmt"
	"io"

	"github.com/mna/pvm/lang/compiler"
	"github.com/mna/pvm/lang/disasm"
)

func printDisasm(w io.Writer, prog *compiler.Program) error {
	return disasm.Print(w, prog)
}

// printInfo prints the container header and table summaries, mirroring
// the teacher's Printer-based reporting style: one labeled line per
// field, constants and symbols listed in table order.
func printInfo(w io.Writer, prog *compiler.Program) error {
	fmt.Fprintf(w, "version: %d\n", prog.Version)
	fmt.Fprintf(w, "debug: %t\n", prog.Debug)
	fmt.Fprintf(w, "constants: %d\n", len(prog.Constants))
	for i, c := range prog.Constants {
		fmt.Fprintf(w, "  #%d %s\n", i, formatConstant(c))
	}
	fmt.Fprintf(w, "symbols: %d\n", len(prog.Symbols))
	for i, s := range prog.Symbols {
		fmt.Fprintf(w, "  @%d %s %s = %d\n", i, symbolKindName(s.Kind), s.Name, s.Value)
	}
	fmt.Fprintf(w, "code size: %d bytes\n", len(prog.Code))
	if prog.Debug {
		fmt.Fprintf(w, "debug lines: %d\n", len(prog.DebugLines))
	}
	return nil
}

func formatConstant(c compiler.Constant) string {
	switch c.Kind {
	case compiler.ConstInt:
		return fmt.Sprintf("int %d", c.I)
	case compiler.ConstFloat:
		return fmt.Sprintf("float %v", c.F)
	case compiler.ConstString:
		return fmt.Sprintf("string %q", c.S)
	case compiler.ConstBool:
		return fmt.Sprintf("bool %t", c.B)
	default:
		return "unknown"
	}
}

func symbolKindName(k compiler.SymbolKind) string {
	if k == compiler.SymFunc {
		return "func"
	}
	return "var"
}
