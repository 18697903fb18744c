package bytecode

import (
	"github.com/mna/pvm/lang/compiler"
)

// verify checks the Data Model invariants from spec.md §3 that the loader
// is responsible for: every constant/symbol index referenced by code is
// in bounds, and every jump target lies at the first byte of an
// instruction.
func verify(p *compiler.Program) error {
	boundaries := map[int]bool{}
	var insns []compiler.Instruction

	err := compiler.Walk(p.Code, func(ins compiler.Instruction) error {
		boundaries[ins.PC] = true
		insns = append(insns, ins)
		return nil
	})
	if err != nil {
		return &LoadError{Msg: "malformed code section: " + err.Error()}
	}

	nConst := uint32(len(p.Constants))
	nSym := uint32(len(p.Symbols))
	nVar := uint32(compiler.VarCount(p))
	codeSize := len(p.Code)

	for _, ins := range insns {
		switch ins.Op {
		case compiler.LOAD_CONST, compiler.LOAD_CONST_W:
			if ins.Arg >= nConst {
				return &LoadError{Msg: "constant index out of range"}
			}
		case compiler.LOAD_VAR, compiler.LOAD_VAR_W, compiler.STORE_VAR, compiler.STORE_VAR_W:
			// ins.Arg is a variable-store slot (see compiler.VarCount), not a
			// symbol-table index, so it bounds-checks against the var count,
			// not len(p.Symbols).
			if ins.Arg >= nVar {
				return &LoadError{Msg: "variable slot out of range"}
			}
		case compiler.CALL:
			sym := compiler.CallSymbol(ins.Arg)
			if sym >= nSym {
				return &LoadError{Msg: "symbol index out of range in CALL"}
			}
		case compiler.JMP, compiler.JMP_IF_FALSE, compiler.JMP_IF_TRUE:
			target := int(ins.Arg)
			if target < 0 || target >= codeSize || !boundaries[target] {
				return &LoadError{Msg: "jump target out of range or misaligned"}
			}
		}
	}

	for _, l := range p.DebugLines {
		if int(l.PC) > codeSize {
			return &LoadError{Msg: "debug entry pc out of range"}
		}
	}

	return nil
}
