package machine

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/mna/pvm/lang/compiler"
)

// ctxCheckInterval is how often, in executed instructions, Run polls the
// context for cancellation. I/O (PRINT, INPUT) is the only operation
// that blocks on its own, so a tight CPU-bound loop (an infinite while)
// needs this poll to be interruptible at all.
const ctxCheckInterval = 4096

// Stats accumulates the minimal post-run execution counters surfaced by
// the CLI's --performance flag (spec.md §6; the stats layer itself is
// explicitly out of scope for the core design in spec.md §1, so this
// stays a simple post-run summary rather than a tracing hook threaded
// through dispatch).
type Stats struct {
	Instructions uint64
	ByOpcode     map[compiler.Opcode]uint64
}

// VM is the stack machine that executes a compiled Program: program
// counter, operand stack, call stack, and a variable store sized from the
// Program's symbol table, per spec.md §4.4.
type VM struct {
	PC int

	stack *OperandStack
	calls *CallStack
	vars  []Value

	prog *compiler.Program

	stdout      io.Writer
	stderr      io.Writer
	stdin       io.Reader
	stdinReader interface {
		ReadString(byte) (string, error)
	}

	// Trace, when true, echoes each instruction to Stderr before executing
	// it (the supplemental --debug trace mode described in SPEC_FULL.md).
	Trace bool

	Stats Stats
}

// Config carries the optional tunables for New: stack/call-stack soft
// maxima and I/O redirection. A zero Config uses the spec.md §5 defaults
// and os.Stdout/os.Stderr/os.Stdin.
type Config struct {
	MaxOperandStack int
	MaxCallFrames   int
	Stdout          io.Writer
	Stderr          io.Writer
	Stdin           io.Reader
}

// New returns a VM ready to run p.
func New(p *compiler.Program, cfg Config) *VM {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	return &VM{
		stack:  NewOperandStack(cfg.MaxOperandStack),
		calls:  NewCallStack(cfg.MaxCallFrames),
		vars:   make([]Value, compiler.VarCount(p)),
		prog:   p,
		stdout: cfg.Stdout,
		stderr: cfg.Stderr,
		stdin:  cfg.Stdin,
		Stats:  Stats{ByOpcode: make(map[compiler.Opcode]uint64)},
	}
}

// Reset clears the stacks and variable store and rewinds PC to 0, so a
// single VM instance may run the same Program more than once. Per
// spec.md §5, the variable store is owned by the VM and reset on each
// run.
func (vm *VM) Reset() {
	vm.PC = 0
	vm.stack.Reset()
	vm.calls.Reset()
	for i := range vm.vars {
		vm.vars[i] = Null
	}
	vm.Stats = Stats{ByOpcode: make(map[compiler.Opcode]uint64)}
}

// Run executes the program to completion: HALT or PC >= len(code), per
// spec.md §4.4. It returns the first runtime error encountered, wrapped
// with the failing PC, opcode, and a call-stack snapshot. It also returns
// early if ctx is cancelled.
func (vm *VM) Run(ctx context.Context) error {
	code := vm.prog.Code
	for vm.PC < len(code) {
		if vm.Stats.Instructions%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return vm.fail(compiler.Opcode(code[vm.PC]), ctx.Err())
			default:
			}
		}

		op := compiler.Opcode(code[vm.PC])
		width := compiler.OperandWidth(op)
		if vm.PC+1+width > len(code) {
			return vm.fail(op, &InvalidOpcode{Op: byte(op)})
		}

		if vm.Trace {
			fmt.Fprintf(vm.stderr, "%d\t%s\n", vm.PC, vm.describe(op, code))
		}

		vm.Stats.Instructions++
		vm.Stats.ByOpcode[op]++

		pc := vm.PC
		vm.PC += 1 + width

		if op == HALT {
			return nil
		}

		if err := vm.exec(op, code, pc); err != nil {
			return vm.fail(op, err)
		}
	}
	return nil
}

func (vm *VM) describe(op compiler.Opcode, code []byte) string {
	return op.String()
}

func (vm *VM) fail(op compiler.Opcode, err error) error {
	frames := make([]Frame, vm.calls.Depth())
	for i, fr := range vm.calls.Frames() {
		frames[i] = Frame{PC: fr.ReturnPC}
	}
	return &RuntimeError{PC: vm.PC, Op: op, Frames: frames, Wrapped: err}
}

const (
	HALT = compiler.HALT
)

func u8(code []byte, pc int) uint8   { return code[pc+1] }
func u16(code []byte, pc int) uint16 { return binary.LittleEndian.Uint16(code[pc+1 : pc+3]) }
func u32(code []byte, pc int) uint32 { return binary.LittleEndian.Uint32(code[pc+1 : pc+5]) }

func (vm *VM) exec(op compiler.Opcode, code []byte, pc int) error {
	switch op {
	case compiler.NOP:
		return nil

	case compiler.LOAD_CONST:
		return vm.loadConst(uint32(u8(code, pc)))
	case compiler.LOAD_CONST_W:
		return vm.loadConst(uint32(u16(code, pc)))
	case compiler.LOAD_VAR:
		return vm.loadVar(uint32(u8(code, pc)))
	case compiler.LOAD_VAR_W:
		return vm.loadVar(uint32(u16(code, pc)))
	case compiler.STORE_VAR:
		return vm.storeVar(uint32(u8(code, pc)))
	case compiler.STORE_VAR_W:
		return vm.storeVar(uint32(u16(code, pc)))

	case compiler.POP:
		_, err := vm.stack.Pop()
		return err
	case compiler.DUP:
		return vm.dup()
	case compiler.SWAP:
		return vm.swap()

	case compiler.ADD, compiler.SUB, compiler.MUL, compiler.DIV, compiler.MOD:
		return vm.arith(op)
	case compiler.NEG:
		return vm.neg()

	case compiler.EQ, compiler.NEQ, compiler.LT, compiler.LE, compiler.GT, compiler.GE:
		return vm.compare(op)

	case compiler.AND, compiler.OR:
		return vm.logical(op)
	case compiler.NOT:
		return vm.not()

	case compiler.PRINT:
		return vm.print()
	case compiler.INPUT:
		return vm.input()

	case compiler.JMP:
		vm.PC = int(u32(code, pc))
		return nil
	case compiler.JMP_IF_FALSE:
		return vm.condJump(int(u32(code, pc)), false)
	case compiler.JMP_IF_TRUE:
		return vm.condJump(int(u32(code, pc)), true)

	case compiler.CALL:
		symIdx := uint32(u16(code, pc))
		argc := code[pc+3]
		return vm.call(symIdx, int(argc), pc+1+compiler.OperandWidth(op))
	case compiler.RETURN:
		return vm.ret()

	default:
		return &InvalidOpcode{Op: byte(op)}
	}
}

func (vm *VM) loadConst(idx uint32) error {
	c, ok := lookupConstant(vm.prog, idx)
	if !ok {
		return &TypeError{Msg: "constant index out of range"}
	}
	return vm.stack.Push(constantToValue(c))
}

func lookupConstant(p *compiler.Program, idx uint32) (compiler.Constant, bool) {
	if int(idx) >= len(p.Constants) {
		return compiler.Constant{}, false
	}
	return p.Constants[idx], true
}

func constantToValue(c compiler.Constant) Value {
	switch c.Kind {
	case compiler.ConstInt:
		return Int(c.I)
	case compiler.ConstFloat:
		return Float(c.F)
	case compiler.ConstString:
		return Str(c.S)
	case compiler.ConstBool:
		return Bool(c.B)
	default:
		return Null
	}
}

func (vm *VM) loadVar(idx uint32) error {
	if int(idx) >= len(vm.vars) {
		return &TypeError{Msg: "variable slot out of range"}
	}
	return vm.stack.Push(vm.vars[idx])
}

func (vm *VM) storeVar(idx uint32) error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if int(idx) >= len(vm.vars) {
		return &TypeError{Msg: "variable slot out of range"}
	}
	vm.vars[idx] = v
	return nil
}

func (vm *VM) dup() error {
	v, err := vm.stack.Peek()
	if err != nil {
		return err
	}
	return vm.stack.Push(v)
}

func (vm *VM) swap() error {
	b, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	a, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if err := vm.stack.Push(b); err != nil {
		return err
	}
	return vm.stack.Push(a)
}

func (vm *VM) condJump(target int, when bool) error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	if v.Truthy() == when {
		vm.PC = target
	}
	return nil
}

func (vm *VM) print() error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	fmt.Fprintln(vm.stdout, v.String())
	return nil
}

func (vm *VM) input() error {
	line, err := vm.readLine()
	if err != nil {
		return err
	}
	return vm.stack.Push(Str(line))
}

func (vm *VM) call(symIdx uint32, argc, returnPC int) error {
	if int(symIdx) >= len(vm.prog.Symbols) {
		return &TypeError{Msg: "symbol index out of range"}
	}
	sym := vm.prog.Symbols[symIdx]
	if sym.Kind != compiler.SymFunc {
		return &TypeError{Msg: fmt.Sprintf("%q is not callable", sym.Name)}
	}

	args := make([]Value, argc)
	for i := argc - 1; i >= 0; i-- {
		v, err := vm.stack.Pop()
		if err != nil {
			return err
		}
		args[i] = v
	}

	result, err := vm.callBuiltin(sym.Value, args)
	if err != nil {
		return err
	}
	return vm.stack.Push(result)
}

// ret implements RETURN: pop the return value, restore the caller's
// frame, truncate the operand stack to the saved baseline, push the
// return value, and resume at the caller's PC. Per spec.md §4.4, pvm's
// surface language never compiles a RETURN (no user-defined functions),
// so this path only triggers via hand-assembled or malformed bytecode,
// exercised directly by the machine package's tests.
func (vm *VM) ret() error {
	v, err := vm.stack.Pop()
	if err != nil {
		return err
	}
	fr, err := vm.calls.Pop()
	if err != nil {
		return err
	}
	vm.stack.Truncate(fr.SavedDepth)
	if err := vm.stack.Push(v); err != nil {
		return err
	}
	vm.PC = fr.ReturnPC
	return nil
}
