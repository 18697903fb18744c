package disasm_test

import (
	"strings"
	"testing"

	"github.com/mna/pvm/lang/compiler"
	"github.com/mna/pvm/lang/disasm"
	"github.com/mna/pvm/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintResolvesConstantsAndSymbols(t *testing.T) {
	ast, err := parser.Parse("x = 10; y = 20; print(x + y)")
	require.NoError(t, err)
	prog, err := compiler.Compile(ast, false)
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, disasm.Print(&b, prog))
	out := b.String()

	assert.Contains(t, out, "load_const\t#0 (10)")
	assert.Contains(t, out, "store_var\t$0 (x)")
	assert.Contains(t, out, "load_var\t$1 (y)")
	assert.Contains(t, out, "print")
	assert.Contains(t, out, "halt")
}

func TestPrintResolvesJumpTargets(t *testing.T) {
	ast, err := parser.Parse("i = 0; while i < 3: print(i); i = i + 1")
	require.NoError(t, err)
	prog, err := compiler.Compile(ast, false)
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, disasm.Print(&b, prog))
	out := b.String()

	assert.Contains(t, out, "jmp_if_false\t-> ")
	assert.Contains(t, out, "jmp\t-> ")
}

func TestPrintResolvesCallOperand(t *testing.T) {
	ast, err := parser.Parse(`print(1, 2, 3)`)
	require.NoError(t, err)
	prog, err := compiler.Compile(ast, false)
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, disasm.Print(&b, prog))
	out := b.String()

	assert.Contains(t, out, "call\t@0 (print)/3")
}
