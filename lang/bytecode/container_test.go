package bytecode_test

import (
	"testing"

	"github.com/mna/pvm/lang/bytecode"
	"github.com/mna/pvm/lang/compiler"
	"github.com/mna/pvm/lang/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, src string, withDebug bool) *compiler.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	p, err := compiler.Compile(prog, withDebug)
	require.NoError(t, err)
	return p
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		desc  string
		src   string
		debug bool
	}{
		{"canonical example", "x = 10; y = 20; print(x + y)", false},
		{"while loop", "i = 0; while i < 3: print(i); i = i + 1", false},
		{"if else", `x = 5; if x > 0: print("pos"); else: print("neg")`, false},
		{"with debug section", "x = 1; y = 2", true},
		{"strings", `s = "hello\nworld"; print(s)`, false},
		{"floats and bools", "f = 3.14; b = true; print(f); print(b)", false},
	}

	for _, c := range cases {
		t.Run(c.desc, func(t *testing.T) {
			p := compile(t, c.src, c.debug)
			data, err := bytecode.Encode(p)
			require.NoError(t, err)

			got, err := bytecode.Decode(data)
			require.NoError(t, err)

			assert.Equal(t, p.Version, got.Version)
			assert.Equal(t, p.Debug, got.Debug)
			assert.Equal(t, p.Constants, got.Constants)
			assert.Equal(t, p.Symbols, got.Symbols)
			assert.Equal(t, p.Code, got.Code)
			assert.Equal(t, p.DebugLines, got.DebugLines)
		})
	}
}

func TestCanonicalExampleCodeSize(t *testing.T) {
	p := compile(t, "x = 10; y = 20; print(x + y)", false)
	data, err := bytecode.Encode(p)
	require.NoError(t, err)

	// code_size field, offset 16, 4 bytes little-endian.
	codeSize := uint32(data[16]) | uint32(data[17])<<8 | uint32(data[18])<<16 | uint32(data[19])<<24
	assert.Equal(t, uint32(len(p.Code)), codeSize)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	p := compile(t, "x = 1", false)
	data, err := bytecode.Encode(p)
	require.NoError(t, err)
	data[0] = 0

	_, err = bytecode.Decode(data)
	require.Error(t, err)
	var loadErr *bytecode.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := bytecode.Decode([]byte{0x50, 0x59})
	require.Error(t, err)
}

func TestDecodeRejectsOlderMajorVersion(t *testing.T) {
	p := compile(t, "x = 1", false)
	data, err := bytecode.Encode(p)
	require.NoError(t, err)
	data[4], data[5] = 0, 0 // version = 0, older than CurrentVersion = 1

	_, err = bytecode.Decode(data)
	require.Error(t, err)
}

func TestDecodeRejectsOutOfRangeJumpTarget(t *testing.T) {
	p := compile(t, "i = 0; while i < 3: print(i); i = i + 1", false)
	data, err := bytecode.Encode(p)
	require.NoError(t, err)

	// Locate the first JMP_IF_FALSE's operand within p.Code, then find the
	// code section's absolute offset in the encoded container by summing
	// the exact byte sizes Encode uses for the constant and symbol
	// sections ahead of it.
	var insOffset = -1
	require.NoError(t, compiler.Walk(p.Code, func(ins compiler.Instruction) error {
		if insOffset < 0 && ins.Op == compiler.JMP_IF_FALSE {
			insOffset = ins.PC
		}
		return nil
	}))
	require.GreaterOrEqual(t, insOffset, 0, "expected a JMP_IF_FALSE in the compiled loop")

	codeStart := 20
	for _, c := range p.Constants {
		codeStart += 1 + 4 + constantPayloadSize(c)
	}
	for _, s := range p.Symbols {
		codeStart += 1 + 2 + len(s.Name) + 4
	}

	operandOffset := codeStart + insOffset + 1
	out := append([]byte(nil), data...)
	out[operandOffset] = 0xFF
	out[operandOffset+1] = 0xFF
	out[operandOffset+2] = 0xFF
	out[operandOffset+3] = 0x7F

	_, err = bytecode.Decode(out)
	require.Error(t, err)
	var loadErr *bytecode.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func constantPayloadSize(c compiler.Constant) int {
	switch c.Kind {
	case compiler.ConstInt:
		return 4
	case compiler.ConstFloat:
		return 8
	case compiler.ConstString:
		return len(c.S) + 1
	case compiler.ConstBool:
		return 1
	default:
		return 0
	}
}
