package bytecode

import (
	"encoding/binary"
	"math"

	"github.com/mna/pvm/lang/compiler"
)

// reservedFlagMask covers the header flag bits this loader does not
// understand (bits 1-15). The 16-bit version field is a single number with
// no separate major/minor parts: Decode rejects a version lower than
// compiler.CurrentVersion, and accepts a higher version only when none of
// these reserved flag bits is set.
const reservedFlagMask uint16 = ^FlagDebug

// Decode parses and verifies a .pvm container, returning the reconstructed
// Program. It rejects a bad magic, an incompatible version, a truncated
// section, or any out-of-range constant/symbol/jump index.
func Decode(data []byte) (*compiler.Program, error) {
	if len(data) < headerSize {
		return nil, &LoadError{Msg: "truncated header"}
	}
	if !bytesEqual(data[0:4], Magic[:]) {
		return nil, &LoadError{Msg: "bad magic"}
	}
	version := binary.LittleEndian.Uint16(data[4:6])
	flags := binary.LittleEndian.Uint16(data[6:8])
	if version < compiler.CurrentVersion {
		return nil, &LoadError{Msg: "unsupported (older major) version"}
	}
	if version > compiler.CurrentVersion && flags&reservedFlagMask != 0 {
		return nil, &LoadError{Msg: "newer version sets a reserved flag bit this loader does not understand"}
	}

	constCount := binary.LittleEndian.Uint32(data[8:12])
	symbolCount := binary.LittleEndian.Uint32(data[12:16])
	codeSize := binary.LittleEndian.Uint32(data[16:20])

	off := headerSize
	constants := make([]compiler.Constant, 0, constCount)
	for i := uint32(0); i < constCount; i++ {
		c, n, err := decodeConstant(data[off:])
		if err != nil {
			return nil, err
		}
		constants = append(constants, c)
		off += n
	}

	symbols := make([]compiler.Symbol, 0, symbolCount)
	for i := uint32(0); i < symbolCount; i++ {
		s, n, err := decodeSymbol(data[off:])
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
		off += n
	}

	if off+int(codeSize) > len(data) {
		return nil, &LoadError{Msg: "truncated code section"}
	}
	code := data[off : off+int(codeSize)]
	off += int(codeSize)

	p := &compiler.Program{
		Version:   version,
		Debug:     flags&FlagDebug != 0,
		Constants: constants,
		Symbols:   symbols,
		Code:      append([]byte(nil), code...),
	}

	if p.Debug {
		lines, err := decodeDebugSection(data[off:])
		if err != nil {
			return nil, err
		}
		p.DebugLines = lines
	}

	if err := verify(p); err != nil {
		return nil, err
	}
	return p, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func decodeConstant(data []byte) (compiler.Constant, int, error) {
	if len(data) < 5 {
		return compiler.Constant{}, 0, &LoadError{Msg: "truncated constant header"}
	}
	kind := compiler.ConstKind(data[0])
	size := binary.LittleEndian.Uint32(data[1:5])
	if len(data) < 5+int(size) {
		return compiler.Constant{}, 0, &LoadError{Msg: "truncated constant data"}
	}
	payload := data[5 : 5+size]
	n := 5 + int(size)

	switch kind {
	case compiler.ConstInt:
		if size != 4 {
			return compiler.Constant{}, 0, &LoadError{Msg: "malformed int constant"}
		}
		return compiler.Constant{Kind: kind, I: int32(binary.LittleEndian.Uint32(payload))}, n, nil
	case compiler.ConstFloat:
		if size != 8 {
			return compiler.Constant{}, 0, &LoadError{Msg: "malformed float constant"}
		}
		return compiler.Constant{Kind: kind, F: math.Float64frombits(binary.LittleEndian.Uint64(payload))}, n, nil
	case compiler.ConstString:
		if size == 0 || payload[size-1] != 0 {
			return compiler.Constant{}, 0, &LoadError{Msg: "malformed string constant: missing NUL terminator"}
		}
		return compiler.Constant{Kind: kind, S: string(payload[:size-1])}, n, nil
	case compiler.ConstBool:
		if size != 1 {
			return compiler.Constant{}, 0, &LoadError{Msg: "malformed bool constant"}
		}
		return compiler.Constant{Kind: kind, B: payload[0] != 0}, n, nil
	default:
		return compiler.Constant{}, 0, &LoadError{Msg: "unknown constant kind"}
	}
}

func decodeSymbol(data []byte) (compiler.Symbol, int, error) {
	if len(data) < 3 {
		return compiler.Symbol{}, 0, &LoadError{Msg: "truncated symbol header"}
	}
	kind := compiler.SymbolKind(data[0])
	nameLen := binary.LittleEndian.Uint16(data[1:3])
	if len(data) < 3+int(nameLen)+4 {
		return compiler.Symbol{}, 0, &LoadError{Msg: "truncated symbol data"}
	}
	name := string(data[3 : 3+nameLen])
	value := binary.LittleEndian.Uint32(data[3+int(nameLen) : 3+int(nameLen)+4])
	return compiler.Symbol{Kind: kind, Name: name, Value: value}, 3 + int(nameLen) + 4, nil
}

func decodeDebugSection(data []byte) ([]compiler.LineEntry, error) {
	if len(data) < 4 {
		return nil, &LoadError{Msg: "truncated debug section"}
	}
	count := binary.LittleEndian.Uint32(data[0:4])
	off := 4
	entries := make([]compiler.LineEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < off+10 {
			return nil, &LoadError{Msg: "truncated debug entry"}
		}
		pc := binary.LittleEndian.Uint32(data[off : off+4])
		line := binary.LittleEndian.Uint32(data[off+4 : off+8])
		col := binary.LittleEndian.Uint16(data[off+8 : off+10])
		entries = append(entries, compiler.LineEntry{PC: pc, Line: line, Column: col})
		off += 10
	}
	return entries, nil
}
