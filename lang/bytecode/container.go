// Package bytecode implements the little-endian binary container format
// (.pvm files) that serializes a compiler.Program to disk and loads it
// back, verifying every index and jump target is in range before handing
// the program to the virtual machine. The framing style (fixed header,
// length-prefixed sections, explicit little-endian encoding/decoding via
// encoding/binary) follows the image-file idiom used by the pack's
// register-machine and Forth-VM examples, adapted to this project's
// section layout.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mna/pvm/lang/compiler"
)

// Magic is the 4-byte file signature, "PYMV".
var Magic = [4]byte{0x50, 0x59, 0x4D, 0x56}

// FlagDebug is bit 0 of the header's flags field: the file carries a
// trailing debug section.
const FlagDebug uint16 = 1 << 0

const headerSize = 20 // magic(4) version(2) flags(2) const_count(4) symbol_count(4) code_size(4)

// LoadError reports a malformed or incompatible container.
type LoadError struct {
	Msg string
}

func (e *LoadError) Error() string { return fmt.Sprintf("load error: %s", e.Msg) }

// Encode serializes p into the .pvm binary container format.
func Encode(p *compiler.Program) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(Magic[:])
	writeU16(&buf, p.Version)

	var flags uint16
	if p.Debug {
		flags |= FlagDebug
	}
	writeU16(&buf, flags)

	writeU32(&buf, uint32(len(p.Constants)))
	writeU32(&buf, uint32(len(p.Symbols)))
	writeU32(&buf, uint32(len(p.Code)))

	for _, c := range p.Constants {
		if err := encodeConstant(&buf, c); err != nil {
			return nil, err
		}
	}
	for _, s := range p.Symbols {
		encodeSymbol(&buf, s)
	}
	buf.Write(p.Code)

	if p.Debug {
		writeU32(&buf, uint32(len(p.DebugLines)))
		for _, l := range p.DebugLines {
			writeU32(&buf, l.PC)
			writeU32(&buf, l.Line)
			writeU16(&buf, l.Column)
		}
	}

	return buf.Bytes(), nil
}

func encodeConstant(buf *bytes.Buffer, c compiler.Constant) error {
	switch c.Kind {
	case compiler.ConstInt:
		buf.WriteByte(byte(c.Kind))
		writeU32(buf, 4)
		writeI32(buf, c.I)
	case compiler.ConstFloat:
		buf.WriteByte(byte(c.Kind))
		writeU32(buf, 8)
		writeU64(buf, math.Float64bits(c.F))
	case compiler.ConstString:
		data := append([]byte(c.S), 0) // NUL-terminated, size includes the terminator
		buf.WriteByte(byte(c.Kind))
		writeU32(buf, uint32(len(data)))
		buf.Write(data)
	case compiler.ConstBool:
		buf.WriteByte(byte(c.Kind))
		writeU32(buf, 1)
		if c.B {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	default:
		return &LoadError{Msg: fmt.Sprintf("unknown constant kind %d", c.Kind)}
	}
	return nil
}

func encodeSymbol(buf *bytes.Buffer, s compiler.Symbol) {
	buf.WriteByte(byte(s.Kind))
	writeU16(buf, uint16(len(s.Name)))
	buf.WriteString(s.Name)
	writeU32(buf, s.Value)
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeI32(buf *bytes.Buffer, v int32) { writeU32(buf, uint32(v)) }
