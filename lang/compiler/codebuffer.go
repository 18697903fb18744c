package compiler

import "encoding/binary"

// labelID identifies a deferred branch target.
type labelID int

// patch records a pending backpatch: the 4-byte jump operand starting at
// site must be rewritten once label is bound.
type patch struct {
	site  int
	label labelID
}

// CodeBuffer is a growable, append-only byte vector with backpatch support
// for forward branches, per spec.md's Label machinery. A first pass emits
// instructions and jump placeholders; finalize resolves every pending
// patch against the labels bound so far.
type CodeBuffer struct {
	buf     []byte
	labels  map[labelID]int // label -> bound offset, once known
	nextID  labelID
	patches []patch
}

// NewCodeBuffer returns an empty buffer.
func NewCodeBuffer() *CodeBuffer {
	return &CodeBuffer{labels: make(map[labelID]int)}
}

// Len returns the current size of the code buffer in bytes.
func (c *CodeBuffer) Len() int { return len(c.buf) }

// Bytes returns the underlying bytes. The caller must not modify the
// result before Finalize.
func (c *CodeBuffer) Bytes() []byte { return c.buf }

// EmitOp appends a bare opcode with no operand.
func (c *CodeBuffer) EmitOp(op Opcode) int {
	off := len(c.buf)
	c.buf = append(c.buf, byte(op))
	return off
}

// EmitOp1 appends an opcode with a 1-byte operand.
func (c *CodeBuffer) EmitOp1(op Opcode, arg uint8) int {
	off := len(c.buf)
	c.buf = append(c.buf, byte(op), arg)
	return off
}

// EmitOp2 appends an opcode with a little-endian 2-byte operand.
func (c *CodeBuffer) EmitOp2(op Opcode, arg uint16) int {
	off := len(c.buf)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], arg)
	c.buf = append(c.buf, byte(op))
	c.buf = append(c.buf, b[:]...)
	return off
}

// EmitCall appends CALL with a 2-byte symbol index and 1-byte argc.
func (c *CodeBuffer) EmitCall(symIdx uint16, argc uint8) int {
	off := len(c.buf)
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], symIdx)
	c.buf = append(c.buf, byte(CALL))
	c.buf = append(c.buf, b[:]...)
	c.buf = append(c.buf, argc)
	return off
}

// NewLabel allocates a fresh, as-yet-unbound label.
func (c *CodeBuffer) NewLabel() labelID {
	id := c.nextID
	c.nextID++
	return id
}

// BindLabel records the current code offset as label's target.
func (c *CodeBuffer) BindLabel(label labelID) {
	c.labels[label] = len(c.buf)
}

// EmitJump appends a jump opcode with a 4-byte placeholder operand and
// records a patch site for label.
func (c *CodeBuffer) EmitJump(op Opcode, label labelID) int {
	off := len(c.buf)
	c.buf = append(c.buf, byte(op), 0, 0, 0, 0)
	c.patches = append(c.patches, patch{site: off + 1, label: label})
	return off
}

// Finalize resolves every pending jump patch against its bound label.
// Unresolved labels are reported as a CompileError.
func (c *CodeBuffer) Finalize() error {
	for _, p := range c.patches {
		target, ok := c.labels[p.label]
		if !ok {
			return &CompileError{Msg: "unresolved label in generated code"}
		}
		binary.LittleEndian.PutUint32(c.buf[p.site:p.site+4], uint32(target))
	}
	c.patches = nil
	return nil
}
