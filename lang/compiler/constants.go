package compiler

import "github.com/dolthub/swiss"

// ConstKind identifies the variant stored in a Constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
	ConstBool
)

// Constant is a single compile-time-knowable literal value, interned into
// a Program's constant pool.
type Constant struct {
	Kind ConstKind
	I    int32
	F    float64
	S    string
	B    bool
}

// constKey is the comparable structural key used to intern constants by
// value rather than by identity.
type constKey struct {
	kind ConstKind
	i    int32
	f    float64
	s    string
	b    bool
}

func keyOf(c Constant) constKey {
	return constKey{kind: c.Kind, i: c.I, f: c.F, s: c.S, b: c.B}
}

// ConstantPool is the append-only, content-addressed table of literal
// values a Program references by index. Interning uses a swiss.Map keyed
// by structural equality so that emitting the same literal twice yields a
// single pool entry, per the Constant Pool invariant.
type ConstantPool struct {
	entries []Constant
	index   *swiss.Map[constKey, uint32]
}

// NewConstantPool returns an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{index: swiss.NewMap[constKey, uint32](8)}
}

// Intern returns the pool index for c, appending it if not already
// present.
func (p *ConstantPool) Intern(c Constant) uint32 {
	k := keyOf(c)
	if idx, ok := p.index.Get(k); ok {
		return idx
	}
	idx := uint32(len(p.entries))
	p.entries = append(p.entries, c)
	p.index.Put(k, idx)
	return idx
}

// Len returns the number of interned constants.
func (p *ConstantPool) Len() int { return len(p.entries) }

// At returns the constant at idx.
func (p *ConstantPool) At(idx uint32) (Constant, bool) {
	if int(idx) >= len(p.entries) {
		return Constant{}, false
	}
	return p.entries[idx], true
}

// All returns the interned constants in insertion order. The caller must
// not modify the result.
func (p *ConstantPool) All() []Constant { return p.entries }
