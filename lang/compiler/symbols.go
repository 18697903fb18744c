package compiler

import "github.com/dolthub/swiss"

// SymbolKind distinguishes variable slots from callable (builtin) tags.
type SymbolKind uint8

const (
	SymVar SymbolKind = iota
	SymFunc
)

// Symbol is a named entity with a stable table index. For SymVar, Value is
// the VM variable-store slot index; for SymFunc, Value is a builtin tag
// (BuiltinPrint or BuiltinInput).
type Symbol struct {
	Kind  SymbolKind
	Name  string
	Value uint32
}

// SymbolTable is the ordered, name-unique table of VAR/FUNC symbols built
// during code generation. Re-declaring a name returns the existing entry's
// index, unchanged, rather than appending a duplicate.
type SymbolTable struct {
	entries []Symbol
	byName  *swiss.Map[string, uint32]
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byName: swiss.NewMap[string, uint32](8)}
}

// Lookup returns the index of the named symbol, if any.
func (t *SymbolTable) Lookup(name string) (uint32, bool) {
	return t.byName.Get(name)
}

// Declare returns the index of the named VAR symbol, creating it (with the
// next free slot index as its Value) if it does not already exist.
func (t *SymbolTable) Declare(name string) uint32 {
	if idx, ok := t.byName.Get(name); ok {
		return idx
	}
	idx := uint32(len(t.entries))
	t.entries = append(t.entries, Symbol{Kind: SymVar, Name: name, Value: t.varCount()})
	t.byName.Put(name, idx)
	return idx
}

// DeclareBuiltin returns the index of the named FUNC symbol bound to the
// given builtin tag, creating it if it does not already exist.
func (t *SymbolTable) DeclareBuiltin(name string, tag uint32) uint32 {
	if idx, ok := t.byName.Get(name); ok {
		return idx
	}
	idx := uint32(len(t.entries))
	t.entries = append(t.entries, Symbol{Kind: SymFunc, Name: name, Value: tag})
	t.byName.Put(name, idx)
	return idx
}

func (t *SymbolTable) varCount() uint32 {
	var n uint32
	for _, s := range t.entries {
		if s.Kind == SymVar {
			n++
		}
	}
	return n
}

// VarCount returns the number of VAR symbols, used to size the VM's
// variable store.
func (t *SymbolTable) VarCount() int { return int(t.varCount()) }

// Len returns the total number of symbols (VAR and FUNC).
func (t *SymbolTable) Len() int { return len(t.entries) }

// At returns the symbol at idx.
func (t *SymbolTable) At(idx uint32) (Symbol, bool) {
	if int(idx) >= len(t.entries) {
		return Symbol{}, false
	}
	return t.entries[idx], true
}

// All returns the symbols in insertion order. The caller must not modify
// the result.
func (t *SymbolTable) All() []Symbol { return t.entries }
