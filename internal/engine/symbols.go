package engine

import (
	"fmt"
	"sync"

	"stock_go/internal/domain"
)

// SymbolTable binds ticker symbols to book slots. A binding is permanent.
// Lookups scan a fixed array; this runs once per symbol at the edge, not in
// the matching path.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols [MaxInstruments]string
}

// NewSymbolTable pre-binds the first preload slots to prefix%04d
// (STOCK0000, STOCK0001, ...).
func NewSymbolTable(prefix string, preload int) *SymbolTable {
	t := &SymbolTable{}
	if preload > MaxInstruments {
		preload = MaxInstruments
	}
	for i := 0; i < preload; i++ {
		t.symbols[i] = fmt.Sprintf("%s%04d", prefix, i)
	}
	return t
}

// Resolve returns the slot bound to symbol, binding the first free slot on
// first use.
func (t *SymbolTable) Resolve(symbol string) (int, error) {
	if symbol == "" {
		return -1, domain.NewInvalidOrderError("symbol", "must be non-empty")
	}
	if id, ok := t.Lookup(symbol); ok {
		return id, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	free := -1
	for i := range t.symbols {
		switch t.symbols[i] {
		case symbol:
			return i, nil
		case "":
			if free < 0 {
				free = i
			}
		}
	}
	if free < 0 {
		return -1, fmt.Errorf("bind %q: %w", symbol, domain.ErrSymbolTableFull)
	}
	t.symbols[free] = symbol
	return free, nil
}

// Lookup returns the slot bound to symbol without binding.
func (t *SymbolTable) Lookup(symbol string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.symbols {
		if t.symbols[i] == symbol {
			return i, true
		}
	}
	return -1, false
}

// Symbol returns the symbol bound to instrumentID, or "" when unbound or out of range.
func (t *SymbolTable) Symbol(instrumentID int) string {
	if instrumentID < 0 || instrumentID >= MaxInstruments {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.symbols[instrumentID]
}

// Bound returns how many slots carry a symbol.
func (t *SymbolTable) Bound() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for i := range t.symbols {
		if t.symbols[i] != "" {
			n++
		}
	}
	return n
}

var _ domain.SymbolNamer = (*SymbolTable)(nil)
