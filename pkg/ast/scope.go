package ast

import (
	"errors"
	"fmt"
)

// ErrSymbolAlreadyDeclared is the sentinel wrapped when Add or AddWithSize
// is called for a name already present in the scope.
var ErrSymbolAlreadyDeclared = errors.New("ast: symbol already declared")

// Symbol is a declared name: its address (offset in words from the frame
// base) and its size (1 for INTEGER, N for ARRAY N OF INTEGER).
type Symbol struct {
	Name    string
	Address int
	Size    int
}

// Scope is a flat, ordered name-to-Symbol table, grounded in
// dom-ast/src/scope.rs. There is no nesting and no shadowing: Lookup
// returns the first (and only) symbol with a matching name. Addresses are
// assigned monotonically as symbols are added and never reused.
type Scope struct {
	symbols []*Symbol
	nextAdr int
}

// NewScope returns an empty scope.
func NewScope() *Scope { return &Scope{} }

// Add declares name with size 1 at the next free address.
func (s *Scope) Add(name string) (*Symbol, error) {
	return s.AddWithSize(name, 1)
}

// AddWithSize declares name with the given size at the next free address.
// It fails if name is already declared in this scope.
func (s *Scope) AddWithSize(name string, size int) (*Symbol, error) {
	if _, ok := s.lookupLocal(name); ok {
		return nil, fmt.Errorf("%w: %q", ErrSymbolAlreadyDeclared, name)
	}
	sym := &Symbol{Name: name, Address: s.nextAdr, Size: size}
	s.nextAdr += size
	s.symbols = append(s.symbols, sym)
	return sym, nil
}

// Lookup returns the symbol named name, or nil if none exists.
func (s *Scope) Lookup(name string) *Symbol {
	sym, _ := s.lookupLocal(name)
	return sym
}

// Names returns the declared names in declaration order.
func (s *Scope) Names() []string {
	names := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		names[i] = sym.Name
	}
	return names
}

func (s *Scope) lookupLocal(name string) (*Symbol, bool) {
	for _, sym := range s.symbols {
		if sym.Name == name {
			return sym, true
		}
	}
	return nil, false
}
