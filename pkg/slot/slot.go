// Package slot holds the named values an expression reads and writes.
package slot

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrNotInitialized  = errors.New("not initialized yet")
	ErrNotVariable     = errors.New("not a variable")
	ErrNotOverwritable = errors.New("cannot overwrite non-variable")
)

type Kind uint8

const (
	Variable Kind = iota
	Constant
)

func (k Kind) String() string {
	if k == Constant {
		return "constant"
	}
	return "variable"
}

// Slot is a Variable (mutable) or a Constant (fixed at creation).
type Slot struct {
	kind  Kind
	name  string
	value float64
}

func NewVariable(name string) *Slot {
	return &Slot{kind: Variable, name: name}
}

// NewConstant wraps a computed value; the slot has no name.
func NewConstant(v float64) *Slot {
	return &Slot{kind: Constant, value: v}
}

func NewNamedConstant(name string, v float64) *Slot {
	return &Slot{kind: Constant, name: name, value: v}
}

func (s *Slot) Kind() Kind       { return s.kind }
func (s *Slot) Name() string     { return s.name }
func (s *Slot) Value() float64   { return s.value }
func (s *Slot) IsVariable() bool { return s.kind == Variable }

// SetValue changes a Variable. Constants refuse with ErrNotVariable.
func (s *Slot) SetValue(v float64) error {
	if s.kind != Variable {
		return fmt.Errorf("%s: %w", s.name, ErrNotVariable)
	}
	s.value = v
	return nil
}

func (s *Slot) String() string {
	return fmt.Sprintf("%s %s=%g", s.kind, s.name, s.value)
}

// Table maps names to slots. It is owned by one expression and not
// synchronized.
type Table struct {
	slots map[string]*Slot
}

func NewTable() *Table {
	return &Table{slots: make(map[string]*Slot)}
}

// InitVariable returns the Variable bound to name, creating a zero one if
// the name is free.
func (t *Table) InitVariable(name string) (*Slot, error) {
	if s, ok := t.slots[name]; ok {
		if !s.IsVariable() {
			return nil, fmt.Errorf("'%s': %w", name, ErrNotOverwritable)
		}
		return s, nil
	}
	s := NewVariable(name)
	t.slots[name] = s
	return s, nil
}

func (t *Table) GetVariable(name string) (*Slot, error) {
	s, ok := t.slots[name]
	if !ok {
		return nil, fmt.Errorf("'%s' is %w", name, ErrNotInitialized)
	}
	if !s.IsVariable() {
		return nil, fmt.Errorf("'%s' is %w", name, ErrNotVariable)
	}
	return s, nil
}

func (t *Table) SlotValue(name string) (float64, error) {
	s, ok := t.slots[name]
	if !ok {
		return 0, fmt.Errorf("'%s' is %w", name, ErrNotInitialized)
	}
	return s.value, nil
}

// PutSlot binds a new slot to name. A name can be bound only once.
func (t *Table) PutSlot(name string, s *Slot) error {
	if _, ok := t.slots[name]; ok {
		return fmt.Errorf("'%s': %w", name, ErrNotOverwritable)
	}
	t.slots[name] = s
	return nil
}

func (t *Table) Slot(name string) (*Slot, bool) {
	s, ok := t.slots[name]
	return s, ok
}

func (t *Table) Len() int { return len(t.slots) }

// Names returns the bound names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.slots))
	for name := range t.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone copies every slot so that writes to the copy do not reach t.
func (t *Table) Clone() *Table {
	c := &Table{slots: make(map[string]*Slot, len(t.slots))}
	for name, s := range t.slots {
		cp := *s
		c.slots[name] = &cp
	}
	return c
}
