package ir

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Flag names one bit of an integer attribute column.
type Flag struct {
	Name string
	Bit  int64
}

// FlagDef enumerates the legal named bits of one column. Handlers build
// column values through a FlagSet instead of OR-ing raw masks.
type FlagDef struct {
	column string
	bits   map[string]int64
}

// NewFlagDef declares the legal bits for a column.
func NewFlagDef(column string, flags ...Flag) *FlagDef {
	d := &FlagDef{column: column, bits: make(map[string]int64, len(flags))}
	for _, f := range flags {
		d.bits[f.Name] = f.Bit
	}
	return d
}

// Column returns the column the flags belong to.
func (d *FlagDef) Column() string {
	return d.column
}

// New returns an empty flag set.
func (d *FlagDef) New() *FlagSet {
	return &FlagSet{def: d}
}

// FlagSet accumulates named bits for one column value.
type FlagSet struct {
	def   *FlagDef
	value int64
}

func (f *FlagSet) bit(name string) int64 {
	bit, ok := f.def.bits[name]
	if !ok {
		panic(errors.AssertionFailedf("column %s has no flag %s", f.def.column, name))
	}
	return bit
}

// Set turns the named bit on.
func (f *FlagSet) Set(name string) {
	f.value |= f.bit(name)
}

// Clear turns the named bit off.
func (f *FlagSet) Clear(name string) {
	f.value &^= f.bit(name)
}

// SetIf turns the named bit on when cond holds.
func (f *FlagSet) SetIf(name string, cond bool) {
	if cond {
		f.Set(name)
	}
}

// Has reports whether the named bit is on.
func (f *FlagSet) Has(name string) bool {
	bit := f.bit(name)
	return f.value&bit == bit
}

// Value returns the combined integer.
func (f *FlagSet) Value() int64 {
	return f.value
}

// Names returns the names of the bits that are on, sorted.
func (f *FlagSet) Names() []string {
	var names []string
	for name, bit := range f.def.bits {
		if bit != 0 && f.value&bit == bit {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
