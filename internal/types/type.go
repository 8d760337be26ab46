// Package types implements the canonical logical type system (component
// C1): numeric, character, temporal, binary, array, map, interval and
// multiset types with nullability, precision, scale, collation and
// character-set metadata, plus least-restrictive promotion across the
// type lattice.
//
// Types are value objects. Two descriptors with identical canonicalized
// fields compare equal and hash equal; Factory interns them so that
// equal types are also pointer-equal.
package types

import (
	"fmt"
	"strings"
	"sync"
)

// Code identifies a base SQL type, independent of nullability,
// precision, scale or collation.
type Code string

const (
	TinyInt   Code = "TINYINT"
	SmallInt  Code = "SMALLINT"
	Integer   Code = "INTEGER"
	BigInt    Code = "BIGINT"
	Decimal   Code = "DECIMAL"
	Real      Code = "REAL"
	Double    Code = "DOUBLE"
	Boolean   Code = "BOOLEAN"
	Char      Code = "CHAR"
	VarChar   Code = "VARCHAR"
	Text      Code = "TEXT"
	Binary    Code = "BINARY"
	VarBinary Code = "VARBINARY"
	Date      Code = "DATE"
	Time      Code = "TIME"
	Timestamp Code = "TIMESTAMP"
	Interval  Code = "INTERVAL"
	Array     Code = "ARRAY"
	Multiset  Code = "MULTISET"
	Map       Code = "MAP"
	Null      Code = "NULL"
	Any       Code = "ANY"
)

// Family groups codes that participate in the same promotion rules.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyNumeric
	FamilyCharacter
	FamilyBoolean
	FamilyDate
	FamilyTime
	FamilyTimestamp
	FamilyBinary
	FamilyInterval
	FamilyArray
	FamilyMap
	FamilyMultiset
	FamilyNull
	FamilyAny
)

var codeFamily = map[Code]Family{
	TinyInt:   FamilyNumeric,
	SmallInt:  FamilyNumeric,
	Integer:   FamilyNumeric,
	BigInt:    FamilyNumeric,
	Decimal:   FamilyNumeric,
	Real:      FamilyNumeric,
	Double:    FamilyNumeric,
	Boolean:   FamilyBoolean,
	Char:      FamilyCharacter,
	VarChar:   FamilyCharacter,
	Text:      FamilyCharacter,
	Binary:    FamilyBinary,
	VarBinary: FamilyBinary,
	Date:      FamilyDate,
	Time:      FamilyTime,
	Timestamp: FamilyTimestamp,
	Interval:  FamilyInterval,
	Array:     FamilyArray,
	Multiset:  FamilyMultiset,
	Map:       FamilyMap,
	Null:      FamilyNull,
	Any:       FamilyAny,
}

// numericRank orders numeric codes from narrowest to widest so that
// leastRestrictive(numeric, numeric) can pick the wider one.
var numericRank = map[Code]int{
	TinyInt:  0,
	SmallInt: 1,
	Integer:  2,
	BigInt:   3,
	Decimal:  4,
	Real:     5,
	Double:   6,
}

// Type is an immutable, internable logical type descriptor.
//
// Unset Precision/Scale/Length are represented as -1. Component is set
// for ARRAY and MULTISET; Key/Value are set for MAP.
type Type struct {
	Code       Code
	Nullable   bool
	Precision  int
	Scale      int
	Length     int
	Collation  string
	Charset    string
	Component  *Type
	Key        *Type
	Value      *Type
}

// String renders a canonical, deterministic form of t, used both for
// display and as the interning key in Factory.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(string(t.Code))
	if t.Precision >= 0 {
		fmt.Fprintf(&b, "(%d", t.Precision)
		if t.Scale >= 0 {
			fmt.Fprintf(&b, ",%d", t.Scale)
		}
		b.WriteByte(')')
	} else if t.Length >= 0 {
		fmt.Fprintf(&b, "(%d)", t.Length)
	}
	if t.Collation != "" {
		fmt.Fprintf(&b, " COLLATE %s", t.Collation)
	}
	if t.Charset != "" {
		fmt.Fprintf(&b, " CHARSET %s", t.Charset)
	}
	if t.Component != nil {
		fmt.Fprintf(&b, "[%s]", t.Component)
	}
	if t.Key != nil && t.Value != nil {
		fmt.Fprintf(&b, "<%s,%s>", t.Key, t.Value)
	}
	if t.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	return b.String()
}

// Family reports which promotion family t's code belongs to.
func (t *Type) Family() Family {
	return codeFamily[t.Code]
}

// WithNullability returns a type identical to t except for Nullable.
// It does not mutate t; construction is the only place a *Type is
// partially built, after which every transformation produces a new
// value.
func (t *Type) WithNullability(nullable bool) *Type {
	cp := *t
	cp.Nullable = nullable
	return &cp
}

// equalShape reports whether a and b have identical fields, ignoring
// interning identity (used by Factory to detect duplicates).
func equalShape(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Code != b.Code || a.Nullable != b.Nullable || a.Precision != b.Precision ||
		a.Scale != b.Scale || a.Length != b.Length || a.Collation != b.Collation || a.Charset != b.Charset {
		return false
	}
	if !equalShape(a.Component, b.Component) {
		return false
	}
	if !equalShape(a.Key, b.Key) || !equalShape(a.Value, b.Value) {
		return false
	}
	return true
}

// Factory interns Type descriptors so equal types are also pointer-equal.
// It is safe for concurrent use; RelNode construction (C3) and the
// catalog (C2) share a single process-wide Factory in normal operation,
// but nothing in this package relies on a hidden singleton — callers
// construct and pass one explicitly.
type Factory struct {
	mu       sync.Mutex
	interned map[string]*Type
}

// NewFactory creates an empty, ready-to-use type factory.
func NewFactory() *Factory {
	return &Factory{interned: make(map[string]*Type)}
}

// Intern returns the canonical instance equal to t, registering t as
// canonical on first sight. The returned pointer is stable for the
// lifetime of the factory.
func (f *Factory) Intern(t *Type) *Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := t.String()
	if existing, ok := f.interned[key]; ok {
		return existing
	}
	cp := *t
	f.interned[key] = &cp
	return &cp
}

// Simple builds an unparameterized, non-nullable type of the given code
// and interns it.
func (f *Factory) Simple(code Code) *Type {
	return f.Intern(&Type{Code: code, Precision: -1, Scale: -1, Length: -1})
}

// Sized builds a CHAR/VARCHAR/BINARY/VARBINARY-shaped type with a length.
func (f *Factory) Sized(code Code, length int) *Type {
	return f.Intern(&Type{Code: code, Precision: -1, Scale: -1, Length: length})
}

// DecimalType builds a DECIMAL(precision,scale)-shaped type.
func (f *Factory) DecimalType(precision, scale int) (*Type, error) {
	if precision < 1 || precision > 65 || scale < 0 || scale > precision {
		return nil, &PrecisionOutOfRangeError{Code: Decimal, Precision: precision, Scale: scale}
	}
	return f.Intern(&Type{Code: Decimal, Precision: precision, Scale: scale, Length: -1}), nil
}

// ArrayOf builds an ARRAY type whose component is component.
func (f *Factory) ArrayOf(component *Type) *Type {
	return f.Intern(&Type{Code: Array, Precision: -1, Scale: -1, Length: -1, Component: component})
}

// MultisetOf builds a MULTISET type whose component is component.
func (f *Factory) MultisetOf(component *Type) *Type {
	return f.Intern(&Type{Code: Multiset, Precision: -1, Scale: -1, Length: -1, Component: component})
}

// MapOf builds a MAP type from key to value.
func (f *Factory) MapOf(key, value *Type) *Type {
	return f.Intern(&Type{Code: Map, Precision: -1, Scale: -1, Length: -1, Key: key, Value: value})
}

// NullType returns the interned NULL type, which is assignable to
// any nullable type via LeastRestrictive.
func (f *Factory) NullType() *Type {
	return f.Intern(&Type{Code: Null, Nullable: true, Precision: -1, Scale: -1, Length: -1})
}

// AnyType returns the interned ANY type, used for dynamic parameters
// and operators whose return type is context-dependent.
func (f *Factory) AnyType() *Type {
	return f.Intern(&Type{Code: Any, Precision: -1, Scale: -1, Length: -1})
}
