package types

// LeastRestrictive computes the widest type that every t in ts can be
// assigned to, per spec.md §4.1: numeric widens to the widest operand,
// character types widen to the common charset/collation and the
// maximum length, date/time/timestamp follow SQL rules (exact match
// required — no cross-temporal promotion), arrays lift component-wise,
// and NULL joins any type as that type marked nullable. Incompatible
// families return an *IncompatibleTypesError.
func LeastRestrictive(f *Factory, ts ...*Type) (*Type, error) {
	if len(ts) == 0 {
		return nil, &IncompatibleTypesError{}
	}
	result := ts[0]
	for _, next := range ts[1:] {
		merged, err := leastRestrictivePair(f, result, next)
		if err != nil {
			return nil, err
		}
		result = merged
	}
	return result, nil
}

func leastRestrictivePair(f *Factory, a, b *Type) (*Type, error) {
	if a.Code == Null {
		return b.WithNullability(true), nil
	}
	if b.Code == Null {
		return a.WithNullability(true), nil
	}
	if a.Code == Any {
		return b, nil
	}
	if b.Code == Any {
		return a, nil
	}

	nullable := a.Nullable || b.Nullable

	switch {
	case a.Family() == FamilyNumeric && b.Family() == FamilyNumeric:
		return widestNumeric(f, a, b).WithNullability(nullable), nil
	case a.Family() == FamilyCharacter && b.Family() == FamilyCharacter:
		return widestCharacter(f, a, b, nullable)
	case a.Family() == FamilyArray && b.Family() == FamilyArray:
		comp, err := leastRestrictivePair(f, a.Component, b.Component)
		if err != nil {
			return nil, err
		}
		return f.ArrayOf(comp).WithNullability(nullable), nil
	case a.Family() == FamilyMultiset && b.Family() == FamilyMultiset:
		comp, err := leastRestrictivePair(f, a.Component, b.Component)
		if err != nil {
			return nil, err
		}
		return f.MultisetOf(comp).WithNullability(nullable), nil
	case a.Code == b.Code:
		// Identical base code (booleans, dates, times, timestamps,
		// intervals, binary, maps of matching shape): widen
		// nullability only, fields must already match exactly.
		if !sameShapeIgnoringNullability(a, b) {
			return nil, &IncompatibleTypesError{Left: a, Right: b}
		}
		return a.WithNullability(nullable), nil
	default:
		return nil, &IncompatibleTypesError{Left: a, Right: b}
	}
}

func widestNumeric(f *Factory, a, b *Type) *Type {
	ra, okA := numericRank[a.Code]
	rb, okB := numericRank[b.Code]
	if !okA || !okB {
		return f.Simple(Double)
	}
	if a.Code == Decimal || b.Code == Decimal {
		prec, scale := a.Precision, a.Scale
		if b.Code == Decimal && (prec < b.Precision || prec < 0) {
			prec, scale = b.Precision, b.Scale
		}
		if prec < 1 {
			prec, scale = 65, 30
		}
		t, err := f.DecimalType(prec, scale)
		if err != nil {
			return f.Simple(Double)
		}
		return t
	}
	if ra >= rb {
		return f.Simple(a.Code)
	}
	return f.Simple(b.Code)
}

func widestCharacter(f *Factory, a, b *Type, nullable bool) (*Type, error) {
	charset := a.Charset
	if charset == "" {
		charset = b.Charset
	} else if b.Charset != "" && b.Charset != charset {
		return nil, &IncompatibleTypesError{Left: a, Right: b}
	}
	collation := a.Collation
	if collation == "" {
		collation = b.Collation
	}
	length := a.Length
	if b.Length > length {
		length = b.Length
	}
	code := VarChar
	if a.Code == Text || b.Code == Text {
		code = Text
	}
	return f.Intern(&Type{
		Code: code, Nullable: nullable, Precision: -1, Scale: -1,
		Length: length, Collation: collation, Charset: charset,
	}), nil
}

func sameShapeIgnoringNullability(a, b *Type) bool {
	aa := a.WithNullability(false)
	bb := b.WithNullability(false)
	return equalShape(aa, bb)
}

// IsComparable reports whether values of a and b may appear on either
// side of a comparison operator without an explicit cast.
func IsComparable(a, b *Type) bool {
	if a.Code == Null || b.Code == Null || a.Code == Any || b.Code == Any {
		return true
	}
	return SameFamily(a, b)
}

// SameFamily reports whether a and b belong to the same promotion
// family (numeric-with-numeric, character-with-character, etc.).
func SameFamily(a, b *Type) bool {
	return a.Family() == b.Family()
}

// IsAssignable reports whether a value of type from may be assigned to
// a column/parameter of type to without an explicit cast: same family,
// and not narrowing a NOT NULL target with a nullable source.
func IsAssignable(from, to *Type) bool {
	if from.Code == Null {
		return to.Nullable
	}
	if from.Code == Any || to.Code == Any {
		return true
	}
	if !SameFamily(from, to) {
		return false
	}
	if from.Nullable && !to.Nullable {
		return false
	}
	return true
}
