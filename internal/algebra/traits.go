// Package algebra implements the relational expression intermediate
// representation (component C3): logical and physical RelNode
// variants, the RexNode row-expression IR, a trait system carrying
// convention/collation/distribution, and the simplification laws the
// builder and planner rely on.
//
// RelNodes are concrete Go types that all implement the RelNode
// interface. A visitor is dispatched by each node's Accept method,
// which calls the Visit method for the node's concrete type.
package algebra

import "fmt"

// Convention identifies the calling convention (execution engine) a
// RelNode is expressed in. Two nodes sharing a convention can be
// composed directly; crossing conventions requires an Exchange or a
// store-specific converter inserted by the planner (C4/C5).
type Convention string

const (
	ConventionNone      Convention = "NONE"
	ConventionLogical   Convention = "LOGICAL"
	ConventionEnumerable Convention = "ENUMERABLE"
)

// AdapterConvention builds the convention identifying plans rooted at
// a single named store adapter (C5/C7 boundary).
func AdapterConvention(storeUniqueName string) Convention {
	return Convention("STORE:" + storeUniqueName)
}

// FieldCollation orders one field of a row, ascending or descending,
// with a choice of where NULLs sort.
type FieldCollation struct {
	FieldIndex int
	Descending bool
	NullsFirst bool
}

// Collation is an ordered list of FieldCollation, the trait describing
// a RelNode's output order.
type Collation []FieldCollation

// DistributionKind describes how a RelNode's rows are spread across
// adapters/partitions.
type DistributionKind int

const (
	DistributionSingleton DistributionKind = iota
	DistributionAny
	DistributionHash
	DistributionBroadcast
)

// Distribution is the trait describing a RelNode's physical data
// distribution; Keys is only meaningful when Kind is DistributionHash.
type Distribution struct {
	Kind DistributionKind
	Keys []int
}

// TraitSet is the immutable bundle of physical properties a RelNode
// exposes: convention, collation and distribution. Rules request a
// TraitSet from their output and the planner inserts converters to
// satisfy trait mismatches (spec.md §4.3's "trait set is a mapping
// from trait-definition to trait value").
type TraitSet struct {
	Convention   Convention
	Collation    Collation
	Distribution Distribution
}

// Satisfies reports whether ts meets the physical requirements in
// required. A zero-value Convention or Collation in required, or a
// Distribution of kind DistributionAny, means "don't care".
func (ts TraitSet) Satisfies(required TraitSet) bool {
	if required.Convention != "" && required.Convention != ts.Convention {
		return false
	}
	if len(required.Collation) > 0 && !collationSatisfies(ts.Collation, required.Collation) {
		return false
	}
	if required.Distribution.Kind != DistributionAny && required.Distribution.Kind != ts.Distribution.Kind {
		return false
	}
	return true
}

// collationSatisfies reports whether have is at least as specific as
// want: every prefix field of want must appear, in order, in have.
func collationSatisfies(have, want Collation) bool {
	if len(want) > len(have) {
		return false
	}
	for i, w := range want {
		if have[i] != w {
			return false
		}
	}
	return true
}

func (ts TraitSet) String() string {
	return fmt.Sprintf("{%s, collation=%v, dist=%v}", ts.Convention, ts.Collation, ts.Distribution)
}
