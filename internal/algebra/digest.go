package algebra

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// digestOf builds a deterministic fingerprint for a node from its kind
// name, a list of distinguishing parts, and its inputs' own digests.
// Equal nodes (same kind, same parts, same input digests) always
// produce the same digest, which is how the planner's equivalence sets
// detect duplicate expressions (spec.md §4.4: "duplicates are detected
// by digest equality") and how the router checks determinism
// byte-for-byte.
func digestOf(kind RelKind, parts []string, inputs []RelNode) string {
	var b strings.Builder
	b.WriteString(kind.String())
	b.WriteByte('(')
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p)
	}
	b.WriteByte(')')
	b.WriteByte('[')
	for i, in := range inputs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(in.Digest())
	}
	b.WriteByte(']')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// rowTypeDigest renders a RowType's shape deterministically, used by
// node constructors that need their own output shape as part of their
// digest (e.g. Values, which has no inputs).
func rowTypeDigest(rt RowType) string {
	var b strings.Builder
	for i, f := range rt {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s:%s", f.Name, f.Type)
	}
	return b.String()
}
