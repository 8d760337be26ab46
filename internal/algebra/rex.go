package algebra

import (
	"fmt"
	"strings"

	"polyplan/internal/types"
)

// RexNode is a row expression: a scalar computed per-row within a
// RelNode. Like RelNode, it is a tagged variant distinguished by Kind;
// every concrete node reports its own Type so inference errors surface
// at construction (spec.md §4.3's Call invariant).
type RexNode interface {
	Kind() RexKind
	Type() *types.Type
	String() string
}

// RexKind enumerates the RexNode variants.
type RexKind int

const (
	RexIndexRef RexKind = iota
	RexLiteral
	RexCall
	RexDynamicParam
	RexCorrelVariable
)

// RexIndexRefNode references the i-th field of the immediate input's
// row type (spec.md §4.3).
type RexIndexRefNode struct {
	Index    int
	RexType  *types.Type
}

func (n *RexIndexRefNode) Kind() RexKind     { return RexIndexRef }
func (n *RexIndexRefNode) Type() *types.Type { return n.RexType }
func (n *RexIndexRefNode) String() string    { return fmt.Sprintf("$%d", n.Index) }

// NewIndexRef builds a reference to field i of type t.
func NewIndexRef(i int, t *types.Type) *RexIndexRefNode {
	return &RexIndexRefNode{Index: i, RexType: t}
}

// RexLiteralNode is a constant value of a known type. Value is nil for
// a SQL NULL literal.
type RexLiteralNode struct {
	Value   any
	RexType *types.Type
}

func (n *RexLiteralNode) Kind() RexKind     { return RexLiteral }
func (n *RexLiteralNode) Type() *types.Type { return n.RexType }
func (n *RexLiteralNode) String() string {
	if n.Value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", n.Value)
}

// NewLiteral builds a literal of value v and type t.
func NewLiteral(v any, t *types.Type) *RexLiteralNode {
	return &RexLiteralNode{Value: v, RexType: t}
}

// IsTrue reports whether n is the boolean literal TRUE.
func IsTrue(n RexNode) bool {
	lit, ok := n.(*RexLiteralNode)
	return ok && lit.RexType.Code == types.Boolean && lit.Value == true
}

// IsFalse reports whether n is the boolean literal FALSE.
func IsFalse(n RexNode) bool {
	lit, ok := n.(*RexLiteralNode)
	return ok && lit.RexType.Code == types.Boolean && lit.Value == false
}

// Operator names a Call's function/operator and how it infers its
// return type from its operand types.
type Operator struct {
	Name       string
	InferType  func(factory *types.Factory, operands []*types.Type) (*types.Type, error)
}

// RexCallNode applies an Operator to a list of operand RexNodes. The
// node's Type is the InferType output, computed and validated at
// construction (spec.md §4.3: "errors in inference are reported at
// construction").
type RexCallNode struct {
	Op       Operator
	Operands []RexNode
	RexType  *types.Type
}

func (n *RexCallNode) Kind() RexKind     { return RexCall }
func (n *RexCallNode) Type() *types.Type { return n.RexType }
func (n *RexCallNode) String() string {
	parts := make([]string, len(n.Operands))
	for i, o := range n.Operands {
		parts[i] = o.String()
	}
	return fmt.Sprintf("%s(%s)", n.Op.Name, strings.Join(parts, ", "))
}

// NewCall builds a Call node, invoking op's InferType immediately.
func NewCall(factory *types.Factory, op Operator, operands ...RexNode) (*RexCallNode, error) {
	operandTypes := make([]*types.Type, len(operands))
	for i, o := range operands {
		operandTypes[i] = o.Type()
	}
	t, err := op.InferType(factory, operandTypes)
	if err != nil {
		return nil, fmt.Errorf("algebra: infer type of %s: %w", op.Name, err)
	}
	return &RexCallNode{Op: op, Operands: operands, RexType: t}, nil
}

// RexDynamicParamNode is a query parameter (`?` placeholder) bound at
// execution time.
type RexDynamicParamNode struct {
	Index   int
	RexType *types.Type
}

func (n *RexDynamicParamNode) Kind() RexKind     { return RexDynamicParam }
func (n *RexDynamicParamNode) Type() *types.Type { return n.RexType }
func (n *RexDynamicParamNode) String() string    { return fmt.Sprintf("?%d", n.Index) }

// NewDynamicParam builds a reference to the i-th bind parameter.
func NewDynamicParam(i int, t *types.Type) *RexDynamicParamNode {
	return &RexDynamicParamNode{Index: i, RexType: t}
}

// RexCorrelVariableNode references a field of an outer Correlate's left
// input, named by correlationId (spec.md §4.3 Correlate).
type RexCorrelVariableNode struct {
	CorrelationID string
	FieldIndex    int
	RexType       *types.Type
}

func (n *RexCorrelVariableNode) Kind() RexKind     { return RexCorrelVariable }
func (n *RexCorrelVariableNode) Type() *types.Type { return n.RexType }
func (n *RexCorrelVariableNode) String() string {
	return fmt.Sprintf("$cor%s.$%d", n.CorrelationID, n.FieldIndex)
}

// NewCorrelVariable builds a correlation reference.
func NewCorrelVariable(correlationID string, fieldIndex int, t *types.Type) *RexCorrelVariableNode {
	return &RexCorrelVariableNode{CorrelationID: correlationID, FieldIndex: fieldIndex, RexType: t}
}
