package planner

import (
	"fmt"

	"polyplan/internal/algebra"
)

// DefaultIterationBudget bounds the number of rule applications a
// single Optimize call will perform before giving up and extracting
// the best plan found so far (spec.md §4.4 "a configured iteration
// budget is exhausted"). 10000 was chosen as generous headroom for the
// bounded join-reorder window (JoinReorderWindow) and the rest of the
// default rule catalog to reach a fixpoint on realistic query shapes
// without the search becoming unbounded.
const DefaultIterationBudget = 10000

// JoinReorderWindow bounds how many joined inputs RuleJoinReorder
// will consider permuting in one bushy-reordering step, keeping the
// combinatorial search tractable (spec.md §4.4 "bounded by a heuristic
// window").
const JoinReorderWindow = 6

// ConventionEdge declares a legal conversion from one convention to
// another and the node that performs it.
type ConventionEdge struct {
	From, To algebra.Convention
	Convert  func(input algebra.RelNode) algebra.RelNode
}

// Planner searches for a low-cost plan equivalent to a logical root,
// matching a goal trait set (spec.md §4.4).
type Planner struct {
	rules           []Rule
	conventionEdges []ConventionEdge
	mq              algebra.MetadataQuery
	iterationBudget int

	groups map[string]*group // keyed by the representative member's digest
	queue  []pendingMatch
}

type pendingMatch struct {
	rule   Rule
	node   algebra.RelNode
	digest string
}

// New builds a Planner with the given rule set, legal convention
// conversions and metadata query. A nil mq defaults to
// DefaultMetadataQuery.
func New(rules []Rule, edges []ConventionEdge, mq algebra.MetadataQuery) *Planner {
	if mq == nil {
		mq = DefaultMetadataQuery
	}
	return &Planner{
		rules:           rules,
		conventionEdges: edges,
		mq:              mq,
		iterationBudget: DefaultIterationBudget,
		groups:          make(map[string]*group),
	}
}

// WithIterationBudget overrides the default iteration budget.
func (p *Planner) WithIterationBudget(n int) *Planner {
	p.iterationBudget = n
	return p
}

// register adds n to its equivalence group (grouped by digest-of-root
// after stripping cost-irrelevant traits isn't attempted here; nodes
// are grouped 1:1 by digest, which is conservative but simple and
// correct: no two distinct digests are ever merged into one group).
// It returns true if n is newly seen, in which case every rule whose
// pattern matches n is enqueued.
func (p *Planner) register(n algebra.RelNode) bool {
	d := n.Digest()
	g, ok := p.groups[d]
	if !ok {
		g = newGroup()
		p.groups[d] = g
	}
	if !g.add(n) {
		return false
	}
	for _, r := range p.rules {
		if r.Matches(n) {
			p.queue = append(p.queue, pendingMatch{rule: r, node: n, digest: d})
		}
	}
	for _, in := range n.Inputs() {
		p.register(in)
	}
	return true
}

// Optimize searches for the lowest-cost plan equivalent to root that
// satisfies goal, within the planner's iteration budget.
func (p *Planner) Optimize(root algebra.RelNode, goal algebra.TraitSet) (algebra.RelNode, algebra.Cost, error) {
	p.register(root)

	iterations := 0
	for len(p.queue) > 0 && iterations < p.iterationBudget {
		match := p.popCheapest()
		iterations++
		produced := match.rule.OnMatch(RuleCall{Node: match.node, Planner: p})
		for _, n := range produced {
			p.register(n)
		}
	}

	best, cost, ok := p.extractBest(root, goal)
	if !ok {
		return nil, algebra.Cost{}, fmt.Errorf("planner: no plan satisfies goal trait set %s", goal)
	}
	return best, cost, nil
}

// popCheapest removes and returns the queued match whose node has the
// lowest self-cost, implementing the "cheaper importers first"
// priority heuristic (spec.md §4.4). Linear scan is adequate at the
// rule-catalog sizes this planner operates at; a binary heap would
// only matter at a scale this package does not target.
func (p *Planner) popCheapest() pendingMatch {
	bestIdx := 0
	bestCost := p.queue[0].node.ComputeSelfCost(p.mq)
	for i := 1; i < len(p.queue); i++ {
		c := p.queue[i].node.ComputeSelfCost(p.mq)
		if c.Less(bestCost) {
			bestCost = c
			bestIdx = i
		}
	}
	m := p.queue[bestIdx]
	p.queue = append(p.queue[:bestIdx], p.queue[bestIdx+1:]...)
	return m
}

// extractBest recursively finds the cheapest member of root's
// equivalence group that satisfies required, inserting a converter
// node when a member's convention differs but a legal edge exists
// (spec.md §4.4's Converter(X←Y) insertion). Illegal edges are pruned
// by simply not being tried.
func (p *Planner) extractBest(root algebra.RelNode, required algebra.TraitSet) (algebra.RelNode, algebra.Cost, bool) {
	g, ok := p.groups[root.Digest()]
	if !ok {
		g = newGroup()
		g.add(root)
	}

	key := required.String()
	if cached, ok := g.bestByTraits[key]; ok {
		return cached.node, cached.cost, true
	}

	var bestNode algebra.RelNode
	var bestCost algebra.Cost
	found := false

	for _, member := range g.members {
		node, cost, ok := p.costOf(member, required)
		if !ok {
			continue
		}
		if !found || cost.Less(bestCost) || (!bestCost.Less(cost) && node.Digest() < bestNode.Digest()) {
			bestNode, bestCost, found = node, cost, true
		}
	}

	if found {
		g.bestByTraits[key] = bestEntry{node: bestNode, cost: bestCost}
	}
	return bestNode, bestCost, found
}

// costOf computes member's total cost (self cost plus the best cost of
// its inputs under whatever trait set member itself requires of
// them), inserting a conversion node if member's convention doesn't
// match required and a legal edge exists.
func (p *Planner) costOf(member algebra.RelNode, required algebra.TraitSet) (algebra.RelNode, algebra.Cost, bool) {
	if member.Traits().Convention != required.Convention && required.Convention != "" {
		converted, ok := p.convert(member, required.Convention)
		if !ok {
			return nil, algebra.Cost{}, false
		}
		member = converted
	}

	total := member.ComputeSelfCost(p.mq)
	newInputs := make([]algebra.RelNode, 0, len(member.Inputs()))
	for _, in := range member.Inputs() {
		inBest, inCost, ok := p.extractBest(in, algebra.TraitSet{Convention: member.Traits().Convention})
		if !ok {
			return nil, algebra.Cost{}, false
		}
		total = total.Add(inCost)
		newInputs = append(newInputs, inBest)
	}
	if len(newInputs) > 0 {
		member = member.WithInputs(newInputs)
	}
	return member, total, true
}

// convert finds a legal ConventionEdge from member's convention to to
// and applies it.
func (p *Planner) convert(member algebra.RelNode, to algebra.Convention) (algebra.RelNode, bool) {
	from := member.Traits().Convention
	if from == to {
		return member, true
	}
	for _, e := range p.conventionEdges {
		if e.From == from && e.To == to {
			return e.Convert(member), true
		}
	}
	return nil, false
}
