// Package domain contains the resistance rule language: the expression node
// model, the evaluation engine, and the rule compilation facade.
package domain

import (
	"fmt"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// MissingPolicy selects how the engine treats evaluation steps that have no
// information to work with: a negated child that produced nothing, or a
// SELECT whose quantifier failed. The two observed rule dialects disagree, so
// the choice is a compile option rather than a constant.
type MissingPolicy int

const (
	// MissingAsFalse coerces "no information" to a concrete false outcome:
	// NOT over nothing is vacuously true, a failed SELECT is definitely
	// false (with its residues). This matches the newer rule sets.
	MissingAsFalse MissingPolicy = iota
	// PropagateMissing passes "no information" upward unchanged: NOT over
	// nothing stays unknown, a failed SELECT yields no information. This
	// matches the original rule sets.
	PropagateMissing
)

// Node is one expression in a compiled rule's decision tree. Nodes are built
// once at parse time, never mutated afterwards, and safe to evaluate
// concurrently against independent environments.
type Node interface {
	Evaluate(env *m.VariantCalls) m.Outcome
}

// ResidueNode matches a required mutation pattern against the environment:
// the set of acceptable variants at one fixed position.
type ResidueNode struct {
	pattern m.MutationSet
}

// NewResidueNode wraps a required mutation pattern.
func NewResidueNode(pattern m.MutationSet) *ResidueNode {
	return &ResidueNode{pattern: pattern}
}

// Pos returns the position the node requires data for.
func (n *ResidueNode) Pos() int { return n.pattern.Pos() }

// Evaluate intersects the required variants with the calls observed at the
// node's position. A position absent from the environment entirely is a
// distinct missing-data outcome, not false: no sequencing data is not the
// same as wild type. The evidence is taken from the observed side so that
// wild-type annotations on the sample survive into reports.
func (n *ResidueNode) Evaluate(env *m.VariantCalls) m.Outcome {
	observed, ok := env.At(n.pattern.Pos())
	if !ok {
		return m.MissingData(n.pattern.Pos())
	}

	intersection := observed.Intersect(n.pattern)
	if intersection.Len() == 0 {
		return m.BoolOutcome(false, m.NewResidues())
	}

	return m.BoolOutcome(true, intersection)
}

func (n *ResidueNode) String() string { return n.pattern.String() }

// NotNode inverts the boolean outcome of its child, preserving residues.
type NotNode struct {
	child  Node
	policy MissingPolicy
}

// NewNotNode wraps child in a negation under the given policy.
func NewNotNode(child Node, policy MissingPolicy) *NotNode {
	return &NotNode{child: child, policy: policy}
}

// Evaluate negates the child. A child with no definite outcome is vacuously
// true under MissingAsFalse and passes through unchanged under
// PropagateMissing.
func (n *NotNode) Evaluate(env *m.VariantCalls) m.Outcome {
	arg := n.child.Evaluate(env)
	if !arg.Known() {
		if n.policy == PropagateMissing {
			return arg
		}

		return m.BoolOutcome(true, m.NewResidues())
	}

	return m.BoolOutcome(!arg.Truthy(), arg.Residues())
}

// BoolNode is the TRUE / FALSE constant.
type BoolNode struct {
	truth bool
}

// NewBoolNode returns the constant node for truth.
func NewBoolNode(truth bool) *BoolNode {
	return &BoolNode{truth: truth}
}

// Evaluate returns the constant with no evidence.
func (n *BoolNode) Evaluate(_ *m.VariantCalls) m.Outcome {
	return m.BoolOutcome(n.truth, m.NewResidues())
}

// AndNode folds boolean AND over its children. A child with no definite
// outcome counts as false: a required condition that produced no evidence
// fails the conjunction, which also masks missing positions inside a pure
// boolean tree.
type AndNode struct {
	children []Node
}

// NewAndNode builds an n-ary conjunction. An empty child list is a
// construction error; the grammar never produces one.
func NewAndNode(children []Node) (*AndNode, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("AND requires at least one operand")
	}

	return &AndNode{children: children}, nil
}

// Evaluate short-circuits on the first failing child; residues of later
// children are irrelevant once the conjunction has failed.
func (n *AndNode) Evaluate(env *m.VariantCalls) m.Outcome {
	residues := m.NewResidues()

	for _, child := range n.children {
		outcome := child.Evaluate(env)
		if !outcome.Known() || !outcome.Truthy() {
			return m.BoolOutcome(false, m.NewResidues())
		}

		residues = residues.Union(outcome.Residues())
	}

	return m.BoolOutcome(true, residues)
}

// OrNode is binary disjunction. Chained ORs in the concrete syntax arrive as
// nested binary nodes.
type OrNode struct {
	left  Node
	right Node
}

// NewOrNode builds a binary disjunction.
func NewOrNode(left, right Node) *OrNode {
	return &OrNode{left: left, right: right}
}

// Evaluate ORs the two children. Residues are the union of both sides
// regardless of which one matched; existing rule sets rely on the
// over-reported evidence, so the union must not be narrowed to the winning
// side.
func (n *OrNode) Evaluate(env *m.VariantCalls) m.Outcome {
	left := coerceFalse(n.left.Evaluate(env))
	right := coerceFalse(n.right.Evaluate(env))

	return m.BoolOutcome(left.Truthy() || right.Truthy(),
		left.Residues().Union(right.Residues()))
}

// coerceFalse turns a no-information or missing-data outcome into a definite
// false with no evidence, for the boolean combinators.
func coerceFalse(o m.Outcome) m.Outcome {
	if !o.Known() {
		return m.BoolOutcome(false, m.NewResidues())
	}

	return o
}

// Quantifier is the integer predicate of a SELECT statement: a threshold
// comparison or an AND/OR combination of thresholds. Quantifiers are
// evaluated against a match count, never against the environment.
type Quantifier interface {
	Accepts(count int) bool
}

// Threshold comparison operators.
const (
	AtLeast     = "ATLEAST"
	Exactly     = "EXACTLY"
	NotMoreThan = "NOTMORETHAN"
)

// Threshold is a single quantifier comparison against a fixed limit.
type Threshold struct {
	op    string
	limit int
}

// NewThreshold builds a comparison quantifier. An unknown operator keyword
// is a fatal construction error.
func NewThreshold(op string, limit int) (*Threshold, error) {
	switch op {
	case AtLeast, Exactly, NotMoreThan:
		return &Threshold{op: op, limit: limit}, nil
	default:
		return nil, fmt.Errorf("unknown quantifier %q", op)
	}
}

// Accepts applies the comparison to count.
func (t *Threshold) Accepts(count int) bool {
	switch t.op {
	case AtLeast:
		return count >= t.limit
	case Exactly:
		return count == t.limit
	default:
		return count <= t.limit
	}
}

func (t *Threshold) String() string { return fmt.Sprintf("%s %d", t.op, t.limit) }

type quantAnd struct {
	left, right Quantifier
}

func (q quantAnd) Accepts(count int) bool {
	return q.left.Accepts(count) && q.right.Accepts(count)
}

type quantOr struct {
	left, right Quantifier
}

func (q quantOr) Accepts(count int) bool {
	return q.left.Accepts(count) || q.right.Accepts(count)
}

// QuantifierAnd combines two quantifiers conjunctively.
func QuantifierAnd(left, right Quantifier) Quantifier { return quantAnd{left: left, right: right} }

// QuantifierOr combines two quantifiers disjunctively.
func QuantifierOr(left, right Quantifier) Quantifier { return quantOr{left: left, right: right} }

// SelectNode counts how many of the listed residue conditions match and
// applies a quantifier to the count.
type SelectNode struct {
	quant    Quantifier
	residues []*ResidueNode
	policy   MissingPolicy
}

// NewSelectNode builds a SELECT ... FROM (...) statement.
func NewSelectNode(quant Quantifier, residues []*ResidueNode, policy MissingPolicy) *SelectNode {
	return &SelectNode{quant: quant, residues: residues, policy: policy}
}

// Evaluate counts matching listed residues. A listed position absent from
// the environment counts as a non-match under MissingAsFalse; under
// PropagateMissing the count would be meaningless, so the missing-data
// outcome propagates instead.
func (n *SelectNode) Evaluate(env *m.VariantCalls) m.Outcome {
	matched := 0
	residues := m.NewResidues()

	for _, condition := range n.residues {
		outcome := condition.Evaluate(env)
		if _, missing := outcome.MissingPos(); missing {
			if n.policy == PropagateMissing {
				return outcome
			}

			continue
		}

		if outcome.Truthy() {
			matched++
			residues = residues.Union(outcome.Residues())
		}
	}

	if !n.quant.Accepts(matched) {
		if n.policy == PropagateMissing {
			return m.NoInfo()
		}

		return m.BoolOutcome(false, residues)
	}

	return m.BoolOutcome(true, residues)
}

// ScoreNode maps a boolean condition to a contribution: a literal delta, a
// named flag, or a guarded sub-aggregate. A nil condition is a bare numeric
// item that always contributes.
type ScoreNode struct {
	cond  Node
	delta float64
	flag  string
	sub   Node // condition-guarded nested aggregate
}

// NewScoreNode builds "cond => delta".
func NewScoreNode(cond Node, delta float64) *ScoreNode {
	return &ScoreNode{cond: cond, delta: delta}
}

// NewFlagScoreNode builds `cond => "flag"`: zero score, named flag recorded
// against the condition's residues.
func NewFlagScoreNode(cond Node, flag string) *ScoreNode {
	return &ScoreNode{cond: cond, flag: flag}
}

// NewGuardedScoreNode builds "cond => ( ... )": the nested aggregate only
// contributes when the condition holds.
func NewGuardedScoreNode(cond Node, sub Node) *ScoreNode {
	return &ScoreNode{cond: cond, sub: sub}
}

// NewBareScoreNode builds an unconditional numeric item.
func NewBareScoreNode(delta float64) *ScoreNode {
	return &ScoreNode{delta: delta}
}

// Evaluate resolves the condition first. No information stays no
// information — a score must not default to zero when its condition could
// not be decided — while a definite false contributes a concrete zero that
// participates in SUM aggregation.
func (n *ScoreNode) Evaluate(env *m.VariantCalls) m.Outcome {
	if n.cond == nil {
		return m.ScoreOutcome(n.delta, m.NewResidues(), nil)
	}

	result := n.cond.Evaluate(env)
	if !result.Known() {
		return m.NoInfo()
	}

	if !result.Truthy() {
		return m.ScoreOutcome(0, m.NewResidues(), nil)
	}

	if n.flag != "" {
		flags := m.Flags{n.flag: result.Residues().Calls()}
		return m.ScoreOutcome(0, result.Residues(), flags)
	}

	if n.sub != nil {
		nested := n.sub.Evaluate(env)
		if !nested.Known() {
			return nested
		}

		return m.ScoreOutcome(nested.Value(),
			nested.Residues().Union(result.Residues()), nested.Flags())
	}

	return m.ScoreOutcome(n.delta, result.Residues(), nil)
}

// AggOp is a score-list aggregation operator.
type AggOp int

// Score-list aggregation operators. Sum is the implicit default when no
// operator keyword is present.
const (
	Sum AggOp = iota
	Max
	Min
	Mean
)

// ParseAggOp resolves an aggregation keyword; the empty string is the
// implicit SUM.
func ParseAggOp(keyword string) (AggOp, error) {
	switch keyword {
	case "":
		return Sum, nil
	case "MAX":
		return Max, nil
	case "MIN":
		return Min, nil
	case "MEAN":
		return Mean, nil
	default:
		return Sum, fmt.Errorf("unknown aggregation %q", keyword)
	}
}

// ScoreListNode aggregates a list of score items with SUM, MAX, MIN or MEAN.
type ScoreListNode struct {
	op       AggOp
	children []Node
}

// NewScoreListNode builds an aggregated score list.
func NewScoreListNode(op AggOp, children []Node) (*ScoreListNode, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("score list requires at least one item")
	}

	return &ScoreListNode{op: op, children: children}, nil
}

// Evaluate aggregates the children. Only children with a non-zero value
// participate in the aggregation function, so that MAX over mostly-zero
// branches picks the real contributor; negative values participate normally.
// Residues and flags are merged across every child regardless. An empty
// participating set is a falsy zero, never an error, and stays
// distinguishable from a genuine zero-sum of contributors.
func (n *ScoreListNode) Evaluate(env *m.VariantCalls) m.Outcome {
	var participating []float64

	residues := m.NewResidues()
	flags := m.Flags(nil)
	known := false

	for _, child := range n.children {
		outcome := child.Evaluate(env)
		if _, missing := outcome.MissingPos(); missing {
			return outcome
		}

		if !outcome.Known() {
			continue
		}

		known = true
		residues = residues.Union(outcome.Residues())
		flags = m.MergeFlags(flags, outcome.Flags())

		if value := outcome.Value(); value != 0 {
			participating = append(participating, value)
		}
	}

	if !known {
		return m.NoInfo()
	}

	if len(participating) == 0 {
		return m.BoolOutcome(false, residues).WithFlags(flags)
	}

	return m.ScoreOutcome(aggregate(n.op, participating), residues, flags)
}

func aggregate(op AggOp, values []float64) float64 {
	result := values[0]

	switch op {
	case Max:
		for _, v := range values[1:] {
			if v > result {
				result = v
			}
		}
	case Min:
		for _, v := range values[1:] {
			if v < result {
				result = v
			}
		}
	case Mean:
		for _, v := range values[1:] {
			result += v
		}

		result /= float64(len(values))
	default:
		for _, v := range values[1:] {
			result += v
		}
	}

	return result
}

// ScoreConditionNode is the top-level SCORE FROM: the sum of its score
// lists under the outcome algebra's additive combination.
type ScoreConditionNode struct {
	children []Node
}

// NewScoreConditionNode builds a SCORE FROM (...) statement.
func NewScoreConditionNode(children []Node) (*ScoreConditionNode, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("SCORE FROM requires at least one score list")
	}

	return &ScoreConditionNode{children: children}, nil
}

// Evaluate sums child outcomes, starting from the boolean-false zero so the
// fold has an additive identity. Children with no information are skipped
// rather than counted as zero.
func (n *ScoreConditionNode) Evaluate(env *m.VariantCalls) m.Outcome {
	acc := m.BoolOutcome(false, m.NewResidues())

	for _, child := range n.children {
		outcome := child.Evaluate(env)
		if _, missing := outcome.MissingPos(); missing {
			return outcome
		}

		if !outcome.Known() {
			continue
		}

		acc = acc.Add(outcome)
	}

	return acc
}
