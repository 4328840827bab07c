package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// Option configures rule compilation.
type Option func(*compileOptions)

type compileOptions struct {
	policy MissingPolicy
}

// WithMissingPolicy overrides the default MissingAsFalse treatment of
// undecidable sub-expressions.
func WithMissingPolicy(policy MissingPolicy) Option {
	return func(o *compileOptions) {
		o.policy = policy
	}
}

// Rule is a compiled resistance rule, ready for repeated concurrent
// evaluation against mutation environments.
type Rule struct {
	source    string
	root      Node
	numeric   bool
	positions []int
}

// Compile parses and compiles rule source text. Syntax errors come back as a
// *ParseError carrying the offending location.
func Compile(source string, opts ...Option) (*Rule, error) {
	options := compileOptions{policy: MissingAsFalse}
	for _, opt := range opts {
		opt(&options)
	}

	raw, err := ruleParser.ParseString("", source)
	if err != nil {
		return nil, newParseError(source, err)
	}

	c := &converter{policy: options.policy, positions: map[int]bool{}}

	root, err := c.rule(raw)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", strings.TrimSpace(source), err)
	}

	return &Rule{
		source:    strings.TrimSpace(source),
		root:      root,
		numeric:   raw.Score != nil || raw.Bare != nil,
		positions: c.sorted(),
	}, nil
}

// Evaluate runs the rule against env. A required position with no entry in
// env yields a *MissingPositionError; every other path yields a definite
// outcome.
func (r *Rule) Evaluate(env *m.VariantCalls) (m.Outcome, error) {
	outcome := r.root.Evaluate(env)
	if pos, missing := outcome.MissingPos(); missing {
		return m.NoInfo(), &MissingPositionError{Pos: pos}
	}

	return outcome, nil
}

// Numeric reports whether the rule is a SCORE FROM rule producing a number
// rather than a boolean.
func (r *Rule) Numeric() bool { return r.numeric }

// Positions returns every sequence position the rule references, ascending.
func (r *Rule) Positions() []int {
	return append([]int(nil), r.positions...)
}

// String returns the source text the rule was compiled from.
func (r *Rule) String() string { return r.source }

// newParseError converts a participle error into a *ParseError with a marked
// source excerpt, passing anything else through untouched.
func newParseError(source string, err error) error {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return err
	}

	pos := perr.Position()

	return &ParseError{
		Line:   pos.Line,
		Column: pos.Column,
		Msg:    perr.Message(),
		source: source,
	}
}

// converter walks the raw parse tree and emits evaluation nodes, recording
// every referenced position along the way.
type converter struct {
	policy    MissingPolicy
	positions map[int]bool
}

func (c *converter) sorted() []int {
	positions := make([]int, 0, len(c.positions))
	for pos := range c.positions {
		positions = append(positions, pos)
	}

	sort.Ints(positions)

	return positions
}

func (c *converter) rule(raw *rawRule) (Node, error) {
	switch {
	case raw.Score != nil:
		return c.scoreExpr(raw.Score)
	case raw.Bare != nil:
		return c.bareScore(raw.Bare)
	default:
		return c.orExpr(raw.Bool)
	}
}

func (c *converter) bareScore(raw *rawBareScore) (Node, error) {
	if raw.Agg != nil {
		return c.scoreList(&rawScoreList{Agg: raw.Agg})
	}

	children := make([]Node, 0, len(raw.Lists))

	for _, list := range raw.Lists {
		child, err := c.scoreList(list)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return NewScoreConditionNode(children)
}

func (c *converter) orExpr(raw *rawOrExpr) (Node, error) {
	result, err := c.andExpr(raw.Terms[0])
	if err != nil {
		return nil, err
	}

	for _, term := range raw.Terms[1:] {
		right, err := c.andExpr(term)
		if err != nil {
			return nil, err
		}

		result = NewOrNode(result, right)
	}

	return result, nil
}

func (c *converter) andExpr(raw *rawAndExpr) (Node, error) {
	if len(raw.Factors) == 1 {
		return c.cond(raw.Factors[0])
	}

	children := make([]Node, 0, len(raw.Factors))

	for _, factor := range raw.Factors {
		child, err := c.cond(factor)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return NewAndNode(children)
}

func (c *converter) cond(raw *rawCond) (Node, error) {
	switch {
	case raw.Not != nil:
		child, err := c.cond(raw.Not)
		if err != nil {
			return nil, err
		}

		return NewNotNode(child, c.policy), nil
	case raw.Truth != nil:
		return NewBoolNode(*raw.Truth == "TRUE"), nil
	case raw.Select != nil:
		return c.selectStmt(raw.Select)
	case raw.Paren != nil:
		return c.orExpr(raw.Paren)
	default:
		return c.residue(*raw.Residue)
	}
}

func (c *converter) residue(text string) (*ResidueNode, error) {
	pattern, err := m.ParseMutationSet(text)
	if err != nil {
		return nil, err
	}

	c.positions[pattern.Pos()] = true

	return NewResidueNode(pattern), nil
}

func (c *converter) selectStmt(raw *rawSelect) (Node, error) {
	quant, err := c.quantifier(raw.Quant)
	if err != nil {
		return nil, err
	}

	residues := make([]*ResidueNode, 0, len(raw.Residues))

	for _, text := range raw.Residues {
		node, err := c.residue(text)
		if err != nil {
			return nil, err
		}

		residues = append(residues, node)
	}

	return NewSelectNode(quant, residues, c.policy), nil
}

func (c *converter) quantifier(raw *rawQuant) (Quantifier, error) {
	result, err := NewThreshold(raw.First.Op, raw.First.Count)
	if err != nil {
		return nil, err
	}

	var combined Quantifier = result

	for _, tail := range raw.Rest {
		next, err := NewThreshold(tail.Next.Op, tail.Next.Count)
		if err != nil {
			return nil, err
		}

		if tail.Op == "AND" {
			combined = QuantifierAnd(combined, next)
		} else {
			combined = QuantifierOr(combined, next)
		}
	}

	return combined, nil
}

func (c *converter) scoreExpr(raw *rawScoreExpr) (Node, error) {
	children := make([]Node, 0, len(raw.Lists))

	for _, list := range raw.Lists {
		child, err := c.scoreList(list)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return NewScoreConditionNode(children)
}

func (c *converter) scoreList(raw *rawScoreList) (Node, error) {
	if raw.Item != nil {
		return c.scoreItem(raw.Item)
	}

	op, err := ParseAggOp(raw.Agg.Op)
	if err != nil {
		return nil, err
	}

	children := make([]Node, 0, len(raw.Agg.Items))

	for _, item := range raw.Agg.Items {
		child, err := c.scoreItem(item)
		if err != nil {
			return nil, err
		}

		children = append(children, child)
	}

	return NewScoreListNode(op, children)
}

func (c *converter) scoreItem(raw *rawScoreItem) (Node, error) {
	if raw.Bare != nil {
		return NewBareScoreNode(raw.Bare.value()), nil
	}

	cond, err := c.orExpr(raw.Guarded.Cond)
	if err != nil {
		return nil, err
	}

	value := raw.Guarded.Value

	switch {
	case value.Flag != nil:
		return NewFlagScoreNode(cond, strings.Trim(*value.Flag, `"`)), nil
	case value.Number != nil:
		return NewScoreNode(cond, value.Number.value()), nil
	default:
		children := make([]Node, 0, len(value.Nested))

		for _, list := range value.Nested {
			child, err := c.scoreList(list)
			if err != nil {
				return nil, err
			}

			children = append(children, child)
		}

		sub, err := NewScoreConditionNode(children)
		if err != nil {
			return nil, err
		}

		return NewGuardedScoreNode(cond, sub), nil
	}
}
