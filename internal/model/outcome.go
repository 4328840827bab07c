package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Residues is the evidence set justifying an evaluation result. Membership is
// by (position, variant), matching Mutation identity.
type Residues struct {
	items map[residueKey]Mutation
}

// NewResidues returns an empty evidence set.
func NewResidues(calls ...Mutation) Residues {
	r := Residues{items: make(map[residueKey]Mutation, len(calls))}
	for _, call := range calls {
		r.add(call)
	}

	return r
}

func (r Residues) add(mu Mutation) {
	if _, ok := r.items[mu.key()]; !ok {
		r.items[mu.key()] = mu
	}
}

// Len returns the number of distinct residues.
func (r Residues) Len() int { return len(r.items) }

// Contains reports membership by (position, variant).
func (r Residues) Contains(mu Mutation) bool {
	_, ok := r.items[mu.key()]
	return ok
}

// Union returns a new set holding the residues of both operands. Neither
// operand is modified.
func (r Residues) Union(other Residues) Residues {
	result := NewResidues()
	for k, mu := range r.items {
		result.items[k] = mu
	}

	for k, mu := range other.items {
		if _, ok := result.items[k]; !ok {
			result.items[k] = mu
		}
	}

	return result
}

// Calls returns the residues ordered by position, then variant.
func (r Residues) Calls() []Mutation {
	calls := make([]Mutation, 0, len(r.items))
	for _, mu := range r.items {
		calls = append(calls, mu)
	}

	sort.Slice(calls, func(i, j int) bool {
		if calls[i].pos != calls[j].pos {
			return calls[i].pos < calls[j].pos
		}

		return calls[i].variant < calls[j].variant
	})

	return calls
}

func (r Residues) String() string {
	calls := r.Calls()

	terms := make([]string, 0, len(calls))
	for _, mu := range calls {
		terms = append(terms, mu.String())
	}

	return strings.Join(terms, " ")
}

// Flags maps user-defined labels attached by score rules to the residues
// supporting each label.
type Flags map[string][]Mutation

// MergeFlags combines two flag maps into a fresh one, concatenating evidence
// lists label by label. Neither input is modified.
func MergeFlags(fst, snd Flags) Flags {
	if len(fst) == 0 && len(snd) == 0 {
		return nil
	}

	merged := make(Flags, len(fst)+len(snd))
	for name, evidence := range fst {
		merged[name] = append([]Mutation(nil), evidence...)
	}

	for name, evidence := range snd {
		merged[name] = append(merged[name], evidence...)
	}

	return merged
}

// Verdict is the public result of evaluating a rule: either a boolean match
// or a numeric score. A score of exactly 0 and "no match" are observably
// identical at this boundary.
type Verdict struct {
	Numeric bool    `yaml:"numeric"`
	Matched bool    `yaml:"matched"`
	Score   float64 `yaml:"score"`
}

// BoolVerdict wraps a boolean result.
func BoolVerdict(matched bool) Verdict {
	return Verdict{Matched: matched}
}

// ScoreVerdict wraps a numeric result.
func ScoreVerdict(score float64) Verdict {
	return Verdict{Numeric: true, Score: score}
}

// Truthy reports whether the verdict indicates a match: true, or a non-zero
// score.
func (v Verdict) Truthy() bool {
	if v.Numeric {
		return v.Score != 0
	}

	return v.Matched
}

func (v Verdict) String() string {
	if v.Numeric {
		return strconv.FormatFloat(v.Score, 'g', -1, 64)
	}

	return strconv.FormatBool(v.Matched)
}

type outcomeKind int

const (
	kindNone outcomeKind = iota // no information
	kindBool
	kindScore
	kindMissing // required position absent from the environment
)

// Outcome is the tri-state result of evaluating an expression node: a
// definite boolean or numeric value with its supporting residues and flags,
// "no information", or "required data missing". Outcomes are immutable;
// every combinator returns a fresh value.
type Outcome struct {
	kind       outcomeKind
	truth      bool
	score      float64
	missingPos int
	residues   Residues
	flags      Flags
}

// NoInfo is the "no information" outcome, the identity-like element of the
// outcome algebra. It is distinct from a definite false.
func NoInfo() Outcome {
	return Outcome{kind: kindNone, residues: NewResidues()}
}

// MissingData marks a required position that has no entry anywhere in the
// environment. It surfaces as a MissingPositionError at the public boundary.
func MissingData(pos int) Outcome {
	return Outcome{kind: kindMissing, missingPos: pos, residues: NewResidues()}
}

// BoolOutcome wraps a definite boolean result with its evidence.
func BoolOutcome(truth bool, residues Residues) Outcome {
	return Outcome{kind: kindBool, truth: truth, residues: residues}
}

// ScoreOutcome wraps a definite numeric result with its evidence and flags.
func ScoreOutcome(score float64, residues Residues, flags Flags) Outcome {
	return Outcome{kind: kindScore, score: score, residues: residues, flags: flags}
}

// Known reports whether the outcome carries a definite value.
func (o Outcome) Known() bool {
	return o.kind == kindBool || o.kind == kindScore
}

// MissingPos returns the absent position when the outcome is the
// missing-data marker.
func (o Outcome) MissingPos() (int, bool) {
	return o.missingPos, o.kind == kindMissing
}

// Truthy reports whether the outcome is a definite match: boolean true or a
// non-zero score. No-information and missing-data are not truthy.
func (o Outcome) Truthy() bool {
	switch o.kind {
	case kindBool:
		return o.truth
	case kindScore:
		return o.score != 0
	default:
		return false
	}
}

// Value returns the numeric reading of the outcome; boolean truth counts as
// 1 so that boolean and numeric results add uniformly.
func (o Outcome) Value() float64 {
	switch o.kind {
	case kindBool:
		if o.truth {
			return 1
		}

		return 0
	case kindScore:
		return o.score
	default:
		return 0
	}
}

// Residues returns the supporting evidence set.
func (o Outcome) Residues() Residues {
	if o.residues.items == nil {
		return NewResidues()
	}

	return o.residues
}

// Flags returns the flag map accumulated under this outcome. The caller must
// not modify it.
func (o Outcome) Flags() Flags { return o.flags }

// WithFlags returns a copy of the outcome carrying the given flag map.
func (o Outcome) WithFlags(flags Flags) Outcome {
	o.flags = flags
	return o
}

// Add combines two definite outcomes additively: values add, residue sets
// union, flag maps merge. Adding the boolean-false zero outcome is the
// identity on the value.
func (o Outcome) Add(other Outcome) Outcome {
	return Outcome{
		kind:     kindScore,
		score:    o.Value() + other.Value(),
		residues: o.Residues().Union(other.Residues()),
		flags:    MergeFlags(o.flags, other.flags),
	}
}

// Verdict collapses the outcome to the public result type. No-information
// and missing-data both read as boolean false; callers that must distinguish
// missing data check MissingPos before collapsing.
func (o Outcome) Verdict() Verdict {
	switch o.kind {
	case kindBool:
		return BoolVerdict(o.truth)
	case kindScore:
		return ScoreVerdict(o.score)
	default:
		return BoolVerdict(false)
	}
}

func (o Outcome) String() string {
	switch o.kind {
	case kindNone:
		return "Outcome(none)"
	case kindMissing:
		return fmt.Sprintf("Outcome(missing %d)", o.missingPos)
	case kindBool:
		return fmt.Sprintf("Outcome(%t, [%s])", o.truth, o.residues)
	default:
		return fmt.Sprintf("Outcome(%s, [%s])", strconv.FormatFloat(o.score, 'g', -1, 64), o.residues)
	}
}
