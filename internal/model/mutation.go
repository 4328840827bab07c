// Package model defines the data structures for drug resistance calling.
package model

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Insertion and Deletion are the pseudo-variant letters used for indels.
const (
	Insertion = 'i'
	Deletion  = 'd'
)

var mutationPattern = regexp.MustCompile(`^([A-Z]?)(\d+)([idA-Z])$`)

// Mutation is a single observed or required amino acid call: a position, the
// variant seen there, and optionally the wild-type reference letter.
// Mutations are immutable values; identity is (position, variant) only.
type Mutation struct {
	wildtype byte // 0 when unspecified
	pos      int
	variant  byte
}

// NewMutation builds a Mutation from its parts. wildtype may be 0 when the
// reference amino acid is unknown.
func NewMutation(wildtype byte, pos int, variant byte) Mutation {
	return Mutation{wildtype: wildtype, pos: pos, variant: variant}
}

// ParseMutation parses text of the form "[wildtype]position variant",
// e.g. "41L", "S100G", "69i".
func ParseMutation(text string) (Mutation, error) {
	match := mutationPattern.FindStringSubmatch(text)
	if match == nil {
		return Mutation{}, fmt.Errorf("mutation %q expects wild type (optional), position, and one variant", text)
	}

	pos, err := strconv.Atoi(match[2])
	if err != nil {
		return Mutation{}, fmt.Errorf("mutation %q position: %w", text, err)
	}

	var wildtype byte
	if match[1] != "" {
		wildtype = match[1][0]
	}

	return Mutation{wildtype: wildtype, pos: pos, variant: match[3][0]}, nil
}

// Pos returns the sequence position.
func (m Mutation) Pos() int { return m.pos }

// Wildtype returns the reference amino acid, or 0 when unspecified.
func (m Mutation) Wildtype() byte { return m.wildtype }

// Variant returns the called amino acid, or 'i'/'d' for indels.
func (m Mutation) Variant() byte { return m.variant }

func (m Mutation) String() string {
	var b strings.Builder
	if m.wildtype != 0 {
		b.WriteByte(m.wildtype)
	}

	b.WriteString(strconv.Itoa(m.pos))
	b.WriteByte(m.variant)

	return b.String()
}

// GobEncode serializes the mutation in its textual form so that values with
// unexported fields survive gob-based spill files.
func (m Mutation) GobEncode() ([]byte, error) {
	return []byte(m.String()), nil
}

// GobDecode restores a mutation from its textual form.
func (m *Mutation) GobDecode(data []byte) error {
	mu, err := ParseMutation(string(data))
	if err != nil {
		return err
	}

	*m = mu

	return nil
}

// MarshalYAML serializes the mutation in its textual form.
func (m Mutation) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML restores a mutation from its textual form.
func (m *Mutation) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}

	mu, err := ParseMutation(text)
	if err != nil {
		return err
	}

	*m = mu

	return nil
}

// Equal compares two mutations by (position, variant). When both sides carry
// a wild type and they disagree, the comparison itself is an error: the two
// calls reference different sequences and must not be silently unequal.
func (m Mutation) Equal(other Mutation) (bool, error) {
	if m.pos != other.pos {
		return false, nil
	}

	if m.wildtype != 0 && other.wildtype != 0 && m.wildtype != other.wildtype {
		return false, fmt.Errorf("wild type mismatch between %s and %s", m, other)
	}

	return m.variant == other.variant, nil
}

// residueKey identifies a mutation for set membership: position and variant
// only, mirroring Equal.
type residueKey struct {
	pos     int
	variant byte
}

func (m Mutation) key() residueKey {
	return residueKey{pos: m.pos, variant: m.variant}
}

var mutationSetPattern = regexp.MustCompile(`^([A-Z]?)(\d+)([idA-Z]*)$`)

// MutationSet holds every call at a single position. The member calls share
// the position and, when specified, the wild type. A MutationSet is fixed at
// construction.
type MutationSet struct {
	wildtype  byte
	pos       int
	mutations map[residueKey]Mutation
}

// NewMutationSet builds a set from an explicit wild type, position and
// variant letters. At least one variant is required; sets assembled from
// existing calls go through MutationSetFromCalls instead.
func NewMutationSet(wildtype byte, pos int, variants string) (MutationSet, error) {
	if variants == "" {
		return MutationSet{}, fmt.Errorf("position %d: no variants", pos)
	}

	mutations := make(map[residueKey]Mutation, len(variants))
	for i := 0; i < len(variants); i++ {
		mu := NewMutation(wildtype, pos, variants[i])
		mutations[mu.key()] = mu
	}

	return MutationSet{wildtype: wildtype, pos: pos, mutations: mutations}, nil
}

// ParseMutationSet parses text such as "215FY", "S100G" or "67d" into the set
// of calls at one position.
func ParseMutationSet(text string) (MutationSet, error) {
	match := mutationSetPattern.FindStringSubmatch(text)
	if match == nil || match[3] == "" {
		return MutationSet{}, fmt.Errorf("mutation set %q expects wild type (optional), position, and variants", text)
	}

	pos, err := strconv.Atoi(match[2])
	if err != nil {
		return MutationSet{}, fmt.Errorf("mutation set %q position: %w", text, err)
	}

	var wildtype byte
	if match[1] != "" {
		wildtype = match[1][0]
	}

	return NewMutationSet(wildtype, pos, match[3])
}

// MutationSetFromCalls builds a set from existing calls, validating that they
// agree on position and wild type.
func MutationSetFromCalls(calls []Mutation) (MutationSet, error) {
	if len(calls) == 0 {
		return MutationSet{}, fmt.Errorf("no position and no variants")
	}

	var wildtype byte

	pos := calls[0].pos
	mutations := make(map[residueKey]Mutation, len(calls))

	for _, call := range calls {
		if call.pos != pos {
			return MutationSet{}, fmt.Errorf("multiple positions found: %d, %d", pos, call.pos)
		}

		if call.wildtype != 0 {
			if wildtype != 0 && wildtype != call.wildtype {
				return MutationSet{}, fmt.Errorf("multiple wildtypes found: %c, %c", wildtype, call.wildtype)
			}

			wildtype = call.wildtype
		}

		mutations[call.key()] = call
	}

	return MutationSet{wildtype: wildtype, pos: pos, mutations: mutations}, nil
}

// Pos returns the shared position of the set.
func (s MutationSet) Pos() int { return s.pos }

// Wildtype returns the shared reference amino acid, or 0 when unspecified.
func (s MutationSet) Wildtype() byte { return s.wildtype }

// Len returns the number of calls in the set.
func (s MutationSet) Len() int { return len(s.mutations) }

// Calls returns the member calls sorted by variant letter.
func (s MutationSet) Calls() []Mutation {
	calls := make([]Mutation, 0, len(s.mutations))
	for _, mu := range s.mutations {
		calls = append(calls, mu)
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].variant < calls[j].variant })

	return calls
}

// Contains reports whether the set holds a call matching mu by
// (position, variant).
func (s MutationSet) Contains(mu Mutation) bool {
	_, ok := s.mutations[mu.key()]
	return ok
}

// Intersect returns the calls present in both sets. The returned residues are
// taken from s so that wild-type annotations on the receiver survive.
func (s MutationSet) Intersect(other MutationSet) Residues {
	result := NewResidues()
	for k, mu := range s.mutations {
		if _, ok := other.mutations[k]; ok {
			result.add(mu)
		}
	}

	return result
}

func (s MutationSet) String() string {
	var b strings.Builder
	if s.wildtype != 0 {
		b.WriteByte(s.wildtype)
	}

	b.WriteString(strconv.Itoa(s.pos))

	for _, mu := range s.Calls() {
		b.WriteByte(mu.variant)
	}

	return b.String()
}

// VariantCalls is the mutation environment a rule is evaluated against: at
// most one MutationSet per observed position. The container is read-only to
// the evaluation engine.
type VariantCalls struct {
	sets map[int]MutationSet
}

// NewVariantCalls builds an environment from pre-built sets. The caller
// guarantees one set per position; duplicates are rejected here rather than
// merged.
func NewVariantCalls(sets []MutationSet) (*VariantCalls, error) {
	byPos := make(map[int]MutationSet, len(sets))
	for _, set := range sets {
		if _, dup := byPos[set.pos]; dup {
			return nil, fmt.Errorf("duplicate position %d", set.pos)
		}

		byPos[set.pos] = set
	}

	return &VariantCalls{sets: byPos}, nil
}

// ParseVariantCalls parses whitespace-separated mutation set terms, e.g.
// "41L 67N 70d".
func ParseVariantCalls(text string) (*VariantCalls, error) {
	fields := strings.Fields(text)
	sets := make([]MutationSet, 0, len(fields))

	for _, field := range fields {
		set, err := ParseMutationSet(field)
		if err != nil {
			return nil, err
		}

		sets = append(sets, set)
	}

	return NewVariantCalls(sets)
}

// VariantCallsFromSequences derives an environment from two aligned amino
// acid sequences, keeping only the positions where the sample differs from
// the reference. Positions are 1-based.
func VariantCallsFromSequences(reference, sample string) (*VariantCalls, error) {
	if len(reference) != len(sample) {
		return nil, fmt.Errorf("reference length was %d and sample length was %d", len(reference), len(sample))
	}

	var sets []MutationSet

	for i := 0; i < len(reference); i++ {
		if reference[i] == sample[i] {
			continue
		}

		set, err := NewMutationSet(reference[i], i+1, string(sample[i]))
		if err != nil {
			return nil, err
		}

		sets = append(sets, set)
	}

	return NewVariantCalls(sets)
}

// At returns the set observed at pos, if any.
func (v *VariantCalls) At(pos int) (MutationSet, bool) {
	if v == nil {
		return MutationSet{}, false
	}

	set, ok := v.sets[pos]

	return set, ok
}

// Has reports whether any set was observed at pos.
func (v *VariantCalls) Has(pos int) bool {
	_, ok := v.At(pos)
	return ok
}

// Positions returns every observed position in ascending order.
func (v *VariantCalls) Positions() []int {
	if v == nil {
		return nil
	}

	positions := make([]int, 0, len(v.sets))
	for pos := range v.sets {
		positions = append(positions, pos)
	}

	sort.Ints(positions)

	return positions
}

// Sets returns the mutation sets ordered by position.
func (v *VariantCalls) Sets() []MutationSet {
	positions := v.Positions()

	sets := make([]MutationSet, 0, len(positions))
	for _, pos := range positions {
		sets = append(sets, v.sets[pos])
	}

	return sets
}

func (v *VariantCalls) String() string {
	sets := v.Sets()

	terms := make([]string, 0, len(sets))
	for _, set := range sets {
		terms = append(terms, set.String())
	}

	return strings.Join(terms, " ")
}
