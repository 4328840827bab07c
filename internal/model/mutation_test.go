package model

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMutation(t *testing.T) {
	tests := []struct {
		text     string
		wildtype byte
		pos      int
		variant  byte
	}{
		{text: "41L", pos: 41, variant: 'L'},
		{text: "S100G", wildtype: 'S', pos: 100, variant: 'G'},
		{text: "69i", pos: 69, variant: Insertion},
		{text: "67d", pos: 67, variant: Deletion},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			mu, err := ParseMutation(tt.text)
			require.NoError(t, err)
			require.Equal(t, tt.wildtype, mu.Wildtype())
			require.Equal(t, tt.pos, mu.Pos())
			require.Equal(t, tt.variant, mu.Variant())
			require.Equal(t, tt.text, mu.String())
		})
	}
}

func TestParseMutation_Invalid(t *testing.T) {
	for _, text := range []string{"", "41", "L", "41LY", "lower41L"} {
		_, err := ParseMutation(text)
		require.Error(t, err, "input %q", text)
	}
}

func TestMutationEqual(t *testing.T) {
	a := NewMutation('S', 100, 'G')
	b := NewMutation(0, 100, 'G')

	equal, err := a.Equal(b)
	require.NoError(t, err)
	require.True(t, equal)

	c := NewMutation('S', 101, 'G')
	equal, err = a.Equal(c)
	require.NoError(t, err)
	require.False(t, equal)
}

func TestMutationEqual_WildtypeConflict(t *testing.T) {
	a := NewMutation('S', 100, 'G')
	b := NewMutation('R', 100, 'G')

	_, err := a.Equal(b)
	require.Error(t, err)
}

func TestMutationGobRoundTrip(t *testing.T) {
	original := NewMutation('S', 100, 'G')

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(original))

	var decoded Mutation
	require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
	require.Equal(t, original, decoded)
}

func TestParseMutationSet(t *testing.T) {
	set, err := ParseMutationSet("215FY")
	require.NoError(t, err)
	require.Equal(t, 215, set.Pos())
	require.Equal(t, 2, set.Len())
	require.True(t, set.Contains(NewMutation(0, 215, 'F')))
	require.True(t, set.Contains(NewMutation(0, 215, 'Y')))
	require.False(t, set.Contains(NewMutation(0, 215, 'G')))
	require.Equal(t, "215FY", set.String())
}

func TestParseMutationSet_Wildtype(t *testing.T) {
	set, err := ParseMutationSet("Q80KR")
	require.NoError(t, err)
	require.Equal(t, byte('Q'), set.Wildtype())
	require.Equal(t, 80, set.Pos())
	require.Equal(t, "Q80KR", set.String())
}

func TestParseMutationSet_Invalid(t *testing.T) {
	for _, text := range []string{"", "215", "FY", "Q80"} {
		_, err := ParseMutationSet(text)
		require.Error(t, err, "input %q", text)
	}
}

func TestMutationSetFromCalls(t *testing.T) {
	calls := []Mutation{
		NewMutation('T', 215, 'F'),
		NewMutation(0, 215, 'Y'),
	}

	set, err := MutationSetFromCalls(calls)
	require.NoError(t, err)
	require.Equal(t, byte('T'), set.Wildtype())
	require.Equal(t, 2, set.Len())
}

func TestMutationSetFromCalls_Invalid(t *testing.T) {
	_, err := MutationSetFromCalls(nil)
	require.Error(t, err)

	_, err = MutationSetFromCalls([]Mutation{
		NewMutation(0, 215, 'F'),
		NewMutation(0, 216, 'Y'),
	})
	require.Error(t, err)

	_, err = MutationSetFromCalls([]Mutation{
		NewMutation('T', 215, 'F'),
		NewMutation('S', 215, 'Y'),
	})
	require.Error(t, err)
}

func TestMutationSetIntersect(t *testing.T) {
	required, err := ParseMutationSet("T215FY")
	require.NoError(t, err)

	observed, err := ParseMutationSet("215YS")
	require.NoError(t, err)

	common := required.Intersect(observed)
	require.Equal(t, 1, common.Len())
	require.True(t, common.Contains(NewMutation(0, 215, 'Y')))
}

func TestParseVariantCalls(t *testing.T) {
	calls, err := ParseVariantCalls("41L 67N 70d")
	require.NoError(t, err)
	require.Equal(t, []int{41, 67, 70}, calls.Positions())
	require.True(t, calls.Has(67))
	require.False(t, calls.Has(215))

	set, ok := calls.At(70)
	require.True(t, ok)
	require.True(t, set.Contains(NewMutation(0, 70, Deletion)))

	require.Equal(t, "41L 67N 70d", calls.String())
}

func TestNewVariantCalls_DuplicatePosition(t *testing.T) {
	_, err := ParseVariantCalls("41L 41M")
	require.Error(t, err)
}

func TestVariantCallsFromSequences(t *testing.T) {
	calls, err := VariantCallsFromSequences("APITAYAQQTRGLLGCIITSLTGRD", "APITAYAQQTRGLLGCIITSLTGRE")
	require.NoError(t, err)
	require.Equal(t, []int{25}, calls.Positions())

	set, _ := calls.At(25)
	require.Equal(t, byte('D'), set.Wildtype())
	require.True(t, set.Contains(NewMutation(0, 25, 'E')))
}

func TestVariantCallsFromSequences_LengthMismatch(t *testing.T) {
	_, err := VariantCallsFromSequences("APIT", "API")
	require.Error(t, err)
}

func TestVariantCalls_NilSafe(t *testing.T) {
	var calls *VariantCalls

	_, ok := calls.At(41)
	require.False(t, ok)
	require.Empty(t, calls.Positions())
}
