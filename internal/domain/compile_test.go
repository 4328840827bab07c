package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompile_ValidRules(t *testing.T) {
	examples := []string{
		"151M OR 69i",
		"215FY AND NOT 184VI",
		"151M AND EXCEPT 69i",
		"215F OR 215Y",
		"SELECT ATLEAST 2 FROM (41L, 67N, 70R, 210W, 215F, 219Q)",
		"SELECT ATLEAST 2 AND NOTMORETHAN 2 FROM (41L, 67N, 70R, 210W, 215FY, 219QE)",
		"SCORE FROM (65R => 20, 74V => 20, 184VI => 20)",
		"SCORE FROM (101P => 40, 101E => 30, 101HN => 15, 101Q => 5 )",
		"SCORE FROM ( MAX  (101P => 40, 101E => 30, 101HN => 15, 101Q => 5 ))",
		"3N AND 9N",
		"2N OR 9N AND 2N",
		"3N AND (2N AND (4N OR 2N))",
		"TRUE OR (FALSE AND TRUE)",
	}

	for _, example := range examples {
		t.Run(example, func(t *testing.T) {
			rule, err := Compile(example)
			require.NoError(t, err)
			require.Equal(t, example, rule.String())
		})
	}
}

func TestCompile_SecondGenerationForms(t *testing.T) {
	examples := []string{
		"( 10N => -1.0 )",
		"( 151M => -1.0, 130M => 2.0 )",
		"(L41L => 3, 67N => (2N => 2))",
		"MEAN (L41L => 3, 67N => (2N => 2))",
		"MIN (41L => 3, 67N => 2)",
		"(0.5, L41L => 3, 67N => (2N => 2))",
		"(TRUE => (0.5, 0.25), FALSE => 5, L41L => 3, 67N => (2N => 2))",
	}

	for _, example := range examples {
		t.Run(example, func(t *testing.T) {
			rule, err := Compile(example)
			require.NoError(t, err)
			require.True(t, rule.Numeric())
		})
	}
}

func TestCompile_MixedSumAndMax(t *testing.T) {
	rule, err := Compile("SCORE FROM ( 98G => 10, 100I => 40, MAX (101P => 40, 101E => 30, 101HN => 15, 101Q => 5) )")
	require.NoError(t, err)
	require.True(t, rule.Numeric())
}

func TestCompile_EchoesSource(t *testing.T) {
	source := "  SELECT ATLEAST 2 FROM (41L, 67N)\n"

	rule, err := Compile(source)
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(source), rule.String())
}

func TestCompile_Numeric(t *testing.T) {
	boolean, err := Compile("41L AND 67N")
	require.NoError(t, err)
	require.False(t, boolean.Numeric())

	scored, err := Compile("SCORE FROM (41L => 5)")
	require.NoError(t, err)
	require.True(t, scored.Numeric())
}

func TestCompile_Positions(t *testing.T) {
	rule, err := Compile("SCORE FROM (215FY => 10, MAX (41L => 5, 67N => 5), (70R AND 41L) => 5)")
	require.NoError(t, err)
	require.Equal(t, []int{41, 67, 70, 215}, rule.Positions())
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("SCORE FROM ( 10R => 2;0 )")
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, 1, parseErr.Line)
	require.Contains(t, parseErr.MarkedLine(), ">!<")
	require.Contains(t, parseErr.Error(), ">!<")
}

func TestCompile_SyntaxErrorMultiline(t *testing.T) {
	rule := "SCORE FROM (\n    10R => 2;0\n)\n"

	_, err := Compile(rule)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, 2, parseErr.Line)
	require.Contains(t, parseErr.MarkedLine(), "10R => 2>!<")
}

func TestCompile_IncompleteRule(t *testing.T) {
	for _, text := range []string{
		"",
		"SELECT ATLEAST",
		"SCORE FROM (41L => )",
		"41L AND",
		"(41L",
	} {
		_, err := Compile(text)
		require.Error(t, err, "input %q", text)
	}
}

func TestCompile_TrailingGarbage(t *testing.T) {
	_, err := Compile("41L AND 67N extra")
	require.Error(t, err)
}

func TestThreshold(t *testing.T) {
	atLeast, err := NewThreshold(AtLeast, 2)
	require.NoError(t, err)
	require.True(t, atLeast.Accepts(2))
	require.True(t, atLeast.Accepts(3))
	require.False(t, atLeast.Accepts(1))

	exactly, err := NewThreshold(Exactly, 2)
	require.NoError(t, err)
	require.True(t, exactly.Accepts(2))
	require.False(t, exactly.Accepts(3))

	notMore, err := NewThreshold(NotMoreThan, 2)
	require.NoError(t, err)
	require.True(t, notMore.Accepts(0))
	require.False(t, notMore.Accepts(3))

	_, err = NewThreshold("ATMOST", 2)
	require.Error(t, err)
}

func TestQuantifierCombinators(t *testing.T) {
	atLeast, err := NewThreshold(AtLeast, 2)
	require.NoError(t, err)

	notMore, err := NewThreshold(NotMoreThan, 3)
	require.NoError(t, err)

	band := QuantifierAnd(atLeast, notMore)
	require.True(t, band.Accepts(2))
	require.True(t, band.Accepts(3))
	require.False(t, band.Accepts(1))
	require.False(t, band.Accepts(4))

	bor := QuantifierOr(atLeast, notMore)
	require.True(t, bor.Accepts(0))
	require.True(t, bor.Accepts(5))
}
