package domain

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ruleLexer tokenizes rule source. Rule order matters: a residue term such as
// "S100G" or "67d" must win over the bare integer and keyword rules, and the
// float rule must win over the integer rule.
var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Arrow", Pattern: `=>`},
	{Name: "Residue", Pattern: `[A-Z]?\d+[A-Zid]+`},
	{Name: "Float", Pattern: `-?\d+\.\d+`},
	{Name: "Int", Pattern: `-?\d+`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Ident", Pattern: `[A-Z]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Comma", Pattern: `,`},
})

// ruleParser is the participle parser for the raw rule tree. Parenthesized
// conditions in score items are only distinguishable from nested score lists
// at the arrow, so the parser needs deep lookahead.
var ruleParser = participle.MustBuild[rawRule](
	participle.Lexer(ruleLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(1024),
)

// rawRule is the root parse node: a scored rule, a prefix-less score list,
// or a plain boolean rule.
type rawRule struct {
	Pos   lexer.Position
	Score *rawScoreExpr `parser:"  @@"`
	Bare  *rawBareScore `parser:"| @@"`
	Bool  *rawOrExpr    `parser:"| @@"`
}

// rawBareScore is the second-generation dialect's top-level form: an
// aggregate or parenthesized score list without the SCORE FROM keyword.
type rawBareScore struct {
	Pos   lexer.Position
	Agg   *rawAggList     `parser:"  @@"`
	Lists []*rawScoreList `parser:"| '(' @@ ( ',' @@ )* ')'"`
}

// rawOrExpr: OR-separated terms, lowest precedence.
type rawOrExpr struct {
	Pos   lexer.Position
	Terms []*rawAndExpr `parser:"@@ ( 'OR' @@ )*"`
}

// rawAndExpr: AND-separated factors, binding tighter than OR.
type rawAndExpr struct {
	Pos     lexer.Position
	Factors []*rawCond `parser:"@@ ( 'AND' @@ )*"`
}

// rawCond is a single boolean factor. NOT and EXCEPT are synonyms.
type rawCond struct {
	Pos     lexer.Position
	Not     *rawCond   `parser:"  ( 'NOT' | 'EXCEPT' ) @@"`
	Truth   *string    `parser:"| @( 'TRUE' | 'FALSE' )"`
	Select  *rawSelect `parser:"| @@"`
	Paren   *rawOrExpr `parser:"| '(' @@ ')'"`
	Residue *string    `parser:"| @Residue"`
}

// rawSelect: SELECT <quantifier> FROM ( residue, ... )
type rawSelect struct {
	Pos      lexer.Position
	Quant    *rawQuant `parser:"'SELECT' @@"`
	Residues []string  `parser:"'FROM' '(' @Residue ( ',' @Residue )* ')'"`
}

// rawQuant: threshold comparisons joined by AND/OR.
type rawQuant struct {
	First *rawThreshold   `parser:"@@"`
	Rest  []*rawQuantTail `parser:"@@*"`
}

type rawQuantTail struct {
	Op   string        `parser:"@( 'AND' | 'OR' )"`
	Next *rawThreshold `parser:"@@"`
}

type rawThreshold struct {
	Pos   lexer.Position
	Op    string `parser:"@( 'ATLEAST' | 'EXACTLY' | 'NOTMORETHAN' )"`
	Count int    `parser:"@Int"`
}

// rawScoreExpr: SCORE FROM ( scorelist, ... )
type rawScoreExpr struct {
	Pos   lexer.Position
	Lists []*rawScoreList `parser:"'SCORE' 'FROM' '(' @@ ( ',' @@ )* ')'"`
}

// rawScoreList is one element of a SCORE FROM body: an explicit aggregate or
// a single score item (an implicit SUM contribution).
type rawScoreList struct {
	Pos  lexer.Position
	Agg  *rawAggList   `parser:"  @@"`
	Item *rawScoreItem `parser:"| @@"`
}

// rawAggList: MAX ( item, ... ), MIN ( ... ) or MEAN ( ... ).
type rawAggList struct {
	Pos   lexer.Position
	Op    string          `parser:"@( 'MAX' | 'MIN' | 'MEAN' )"`
	Items []*rawScoreItem `parser:"'(' @@ ( ',' @@ )* ')'"`
}

// rawScoreItem: a bare number or a guarded contribution.
type rawScoreItem struct {
	Pos     lexer.Position
	Bare    *rawNumber      `parser:"  @@"`
	Guarded *rawGuardedItem `parser:"| @@"`
}

// rawGuardedItem: cond => value.
type rawGuardedItem struct {
	Pos   lexer.Position
	Cond  *rawOrExpr   `parser:"@@ '=>'"`
	Value *rawScoreVal `parser:"@@"`
}

// rawScoreVal is the right-hand side of an arrow: a quoted flag, a number, or
// a parenthesized nested score list that only counts under the guard.
type rawScoreVal struct {
	Pos    lexer.Position
	Flag   *string         `parser:"  @String"`
	Number *rawNumber      `parser:"| @@"`
	Nested []*rawScoreList `parser:"| '(' @@ ( ',' @@ )* ')'"`
}

type rawNumber struct {
	Float *float64 `parser:"  @Float"`
	Int   *int     `parser:"| @Int"`
}

func (n *rawNumber) value() float64 {
	if n.Float != nil {
		return *n.Float
	}

	return float64(*n.Int)
}
