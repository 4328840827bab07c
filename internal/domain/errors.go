package domain

import (
	"fmt"
	"strings"
)

// MissingPositionError reports that a rule referenced a position with no
// entry anywhere in the supplied environment. Absence of sequencing data at
// a required position must not be silently treated as wild type.
type MissingPositionError struct {
	Pos int
}

func (e *MissingPositionError) Error() string {
	return fmt.Sprintf("missing position %d", e.Pos)
}

// ParseError reports a rule syntax error with the offending location and a
// marked excerpt of the source line.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	source string
}

func (e *ParseError) Error() string {
	excerpt := e.MarkedLine()
	if excerpt == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}

	return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Msg, excerpt)
}

// MarkedLine returns the offending source line with a ">!<" marker inserted
// at the error column.
func (e *ParseError) MarkedLine() string {
	if e.Line <= 0 {
		return ""
	}

	lines := strings.Split(e.source, "\n")
	if e.Line > len(lines) {
		return ""
	}

	line := lines[e.Line-1]

	col := e.Column - 1
	if col < 0 {
		col = 0
	}

	if col > len(line) {
		col = len(line)
	}

	return strings.TrimSpace(line[:col]) + ">!<" + strings.TrimSpace(line[col:])
}
