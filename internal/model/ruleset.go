package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Path represents a file system path.
type Path string

// RuleEntry is one named rule in a rule set, typically keyed by drug name.
type RuleEntry struct {
	Name    string `yaml:"name"`
	Rule    string `yaml:"rule"`
	Comment string `yaml:"comment,omitempty"`
}

// RuleSet is a named collection of resistance rules loaded from disk.
type RuleSet struct {
	Name    string      `yaml:"name,omitempty"`
	Entries []RuleEntry `yaml:"rules"`
}

// Sample is one named mutation environment to call rules against.
type Sample struct {
	Name  string
	Calls *VariantCalls
}

// CallStatus classifies the result of applying one rule to one sample.
type CallStatus int

const (
	// Susceptible indicates the rule did not match (false or zero score).
	Susceptible CallStatus = iota
	// Resistant indicates the rule matched (true or non-zero score).
	Resistant
	// InsufficientData indicates a required position was absent from the
	// sample, so no call could be made.
	InsufficientData
)

func (s CallStatus) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Resistant:
		return "resistant"
	case InsufficientData:
		return "insufficient data"
	default:
		return "unknown"
	}
}

// ParseCallStatus resolves the textual form produced by String.
func ParseCallStatus(text string) (CallStatus, error) {
	switch text {
	case "susceptible":
		return Susceptible, nil
	case "resistant":
		return Resistant, nil
	case "insufficient data":
		return InsufficientData, nil
	default:
		return Susceptible, fmt.Errorf("unknown call status %q", text)
	}
}

// MarshalYAML serializes the status in its textual form.
func (s CallStatus) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML restores a status from its textual form.
func (s *CallStatus) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}

	status, err := ParseCallStatus(text)
	if err != nil {
		return err
	}

	*s = status

	return nil
}

// Report is the result of evaluating one rule against one sample.
type Report struct {
	Sample   string     `yaml:"sample"`
	Rule     string     `yaml:"rule"` // rule entry name, e.g. the drug
	Status   CallStatus `yaml:"status"`
	Verdict  Verdict    `yaml:"verdict"`
	Residues []Mutation `yaml:"residues,omitempty"` // evidence supporting the verdict
	Flags    Flags      `yaml:"flags,omitempty"`
	Detail   string     `yaml:"detail,omitempty"` // human-readable note, e.g. the missing position
}

// Summary aggregates reports per rule across all samples.
type Summary struct {
	Rule             string
	Resistant        int
	Susceptible      int
	InsufficientData int
}
