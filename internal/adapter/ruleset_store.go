// Package adapter contains storage and infrastructure adapters for the vdrm CLI.
package adapter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// RuleSetStore abstracts rule-set persistence so the domain layer never
// touches the disk directly.
type RuleSetStore interface {
	LoadRuleSet(path m.Path) (m.RuleSet, error)
	SaveRuleSet(path m.Path, set m.RuleSet) error
}

// FileRuleSetStore reads and writes rule sets on the local filesystem. Two
// formats are supported: YAML documents with named entries, and plain ".rules"
// files with one rule per line (the upstream rule-database interchange form).
type FileRuleSetStore struct{}

// NewFileRuleSetStore constructs a FileRuleSetStore.
func NewFileRuleSetStore() *FileRuleSetStore {
	return &FileRuleSetStore{}
}

// LoadRuleSet loads a rule set, picking the format from the file extension.
func (s *FileRuleSetStore) LoadRuleSet(path m.Path) (m.RuleSet, error) {
	data, err := os.ReadFile(string(path))
	if err != nil {
		return m.RuleSet{}, fmt.Errorf("read rule set: %w", err)
	}

	var set m.RuleSet

	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &set); err != nil {
			return m.RuleSet{}, fmt.Errorf("parse rule set %s: %w", path, err)
		}
	default:
		set = parsePlainRules(string(data))
	}

	if set.Name == "" {
		set.Name = strings.TrimSuffix(filepath.Base(string(path)), filepath.Ext(string(path)))
	}

	if len(set.Entries) == 0 {
		return m.RuleSet{}, fmt.Errorf("rule set %s: no rules", path)
	}

	slog.Debug("loaded rule set", "path", path, "name", set.Name, "rules", len(set.Entries))

	return set, nil
}

// parsePlainRules reads the line-oriented format: one rule per line, blank
// lines and #-comments skipped. A "name: rule" prefix names the entry;
// anonymous rules are numbered.
func parsePlainRules(data string) m.RuleSet {
	var set m.RuleSet

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := m.RuleEntry{Rule: line}

		// a rule can never contain ':', so a colon marks a name prefix
		if name, rule, found := strings.Cut(line, ":"); found {
			entry.Name = strings.TrimSpace(name)
			entry.Rule = strings.TrimSpace(rule)
		} else {
			entry.Name = fmt.Sprintf("rule-%d", len(set.Entries)+1)
		}

		set.Entries = append(set.Entries, entry)
	}

	return set
}

// SaveRuleSet writes a rule set, picking the format from the file extension.
func (s *FileRuleSetStore) SaveRuleSet(path m.Path, set m.RuleSet) error {
	var data []byte

	switch strings.ToLower(filepath.Ext(string(path))) {
	case ".yaml", ".yml":
		encoded, err := yaml.Marshal(set)
		if err != nil {
			return fmt.Errorf("encode rule set: %w", err)
		}

		data = encoded
	default:
		var b strings.Builder
		for _, entry := range set.Entries {
			b.WriteString(entry.Name)
			b.WriteString(": ")
			b.WriteString(entry.Rule)
			b.WriteByte('\n')
		}

		data = []byte(b.String())
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write rule set: %w", err)
	}

	slog.Debug("saved rule set", "path", path, "rules", len(set.Entries))

	return nil
}
