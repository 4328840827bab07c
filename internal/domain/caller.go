package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// CompiledEntry is one named rule of a rule set after compilation.
type CompiledEntry struct {
	Name    string
	Comment string
	Rule    *Rule
}

// Caller applies a compiled rule set to sample environments. Implementations
// are safe for use from a single pipeline; the underlying rules may be
// evaluated concurrently.
type Caller interface {
	Entries() []CompiledEntry
	Stream(ctx context.Context, samples <-chan m.Sample, threads int) (<-chan m.Report, <-chan error)
	CallStream(ctx context.Context, samples <-chan m.Sample, upstream <-chan error, threads int) ([]m.Report, error)
	CallAll(ctx context.Context, samples []m.Sample, threads int) ([]m.Report, error)
}

type caller struct {
	entries   []CompiledEntry
	ruleOrder map[string]int
}

// NewCaller compiles every entry of the rule set up front so that a bad rule
// fails the whole run before any sample is touched.
func NewCaller(set m.RuleSet, opts ...Option) (Caller, error) {
	entries := make([]CompiledEntry, 0, len(set.Entries))
	ruleOrder := make(map[string]int, len(set.Entries))

	for i, entry := range set.Entries {
		rule, err := Compile(entry.Rule, opts...)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", entry.Name, err)
		}

		entries = append(entries, CompiledEntry{
			Name:    entry.Name,
			Comment: entry.Comment,
			Rule:    rule,
		})
		ruleOrder[entry.Name] = i
	}

	slog.Debug("compiled rule set", "name", set.Name, "rules", len(entries))

	return &caller{entries: entries, ruleOrder: ruleOrder}, nil
}

// Entries returns the compiled rules in rule-set order.
func (c *caller) Entries() []CompiledEntry {
	return append([]CompiledEntry(nil), c.entries...)
}

// Stream fans samples out over a bounded worker pool and emits one report per
// (sample, rule) pair. Report order across samples is not defined; CallAll
// restores it. The error channel carries at most one error and both channels
// close when the input channel closes and all workers are done.
func (c *caller) Stream(ctx context.Context, samples <-chan m.Sample, threads int) (<-chan m.Report, <-chan error) {
	reportsChannel := make(chan m.Report, threads)
	errorChannel := make(chan error, threads)

	var group errgroup.Group
	group.SetLimit(threads)

	go func() {
		for {
			select {
			case <-ctx.Done():
				// Context cancelled, drain remaining samples
				for range samples {
				}

				return
			case sample, ok := <-samples:
				if !ok {
					// Channel closed, wait for all workers to finish
					err := group.Wait()

					close(reportsChannel)

					if err != nil {
						errorChannel <- err
					}

					close(errorChannel)

					return
				}

				currentSample := sample

				group.Go(func() error {
					for _, entry := range c.entries {
						report := c.call(currentSample, entry)

						select {
						case <-ctx.Done():
							return ctx.Err()
						case reportsChannel <- report:
						}
					}

					return nil
				})
			}
		}
	}()

	return reportsChannel, errorChannel
}

// CallStream runs every rule against a stream of samples whose source reports
// its own failures on upstream. The upstream errors are merged with the
// evaluation errors so either side aborts the run. Input order is unknown for
// a stream, so reports come back in (sample name, rule-set order).
func (c *caller) CallStream(ctx context.Context, samples <-chan m.Sample, upstream <-chan error, threads int) ([]m.Report, error) {
	if threads < 1 {
		threads = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reportsChannel, errorChannel := c.Stream(ctx, samples, threads)

	allReports, err := c.collect(ctx, reportsChannel, MergeErrorChannels(upstream, errorChannel))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(allReports, func(i, j int) bool {
		if allReports[i].Sample != allReports[j].Sample {
			return allReports[i].Sample < allReports[j].Sample
		}

		return c.ruleOrder[allReports[i].Rule] < c.ruleOrder[allReports[j].Rule]
	})

	return allReports, nil
}

// CallAll runs every rule against every sample and returns the reports in
// (sample order, rule-set order).
func (c *caller) CallAll(ctx context.Context, samples []m.Sample, threads int) ([]m.Report, error) {
	if threads < 1 {
		threads = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sampleChannel := make(chan m.Sample, threads)

	go func() {
		defer close(sampleChannel)

		for _, sample := range samples {
			select {
			case <-ctx.Done():
				return
			case sampleChannel <- sample:
			}
		}
	}()

	reportsChannel, errorChannel := c.Stream(ctx, sampleChannel, threads)

	allReports, err := c.collect(ctx, reportsChannel, errorChannel)
	if err != nil {
		return nil, err
	}

	sampleOrder := make(map[string]int, len(samples))
	for i, sample := range samples {
		sampleOrder[sample.Name] = i
	}

	sort.SliceStable(allReports, func(i, j int) bool {
		if sampleOrder[allReports[i].Sample] != sampleOrder[allReports[j].Sample] {
			return sampleOrder[allReports[i].Sample] < sampleOrder[allReports[j].Sample]
		}

		return c.ruleOrder[allReports[i].Rule] < c.ruleOrder[allReports[j].Rule]
	})

	return allReports, nil
}

// collect drains the report channel while watching the error channel and
// stops at the first failure on either side.
func (c *caller) collect(ctx context.Context, reports <-chan m.Report, errs <-chan error) ([]m.Report, error) {
	var allReports []m.Report

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case report, ok := <-reports:
				if !ok {
					return nil
				}

				allReports = append(allReports, report)
			}
		}
	})

	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return groupCtx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}

			return err
		}
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return allReports, nil
}

// call evaluates a single rule against a single sample. A missing required
// position yields an insufficient-data report rather than an error: one
// under-sequenced sample must not abort the run.
func (c *caller) call(sample m.Sample, entry CompiledEntry) m.Report {
	outcome, err := entry.Rule.Evaluate(sample.Calls)
	if err != nil {
		var missing *MissingPositionError
		if errors.As(err, &missing) {
			slog.Debug("insufficient data", "sample", sample.Name, "rule", entry.Name, "position", missing.Pos)
		} else {
			slog.Warn("rule evaluation failed", "sample", sample.Name, "rule", entry.Name, "error", err)
		}

		return m.Report{
			Sample: sample.Name,
			Rule:   entry.Name,
			Status: m.InsufficientData,
			Detail: err.Error(),
		}
	}

	verdict := outcome.Verdict()

	status := m.Susceptible
	detail := ""

	if verdict.Truthy() {
		status = m.Resistant
		detail = entry.Comment
	}

	return m.Report{
		Sample:   sample.Name,
		Rule:     entry.Name,
		Status:   status,
		Verdict:  verdict,
		Residues: outcome.Residues().Calls(),
		Flags:    outcome.Flags(),
		Detail:   detail,
	}
}

// MergeErrorChannels fans two error channels into one, forwarding the first
// error and closing. CallStream uses it to join the sample source's error
// channel with the evaluation one.
func MergeErrorChannels(ch1, ch2 <-chan error) <-chan error {
	merged := make(chan error, 1)

	go func() {
		defer close(merged)

		for ch1 != nil || ch2 != nil {
			select {
			case err, ok := <-ch1:
				if !ok {
					ch1 = nil
				} else {
					merged <- err
					return // Send first error and close
				}
			case err, ok := <-ch2:
				if !ok {
					ch2 = nil
				} else {
					merged <- err
					return
				}
			}
		}
	}()

	return merged
}
