package controller

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

var (
	resistantStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	susceptibleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	insufficientStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayRuleList prints the rules of a compiled rule set.
func (s *SimpleUI) DisplayRuleList(ctx context.Context, setName string, rules []RuleInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderRuleTable(setName, rules))

	return nil
}

// DisplayConcurrencyInfo shows concurrency settings.
func (s *SimpleUI) DisplayConcurrencyInfo(ctx context.Context, threads int, samples int, rules int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Calling %d rule(s) against %d sample(s) with %d worker(s)\n", rules, samples, threads)
}

// DisplayReports prints one row per (sample, rule) call.
func (s *SimpleUI) DisplayReports(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderReportTable(reports))

	return nil
}

// DisplaySummary prints the per-rule tallies and the overall resistance rate.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summaries []m.Summary, rate float64) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(summaries, rate))
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func renderRuleTable(setName string, rules []RuleInfo) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Rule", "Kind", "Positions", "Expression", "Comment"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})

	for _, rule := range rules {
		kind := "boolean"
		if rule.Numeric {
			kind = "score"
		}

		table.Append([]string{rule.Name, kind, formatPositions(rule.Positions), rule.Rule, rule.Comment})
	}

	table.SetFooter([]string{setName, "", "", fmt.Sprintf("%d rule(s)", len(rules)), ""})
	table.Render()

	return tableBuffer.String()
}

func renderReportTable(reports []m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Sample", "Rule", "Status", "Result", "Evidence", "Detail"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})

	resistant := 0

	for _, report := range reports {
		if report.Status == m.Resistant {
			resistant++
		}

		result := ""
		if report.Status != m.InsufficientData {
			result = report.Verdict.String()
		}

		table.Append([]string{
			report.Sample,
			report.Rule,
			formatStatus(report.Status),
			result,
			formatResidues(report.Residues),
			formatDetail(report),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d call(s)", len(reports)),
		"",
		fmt.Sprintf("%d resistant", resistant),
		"", "", "",
	})
	table.Render()

	return tableBuffer.String()
}

func renderSummaryTable(summaries []m.Summary, rate float64) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Rule", "Resistant", "Susceptible", "No Call"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
	})

	totalResistant := 0
	totalSusceptible := 0
	totalNoCall := 0

	for _, summary := range summaries {
		totalResistant += summary.Resistant
		totalSusceptible += summary.Susceptible
		totalNoCall += summary.InsufficientData

		table.Append([]string{
			summary.Rule,
			strconv.Itoa(summary.Resistant),
			strconv.Itoa(summary.Susceptible),
			strconv.Itoa(summary.InsufficientData),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Resistance rate %.1f%%", rate*100),
		strconv.Itoa(totalResistant),
		strconv.Itoa(totalSusceptible),
		strconv.Itoa(totalNoCall),
	})
	table.Render()

	return tableBuffer.String()
}

func formatStatus(status m.CallStatus) string {
	switch status {
	case m.Resistant:
		return resistantStyle.Render(status.String())
	case m.Susceptible:
		return susceptibleStyle.Render(status.String())
	case m.InsufficientData:
		return insufficientStyle.Render("no call")
	default:
		return status.String()
	}
}

func formatResidues(residues []m.Mutation) string {
	terms := make([]string, 0, len(residues))
	for _, mu := range residues {
		terms = append(terms, mu.String())
	}

	return strings.Join(terms, " ")
}

// formatDetail combines the free-form detail with any score flags, flags
// sorted by label so output is stable.
func formatDetail(report m.Report) string {
	parts := make([]string, 0, 1+len(report.Flags))
	if report.Detail != "" {
		parts = append(parts, report.Detail)
	}

	labels := make([]string, 0, len(report.Flags))
	for label := range report.Flags {
		labels = append(labels, label)
	}

	sort.Strings(labels)

	for _, label := range labels {
		parts = append(parts, fmt.Sprintf("[%s: %s]", label, formatResidues(report.Flags[label])))
	}

	return strings.Join(parts, " ")
}

func formatPositions(positions []int) string {
	terms := make([]string, 0, len(positions))
	for _, pos := range positions {
		terms = append(terms, strconv.Itoa(pos))
	}

	return strings.Join(terms, " ")
}
