package domain

import (
	m "vdrm.dev/pkg/vdrm/internal/model"
	pkg "vdrm.dev/pkg/vdrm/pkg"
)

// SummarizeSpill folds a spilled report stream into per-rule summaries,
// preserving first-seen rule order.
func SummarizeSpill(reports pkg.FileSpill[m.Report]) ([]m.Summary, error) {
	var (
		order     []string
		summaries = map[string]*m.Summary{}
	)

	err := reports.Range(func(_ uint64, report m.Report) error {
		tally(report, summaries, &order)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return collect(order, summaries), nil
}

// Summarize folds in-memory reports into per-rule summaries.
func Summarize(reports []m.Report) []m.Summary {
	var (
		order     []string
		summaries = map[string]*m.Summary{}
	)

	for _, report := range reports {
		tally(report, summaries, &order)
	}

	return collect(order, summaries)
}

func tally(report m.Report, summaries map[string]*m.Summary, order *[]string) {
	summary, ok := summaries[report.Rule]
	if !ok {
		summary = &m.Summary{Rule: report.Rule}
		summaries[report.Rule] = summary
		*order = append(*order, report.Rule)
	}

	switch report.Status {
	case m.Resistant:
		summary.Resistant++
	case m.Susceptible:
		summary.Susceptible++
	case m.InsufficientData:
		summary.InsufficientData++
	}
}

func collect(order []string, summaries map[string]*m.Summary) []m.Summary {
	result := make([]m.Summary, 0, len(order))
	for _, rule := range order {
		result = append(result, *summaries[rule])
	}

	return result
}

// ResistanceRate is the fraction of decided calls that came out resistant.
// Insufficient-data calls are excluded from the denominator; with no decided
// calls at all the rate is 0.
func ResistanceRate(summaries []m.Summary) float64 {
	resistant := 0
	total := 0

	for _, summary := range summaries {
		resistant += summary.Resistant
		total += summary.Resistant + summary.Susceptible
	}

	if total == 0 {
		return 0.0
	}

	return float64(resistant) / float64(total)
}
