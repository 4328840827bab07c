package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	pagerInfoStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)
)

// TUI implements UI using Bubble Tea for interactive display. Short output is
// printed directly; long report lists open in a scrollable pager.
type TUI struct {
	output io.Writer
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start initializes the UI.
func (p *TUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (p *TUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed. The pager runs synchronously inside
// DisplayReports, so there is nothing left to wait for.
func (p *TUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayRuleList prints the rules of a compiled rule set.
func (p *TUI) DisplayRuleList(ctx context.Context, setName string, rules []RuleInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(p.output, "\n%s", renderRuleTable(setName, rules))

	return err
}

// DisplayConcurrencyInfo shows concurrency settings.
func (p *TUI) DisplayConcurrencyInfo(ctx context.Context, threads int, samples int, rules int) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(p.output, "Calling %d rule(s) against %d sample(s) with %d worker(s)\n",
		rules, samples, threads)
}

// DisplayReports shows the call results, paging when they do not fit the
// terminal.
func (p *TUI) DisplayReports(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content := renderReportTable(reports)

	height := p.terminalHeight()
	if height == 0 || strings.Count(content, "\n") < height-1 {
		_, err := fmt.Fprintf(p.output, "\n%s", content)
		return err
	}

	pager := newReportPager(fmt.Sprintf("%d resistance call(s)", len(reports)), content)

	program := tea.NewProgram(pager, tea.WithOutput(p.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// DisplaySummary prints the per-rule tallies and the overall resistance rate.
func (p *TUI) DisplaySummary(ctx context.Context, summaries []m.Summary, rate float64) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(p.output, "\n%s", renderSummaryTable(summaries, rate))
}

// terminalHeight returns the output terminal height, or 0 when the output is
// not a terminal.
func (p *TUI) terminalHeight() int {
	f, ok := p.output.(*os.File)
	if !ok {
		return 0
	}

	_, height, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}

	return height
}

// reportPager is the Bubble Tea model paging through rendered reports.
type reportPager struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

func newReportPager(title, content string) reportPager {
	return reportPager{title: title, content: content}
}

func (rp reportPager) Init() tea.Cmd {
	return nil
}

func (rp reportPager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		chrome := lipgloss.Height(rp.headerView()) + lipgloss.Height(rp.footerView())

		if !rp.ready {
			rp.viewport = viewport.New(msg.Width, msg.Height-chrome)
			rp.viewport.SetContent(rp.content)
			rp.ready = true
		} else {
			rp.viewport.Width = msg.Width
			rp.viewport.Height = msg.Height - chrome
		}

		return rp, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return rp, tea.Quit
		}
	}

	var cmd tea.Cmd
	rp.viewport, cmd = rp.viewport.Update(msg)

	return rp, cmd
}

func (rp reportPager) View() string {
	if !rp.ready {
		return "loading..."
	}

	return rp.headerView() + "\n" + rp.viewport.View() + "\n" + rp.footerView()
}

func (rp reportPager) headerView() string {
	return pagerTitleStyle.Render(rp.title)
}

func (rp reportPager) footerView() string {
	return pagerInfoStyle.Render(fmt.Sprintf("%3.f%% | ↑/↓ scroll | q quit", rp.viewport.ScrollPercent()*100))
}
