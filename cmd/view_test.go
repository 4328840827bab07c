package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdrm.dev/pkg/vdrm/internal/controller"
	m "vdrm.dev/pkg/vdrm/internal/model"
)

func TestViewCmd_ShowsSavedReports(t *testing.T) {
	dir := t.TempDir()

	reports := []m.Report{
		{Sample: "patient1", Rule: "AZT", Status: m.Resistant, Verdict: m.ScoreVerdict(20)},
		{Sample: "patient2", Rule: "AZT", Status: m.Susceptible, Verdict: m.ScoreVerdict(0)},
	}
	require.NoError(t, reportStore.SaveReports(m.Path(filepath.Join(dir, reportsFileName)), reports))

	viewOutput := &bytes.Buffer{}
	originalViewer := newViewer
	newViewer = func() controller.UI { return controller.NewTUI(viewOutput) }
	defer func() { newViewer = originalViewer }()

	_, err := executeRoot(t, "view", "--output", dir)
	require.NoError(t, err)

	out := viewOutput.String()
	assert.Contains(t, out, "patient1")
	assert.Contains(t, out, "patient2")
	assert.Contains(t, out, "Resistance rate 50.0%")
}

func TestViewCmd_MissingReports(t *testing.T) {
	_, err := executeRoot(t, "view", "--output", t.TempDir())
	require.Error(t, err)
}

func TestViewCmd_PositionalArgsAreRejected(t *testing.T) {
	_, err := executeRoot(t, "view", "extra-arg", "--output", t.TempDir())
	require.Error(t, err)
}
