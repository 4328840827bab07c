package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestSampleStore_LoadSamples(t *testing.T) {
	store := NewFileSampleStore()
	path := writeFile(t, t.TempDir(), "cohort.calls", `# cohort A
patient1: 41L 67N 70d
patient2: 215FY
`)

	samples, err := store.LoadSamples(m.Path(path))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, "patient1", samples[0].Name)
	require.Equal(t, []int{41, 67, 70}, samples[0].Calls.Positions())
	require.Equal(t, "patient2", samples[1].Name)
	require.True(t, samples[1].Calls.Has(215))
}

func TestSampleStore_LoadSamples_BadLine(t *testing.T) {
	store := NewFileSampleStore()
	path := writeFile(t, t.TempDir(), "bad.calls", "patient1 41L\n")

	_, err := store.LoadSamples(m.Path(path))
	require.Error(t, err)
	require.Contains(t, err.Error(), ":1:")
}

func TestSampleStore_LoadSamples_BadCalls(t *testing.T) {
	store := NewFileSampleStore()
	path := writeFile(t, t.TempDir(), "bad.calls", "patient1: 41L notacall\n")

	_, err := store.LoadSamples(m.Path(path))
	require.Error(t, err)
}

func TestSampleStore_LoadFasta(t *testing.T) {
	store := NewFileSampleStore()
	path := writeFile(t, t.TempDir(), "cohort.fasta", `>patient1
APITAY
>patient2
APISAY
`)

	samples, err := store.LoadFasta(m.Path(path), "APITAF")
	require.NoError(t, err)
	require.Len(t, samples, 2)

	require.Equal(t, "patient1", samples[0].Name)
	require.Equal(t, []int{6}, samples[0].Calls.Positions())

	require.Equal(t, "patient2", samples[1].Name)
	require.Equal(t, []int{4, 6}, samples[1].Calls.Positions())
}

func TestSampleStore_LoadFasta_NoReference(t *testing.T) {
	store := NewFileSampleStore()
	path := writeFile(t, t.TempDir(), "cohort.fasta", ">p1\nAPITAY\n")

	_, err := store.LoadFasta(m.Path(path), "")
	require.Error(t, err)
}

func TestSampleStore_LoadFasta_LengthMismatch(t *testing.T) {
	store := NewFileSampleStore()
	path := writeFile(t, t.TempDir(), "cohort.fasta", ">p1\nAPITAY\n")

	_, err := store.LoadFasta(m.Path(path), "APIT")
	require.Error(t, err)
	require.Contains(t, err.Error(), "p1")
}

func TestSampleStore_GetChannel(t *testing.T) {
	store := NewFileSampleStore()
	dir := t.TempDir()

	writeFile(t, dir, "a.calls", "patient1: 41L\n")
	writeFile(t, dir, "b.calls", "patient2: 67N\npatient3: 70R\n")
	writeFile(t, dir, "ignored.txt", "not a sample file\n")

	samples, errs := store.GetChannel(context.Background(), []m.Path{m.Path(dir)}, 2)

	names := map[string]bool{}
	for sample := range samples {
		names[sample.Name] = true
	}

	require.NoError(t, <-errs)
	require.Len(t, names, 3)
	require.True(t, names["patient1"])
	require.True(t, names["patient3"])
}

func TestSampleStore_GetChannel_MissingPath(t *testing.T) {
	store := NewFileSampleStore()

	samples, errs := store.GetChannel(context.Background(),
		[]m.Path{m.Path(filepath.Join(t.TempDir(), "absent"))}, 1)

	for range samples {
	}

	require.Error(t, <-errs)
}
