package pkg

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileSpill(t *testing.T) {
	t.Run("NewFileSpill", func(t *testing.T) {
		spill, err := NewFileSpill[int]()
		require.NoError(t, err)
		require.NotNil(t, spill)
		require.Contains(t, spill.Path(), "/tmp/filespill")
		defer spill.Close()
	})

	t.Run("NewFileSpillAt uses the given path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calls.gob")

		spill, err := NewFileSpillAt[string](path)
		require.NoError(t, err)
		require.Equal(t, path, spill.Path())

		require.NoError(t, spill.Append("AZT"))
		require.NoError(t, spill.Close())

		val, err := spill.Get(0)
		require.NoError(t, err)
		require.Equal(t, "AZT", val)
	})

	t.Run("NewFileSpillAt truncates previous content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "calls.gob")

		first, err := NewFileSpillAt[int](path)
		require.NoError(t, err)
		require.NoError(t, first.AppendBatch([]int{1, 2, 3}))
		require.NoError(t, first.Close())

		second, err := NewFileSpillAt[int](path)
		require.NoError(t, err)
		defer second.Close()

		require.Equal(t, uint64(0), second.Len())
	})

	t.Run("Append and Get", func(t *testing.T) {
		spill, err := NewFileSpill[string]()
		require.NoError(t, err)
		defer spill.Close()

		require.NoError(t, spill.Append("first"))
		require.NoError(t, spill.Append("second"))

		val1, err := spill.Get(0)
		require.NoError(t, err)
		require.Equal(t, "first", val1)

		val2, err := spill.Get(1)
		require.NoError(t, err)
		require.Equal(t, "second", val2)

		val3, err := spill.Get(3)
		require.Error(t, err)
		require.Equal(t, "", val3)
	})

	t.Run("Len returns correct count", func(t *testing.T) {
		spill, err := NewFileSpill[int]()
		require.NoError(t, err)
		defer spill.Close()

		require.Equal(t, uint64(0), spill.Len())

		spill.Append(1)
		require.Equal(t, uint64(1), spill.Len())

		spill.AppendBatch([]int{2, 3})
		require.Equal(t, uint64(3), spill.Len())
	})

	t.Run("Range iterates all items in order", func(t *testing.T) {
		spill, err := NewFileSpill[int]()
		require.NoError(t, err)
		defer spill.Close()

		expected := []int{100, 200, 300}
		for _, v := range expected {
			spill.Append(v)
		}

		var collected []int
		err = spill.Range(func(_ uint64, item int) error {
			collected = append(collected, item)
			return nil
		})

		require.NoError(t, err)
		require.Equal(t, expected, collected)
	})

	t.Run("Range callback error stops iteration", func(t *testing.T) {
		spill, err := NewFileSpill[int]()
		require.NoError(t, err)
		defer spill.Close()

		spill.AppendBatch([]int{1, 2, 3})

		count := 0
		rangeErr := spill.Range(func(index uint64, _ int) error {
			count++
			if index == 1 {
				return errors.New("stop at index 1")
			}
			return nil
		})

		require.Error(t, rangeErr)
		require.Equal(t, 2, count)
	})

	t.Run("Close closes file and data persists", func(t *testing.T) {
		spill, err := NewFileSpill[int]()
		require.NoError(t, err)

		spill.Append(1)
		require.NoError(t, spill.Close())

		val, err := spill.Get(0)
		require.NoError(t, err)
		require.Equal(t, 1, val)
	})

	t.Run("struct items round trip", func(t *testing.T) {
		type call struct {
			Sample string
			Score  float64
		}

		spill, err := NewFileSpill[call]()
		require.NoError(t, err)
		defer spill.Close()

		want := call{Sample: "patient1", Score: 65}
		require.NoError(t, spill.Append(want))

		got, err := spill.Get(0)
		require.NoError(t, err)
		require.Equal(t, want, got)
	})

	t.Run("empty spill", func(t *testing.T) {
		spill, err := NewFileSpill[int]()
		require.NoError(t, err)
		defer spill.Close()

		count := 0
		require.NoError(t, spill.Range(func(_ uint64, _ int) error {
			count++
			return nil
		}))
		require.Equal(t, 0, count)

		_, err = spill.Get(0)
		require.Error(t, err)
	})
}

// BenchmarkAppend measures the performance of appending items.
func BenchmarkAppend(b *testing.B) {
	spill, err := NewFileSpill[int]()
	if err != nil {
		b.Fatalf("failed to create filespill: %v", err)
	}
	defer spill.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spill.Append(i)
	}
}

// BenchmarkRange measures the performance of iterating all items.
func BenchmarkRange(b *testing.B) {
	spill, err := NewFileSpill[int]()
	if err != nil {
		b.Fatalf("failed to create filespill: %v", err)
	}
	defer spill.Close()

	for i := 0; i < 1000; i++ {
		_ = spill.Append(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = spill.Range(func(_ uint64, _ int) error {
			return nil
		})
	}
}
