package adapter

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	m "vdrm.dev/pkg/vdrm/internal/model"
)

// SampleStore abstracts sample loading so the calling pipeline can be tested
// without touching the disk.
type SampleStore interface {
	// LoadSamples reads a calls file: one sample per line, "name: 41L 67N".
	LoadSamples(path m.Path) ([]m.Sample, error)

	// LoadFasta reads aligned amino acid sequences and derives variant calls
	// against the reference sequence.
	LoadFasta(path m.Path, reference string) ([]m.Sample, error)

	// GetChannel streams samples from every given path. Directories are
	// walked for *.calls files. Both channels close when streaming finishes;
	// the error channel carries at most one error.
	GetChannel(ctx context.Context, paths []m.Path, threads int) (<-chan m.Sample, <-chan error)
}

// FileSampleStore is the local-filesystem SampleStore.
type FileSampleStore struct{}

// NewFileSampleStore constructs a FileSampleStore.
func NewFileSampleStore() *FileSampleStore {
	return &FileSampleStore{}
}

// LoadSamples reads the line-oriented calls format. Blank lines and
// #-comments are skipped.
func (s *FileSampleStore) LoadSamples(path m.Path) ([]m.Sample, error) {
	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}

	defer func() { _ = file.Close() }()

	var samples []m.Sample

	scanner := bufio.NewScanner(file)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, rest, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("%s:%d: expected \"name: calls\"", path, lineNo)
		}

		calls, err := m.ParseVariantCalls(rest)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}

		samples = append(samples, m.Sample{Name: strings.TrimSpace(name), Calls: calls})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	slog.Debug("loaded samples", "path", path, "count", len(samples))

	return samples, nil
}

// LoadFasta reads ">name" headed sequences and diffs each against the
// reference. Sequences must be pre-aligned to the reference length.
func (s *FileSampleStore) LoadFasta(path m.Path, reference string) ([]m.Sample, error) {
	if reference == "" {
		return nil, fmt.Errorf("fasta input requires a reference sequence")
	}

	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open fasta: %w", err)
	}

	defer func() { _ = file.Close() }()

	var (
		samples []m.Sample
		name    string
		seq     strings.Builder
	)

	flush := func() error {
		if name == "" {
			return nil
		}

		calls, err := m.VariantCallsFromSequences(reference, seq.String())
		if err != nil {
			return fmt.Errorf("sample %s: %w", name, err)
		}

		samples = append(samples, m.Sample{Name: name, Calls: calls})
		seq.Reset()

		return nil
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ">") {
			if err := flush(); err != nil {
				return nil, err
			}

			name = strings.TrimSpace(strings.TrimPrefix(line, ">"))

			continue
		}

		seq.WriteString(line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}

	if err := flush(); err != nil {
		return nil, err
	}

	slog.Debug("loaded fasta samples", "path", path, "count", len(samples))

	return samples, nil
}

// GetChannel streams samples file by file. Directories are walked for
// *.calls files so a whole cohort directory can be fed to the pipeline.
func (s *FileSampleStore) GetChannel(ctx context.Context, paths []m.Path, threads int) (<-chan m.Sample, <-chan error) {
	sampleChannel := make(chan m.Sample, threads)
	errorChannel := make(chan error, 1)

	go func() {
		defer close(sampleChannel)
		defer close(errorChannel)

		for _, path := range paths {
			files, err := s.collectFiles(path)
			if err != nil {
				errorChannel <- err
				return
			}

			for _, file := range files {
				samples, err := s.LoadSamples(file)
				if err != nil {
					errorChannel <- err
					return
				}

				for _, sample := range samples {
					select {
					case <-ctx.Done():
						errorChannel <- ctx.Err()
						return
					case sampleChannel <- sample:
					}
				}
			}
		}
	}()

	return sampleChannel, errorChannel
}

func (s *FileSampleStore) collectFiles(path m.Path) ([]m.Path, error) {
	info, err := os.Stat(string(path))
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		return []m.Path{path}, nil
	}

	var files []m.Path

	err = filepath.Walk(string(path), func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && filepath.Ext(p) == ".calls" {
			files = append(files, m.Path(p))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}

	return files, nil
}
