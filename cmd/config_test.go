package cmd

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

// captureLogs points slog at a buffer for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	logBuffer := &bytes.Buffer{}
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(logBuffer, nil)))
	t.Cleanup(func() { slog.SetDefault(original) })

	return logBuffer
}

func withConfigFile(t *testing.T, path string) {
	t.Helper()

	viper.SetConfigFile(path)
	t.Cleanup(func() { viper.SetConfigFile(filepath.Join(configFolderPath, configFileName)) })
}

func TestReadConfig_WarnsOnMalformedFile(t *testing.T) {
	path := writeTempFile(t, t.TempDir(), configFileName, "rules: [unclosed\n")
	withConfigFile(t, path)
	logBuffer := captureLogs(t)

	readConfig()

	assert.Contains(t, logBuffer.String(), "failed to read config file")
	assert.Contains(t, logBuffer.String(), configFileName)
}

func TestReadConfig_MissingFileIsQuiet(t *testing.T) {
	withConfigFile(t, filepath.Join(t.TempDir(), configFileName))
	logBuffer := captureLogs(t)

	readConfig()

	assert.Empty(t, logBuffer.String())
}

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "vdrm", configBaseName)
	assert.Equal(t, "vdrm.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "output", outputFlagName)
	assert.Equal(t, "rules", rulesFlagName)
	assert.Equal(t, "parallel", parallelFlagName)
	assert.Equal(t, "missing", missingFlagName)
	assert.Equal(t, "rules.file", rulesConfigKey)
	assert.Equal(t, "eval.parallel", parallelConfigKey)
	assert.Equal(t, "eval.missing", missingConfigKey)
	assert.Equal(t, ".vdrm-reports", defaultReportsDir)
	assert.Equal(t, 1, defaultParallel)
	assert.Equal(t, "VDRM", envPrefix)
}

func TestConfigVersionConstants(t *testing.T) {
	assert.Equal(t, "version", configVersionKey)
	assert.Equal(t, 1, currentConfigVersion)
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelWarn},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"8", slog.LevelError},
		{"nonsense", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelWarn))
		})
	}
}
