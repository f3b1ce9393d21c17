package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semanticdb-lsp/src/internal/constants"
)

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	require.NoError(t, validateConfig(config))
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, constants.DefaultMaxHeaderBytes, config.Framing.MaxHeaderBytes)
	assert.Equal(t, []string{"jar:"}, config.Archive.Schemes)
	assert.False(t, config.Archive.Strict)
	assert.Empty(t, config.Metrics.Addr)
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlText := `
log_level: debug
archive:
  scratch_dir: ` + filepath.ToSlash(filepath.Join(dir, "scratch")) + `
  schemes: ["jar:", "zip:"]
  strict: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, []string{"jar:", "zip:"}, config.Archive.Schemes)
	assert.True(t, config.Archive.Strict)
	assert.Equal(t, constants.DefaultReadChunkSize, config.Framing.ReadChunkSize)
	assert.Equal(t, constants.DefaultIndexConcurrency, config.Index.Concurrency)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"level":   "log_level: loud\n",
		"scheme":  "archive:\n  schemes: [\"jar\"]\n",
		"glob":    "index:\n  concurrency: 2\n  exclude: [\"[\"]\n",
		"framing": "framing:\n  max_header_bytes: 0\n  read_chunk_size: 10\n",
		"yaml":    "log_level: [\n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(text), 0644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	config := GetDefaultConfig()
	config.Index.Watch = true
	config.Metrics.Addr = "127.0.0.1:9464"

	require.NoError(t, SaveConfig(config, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, loaded.Index.Watch)
	assert.Equal(t, "127.0.0.1:9464", loaded.Metrics.Addr)
}

func TestLoadConfigOrDefault_MissingFile(t *testing.T) {
	config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig().Framing, config.Framing)
}
