package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "shaderpp.yaml")

	content := `
defines:
  QUALITY: "2"
  DEBUG: ""
typeNames: [Light, Material]
includeRoot: shaders
maxExpansionDepth: 64
includeCacheSize: 16
logLevel: debug
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := LoadFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"QUALITY": "2", "DEBUG": ""}, cfg.Defines)
	assert.Equal(t, []string{"Light", "Material"}, cfg.TypeNames)
	assert.Equal(t, "shaders", cfg.IncludeRoot)
	assert.Equal(t, 64, cfg.MaxExpansionDepth)
	assert.Equal(t, 16, cfg.IncludeCacheSize)
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "project", "shaders")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	configPath := filepath.Join(tmpDir, "project", ".shaderpp.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("maxExpansionDepth: 8\n"), 0o644))

	// search from the shaders dir finds the config in its parent
	cfg, foundPath, err := Load(subDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, configPath, foundPath)
	assert.Equal(t, 8, cfg.MaxExpansionDepth)
}

func TestLoadNotFound(t *testing.T) {
	cfg, path, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Empty(t, path)
}

func TestParse(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
	assert.Equal(t, logrus.WarnLevel, cfg.Level())

	bad := map[string]string{
		"unknown field":  "colour: red\n",
		"negative depth": "maxExpansionDepth: -1\n",
		"negative cache": "includeCacheSize: -1\n",
		"bad log level":  "logLevel: loud\n",
		"bad define":     "defines:\n  1X: a\n",
		"not yaml":       "defines: [\n",
	}
	for name, data := range bad {
		_, err := Parse([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestParseDefine(t *testing.T) {
	tests := []struct {
		in, name, value string
	}{
		{"A", "A", "1"},
		{"A=", "A", ""},
		{"A=2", "A", "2"},
		{"A=b=c", "A", "b=c"},
	}
	for _, tt := range tests {
		name, value := ParseDefine(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.value, value, tt.in)
	}
}

func TestMerge(t *testing.T) {
	file := &Config{
		Defines:   map[string]string{"A": "1", "B": "2"},
		TypeNames: []string{"Light"},
		LogLevel:  "info",
	}
	out, err := file.Merge(MergeOptions{
		Defines:   []string{"B=3", "C"},
		TypeNames: []string{"Ray"},
		LogLevel:  "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"A": "1", "B": "3", "C": "1"}, out.Defines)
	assert.Equal(t, []string{"Light", "Ray"}, out.TypeNames)
	assert.Equal(t, logrus.DebugLevel, out.Level())
	assert.Equal(t, DefaultIncludeCacheSize, out.IncludeCacheSize)

	// the file config is left alone
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, file.Defines)
	assert.Equal(t, []string{"Light"}, file.TypeNames)

	var none *Config
	out, err = none.Merge(MergeOptions{Defines: []string{"X=1"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X": "1"}, out.Defines)

	_, err = none.Merge(MergeOptions{Defines: []string{"1X"}})
	assert.Error(t, err)
	_, err = none.Merge(MergeOptions{LogLevel: "loud"})
	assert.Error(t, err)
}
