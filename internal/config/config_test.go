package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitewright.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  title: Docs\n")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Docs", s.Site.Title)
	assert.Equal(t, "./content", s.Locations.Content)
	assert.Equal(t, "./public", s.Locations.Output)
	assert.Equal(t, 4, s.Build.Workers)
	assert.Equal(t, ":8080", s.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("SITE_TITLE", "From Env")
	path := writeConfig(t, "site:\n  title: ${SITE_TITLE}\n")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "From Env", s.Site.Title)
}

func TestViewCopiesPluginConfig(t *testing.T) {
	s := Defaults()
	s.Plugins = []PluginRef{{Name: "gitmeta", Config: map[string]any{"repo": ".", "nested": map[string]any{"a": 1}}}}

	view := s.View()
	cfg := view.PluginConfig("gitmeta")
	require.NotNil(t, cfg)

	cfg["repo"] = "elsewhere"
	cfg["nested"].(map[string]any)["a"] = 2

	again := view.PluginConfig("gitmeta")
	assert.Equal(t, ".", again["repo"])
	assert.Equal(t, 1, again["nested"].(map[string]any)["a"])
}

func TestViewUnknownPlugin(t *testing.T) {
	view := Defaults().View()
	assert.Nil(t, view.PluginConfig("missing"))
}

func TestInitRefusesOverwrite(t *testing.T) {
	path := writeConfig(t, "site: {}\n")
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "My Site", s.Site.Title)
	assert.Equal(t, []string{"content", "gitmeta"}, s.View().PluginNames())
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"debug", "DEBUG"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"bogus", "INFO"},
	}
	for _, tt := range tests {
		lc := LoggingConfig{Level: tt.raw}
		assert.Equal(t, tt.want, lc.SlogLevel().String(), "level %q", tt.raw)
	}
}
