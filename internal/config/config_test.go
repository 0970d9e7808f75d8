package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "scriptorium.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.Database.DSN)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestLoadFromBytesOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
database:
  dsn: /tmp/averroes.db
transcription:
  languages: [ar, he]
  default_language: ar
`))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/averroes.db", cfg.Database.DSN)
	assert.Equal(t, []string{"ar", "he"}, cfg.Transcription.Languages)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NotEmpty(t, cfg.Transcription.PageTypes)
}

func TestValidateRejectsUnknownDefaultLanguage(t *testing.T) {
	_, err := LoadFromBytes([]byte("transcription:\n  default_language: xx\n"))
	require.Error(t, err)
}

func TestValidateRejectsStopwordLanguage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.StopwordLanguage = "tlh"
	require.Error(t, cfg.Validate())
}
