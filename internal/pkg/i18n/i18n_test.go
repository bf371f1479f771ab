package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "en"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bn"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fr"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "en", reasonsFile), []byte("REASONS:\n  EXPIRED: \"Too late.\"\n  NOT_FOUND: \"Missing.\"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bn", reasonsFile), []byte("REASONS:\n  EXPIRED: \"সময় শেষ।\"\n"), 0o644))

	require.NoError(t, LoadTranslations(dir))

	assert.Equal(t, "Too late.", Translate("en", "EXPIRED"))
	assert.Equal(t, "সময় শেষ।", Translate("bn", "EXPIRED"))
	assert.Equal(t, "Missing.", Translate("bn", "NOT_FOUND"))
	assert.Equal(t, "UNKNOWN", Translate("bn", "UNKNOWN"))
	assert.True(t, Has("bn", "NOT_FOUND"))
	assert.False(t, Has("en", "UNKNOWN"))

	assert.Equal(t, "bn", FromAcceptLanguage("bn-BD,bn;q=0.9,en;q=0.8"))
	assert.Equal(t, "en", FromAcceptLanguage("fr-FR"))
	assert.Equal(t, "en", FromAcceptLanguage(""))
}

func TestLoadTranslations_BadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "xx"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xx", reasonsFile), []byte("REASONS: [unclosed"), 0o644))

	assert.Error(t, LoadTranslations(dir))
	assert.Error(t, LoadTranslations(filepath.Join(dir, "missing")))
}
