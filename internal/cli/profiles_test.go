package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfiles_MissingFileYieldsImplicitDefault(t *testing.T) {
	pf, err := LoadProfiles(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "default", pf.Default)

	paths, err := pf.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "default", "ledger.db"), paths.Store)
}

func TestLoadProfiles_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
default: sitio
profiles:
  sitio:
    store: /var/lib/agrobook/sitio.db
  fazenda:
    store: /var/lib/agrobook/fazenda.db
    archive_dir: /backups/fazenda
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pf, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, "sitio", pf.Default)

	// Empty name resolves the default profile.
	paths, err := pf.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/agrobook/sitio.db", paths.Store)

	fazenda, err := pf.Resolve("fazenda")
	require.NoError(t, err)
	assert.Equal(t, "/backups/fazenda", fazenda.ArchiveDir)
	// Unset paths fall back to the conventional layout.
	assert.Equal(t, filepath.Join("data", "fazenda", "credentials.json"), fazenda.Credentials)
	assert.Equal(t, filepath.Join("data", "fazenda", "lookup_cache.json"), fazenda.LookupCache)
}

func TestLoadProfiles_Rejects(t *testing.T) {
	dir := t.TempDir()

	noDefault := filepath.Join(dir, "nodefault.yaml")
	require.NoError(t, os.WriteFile(noDefault, []byte("profiles:\n  a:\n    store: a.db\n"), 0o644))
	_, err := LoadProfiles(noDefault)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("default: a\n"), 0o644))
	_, err = LoadProfiles(empty)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.yaml")
	require.NoError(t, os.WriteFile(garbage, []byte("{{{"), 0o644))
	_, err = LoadProfiles(garbage)
	assert.Error(t, err)
}

func TestResolve_UnknownProfile(t *testing.T) {
	pf := &ProfilesFile{
		Default:  "a",
		Profiles: map[string]ProfilePaths{"a": {}},
	}
	_, err := pf.Resolve("b")
	assert.Error(t, err)
}
