package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "elmgen.yaml", `
spec: ./openapi.yaml
modules:
  - name: Api.Types
    out: src/Api/Types.elm
    includeTypes: ["^Pet"]
    excludeTypes: ["Internal$"]
    queryTypes: ["Filter$"]
    postCommandLine: "elm-format --yes 'Types.elm'"
    check: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "openapi.yaml"), cfg.Spec)
	assert.Equal(t, path, cfg.Path())
	require.Len(t, cfg.Modules, 1)

	m := cfg.Modules[0]
	assert.Equal(t, "Api.Types", m.Name)
	assert.Equal(t, filepath.Join(dir, "src/Api/Types.elm"), m.Out)
	assert.True(t, m.Check)

	cmd, err := m.GetPostCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"elm-format", "--yes", "Types.elm"}, cmd)

	f, err := m.Filter()
	require.NoError(t, err)
	assert.True(t, f.Keep("PetFilter"))
	assert.False(t, f.Keep("PetInternal"))
	assert.False(t, f.Keep("Order"))
	assert.True(t, f.Query("PetFilter"))
	assert.False(t, f.Query("Pet"))
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "elmgen.toml", `
spec = "https://example.com/openapi.json"

[[modules]]
name = "Api"
out = "/abs/Api.elm"
postCommand = ["elm-format", "--yes"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/openapi.json", cfg.Spec)
	assert.Equal(t, "/abs/Api.elm", cfg.Modules[0].Out)

	cmd, err := cfg.Modules[0].GetPostCommand()
	require.NoError(t, err)
	assert.Equal(t, []string{"elm-format", "--yes"}, cmd)

	f, err := cfg.Modules[0].Filter()
	require.NoError(t, err)
	assert.True(t, f.Keep("Anything"))
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"missing spec":    "modules:\n  - name: Api\n    out: Api.elm\n",
		"no modules":      "spec: openapi.yaml\n",
		"missing out":     "spec: openapi.yaml\nmodules:\n  - name: Api\n",
		"bad module name": "spec: openapi.yaml\nmodules:\n  - name: api\n    out: Api.elm\n",
		"malformed yaml":  "spec: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, t.TempDir(), "elmgen.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestModuleErrors(t *testing.T) {
	m := Module{Name: "Api", PostCommandLine: `elm-format "unterminated`}
	_, err := m.GetPostCommand()
	assert.Error(t, err)

	m = Module{Name: "Api", IncludeTypes: []string{"("}}
	_, err = m.Filter()
	assert.Error(t, err)

	m = Module{Name: "Api"}
	cmd, err := m.GetPostCommand()
	require.NoError(t, err)
	assert.Nil(t, cmd)
}
