package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blimu-dev/elmgen/pkg/config"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/openapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSpec = `
openapi: 3.0.3
info:
  title: Pets
  version: 1.0.0
paths: {}
components:
  schemas:
    Pet:
      type: object
      required: [id, name]
      properties:
        id:
          type: integer
        name:
          type: string
    PetFilter:
      type: object
      required: [q]
      properties:
        q:
          type: string
        page:
          type: integer
    AuditInternal:
      type: object
      properties:
        secret:
          type: string
`

const testConfig = `
spec: openapi.yaml
modules:
  - name: Api.Types
    out: gen/Api/Types.elm
    excludeTypes: ["Internal$"]
    queryTypes: ["Filter$"]
    postCommand: ["elm-format", "--yes", "Types.elm"]
`

type recordedCommand struct {
	command []string
	workDir string
}

func setup(t *testing.T) (dir string, svc *Service, commands *[]recordedCommand) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openapi.yaml"), []byte(testSpec), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "elmgen.yaml"), []byte(testConfig), 0o644))

	commands = &[]recordedCommand{}
	svc = NewService(
		WithLogger(zaptest.NewLogger(t)),
		WithCommandRunner(func(command []string, workDir, label string) error {
			*commands = append(*commands, recordedCommand{command, workDir})
			return nil
		}),
	)
	return dir, svc, commands
}

func TestGenerate(t *testing.T) {
	dir, svc, commands := setup(t)
	out := filepath.Join(dir, "gen", "Api", "Types.elm")

	results, err := svc.Generate(GenerateOptions{ConfigPath: filepath.Join(dir, "elmgen.yaml")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, Result{Module: "Api.Types", Out: out, Roots: 2, Changed: true}, results[0])

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "-- GENERATED BY ELMGEN FROM openapi.yaml")
	assert.Contains(t, text, "module Api.Types exposing (..)")
	assert.Contains(t, text, "encodePet : Pet -> Json.Encode.Value")
	assert.Contains(t, text, "petFilterDecoder : Json.Decode.Decoder PetFilter")
	assert.Contains(t, text, "urlEncodePetFilter : PetFilter -> List Url.Builder.QueryParameter")
	assert.NotContains(t, text, "urlEncodePet :")
	assert.NotContains(t, text, "AuditInternal")

	require.Len(t, *commands, 1)
	assert.Equal(t, []string{"elm-format", "--yes", "Types.elm"}, (*commands)[0].command)
	assert.Equal(t, filepath.Dir(out), (*commands)[0].workDir)

	_, err = os.Stat(out + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")

	results, err = svc.Generate(GenerateOptions{ConfigPath: filepath.Join(dir, "elmgen.yaml")})
	require.NoError(t, err)
	assert.False(t, results[0].Changed, "regenerating identical input leaves the file alone")
}

func TestGenerateCheck(t *testing.T) {
	dir, svc, commands := setup(t)
	opts := GenerateOptions{ConfigPath: filepath.Join(dir, "elmgen.yaml"), Check: true}

	_, err := svc.Generate(opts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfDate), "missing file: %v", err)
	assert.Contains(t, errors.GetAllHints(err), "run elmgen generate")

	opts.Check = false
	_, err = svc.Generate(opts)
	require.NoError(t, err)

	opts.Check = true
	results, err := svc.Generate(opts)
	require.NoError(t, err)
	assert.False(t, results[0].Changed)
	assert.Len(t, *commands, 1, "check mode never runs post-commands")

	out := filepath.Join(dir, "gen", "Api", "Types.elm")
	require.NoError(t, os.WriteFile(out, []byte("module Api.Types exposing (..)\n"), 0o644))
	_, err = svc.Generate(opts)
	assert.True(t, errors.Is(err, ErrOutOfDate), "stale file: %v", err)
}

func TestGenerateFallback(t *testing.T) {
	dir, svc, commands := setup(t)
	out := filepath.Join(dir, "Pets.elm")

	results, err := svc.Generate(GenerateOptions{Fallback: FallbackOptions{
		Spec:         filepath.Join(dir, "openapi.yaml"),
		ModuleName:   "Pets",
		Out:          out,
		IncludeTypes: []string{"^Pet$"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Roots)
	assert.Empty(t, *commands)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "PetFilter")
}

func TestGenerateElm(t *testing.T) {
	dir, _, _ := setup(t)
	out := filepath.Join(dir, "Pets.elm")

	results, err := GenerateElm(GenerateElmOptions{
		Spec:         filepath.Join(dir, "openapi.yaml"),
		ModuleName:   "Pets",
		Out:          out,
		QueryTypes:   []string{"Filter$"},
		ExcludeTypes: []string{"Internal$"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Result{{Module: "Pets", Out: out, Roots: 2, Changed: true}}, results)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "urlEncodePetFilter : PetFilter -> List Url.Builder.QueryParameter")

	results, err = GenerateElm(GenerateElmOptions{
		ConfigPath:   filepath.Join(dir, "elmgen.yaml"),
		SingleModule: "Api.Types",
		Check:        true,
	})
	assert.True(t, errors.Is(err, ErrOutOfDate), "%v", err)
	assert.Empty(t, results)
}

func TestGenerateErrors(t *testing.T) {
	dir, svc, _ := setup(t)
	cfgPath := filepath.Join(dir, "elmgen.yaml")

	tests := []struct {
		name string
		opts GenerateOptions
	}{
		{"no config and no fallback", GenerateOptions{}},
		{"fallback without out", GenerateOptions{Fallback: FallbackOptions{Spec: "openapi.yaml", ModuleName: "Pets"}}},
		{"unknown module", GenerateOptions{ConfigPath: cfgPath, SingleModule: "Other"}},
		{"missing config", GenerateOptions{ConfigPath: filepath.Join(dir, "missing.yaml")}},
		{"missing spec", GenerateOptions{Fallback: FallbackOptions{
			Spec: filepath.Join(dir, "missing.yaml"), ModuleName: "Pets", Out: filepath.Join(dir, "Pets.elm"),
		}}},
		{"invalid pattern", GenerateOptions{Fallback: FallbackOptions{
			Spec: filepath.Join(dir, "openapi.yaml"), ModuleName: "Pets", Out: filepath.Join(dir, "Pets.elm"),
			IncludeTypes: []string{"("},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Generate(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestPostCommandFailure(t *testing.T) {
	dir, _, _ := setup(t)
	svc := NewService(WithCommandRunner(func([]string, string, string) error {
		return errors.New("exit status 1")
	}))

	_, err := svc.Generate(GenerateOptions{ConfigPath: filepath.Join(dir, "elmgen.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module Api.Types")
}

func TestRenderModuleDoesNotWrite(t *testing.T) {
	dir, svc, _ := setup(t)
	cfg, err := config.Load(filepath.Join(dir, "elmgen.yaml"))
	require.NoError(t, err)

	doc, err := openapi.LoadDocument(cfg.Spec)
	require.NoError(t, err)
	out, roots, err := svc.RenderModule(doc, cfg.Spec, cfg.Modules[0])
	require.NoError(t, err)
	assert.Equal(t, 2, roots)
	assert.NotEmpty(t, out)

	_, err = os.Stat(cfg.Modules[0].Out)
	assert.True(t, os.IsNotExist(err))
}

func TestExecuteCommand(t *testing.T) {
	assert.NoError(t, executeCommand(nil, t.TempDir(), "post-command"))

	err := executeCommand([]string{"elmgen-command-that-does-not-exist"}, t.TempDir(), "post-command")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post-command (elmgen-command-that-does-not-exist) failed")
}
