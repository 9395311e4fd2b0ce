package build

import (
	"path/filepath"
	"testing"

	"github.com/conneroisu/gsp/internal/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceGoMod(t *testing.T) {
	manifest := generator.Manifest{Require: []generator.Requirement{
		{Path: "modernc.org/sqlite", Version: "v1.46.1"},
		{Path: "example.com/lib", Version: "v1.2.3"},
	}}

	got := workspaceGoMod("abc123", manifest, "/src/gsp")

	assert.Contains(t, got, "module gsppage_abc123\n")
	assert.Contains(t, got, "go 1.24\n")
	assert.Contains(t, got, "require github.com/conneroisu/gsp v0.0.0\n")
	assert.Contains(t, got, "require modernc.org/sqlite v1.46.1\n")
	assert.Contains(t, got, "require example.com/lib v1.2.3\n")
	assert.Contains(t, got, "replace github.com/conneroisu/gsp => /src/gsp\n")
}

func TestResolveRuntimePath_ExplicitWins(t *testing.T) {
	dir := t.TempDir()
	got := ResolveRuntimePath(dir)
	assert.Equal(t, dir, got)
	assert.True(t, filepath.IsAbs(got))
}

func TestGoToolchainValidate(t *testing.T) {
	require.NoError(t, (&GoToolchain{Binary: "go"}).validate())
	require.NoError(t, (&GoToolchain{Binary: "/usr/local/bin/go"}).validate())
	assert.Error(t, (&GoToolchain{Binary: "rm"}).validate())
	assert.Error(t, (&GoToolchain{Binary: "-flag"}).validate())
	assert.Error(t, (&GoToolchain{Binary: ""}).validate())
}
