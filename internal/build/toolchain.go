package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Toolchain compiles a materialized build workspace into a dynamically
// loadable artifact. It is an opaque subprocess contract (workspace in,
// artifact or diagnostics out) so tests can substitute a fake and the
// production implementation can be swapped.
type Toolchain interface {
	// Build compiles workspaceDir into a plugin at artifactPath. The
	// returned string carries the toolchain's combined diagnostic output,
	// populated on failure and best-effort on success.
	Build(ctx context.Context, workspaceDir, artifactPath string) (string, error)
}

// GoToolchain builds workspaces with the Go toolchain:
// `go mod tidy` to resolve the manifest, then
// `go build -buildmode=plugin` to produce the artifact.
type GoToolchain struct {
	// Binary is the go command, normally "go".
	Binary string
	// DepCacheDir hosts GOMODCACHE and GOCACHE so module downloads and
	// compiled package objects are reused across builds.
	DepCacheDir string
	// SharedDepCache shares DepCacheDir across all pages; when false each
	// workspace gets its own dependency cache under the workspace dir.
	SharedDepCache bool
}

// commands the toolchain is permitted to execute.
var allowedBinaries = map[string]bool{
	"go": true,
}

// Build implements Toolchain.
func (t *GoToolchain) Build(ctx context.Context, workspaceDir, artifactPath string) (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}

	env := t.buildEnv(workspaceDir)

	tidyOut, err := t.run(ctx, workspaceDir, env, "mod", "tidy")
	if err != nil {
		return tidyOut, fmt.Errorf("go mod tidy: %w", err)
	}

	buildOut, err := t.run(ctx, workspaceDir, env,
		"build", "-buildmode=plugin", "-o", artifactPath, ".")
	if err != nil {
		return tidyOut + buildOut, fmt.Errorf("go build: %w", err)
	}

	return "", nil
}

func (t *GoToolchain) run(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.Binary, args...)
	cmd.Dir = dir
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (t *GoToolchain) buildEnv(workspaceDir string) []string {
	depDir := t.DepCacheDir
	if !t.SharedDepCache {
		depDir = filepath.Join(workspaceDir, ".deps")
	}
	env := append([]string{}, os.Environ()...)
	env = append(env,
		"GOMODCACHE="+filepath.Join(depDir, "mod"),
		"GOCACHE="+filepath.Join(depDir, "gocache"),
		"GOFLAGS=-mod=mod",
		"GOSUMDB=off",
	)
	return env
}

// validate rejects binaries outside the allowlist and argument-looking
// values before anything is executed.
func (t *GoToolchain) validate() error {
	name := filepath.Base(t.Binary)
	if !allowedBinaries[name] {
		return fmt.Errorf("toolchain binary %q not permitted", t.Binary)
	}
	if strings.HasPrefix(t.Binary, "-") {
		return errors.New("toolchain binary must not look like a flag")
	}
	return nil
}
