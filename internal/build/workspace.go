package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/gsp/internal/generator"
)

// goDirective is the language version written into workspace go.mod files.
const goDirective = "1.24"

// materializeWorkspace writes the generated source and a go.mod derived
// from the manifest into dir. The workspace is a complete main-package
// module: the generated page.go, a requirement on the gsp runtime wired to
// the local checkout with a replace directive, and one requirement per
// manifest entry.
func materializeWorkspace(dir string, unit *generator.CompiledUnit, runtimePath string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating workspace %s: %w", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "page.go"), unit.Source, 0o600); err != nil {
		return fmt.Errorf("writing page source: %w", err)
	}

	gomod := workspaceGoMod(filepath.Base(dir), unit.Manifest, runtimePath)
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o600); err != nil {
		return fmt.Errorf("writing workspace go.mod: %w", err)
	}

	return nil
}

func workspaceGoMod(name string, manifest generator.Manifest, runtimePath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module gsppage_%s\n\n", name)
	fmt.Fprintf(&b, "go %s\n\n", goDirective)
	fmt.Fprintf(&b, "require %s v0.0.0\n", generator.RuntimeModule)
	for _, r := range manifest.Require {
		fmt.Fprintf(&b, "require %s %s\n", r.Path, r.Version)
	}
	fmt.Fprintf(&b, "\nreplace %s => %s\n", generator.RuntimeModule, runtimePath)
	return b.String()
}

// ResolveRuntimePath locates the gsp module directory the workspace
// replace directive points at. Order: the explicit configured path, then
// the enclosing gsp checkout (walking up from the working directory), then
// the executable's directory.
func ResolveRuntimePath(configured string) string {
	if configured != "" {
		if abs, err := filepath.Abs(configured); err == nil {
			return abs
		}
		return configured
	}

	if dir, err := os.Getwd(); err == nil {
		for {
			data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
			if err == nil && strings.HasPrefix(strings.TrimSpace(string(data)),
				"module "+generator.RuntimeModule) {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	return "."
}
