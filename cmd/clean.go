package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the build cache",
	Long: `Delete all build workspaces and compiled artifacts. This is the only
eviction path: stale entries are otherwise superseded by key changes and
left on disk.`,
	RunE: runClean,
}

var cleanDeps bool

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&cleanDeps, "deps", false, "Also remove the shared dependency cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Workspaces and artifacts go; the dependency cache survives unless
	// explicitly requested, since refetching modules is the expensive part.
	for _, sub := range []string{"pages", "artifacts"} {
		dir := filepath.Join(cfg.Build.CacheDir, sub)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing %s: %w", dir, err)
		}
		fmt.Printf("removed %s\n", dir)
	}

	if cleanDeps {
		if err := os.RemoveAll(cfg.Build.DepCacheDir); err != nil {
			return fmt.Errorf("removing %s: %w", cfg.Build.DepCacheDir, err)
		}
		fmt.Printf("removed %s\n", cfg.Build.DepCacheDir)
	}
	return nil
}
