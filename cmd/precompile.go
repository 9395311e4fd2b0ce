package cmd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var precompileCmd = &cobra.Command{
	Use:     "precompile",
	Aliases: []string{"build", "b"},
	Short:   "Build every page under the document root",
	Long: `Walk the document root and compile every page into the build cache
so the first request for each page is a cache hit. Pages build in
parallel; distinct pages never serialize on each other.`,
	RunE: runPrecompile,
}

func init() {
	rootCmd.AddCommand(precompileCmd)
	precompileCmd.Flags().StringP("docroot", "t", ".", "Document root directory")
	precompileCmd.Flags().IntP("jobs", "j", runtime.NumCPU(), "Maximum parallel builds")
}

func runPrecompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if docroot, _ := cmd.Flags().GetString("docroot"); docroot != "" {
		cfg.Pages.DocRoot = docroot
	}
	jobs, _ := cmd.Flags().GetInt("jobs")

	eng, _, _, err := newStack(cfg)
	if err != nil {
		return err
	}

	var pages []string
	err = filepath.WalkDir(cfg.Pages.DocRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, cfg.Pages.Extension) {
			pages = append(pages, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for _, page := range pages {
		g.Go(func() error {
			if err := eng.Precompile(ctx, page); err != nil {
				failed.Add(1)
				fmt.Printf("FAIL %s\n  %v\n", page, err)
				return nil
			}
			fmt.Printf("ok   %s\n", page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("\nprecompiled %d pages, %d failed\n", len(pages)-int(failed.Load()), failed.Load())
	if failed.Load() > 0 {
		return fmt.Errorf("%d pages failed to build", failed.Load())
	}
	return nil
}
