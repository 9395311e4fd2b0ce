package cmd

import (
	"os/signal"
	"syscall"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/conneroisu/gsp/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the development server with hot reload",
	Long: `Start the development server. Requests for .gsp paths are compiled
on demand and served; everything else is served as static files from the
document root. In development mode, edited pages are rebuilt on the next
request and connected browsers reload automatically.

Examples:
  gsp serve                        # serve . on localhost:8080
  gsp serve -p 3000 -t ./www       # serve ./www on port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().StringP("docroot", "t", ".", "Document root directory")
	serveCmd.Flags().StringP("index", "i", "index.gsp", "Default index page")
	serveCmd.Flags().String("cache-dir", ".gspcache", "Build cache directory")
	serveCmd.Flags().Bool("no-reload", false, "Disable hot reload")

	bindFlag("server.port", serveCmd.Flags().Lookup("port"))
	bindFlag("server.host", serveCmd.Flags().Lookup("host"))
	bindFlag("pages.docroot", serveCmd.Flags().Lookup("docroot"))
	bindFlag("pages.index", serveCmd.Flags().Lookup("index"))
	bindFlag("build.cache_dir", serveCmd.Flags().Lookup("cache-dir"))
}

// bindFlag wires a command-line flag to its config key so set flags win
// over file and environment values.
func bindFlag(key string, flag *pflag.Flag) {
	_ = viper.BindPFlag(key, flag)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if noReload, _ := cmd.Flags().GetBool("no-reload"); noReload {
		cfg.Development.HotReload = false
	}

	eng, _, log, err := newStack(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, eng, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
