// Package cmd provides the gsp command-line interface.
//
// Configuration is layered, highest priority first: command-line flags,
// GSP_-prefixed environment variables (GSP_SERVER_PORT, GSP_BUILD_TIMEOUT,
// ...), and a .gsp.yml file in the working directory.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gsp",
	Short: "Go Server Pages - a PHP-like page engine for Go",
	Long: `gsp compiles pages that mix HTML with embedded Go code into native
plugins, caches the built artifacts by content identity, and serves them
with hot reload.

Quick Start:
  gsp init                        Scaffold a project with a sample page
  gsp serve                       Start the development server
  gsp render page.gsp             Render one page to stdout
  gsp precompile                  Build every page in the docroot
  gsp clean                       Drop the build cache

Template syntax:
  <% code %>                      Go statements, run per request
  <%= expr %>                     Expression appended to page output
  <%! decl %>                     Declaration, once per loaded artifact
  <%@ use <path> %>               Import for the generated code
  <%@ dep <module> = <version> %> Build dependency
  <%@ sqlite %>                   Enable the bundled sqlite driver
  <%@ lazyinit %>                 Enable per-artifact lazy state`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .gsp.yml)")
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".gsp")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("GSP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}
}
