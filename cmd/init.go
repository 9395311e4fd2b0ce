package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Scaffold a gsp project",
	Long: `Create a .gsp.yml with the default configuration and a sample
index.gsp in the target directory (default: current directory).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const samplePage = `<%@ use time %>
<%! var started = time.Now() %>
<!DOCTYPE html>
<html>
<head><title>gsp</title></head>
<body>
  <h1>Hello, <%= gsprt.EscapeHTML(ctx.Req.GET.Or("name", "world")) %>!</h1>
  <p>It is <%= time.Now().Format(time.RFC1123) %>.</p>
  <p>This artifact came up at <%= started.Format(time.RFC1123) %>.</p>
  <% if ctx.Req.IsPost() { %>
  <p>You posted: <%= gsprt.EscapeHTML(ctx.Req.Body()) %></p>
  <% } %>
</body>
</html>
`

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	cfgPath := filepath.Join(dir, ".gsp.yml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", cfgPath)

	pagePath := filepath.Join(dir, "index.gsp")
	if _, err := os.Stat(pagePath); err == nil {
		fmt.Printf("%s already exists, leaving it alone\n", pagePath)
		return nil
	}
	if err := os.WriteFile(pagePath, []byte(samplePage), 0o600); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", pagePath)
	fmt.Println("\nNext: gsp serve")
	return nil
}
