package cmd

import (
	"fmt"

	"github.com/conneroisu/gsp/internal/config"
	"github.com/conneroisu/gsp/pkg/gsprt"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:     "render <file.gsp>",
	Aliases: []string{"r"},
	Short:   "Compile and render one page to stdout",
	Long: `Compile the page (using the build cache) and print its rendered
output. A redirect issued by the page is reported on its own line before
the body.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	eng, _, _, err := newStack(cfg)
	if err != nil {
		return err
	}

	req := gsprt.NewRequest("GET", "/"+args[0], nil, nil)
	res, err := eng.Render(cmd.Context(), args[0], req)
	if err != nil {
		return err
	}

	if url := res.RedirectURL(); url != "" {
		fmt.Printf("Redirect: %s\n", url)
	}
	fmt.Print(res.Body())
	return nil
}
