package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tessera/internal/types"
)

var (
	renderJSON  bool
	renderKeys  []string
	renderFlags *StandardFlags
)

var renderCmd = &cobra.Command{
	Use:   "render <type>",
	Short: "Build the content model of a component instance",
	Long: `Run the processor pipeline for one component instance and print the
component wrapper with its embedded content model, or the model itself.

Examples:
  tessera render site/components/teaser --path /content/home/teaser
  tessera render site/components/teaser --prop title=Hello --json
  tessera render site/components/teaser --keys styling.classes,content.id`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderFlags = AddStandardFlags(renderCmd, "component")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Print the content model as JSON")
	renderCmd.Flags().StringSliceVar(&renderKeys, "keys", nil, "Print only these model paths (implies --json)")
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := renderFlags.ValidateFlags(); err != nil {
		return err
	}
	props, err := renderFlags.ParseProps()
	if err != nil {
		return err
	}

	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	resource := types.Resource{
		TypeName:   args[0],
		Path:       renderFlags.Path,
		Properties: props,
	}
	out := cmd.OutOrStdout()

	if renderJSON || len(renderKeys) > 0 {
		data, err := a.renderer.RenderJSON(ctx, resource, renderKeys...)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if err := a.renderer.Render(ctx, out, resource); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}
