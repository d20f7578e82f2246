package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/tessera/internal/types"
)

var (
	resolveMode    string
	resolveFlatten bool
	resolveNames   bool
	resolveChain   bool
	resolveFlags   *StandardFlags
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <type>",
	Short: "Show the resolved configuration of a component type",
	Long: `Resolve the configuration chain of a component type and print the
distilled configuration.

Modes:
  inherit   leaf-most definition of each property (default)
  merge     union of every definition, leaf first
  combine   every definition concatenated, duplicates kept
  shallow   the leaf type only

Examples:
  tessera resolve site/components/teaser
  tessera resolve site/components/teaser --mode merge --flatten=false
  tessera resolve site/components/teaser --names -o yaml
  tessera resolve site/components/teaser --chain`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveMode, "mode", "m", "", "Resolution mode (inherit, merge, combine, shallow)")
	resolveCmd.Flags().BoolVar(&resolveFlatten, "flatten", true, "Unwrap single-valued properties")
	resolveCmd.Flags().BoolVar(&resolveNames, "names", false, "List property names only")
	resolveCmd.Flags().BoolVar(&resolveChain, "chain", false, "List the chain's type names only")
	resolveFlags = AddStandardFlags(resolveCmd, "output")
}

func runResolve(cmd *cobra.Command, args []string) error {
	if err := resolveFlags.ValidateFlags(); err != nil {
		return err
	}

	a, err := loadApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	mode := a.resolver.DefaultMode()
	if resolveMode != "" {
		if mode, err = types.ParseMode(resolveMode); err != nil {
			return err
		}
	}

	ctx := commandContext(cmd)
	typeName := args[0]
	chain := a.resolver.ResolveChain(ctx, typeName)
	if len(chain) == 0 {
		return fmt.Errorf("no configuration for %s", typeName)
	}

	var out any
	switch {
	case resolveChain:
		out = chain.TypeNames()
	case resolveNames:
		out = chain.Names(mode == types.ModeShallow)
	default:
		out = chain.Distill(mode, resolveFlatten)
	}
	return writeOutput(cmd.OutOrStdout(), resolveFlags.OutputFormat, out)
}
