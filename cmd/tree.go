package cmd

import (
	"fmt"

	"github.com/meysamhadeli/codai-scope/render"
	"github.com/spf13/cobra"
)

// treeCmd: codai-scope tree
var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the project tree with its scope state.",
	Long: `The 'tree' subcommand loads the project tree, applies the given includes, pins and expansions,
and prints the result. Everything starts excluded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleTreeCommand(cmd, rootDependencies)
	},
}

func init() {
	addScopeFlags(treeCmd)
	treeCmd.Flags().StringSlice("expand", nil, "Directories to expand in the printed tree")
	rootCmd.AddCommand(treeCmd)
}

func handleTreeCommand(cmd *cobra.Command, rootDependencies *RootDependencies) error {
	sess := rootDependencies.Session
	if err := applyScopeFlags(cmd, sess); err != nil {
		return err
	}

	expand, _ := cmd.Flags().GetStringSlice("expand")
	for _, dir := range expand {
		sess.ToggleExpanded(dir)
	}

	state := sess.State()
	fmt.Print(render.Tree(state))
	fmt.Println(render.ScopeSummary(state))
	return nil
}
