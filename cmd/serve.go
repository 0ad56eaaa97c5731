package cmd

import (
	"context"
	"fmt"

	"github.com/meysamhadeli/codai-scope/constants/lipgloss"
	"github.com/meysamhadeli/codai-scope/server"
	"github.com/spf13/cobra"
)

// serveCmd: codai-scope serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scope and context engine over HTTP for a browser UI.",
	Long: `The 'serve' subcommand loads the project tree and exposes the session over a JSON API under /api,
with every state change pushed to websocket clients connected to /ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleServeCommand(rootDependencies)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func handleServeCommand(rootDependencies *RootDependencies) error {
	addr := rootDependencies.Config.ListenAddr

	fmt.Println(lipgloss.BoxStyle.Render(fmt.Sprintf("API:       http://%s/api/state\nWebsocket: ws://%s/ws", addr, addr)))

	srv := server.NewServer(rootDependencies.Session, rootDependencies.Logger)
	srv.ReloadTree = func(ctx context.Context) error {
		return loadTree(ctx, rootDependencies.Config, rootDependencies.Session)
	}
	return srv.Run(addr)
}
