package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/meysamhadeli/codai-scope/backend"
	"github.com/meysamhadeli/codai-scope/config"
	"github.com/meysamhadeli/codai-scope/constants/lipgloss"
	"github.com/meysamhadeli/codai-scope/session"
	"github.com/spf13/cobra"
)

// RootDependencies holds everything the subcommands share.
type RootDependencies struct {
	Cwd     string
	Config  *config.Config
	Logger  *slog.Logger
	Session *session.Session
}

var rootCmd = &cobra.Command{
	Use:   "codai-scope",
	Short: "Decide which files a code question is asked against, and which retrieved files it is answered from.",
	Long: `codai-scope keeps a project tree with include/exclude state, pinned and external files, and
reconciles the context lists returned by the retrieval backend's channels (total recall, search,
total recall lite and hypotheses) into one authoritative selection.`,
	Run: func(cmd *cobra.Command, args []string) {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("version: %s", config.DefaultConfig.Version)))
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		os.Exit(1)
	}
}

// handleRootCommand loads the configuration and builds a session with its tree loaded.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting current working directory: %w", err)
	}

	cfg, err := config.LoadConfigWithCache(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	sess := session.NewSession(session.Options{
		Backend:      backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger),
		Timeout:      cfg.Backend.Timeout,
		TopK:         cfg.Backend.TopK,
		DisplayDepth: cfg.DisplayDepth,
		Logger:       logger,
	})

	if err := loadTree(cmd.Context(), cfg, sess); err != nil {
		return nil, err
	}

	return &RootDependencies{
		Cwd:     cwd,
		Config:  cfg,
		Logger:  logger,
		Session: sess,
	}, nil
}

func loadTree(ctx context.Context, cfg *config.Config, sess *session.Session) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.TreeSource == config.TreeSourceLocal {
		return sess.LoadTreeFromDirectory(cfg.RootDir, cfg.Ignore)
	}
	return sess.LoadTree(ctx)
}
