package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/meysamhadeli/codai-scope/constants/lipgloss"
	"github.com/meysamhadeli/codai-scope/orchestrator"
	"github.com/meysamhadeli/codai-scope/render"
	"github.com/meysamhadeli/codai-scope/session"
	"github.com/meysamhadeli/codai-scope/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	channelSearch          = "search"
	channelTotalRecall     = "total-recall"
	channelTotalRecallLite = "lite"
)

// searchCmd: codai-scope search
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a retrieval channel over the chosen scope and print the reconciled context.",
	Long: `The 'search' subcommand applies the scope flags, optionally asks the backend to preselect
the scope, runs the chosen channel and prints the resulting context list. With --hypotheses it also
generates hypotheses over the list, and --apply narrows the selection to the given hypothesis ids.
The query is read from stdin when it is not given as arguments.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleSearchCommand(cmd, args, rootDependencies)
	},
}

func init() {
	addScopeFlags(searchCmd)
	searchCmd.Flags().String("channel", channelSearch, "Channel to run: 'search', 'total-recall' or 'lite' (total-recall followed by total recall lite)")
	searchCmd.Flags().String("mode", "", "Mode passed to the total recall channel")
	searchCmd.Flags().Bool("preselect", false, "Ask the backend to preselect the scope for the query first")
	searchCmd.Flags().Bool("hypotheses", false, "Generate hypotheses over the resulting context list")
	searchCmd.Flags().StringSlice("apply", nil, "Hypothesis ids to select and apply to the context selection")
	rootCmd.AddCommand(searchCmd)
}

func handleSearchCommand(cmd *cobra.Command, args []string, rootDependencies *RootDependencies) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sess := rootDependencies.Session

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		var err error
		query, err = utils.InputPromptWithContext(ctx, bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
	}
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if err := applyScopeFlags(cmd, sess); err != nil {
		return err
	}

	channel, _ := cmd.Flags().GetString("channel")
	mode, _ := cmd.Flags().GetString("mode")
	preselect, _ := cmd.Flags().GetBool("preselect")
	withHypotheses, _ := cmd.Flags().GetBool("hypotheses")
	apply, _ := cmd.Flags().GetStringSlice("apply")

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	if preselect {
		err := withSpinner(spinner, "Preselecting scope...", func() error {
			_, err := sess.SmartPreselect(ctx, query)
			return err
		})
		if err != nil {
			return err
		}
	}

	var result *orchestrator.Result
	err := withSpinner(spinner, "Retrieving context...", func() error {
		var err error
		switch channel {
		case channelSearch:
			result, err = sess.RunSearch(ctx, query, rootDependencies.Config.Backend.TopK)
		case channelTotalRecall:
			result, err = sess.RunTotalRecall(ctx, query, mode)
		case channelTotalRecallLite:
			if _, err = sess.RunTotalRecall(ctx, query, mode); err != nil {
				return err
			}
			result, err = sess.RunTotalRecallLite(ctx, query)
		default:
			err = fmt.Errorf("unknown channel %q", channel)
		}
		return err
	})
	if err != nil {
		return err
	}
	printResultStats(result)

	if withHypotheses || len(apply) > 0 {
		err := withSpinner(spinner, "Generating hypotheses...", func() error {
			_, err := sess.RequestHypotheses(ctx, query)
			return err
		})
		if err != nil {
			return err
		}
	}

	if len(apply) > 0 {
		for _, id := range apply {
			if err := sess.ToggleHypothesis(id); err != nil {
				return err
			}
		}
		applied, err := sess.ApplyHypotheses()
		if err != nil {
			return err
		}
		if len(applied.IgnoredIndices) > 0 {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Ignored file indices outside the list: %v", applied.IgnoredIndices)))
		}
	}

	return printContext(sess.State(), rootDependencies.Config.Theme, withHypotheses || len(apply) > 0)
}

func printResultStats(result *orchestrator.Result) {
	if result == nil {
		return
	}
	if result.Discarded {
		fmt.Println(lipgloss.Yellow.Render("A newer request replaced this result."))
		return
	}

	var parts []string
	if result.FilesScanned > 0 {
		parts = append(parts, fmt.Sprintf("scanned %d files", result.FilesScanned))
	}
	if result.FilesChecked > 0 {
		parts = append(parts, fmt.Sprintf("checked %d, kept %d", result.FilesChecked, result.RelevantCount))
	}
	if len(result.ChannelsUsed) > 0 {
		parts = append(parts, "channels: "+strings.Join(result.ChannelsUsed, ", "))
	}
	if result.DurationSec > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", result.DurationSec))
	}
	if len(parts) > 0 {
		fmt.Println(lipgloss.Gray.Render(strings.Join(parts, " | ")))
	}
}

func printContext(state session.State, theme string, withHypotheses bool) error {
	contextList, err := render.ContextList(state, theme)
	if err != nil {
		return err
	}
	fmt.Println(contextList)

	if withHypotheses {
		fmt.Println(render.Hypotheses(state))
	}
	return nil
}

func withSpinner(spinner *pterm.SpinnerPrinter, text string, fn func() error) error {
	running, _ := spinner.Start(text)
	err := fn()
	if running != nil {
		_ = running.Stop()
	}
	fmt.Print("\r")
	return err
}

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("all", false, "Include the whole tree before applying the other scope flags")
	cmd.Flags().StringSlice("include", nil, "Paths to include, with their descendants")
	cmd.Flags().StringSlice("exclude", nil, "Paths to exclude, with their descendants")
	cmd.Flags().StringSlice("pin", nil, "Files to pin as central, always in scope and always selected")
	cmd.Flags().StringSlice("external", nil, "Files from outside the tree to add to the scope")
}

func applyScopeFlags(cmd *cobra.Command, sess *session.Session) error {
	all, _ := cmd.Flags().GetBool("all")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	pin, _ := cmd.Flags().GetStringSlice("pin")
	external, _ := cmd.Flags().GetStringSlice("external")

	if all {
		sess.SelectAll(true)
	}
	for _, p := range include {
		sess.SetIncluded(p, true)
	}
	for _, p := range exclude {
		sess.SetIncluded(p, false)
	}
	for _, p := range pin {
		sess.PinCentral(p)
	}
	for _, p := range external {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read external file %s: %w", p, err)
		}
		if _, err := sess.IngestExternal(cmd.Context(), p, content); err != nil {
			return err
		}
	}
	return nil
}
