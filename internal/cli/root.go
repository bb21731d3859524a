package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-file-guard/internal/config"
	"go-file-guard/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "fileguard",
	Short: "Transactional file operations with preview, confirmation and rollback",
	Long: `fileguard wraps copy, move, delete and mkdir in logged transactions.
Every operation is previewed first, risky ones wait for an explicit yes, and
completed operations can be rolled back. Deletes go to a trash store instead
of being destroyed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(logger.NewPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newCopyCmd(),
		newMoveCmd(),
		newDeleteCmd(),
		newMkdirCmd(),
		newConfirmCmd(),
		newRollbackCmd(),
		newRestoreCmd(),
		newTxCmd(),
		newTrashCmd(),
		newSweepCmd(),
	)
}

// Execute runs the CLI and exits with a code that scripts can branch on.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
