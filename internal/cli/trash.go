package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-file-guard/internal/model"
	"go-file-guard/internal/util"
)

func newTrashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "Inspect the trash store",
	}
	cmd.AddCommand(newTrashListCmd())
	return cmd
}

func newTrashListCmd() *cobra.Command {
	var txID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trash entries, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := engine.ListTrash(ctx, model.TrashQuery{TransactionID: txID})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTX\tDELETED\tSIZE\tORIGINAL PATH")
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					entry.ID,
					entry.TransactionID,
					entry.DeletedAt.Local().Format("2006-01-02 15:04:05"),
					util.FormatBytes(entry.Size),
					entry.OriginalPath)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&txID, "tx", 0, "only entries from this transaction")
	return cmd
}

func newRestoreCmd() *cobra.Command {
	var txID int64
	cmd := &cobra.Command{
		Use:   "restore [TRASH_ENTRY_ID]",
		Short: "Restore trash entries to their original paths",
		Long: `Restore a single trash entry by id, or every entry a delete
transaction displaced with --tx.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (txID == 0) {
				return fmt.Errorf("provide either a trash entry id or --tx")
			}

			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if txID != 0 {
				resp, err := engine.RestoreTransaction(ctx, txID)
				if err != nil {
					return err
				}
				fmt.Printf("transaction %d: %s\n", txID, resp.Status)
				return nil
			}

			entry, err := engine.RestoreTrashEntry(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("restored %s\n", entry.OriginalPath)
			return nil
		},
	}
	cmd.Flags().Int64Var(&txID, "tx", 0, "restore every entry of this transaction")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one retention sweep over the trash store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := engine.Sweep(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("purged %d entries, freed %s (skipped %d still referenced)\n",
				result.Purged, util.FormatBytes(result.BytesFreed), result.Skipped)
			return nil
		},
	}
}
