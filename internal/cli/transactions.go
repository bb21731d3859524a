package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"go-file-guard/internal/model"
	"go-file-guard/internal/util"
)

func newConfirmCmd() *cobra.Command {
	var deny bool
	cmd := &cobra.Command{
		Use:   "confirm TRANSACTION_ID",
		Short: "Approve (or deny with --deny) a transaction awaiting approval",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTxID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := engine.Confirm(ctx, id, !deny)
			if err != nil {
				return err
			}
			return reportOutcome(resp)
		},
	}
	cmd.Flags().BoolVar(&deny, "deny", false, "deny instead of approving")
	return cmd
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback TRANSACTION_ID",
		Short: "Undo a completed transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTxID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := engine.Rollback(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("transaction %d %s\n", resp.TransactionID, resp.Status)
			return nil
		},
	}
}

func newTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect the transaction log",
	}
	cmd.AddCommand(newTxListCmd(), newTxShowCmd())
	return cmd
}

func newTxListCmd() *cobra.Command {
	var (
		kind   string
		status string
		since  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := model.TransactionQuery{
				Kind:   model.OperationKind(kind),
				Status: model.TransactionStatus(status),
				Limit:  limit,
			}
			if since != "" {
				parsed, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("%w: since must be RFC 3339", model.ErrInvalidRequest)
				}
				q.Since = parsed
			}

			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			txs, err := engine.ListTransactions(ctx, q)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tKIND\tSTATUS\tFILES\tBYTES\tBY")
			for _, tx := range txs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
					tx.ID,
					tx.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					tx.Kind, tx.Status,
					tx.Metadata.FileCount,
					util.FormatBytes(tx.Metadata.TotalBytes),
					tx.RequestedBy)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (copy|move|delete|mkdir)")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&since, "since", "", "only transactions created at or after this RFC 3339 time")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func newTxShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show TRANSACTION_ID",
		Short: "Show one transaction as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTxID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, cleanup, err := buildEngine(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tx, err := engine.GetTransaction(ctx, id)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tx)
		},
	}
}

func parseTxID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: transaction id must be a positive integer", model.ErrInvalidRequest)
	}
	return id, nil
}
