package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-file-guard/internal/model"
)

type submitFlags struct {
	yes     bool
	preview bool
}

func (f *submitFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "skip the interactive prompt; apply gate policy only")
	cmd.Flags().BoolVar(&f.preview, "preview", false, "record and preview only; confirm later with 'fileguard confirm'")
}

func (f *submitFlags) mode() model.ConfirmationMode {
	switch {
	case f.preview:
		return model.ModePreviewOnly
	case f.yes:
		return model.ModeAutoDecide
	}
	return model.ModeInteractive
}

func newCopyCmd() *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "copy SOURCE DEST",
		Short: "Copy a file or directory tree with checksum verification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, model.KindCopy, args[0], args[1], flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newMoveCmd() *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "move SOURCE DEST",
		Short: "Move a file or directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, model.KindMove, args[0], args[1], flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "delete PATH",
		Short: "Delete a file or directory tree (recoverable from trash)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, model.KindDelete, args[0], "", flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newMkdirCmd() *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "mkdir PATH",
		Short: "Create a directory, parents included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, model.KindMkdir, "", args[0], flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func runSubmit(cmd *cobra.Command, kind model.OperationKind, source string, dest string, flags submitFlags) error {
	ctx := cmd.Context()
	engine, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.Submit(ctx, model.OperationRequest{
		Kind:             kind,
		SourcePath:       source,
		DestPath:         dest,
		RequestedBy:      currentUsername(),
		ConfirmationMode: flags.mode(),
	})
	if err != nil {
		return err
	}

	return reportOutcome(resp)
}

func reportOutcome(resp model.OperationResponse) error {
	switch resp.Status {
	case model.StatusCompleted:
		fmt.Printf("transaction %d completed\n", resp.TransactionID)
		return nil
	case model.StatusPending:
		if resp.Preview != nil {
			fmt.Println(resp.Preview.Format())
		}
		fmt.Printf("transaction %d awaiting approval; run: fileguard confirm %d\n",
			resp.TransactionID, resp.TransactionID)
		return nil
	case model.StatusDenied:
		if resp.Preview != nil {
			fmt.Println(resp.Preview.Format())
		}
		return fmt.Errorf("%w: transaction %d", errDenied, resp.TransactionID)
	default:
		fmt.Printf("transaction %d %s\n", resp.TransactionID, resp.Status)
		return nil
	}
}
