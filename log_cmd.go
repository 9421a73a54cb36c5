package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/oplog"
	"github.com/tonimelisma/rmz-go/internal/record"
)

func newLogCmd() *cobra.Command {
	var (
		kind     string
		outcome  string
		sinceStr string
		untilStr string
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the operation history",
		Long: `Show the append-only operation log: every delete, restore, purge, and
protection change, with its outcome and the records it touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			filter := oplog.Filter{
				Kind:    record.OpKind(kind),
				Outcome: record.Outcome(outcome),
			}

			var err error

			if filter.Since, err = parseDateFlag(sinceStr); err != nil {
				return err
			}

			if filter.Until, err = parseDateFlag(untilStr); err != nil {
				return err
			}

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			var ops []*record.OperationRecord

			if err := eng.OperationLog().Walk(filter, func(op *record.OperationRecord) error {
				ops = append(ops, op)

				return nil
			}); err != nil {
				return err
			}

			if flagJSON {
				return printJSON(ops)
			}

			if len(ops) == 0 {
				statusf("no operations recorded\n")

				return nil
			}

			rows := make([][]string, 0, len(ops))

			for _, op := range ops {
				ids := make([]string, 0, len(op.FileIDs))
				for _, id := range op.FileIDs {
					ids = append(ids, id.Short())
				}

				rows = append(rows, []string{
					colorID(op.ID.Short()),
					string(op.Kind),
					formatTime(op.At),
					outcomeCell(op.Outcome),
					strings.Join(ids, ","),
					op.Message,
				})
			}

			printTable(os.Stdout, []string{"OP", "KIND", "AT", "OUTCOME", "RECORDS", "MESSAGE"}, rows)

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only operations of this kind (delete, restore, purge, protect-add, protect-remove)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only operations with this outcome (ok, partial, failed)")
	cmd.Flags().StringVar(&sinceStr, "since", "", "only operations on or after this date")
	cmd.Flags().StringVar(&untilStr, "until", "", "only operations on or before this date")

	return cmd
}

// outcomeCell colorizes the outcome column.
func outcomeCell(o record.Outcome) string {
	switch o {
	case record.OutcomeOK:
		return colorOK(string(o))
	case record.OutcomePartial:
		return colorWarning(string(o))
	default:
		return colorError(string(o))
	}
}
