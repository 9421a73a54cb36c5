package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the trash zone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			report, err := eng.Status()
			if err != nil {
				return err
			}

			if flagJSON {
				return printJSON(report)
			}

			fmt.Printf("trash root:   %s\n", colorPath(cc.Root))
			fmt.Printf("records:      %d\n", report.Records)
			fmt.Printf("total size:   %s\n", formatSize(report.TotalSize))

			if report.OldestDate != "" {
				fmt.Printf("date range:   %s .. %s\n", report.OldestDate, report.NewestDate)
			}

			fmt.Printf("free space:   %s\n", formatSize(int64(report.FreeSpace)))
			fmt.Printf("protected:    %d prefix(es)\n", report.Protected)

			if report.OrphanPayloads > 0 || report.OrphanRecords > 0 {
				fmt.Fprintf(os.Stderr, "%s %d orphan payload(s), %d orphan record(s) — run `rmz doctor`\n",
					colorWarning("warning:"), report.OrphanPayloads, report.OrphanRecords)
			}

			return nil
		},
	}
}
