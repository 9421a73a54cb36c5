package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/engine"
	"github.com/tonimelisma/rmz-go/internal/record"
)

func newListCmd() *cobra.Command {
	var (
		sinceStr  string
		untilStr  string
		tag       string
		substring string
		opPrefix  string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List staged records",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			filter := engine.ListFilter{Tag: tag, Substring: substring, OpID: opPrefix}

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

			var records []*record.FileRecord

			if err := eng.List(filter, func(rec *record.FileRecord) error {
				records = append(records, rec)

				return nil
			}); err != nil {
				return err
			}

			sort.Slice(records, func(i, j int) bool {
				return records[i].DeletedAt.After(records[j].DeletedAt)
			})

			if flagJSON {
				return printJSON(records)
			}

			if len(records) == 0 {
				statusf("trash zone is empty\n")

				return nil
			}

			printTable(os.Stdout, recordHeaders, recordRows(records))

			return nil
		},
	}

	cmd.Flags().StringVar(&sinceStr, "since", "", "only records deleted on or after this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&untilStr, "until", "", "only records deleted on or before this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&tag, "tag", "", "only records carrying the tag")
	cmd.Flags().StringVar(&substring, "path", "", "only records whose original path contains the substring")
	cmd.Flags().StringVar(&opPrefix, "op", "", "only records of one operation (identifier prefix)")

	return cmd
}

// parseDateFlag accepts a bare date or a full RFC3339 timestamp.
func parseDateFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a date (YYYY-MM-DD) or RFC3339 timestamp", engine.ErrInvalidArgument, s)
	}

	return t.UTC(), nil
}
