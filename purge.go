package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/engine"
)

func newPurgeCmd() *cobra.Command {
	var (
		dryRun      bool
		interactive bool
		idPrefix    string
		opPrefix    string
		tag         string
		all         bool
		days        int
		auto        bool
	)

	cmd := &cobra.Command{
		Use:   "purge [selector]",
		Short: "Permanently remove staged files",
		Long: `Permanently remove payloads and their records. This cannot be undone.
Select records like restore does, or purge by age with --days, or
everything with --all. --auto applies the configured auto_clean_days
and max_total_size policies, oldest records first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			spec := engine.PurgeSpec{Days: days, All: all, Auto: auto}

			if len(args) > 0 || idPrefix != "" || opPrefix != "" || tag != "" {
				sel, err := buildSelector(args, idPrefix, opPrefix, tag, false)
				if err != nil {
					return err
				}

				spec.Selector = &sel
			}

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			result, err := eng.Purge(cmd.Context(), spec, engine.PurgeOptions{
				DryRun:      dryRun,
				Interactive: interactive || cc.Cfg.Interactive,
			})
			if err != nil {
				return err
			}

			return reportPurge(result)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be purged without touching disk")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "confirm before purging")
	cmd.Flags().StringVar(&idPrefix, "id", "", "record identifier or prefix")
	cmd.Flags().StringVar(&opPrefix, "op", "", "purge every record of one operation (identifier prefix)")
	cmd.Flags().StringVar(&tag, "tag", "", "purge every record carrying the tag")
	cmd.Flags().BoolVar(&all, "all", false, "purge every record")
	cmd.Flags().IntVar(&days, "days", 0, "purge records older than this many days")
	cmd.Flags().BoolVar(&auto, "auto", false, "apply the configured age and size policies")

	return cmd
}

// reportPurge renders the result and maps it onto the exit-code
// contract.
func reportPurge(result *engine.PurgeResult) error {
	if flagJSON {
		if err := printJSON(result); err != nil {
			return err
		}

		return outcomeExit(len(result.Purged)+len(result.Planned), len(result.Failed), result.Failed)
	}

	if result.DryRun {
		for _, rec := range result.Planned {
			fmt.Printf("would purge %s (%s, %s)\n", colorID(rec.ID.Short()), rec.OriginalPath, formatSize(rec.Size))
		}

		statusf("would free %s\n", formatSize(result.Freed))

		return nil
	}

	for _, id := range result.Purged {
		statusf("purged %s\n", colorID(id.Short()))
	}

	if len(result.Purged) > 0 {
		statusf("freed %s\n", formatSize(result.Freed))
	}

	reportFailures(result.Failed)

	return outcomeExit(len(result.Purged), len(result.Failed), result.Failed)
}
