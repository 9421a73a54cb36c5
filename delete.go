package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/engine"
)

func newDeleteCmd() *cobra.Command {
	var (
		force       bool
		dryRun      bool
		interactive bool
		tag         string
	)

	cmd := &cobra.Command{
		Use:   "delete <path>...",
		Short: "Move files into the trash zone",
		Long: `Move files, directories, or symlinks into the trash zone instead of
unlinking them. Each staged object gets a record that restore can bring
back later. Protected paths are always refused, even with --force.`,
		Aliases: []string{"rm", "del"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			result, err := eng.Delete(cmd.Context(), args, engine.DeleteOptions{
				Force:       force,
				DryRun:      dryRun,
				Interactive: interactive,
				Tag:         tag,
				Verbose:     flagVerbose,
			})
			if err != nil {
				return err
			}

			return reportDelete(result)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation (protected paths are still refused)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be deleted without touching disk")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "confirm each path")
	cmd.Flags().StringVar(&tag, "tag", "", "tag all records produced by this call")

	return cmd
}

// reportDelete renders the result and maps it onto the exit-code
// contract.
func reportDelete(result *engine.DeleteResult) error {
	if flagJSON {
		if err := printJSON(result); err != nil {
			return err
		}

		return outcomeExit(len(result.Staged)+len(result.Planned), len(result.Failed), result.Failed)
	}

	if result.DryRun {
		for _, plan := range result.Planned {
			fmt.Printf("would delete %s (%s)\n", colorPath(plan.Path), plan.Kind)
		}
	}

	for _, rec := range result.Staged {
		statusf("deleted %s (%s)\n", rec.OriginalPath, colorID(rec.ID.Short()))
	}

	for _, skipped := range result.Skipped {
		statusf("skipped %s\n", skipped)
	}

	reportFailures(result.Failed)

	return outcomeExit(len(result.Staged)+len(result.Planned), len(result.Failed), result.Failed)
}

// reportFailures prints per-path failures to stderr, naming the record
// identifier when one exists.
func reportFailures(failures []engine.PathFailure) {
	for _, f := range failures {
		if errors.Is(f.Err, engine.ErrProtected) {
			fmt.Fprintf(os.Stderr, "%s %v\n", colorWarning("refused:"), f.Err)

			continue
		}

		fmt.Fprintf(os.Stderr, "%s %v\n", colorError("failed:"), f)
	}
}
