package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/engine"
)

func newDoctorCmd() *cobra.Command {
	var (
		repair bool
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the trash zone for inconsistencies",
		Long: `Scan for disagreements between payloads and records: orphans on either
side, interrupted purges, staging debris, and (with --verify) content
digest mismatches. With --repair, reconcile what the scan finds.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			report, err := eng.Doctor(cmd.Context(), engine.DoctorOptions{Repair: repair, Verify: verify})
			if err != nil {
				return err
			}

			if flagJSON {
				if err := printJSON(report); err != nil {
					return err
				}
			} else {
				printDoctorReport(report)
			}

			if !report.Healthy() && !report.Repaired {
				return &exitError{code: exitIntegrity}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "reconcile the problems found")
	cmd.Flags().BoolVar(&verify, "verify", false, "recompute content digests of every payload")

	return cmd
}

// printDoctorReport renders the scan results for humans.
func printDoctorReport(report *engine.DoctorReport) {
	if report.Healthy() {
		fmt.Printf("%s trash zone is consistent\n", colorOK("ok:"))

		return
	}

	for _, path := range report.OrphanPayloads {
		fmt.Printf("%s orphan payload %s\n", colorWarning("orphan:"), path)
	}

	for _, id := range report.OrphanRecords {
		fmt.Printf("%s orphan record %s\n", colorWarning("orphan:"), colorID(id.Short()))
	}

	for _, path := range report.CorruptRecords {
		fmt.Printf("%s unreadable record %s\n", colorError("corrupt:"), path)
	}

	for _, sentinel := range report.PendingPurges {
		fmt.Printf("%s interrupted purge %s\n", colorWarning("pending:"), sentinel)
	}

	for _, tmp := range report.StagingDebris {
		fmt.Printf("%s staging debris %s\n", colorWarning("debris:"), tmp)
	}

	for _, m := range report.DigestMismatch {
		fmt.Printf("%s digest mismatch on %s (%s)\n", colorError("altered:"), colorID(m.ID.Short()), m.Path)
	}

	if report.Repaired {
		for _, id := range report.AdoptedPayloads {
			fmt.Printf("%s adopted orphan payload as %s\n", colorOK("repaired:"), colorID(id.Short()))
		}

		fmt.Printf("%s inconsistencies reconciled\n", colorOK("repaired:"))

		return
	}

	fmt.Fprintf(os.Stderr, "run `rmz doctor --repair` to reconcile\n")
}
