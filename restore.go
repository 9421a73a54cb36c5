package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/engine"
	"github.com/tonimelisma/rmz-go/internal/record"
)

func newRestoreCmd() *cobra.Command {
	var (
		force       bool
		rename      bool
		dryRun      bool
		interactive bool
		idPrefix    string
		opPrefix    string
		tag         string
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "restore [selector]",
		Short: "Restore staged files to their original locations",
		Long: `Restore staged files to where they were deleted from. Select records by
identifier (or a prefix of at least four hex characters), a basename
glob, a path substring, --tag, --op, or --all.

When the original path is occupied, the restore fails unless --force
(the occupier is itself moved into the trash) or --rename (the restored
file gets a ".restored-<n>" suffix) is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			sel, err := buildSelector(args, idPrefix, opPrefix, tag, all)
			if err != nil {
				return err
			}

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			result, err := eng.Restore(cmd.Context(), sel, engine.RestoreOptions{
				Force:       force,
				Rename:      rename,
				DryRun:      dryRun,
				Interactive: interactive || cc.Cfg.Interactive,
			})
			if err != nil {
				return err
			}

			return reportRestore(result)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "move an existing file at the target into the trash and proceed")
	cmd.Flags().BoolVar(&rename, "rename", false, "restore under a .restored-<n> suffix when the target exists")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be restored without touching disk")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick interactively when the selector is ambiguous")
	cmd.Flags().StringVar(&idPrefix, "id", "", "record identifier or prefix")
	cmd.Flags().StringVar(&opPrefix, "op", "", "restore every record of one operation (identifier prefix)")
	cmd.Flags().StringVar(&tag, "tag", "", "restore every record carrying the tag")
	cmd.Flags().BoolVar(&all, "all", false, "restore every record")

	cmd.MarkFlagsMutuallyExclusive("force", "rename")

	return cmd
}

// buildSelector combines the positional argument and selector flags into
// one engine selector. A positional argument that parses as an
// identifier prefix selects by identifier; anything containing a glob
// metacharacter selects by basename glob; the rest selects by path
// substring.
func buildSelector(args []string, idPrefix, opPrefix, tag string, all bool) (engine.Selector, error) {
	sel := engine.Selector{ID: idPrefix, OpID: opPrefix, Tag: tag, All: all}

	if len(args) == 0 {
		return sel, nil
	}

	arg := args[0]

	if idPrefix != "" || opPrefix != "" || tag != "" || all {
		return sel, fmt.Errorf("%w: both a selector argument and a selector flag given", engine.ErrInvalidArgument)
	}

	switch {
	case record.IsIDPrefix(arg):
		sel.ID = arg
	case containsGlobMeta(arg):
		sel.Glob = arg
	default:
		sel.Substring = arg
	}

	return sel, nil
}

// containsGlobMeta reports whether the argument uses shell pattern
// metacharacters.
func containsGlobMeta(s string) bool {
	for _, r := range s {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}

	return false
}

// reportRestore renders the result and maps it onto the exit-code
// contract.
func reportRestore(result *engine.RestoreResult) error {
	if flagJSON {
		if err := printJSON(result); err != nil {
			return err
		}

		return outcomeExit(len(result.Restored)+len(result.Planned), len(result.Failed), result.Failed)
	}

	if result.DryRun {
		for _, plan := range result.Planned {
			fmt.Printf("would restore %s to %s\n", colorID(plan.ID.Short()), colorPath(plan.Target))
		}
	}

	for _, r := range result.Restored {
		statusf("restored %s to %s\n", colorID(r.ID.Short()), r.Target)

		if !r.Displaced.IsZero() {
			statusf("  displaced existing file into trash as %s\n", colorID(r.Displaced.Short()))
		}

		if r.DigestMismatch {
			statusf("  %s content digest mismatch — payload may have been altered in the trash\n", colorWarning("warning:"))
		}
	}

	reportFailures(result.Failed)

	return outcomeExit(len(result.Restored)+len(result.Planned), len(result.Failed), result.Failed)
}
