package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newProtectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Manage protected paths",
		Long: `Manage the deny-list of protected paths. Deletion is refused for every
protected path and (unless the entry is self-only) everything beneath
it. Well-known system directories and your home directory are protected
by default.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <path>",
		Short: "Protect a path and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			if err := eng.ProtectAdd(cmd.Context(), args[0]); err != nil {
				return err
			}

			statusf("protected %s\n", args[0])

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <path>",
		Short: "Remove a protected path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			if err := eng.ProtectRemove(cmd.Context(), args[0]); err != nil {
				return err
			}

			statusf("unprotected %s\n", args[0])

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List protected paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			eng, err := cc.Engine()
			if err != nil {
				return err
			}

			entries := eng.ProtectList()

			if flagJSON {
				return printJSON(entries)
			}

			rows := make([][]string, 0, len(entries))

			for _, entry := range entries {
				scope := "subtree"
				if entry.SelfOnly {
					scope = "self only"
				}

				rows = append(rows, []string{colorPath(entry.Path), scope})
			}

			printTable(os.Stdout, []string{"PATH", "SCOPE"}, rows)

			return nil
		},
	})

	return cmd
}
