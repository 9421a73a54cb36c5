package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/rmz-go/internal/config"
	"github.com/tonimelisma/rmz-go/internal/engine"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and modify settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			fmt.Println(settingsPathFor(cc))

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if flagJSON {
				return printJSON(cc.Cfg)
			}

			fmt.Printf("trash_root       = %q\n", cc.Root)
			fmt.Printf("auto_clean_days  = %d\n", cc.Cfg.AutoCleanDays)
			fmt.Printf("max_total_size   = %q\n", cc.Cfg.MaxTotalSize)
			fmt.Printf("color            = %q\n", cc.Cfg.Color)
			fmt.Printf("interactive      = %t\n", cc.Cfg.Interactive)
			fmt.Printf("log_level        = %q\n", cc.Cfg.LogLevel)
			fmt.Printf("log_max_bytes    = %d\n", cc.Cfg.LogMaxBytes)
			fmt.Printf("log_max_archives = %d\n", cc.Cfg.LogMaxArchives)

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one settings key and persist the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := applySetting(cc.Cfg, args[0], args[1]); err != nil {
				return err
			}

			if err := config.Save(settingsPathFor(cc), cc.Cfg, cc.Logger); err != nil {
				return err
			}

			statusf("set %s = %s\n", args[0], args[1])

			return nil
		},
	})

	return cmd
}

// settingsPathFor mirrors the override chain of loadContext.
func settingsPathFor(cc *CLIContext) string {
	if flagConfigPath != "" {
		return flagConfigPath
	}

	if cc.Env.ConfigPath != "" {
		return cc.Env.ConfigPath
	}

	// loadContext reads the settings under the root resolved before any
	// trash_root setting applies; cc.Root may already carry that setting.
	root, err := config.ResolveRoot(cc.Env)
	if err != nil {
		return config.SettingsPath(cc.Root)
	}

	return config.SettingsPath(root)
}

// applySetting mutates one Config field from its string form, validating
// the result.
func applySetting(cfg *config.Config, key, value string) error {
	switch key {
	case "trash_root":
		cfg.TrashRoot = value
	case "auto_clean_days":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: auto_clean_days needs a number: %v", engine.ErrInvalidArgument, err)
		}

		cfg.AutoCleanDays = n
	case "max_total_size":
		cfg.MaxTotalSize = value
	case "color":
		cfg.Color = value
	case "interactive":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: interactive needs true or false: %v", engine.ErrInvalidArgument, err)
		}

		cfg.Interactive = b
	case "log_level":
		cfg.LogLevel = value
	case "log_max_bytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: log_max_bytes needs a number: %v", engine.ErrInvalidArgument, err)
		}

		cfg.LogMaxBytes = n
	case "log_max_archives":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: log_max_archives needs a number: %v", engine.ErrInvalidArgument, err)
		}

		cfg.LogMaxArchives = n
	default:
		return fmt.Errorf("%w: unknown settings key %q", engine.ErrInvalidArgument, key)
	}

	return config.Validate(cfg)
}
