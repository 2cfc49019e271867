package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docsearch-core/docsearch/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the user configuration file",
	}

	cmd.AddCommand(newConfigSaveCmd())
	cmd.AddCommand(newConfigBackupCmd())
	cmd.AddCommand(newConfigListBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

// newConfigSaveCmd persists the effective configuration (defaults layered
// with whatever project/user config and env overrides are already in
// effect) to the user config path, snapshotting whatever was there first.
func newConfigSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the user config file, backing up any existing one first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(workingDirOr(flagDataDir))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			backupPath, err := config.BackupUserConfig()
			if err != nil {
				return fmt.Errorf("backing up existing user config: %w", err)
			}

			path := config.GetUserConfigPath()
			if err := cfg.WriteYAML(path); err != nil {
				return fmt.Errorf("writing user config: %w", err)
			}

			out := cmd.OutOrStdout()
			if backupPath != "" {
				fmt.Fprintf(out, "backed up previous config to %s\n", backupPath)
			}
			fmt.Fprintf(out, "wrote config to %s\n", path)
			return nil
		},
	}
}

func newConfigBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the current user config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.BackupUserConfig()
			if err != nil {
				return fmt.Errorf("backing up user config: %w", err)
			}
			if path == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no user config file to back up")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backed up user config to %s\n", path)
			return nil
		},
	}
}

func newConfigListBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-backups",
		Short: "List user config backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := config.ListUserConfigBackups()
			if err != nil {
				return fmt.Errorf("listing user config backups: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(backups) == 0 {
				fmt.Fprintln(out, "no backups found")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintln(out, b)
			}
			return nil
		},
	}
}

func newConfigRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore [backup-path]",
		Short: "Restore the user config from a backup file, snapshotting the current one first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.RestoreUserConfig(args[0]); err != nil {
				return fmt.Errorf("restoring user config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored user config from %s\n", args[0])
			return nil
		},
	}
}
