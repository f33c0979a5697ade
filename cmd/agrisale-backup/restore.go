package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var restoreConfirmed bool

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Replace the active workspace's data with a backup",
	Long: `Restore overwrites every record of the active workspace with the contents
of the given backup. It refuses to run without --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: restoreBackup,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreConfirmed, "yes", "y", false, "confirm overwriting the current data")
}

func restoreBackup(cmd *cobra.Command, args []string) error {
	if !restoreConfirmed {
		return fmt.Errorf("restore overwrites the current workspace data, repeat with --yes to confirm")
	}

	ctx := cmd.Context()
	st, _, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Backup.RestoreBackup(ctx, args[0]); err != nil {
		log.Error().Err(err).Str("file", args[0]).Msg("restore failed")
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Restored %s\n", args[0])
	return nil
}
