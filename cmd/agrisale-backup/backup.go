package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take one manual backup of the active workspace",
	Args:  cobra.NoArgs,
	RunE:  runManualBackup,
}

func runManualBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := st.Backup.PerformManualBackup(ctx)
	if err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}
	if result == nil {
		log.Warn().Msg("no active workspace, nothing to back up")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backup created: %s (%s)\n", result.Record.FileName, humanize.IBytes(uint64(result.Record.Size)))
	if n := len(result.Evicted); n > 0 {
		fmt.Fprintf(out, "Removed %d old backup(s)\n", n)
	}
	if result.EvictionFailures > 0 {
		fmt.Fprintf(out, "Failed to remove %d old backup(s)\n", result.EvictionFailures)
	}
	return nil
}
