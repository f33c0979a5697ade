package main

import (
	"fmt"
	"io"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	settingsEnabled  bool
	settingsOnLaunch bool
	settingsOnExit   bool
	settingsInterval int
	settingsMaxCount int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the active workspace's backup settings",
	Long: `Without flags the current settings are printed. Any flag given is saved
for the active workspace; unset flags keep their stored value.

Allowed intervals (minutes): 1, 5, 10, 20, 30, 60, 120, 360.
Allowed max count: 5 to 50.`,
	Args: cobra.NoArgs,
	RunE: backupSettings,
}

func init() {
	f := settingsCmd.Flags()
	f.BoolVar(&settingsEnabled, "enabled", false, "enable automatic backups")
	f.BoolVar(&settingsOnLaunch, "on-launch", false, "take a backup when the workspace is opened")
	f.BoolVar(&settingsOnExit, "on-exit", false, "take a backup when the service stops")
	f.IntVar(&settingsInterval, "interval", 0, "automatic backup interval in minutes")
	f.IntVar(&settingsMaxCount, "max-count", 0, "number of backups to keep")
}

func backupSettings(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	bs, err := st.Backup.Settings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load backup settings")
		return err
	}

	f := cmd.Flags()
	changed := false
	if f.Changed("enabled") {
		bs.Enabled, changed = settingsEnabled, true
	}
	if f.Changed("on-launch") {
		bs.BackupOnLaunch, changed = settingsOnLaunch, true
	}
	if f.Changed("on-exit") {
		bs.BackupOnExit, changed = settingsOnExit, true
	}
	if f.Changed("interval") {
		bs.IntervalMinutes, changed = settingsInterval, true
	}
	if f.Changed("max-count") {
		bs.MaxCount, changed = settingsMaxCount, true
	}

	if changed {
		bs, err = st.Backup.UpdateSettings(ctx, bs)
		if err != nil {
			log.Error().Err(err).Msg("failed to save backup settings")
			return err
		}
	}

	printSettings(cmd.OutOrStdout(), bs)
	return nil
}

func printSettings(out io.Writer, bs models.BackupSettings) {
	fmt.Fprintf(out, "Automatic backup: %v\n", bs.Enabled)
	fmt.Fprintf(out, "  Interval: %d minute(s)\n", bs.IntervalMinutes)
	fmt.Fprintf(out, "  Keep: %d backup(s)\n", bs.MaxCount)
	fmt.Fprintf(out, "Backup on launch: %v\n", bs.BackupOnLaunch)
	fmt.Fprintf(out, "Backup on exit: %v\n", bs.BackupOnExit)
	if bs.LastBackupTime != nil {
		fmt.Fprintf(out, "Last backup: %s (%s)\n",
			bs.LastBackupTime.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(*bs.LastBackupTime))
	} else {
		fmt.Fprintln(out, "Last backup: never")
	}
}
