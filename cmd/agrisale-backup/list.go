package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups of the active workspace, newest first",
	Args:  cobra.NoArgs,
	RunE:  listBackups,
}

func listBackups(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.Backup.GetBackupList(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list backups")
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No backups.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tCREATED\tAGE")
	var total int64
	for _, rec := range records {
		total += rec.Size
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.FileName,
			humanize.IBytes(uint64(rec.Size)),
			rec.ModifiedTime.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(rec.ModifiedTime),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d backup(s), %s total\n", len(records), humanize.IBytes(uint64(total)))
	if countdown := st.Backup.FormatTimeUntilNextBackup(); countdown != "" {
		fmt.Fprintf(out, "Next automatic backup in %s\n", countdown)
	}
	return nil
}
