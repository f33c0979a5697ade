package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var deleteAll bool

var deleteCmd = &cobra.Command{
	Use:   "delete [file]",
	Short: "Delete one backup, or all backups of the active workspace with --all",
	Args: func(cmd *cobra.Command, args []string) error {
		if deleteAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: deleteBackups,
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteAll, "all", false, "delete every backup of the active workspace")
}

func deleteBackups(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, _, err := openStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if deleteAll {
		removed, err := st.Backup.DeleteAllBackups(ctx)
		fmt.Fprintf(out, "Deleted %d backup(s)\n", removed)
		if err != nil {
			log.Error().Err(err).Msg("some backups could not be deleted")
			return err
		}
		return nil
	}

	if err := st.Backup.DeleteBackup(ctx, args[0]); err != nil {
		log.Error().Err(err).Str("file", args[0]).Msg("delete failed")
		return err
	}
	fmt.Fprintf(out, "Deleted %s\n", args[0])
	return nil
}
