package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Flocio/AgrisaleWS-sub002/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage the active workspace",
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace and print its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, _, err := openStack(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ws, err := st.Data.CreateWorkspace(ctx, args[0])
		if err != nil {
			log.Error().Err(err).Str("name", args[0]).Msg("failed to create workspace")
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created workspace %q with id %d\n", ws.Name, ws.ID)
		return nil
	},
}

var workspaceUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the active workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid workspace id %q", args[0])
		}

		ctx := cmd.Context()
		st, _, err := openStack(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if st.Workspace == nil {
			return fmt.Errorf("the workspace is pinned by configuration")
		}
		if err := st.Workspace.Select(ctx, id); err != nil {
			log.Error().Err(err).Int64("workspace_id", id).Msg("failed to select workspace")
			return err
		}

		ws, err := st.Resolver.Current(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active workspace: %s (id %d)\n", ws.Name, ws.ID)
		return nil
	},
}

var workspaceCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Print the active workspace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, _, err := openStack(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		ws, err := st.Resolver.Current(ctx)
		if errors.Is(err, models.ErrWorkspaceUnresolved) {
			fmt.Fprintln(cmd.OutOrStdout(), "No active workspace.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active workspace: %s (id %d)\n", ws.Name, ws.ID)
		return nil
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceCreateCmd)
	workspaceCmd.AddCommand(workspaceUseCmd)
	workspaceCmd.AddCommand(workspaceCurrentCmd)
}
