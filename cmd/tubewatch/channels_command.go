package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	channelsCmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage tracked channels",
	}

	channelsCmd.AddCommand(newChannelsListCommand(ctx))
	channelsCmd.AddCommand(newChannelsAddCommand(ctx))
	channelsCmd.AddCommand(newChannelsRemoveCommand(ctx))

	return channelsCmd
}

func newChannelsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			channels, err := newAPIClient(base).channels(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(channels) == 0 {
				fmt.Fprintln(out, "No channels tracked")
				return nil
			}
			rows := make([][]string, 0, len(channels))
			for _, channel := range channels {
				rows = append(rows, []string{"@" + channel.Name, channel.AddedAt.Local().Format("2006-01-02 15:04")})
			}
			fmt.Fprintln(out, renderTable([]column{{header: "Channel"}, {header: "Added"}}, rows))
			return nil
		},
	}
}

func newChannelsAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <handle>",
		Short: "Track a channel by handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if err := newAPIClient(base).addChannel(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking @%s\n", strings.TrimPrefix(name, "@"))
			return nil
		},
	}
}

func newChannelsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <handle>",
		Short: "Stop tracking a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if err := newAPIClient(base).removeChannel(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed @%s\n", strings.TrimPrefix(name, "@"))
			return nil
		},
	}
}
