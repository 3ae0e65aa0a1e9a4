package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download <video-id-or-url>",
		Short: "Start a download job for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			resp, err := newAPIClient(base).startDownload(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Download started for %s\n", resp.VideoID)
			return nil
		},
	}
}

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <video-id-or-url>",
		Short: "Start a summarization job for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			resp, err := newAPIClient(base).startSummarize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Summarization started for %s\n", resp.VideoID)
			return nil
		},
	}
}

func newIgnoreCommand(ctx *commandContext) *cobra.Command {
	var unignore bool

	cmd := &cobra.Command{
		Use:   "ignore <video-id-or-url>",
		Short: "Mark a video as ignored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			video, err := newAPIClient(base).ignore(cmd.Context(), args[0], !unignore)
			if err != nil {
				return err
			}
			if video.Ignored {
				fmt.Fprintf(cmd.OutOrStdout(), "Ignoring %s\n", video.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No longer ignoring %s\n", video.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unignore, "undo", false, "Clear the ignored flag instead")
	return cmd
}
