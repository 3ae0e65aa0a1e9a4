package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tubewatch/internal/events"
	"tubewatch/internal/logging"
	"tubewatch/internal/reconcile"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream live daemon events",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			session := reconcile.NewSession(logging.NewNop())
			client := reconcile.NewStreamClient(base+"/events", session, func(event events.Event) {
				printEvent(out, event)
			})

			fmt.Fprintf(out, "Watching %s (ctrl-c to stop)\n", base)
			err = client.Run(cmd.Context())
			if errors.Is(err, cmd.Context().Err()) {
				return nil
			}
			return err
		},
	}
}

func printEvent(out io.Writer, event events.Event) {
	switch event.Type {
	case events.TypeState:
		if event.State == nil {
			return
		}
		fmt.Fprintf(out, "state: %d downloading, %d summarizing\n",
			len(event.State.Downloading), len(event.State.Summarizing))
	case events.TypeDownloadLogLine:
		fmt.Fprintln(out, event.Line)
	case events.TypeNewVideos:
		for _, video := range event.Videos {
			fmt.Fprintf(out, "new: %s %s (%s)\n", video.ID, video.Title, video.ChannelName)
		}
	case events.TypeDownloaded:
		fmt.Fprintf(out, "downloaded: %s\n", event.VideoID)
	case events.TypeSummary:
		fmt.Fprintf(out, "summarized: %s\n%s\n", event.VideoID, strings.TrimSpace(event.Summary))
	case events.TypeSummaryError:
		fmt.Fprintf(out, "summary failed: %s\n", event.VideoID)
	case events.TypeIgnored:
		fmt.Fprintf(out, "ignored: %s\n", event.VideoID)
	}
}
