package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tubewatch/internal/store"
)

const titleColumnWidth = 60

var videoColumns = []column{
	{header: "ID"},
	{header: "Channel"},
	{header: "Title"},
	{header: "Published"},
	{header: "Views", right: true},
	{header: "State"},
}

func newVideosCommand(ctx *commandContext) *cobra.Command {
	var channel string
	var all bool

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "List known videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			videos, err := newAPIClient(base).videos(cmd.Context(), channel)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "No videos found")
				return nil
			}
			rows := buildVideoRows(videos, all)
			if len(rows) == 0 {
				fmt.Fprintln(out, "No videos to show (use --all to include ignored)")
				return nil
			}
			fmt.Fprintln(out, renderTable(videoColumns, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Only show videos from this channel")
	cmd.Flags().BoolVar(&all, "all", false, "Include ignored videos")
	return cmd
}

func buildVideoRows(videos []*store.Video, includeIgnored bool) [][]string {
	printer := message.NewPrinter(language.English)
	rows := make([][]string, 0, len(videos))
	for _, video := range videos {
		if video.Ignored && !includeIgnored {
			continue
		}
		rows = append(rows, []string{
			video.ID,
			video.ChannelName,
			truncateTitle(video.Title),
			video.PublishedTime,
			printer.Sprintf("%d", video.ViewCount),
			videoState(video),
		})
	}
	return rows
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titleColumnWidth {
		return title
	}
	return string(runes[:titleColumnWidth-1]) + "…"
}

func videoState(video *store.Video) string {
	switch {
	case video.Ignored:
		return "ignored"
	case video.Downloaded && video.Summary != "":
		return "downloaded, summarized"
	case video.Downloaded:
		return "downloaded"
	case video.Summary != "":
		return "summarized"
	default:
		return "new"
	}
}
