package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.apiBaseURL()
			if err != nil {
				return err
			}
			status, err := newAPIClient(base).status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(out, renderStatusLine("Sessions", statusInfo, fmt.Sprintf("%d", status.Sessions), colorize))
			fmt.Fprintln(out, renderStatusLine("Downloading", jobStatusKind(len(status.State.Downloading)), joinJobs(status.State.Downloading), colorize))
			fmt.Fprintln(out, renderStatusLine("Summarizing", jobStatusKind(len(status.State.Summarizing)), joinJobs(status.State.Summarizing), colorize))
			return nil
		},
	}
}

func jobStatusKind(active int) statusKind {
	if active > 0 {
		return statusWarn
	}
	return statusOK
}

func joinJobs(jobs map[string]bool) string {
	if len(jobs) == 0 {
		return "idle"
	}
	ids := make([]string, 0, len(jobs))
	for id := range jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}
