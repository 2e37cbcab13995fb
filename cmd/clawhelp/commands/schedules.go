package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholhewres/clawhelp/pkg/clawhelp/scheduler"
)

// newSchedulesCmd creates the `clawhelp schedules` command.
func newSchedulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "List the scheduled commands and when they run next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return listSchedules(cmd.OutOrStdout(), cfg.Schedules, time.Now())
		},
	}
}

func listSchedules(out io.Writer, jobs []*scheduler.Job, now time.Time) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(out, "No schedules configured.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCHEDULE\tTARGET\tCOMMAND\tNEXT RUN")
	for _, job := range jobs {
		next := disabledStyle.Render("disabled")
		if job.Enabled {
			t, err := job.Next(now)
			if err != nil {
				return fmt.Errorf("job %s: %w", job.ID, err)
			}
			next = t.Format(time.RFC1123)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s:%s\t%s\t%s\n", job.ID, job.Schedule, job.Channel, job.ChatID, job.Command, next)
	}
	return tw.Flush()
}
