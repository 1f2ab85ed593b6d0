package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/forkbridge/internal/attempts"
	"github.com/example/forkbridge/internal/domain/reservation"
)

func newAttemptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Inspect the widget automation journal",
	}
	cmd.AddCommand(newAttemptsListCmd())
	cmd.AddCommand(newAttemptsPruneCmd())
	return cmd
}

func newAttemptsListCmd() *cobra.Command {
	var (
		operation string
		outcome   string
		since     time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{database: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireJournal(); err != nil {
				return err
			}

			f := attempts.Filter{
				Operation: reservation.Operation(operation),
				Outcome:   reservation.Outcome(outcome),
				Limit:     limit,
			}
			if since > 0 {
				f.Since = time.Now().Add(-since)
			}
			entries, err := a.journal.List(cmd.Context(), f)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tOP\tDATE\tTIME\tPAX\tOUTCOME\tTOOK\tCONFIRMATION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					e.ID, e.StartedAt.In(a.cfg.Location).Format("2006-01-02 15:04:05"), e.Operation,
					e.Date, e.Time, e.PartySize, e.Outcome, e.Duration.Round(time.Millisecond), e.ConfirmationNumber)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "check or reserve")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome, e.g. time_taken")
	cmd.Flags().DurationVar(&since, "since", 0, "only attempts started within this window, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func newAttemptsPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete attempts older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{database: true})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireJournal(); err != nil {
				return err
			}

			if olderThan <= 0 {
				olderThan = a.cfg.JournalRetention
			}
			n, err := a.journal.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d attempts\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention window (default JOURNAL_RETENTION_HOURS)")
	return cmd
}
