package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/forkbridge/internal/vapi"
)

type queryFlags struct {
	date   string
	time   string
	people int
}

func (f *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", `reservation date, YYYY-MM-DD or Spanish ("3 de diciembre")`)
	cmd.Flags().StringVar(&f.time, "time", "", "reservation time, HH:MM")
	cmd.Flags().IntVar(&f.people, "people", 2, "party size")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
}

func newCheckCmd() *cobra.Command {
	var qf queryFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check availability on the widget once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{database: true, browser: true})
			if err != nil {
				return err
			}
			defer a.Close()

			params := vapi.AvailabilityParams{Fecha: qf.date, Hora: qf.time, Personas: float64(qf.people)}
			q, err := params.Query(time.Now().In(a.cfg.Location))
			if err != nil {
				return err
			}

			res := a.service.CheckAvailability(cmd.Context(), q)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), vapi.AvailabilityReply(q, res))
			return err
		},
	}
	qf.bind(cmd)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
