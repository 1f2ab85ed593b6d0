package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/forkbridge/internal/vapi"
)

func newBookCmd() *cobra.Command {
	var (
		qf        queryFlags
		name      string
		phone     string
		email     string
		honorific string
		baby      bool
		allergies string
		requests  string
	)

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book a table through the widget",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), appOptions{database: true, browser: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if email == "" {
				email = a.cfg.ContactEmail
			}
			if email == "" {
				return errors.New("--email or DEFAULT_CONTACT_EMAIL is required")
			}

			c := &vapi.Completion{
				Phone: phone,
				Reservation: vapi.ReservationData{
					Date:            qf.date,
					Time:            qf.time,
					People:          float64(qf.people),
					FullName:        name,
					Honorific:       honorific,
					Allergies:       allergies,
					SpecialRequests: requests,
				},
			}
			if cmd.Flags().Changed("baby") {
				c.Reservation.Baby = &baby
			}
			q, customer, err := c.Booking(time.Now().In(a.cfg.Location), email)
			if err != nil {
				return err
			}

			res := a.service.MakeReservation(cmd.Context(), q, customer)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Message)
			}
			return nil
		},
	}
	qf.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "customer full name")
	cmd.Flags().StringVar(&phone, "phone", "", "customer phone, +34 prefix optional")
	cmd.Flags().StringVar(&email, "email", "", "contact email (default DEFAULT_CONTACT_EMAIL)")
	cmd.Flags().StringVar(&honorific, "honorific", "", "Sr, Sra, Mx...")
	cmd.Flags().BoolVar(&baby, "baby", false, "an infant is coming")
	cmd.Flags().StringVar(&allergies, "allergies", "", "allergies to note")
	cmd.Flags().StringVar(&requests, "requests", "", "special requests")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}
