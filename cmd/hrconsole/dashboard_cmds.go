package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/spf13/cobra"
)

func attendanceCmd() *cobra.Command {
	var (
		date     string
		filter   dashboard.CheckinFilter
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "List the check-ins of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			checkins, err := a.dashboard.ViewCheckins(cmd.Context(), date)
			if err != nil {
				return err
			}
			p := dashboard.Paginate(filter.Apply(checkins), page, pageSize)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tEMPLOYEE\tEMAIL\tIN\tOUT\tLOCATION\tSTATUS")
			for _, c := range p.Items {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					c.CheckinID, c.UserName, c.UserEmail, c.CheckinTime, fallback(c.CheckoutTime, "-"), c.LocationType, checkinStatus(c))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d, %d check-ins\n", p.Page, max(p.TotalPages, 1), p.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", time.Now().Format(time.DateOnly), "Day to list, YYYY-MM-DD")
	cmd.Flags().StringVarP(&filter.Search, "search", "s", "", "Match employee name or email")
	cmd.Flags().StringVar(&filter.Status, "status", dashboard.StatusAll, "all, late, overtime or ontime")
	cmd.Flags().StringVar(&filter.Location, "location", dashboard.LocationAll, "all, home or office")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", dashboard.DefaultPageSize, "Rows per page")

	return cmd
}

func summaryCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the attendance summary of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			s, _, err := a.dashboard.Day(cmd.Context(), date)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "Date:\t%s\n", s.Date)
			_, _ = fmt.Fprintf(w, "Check-ins:\t%d\n", s.TotalCheckins)
			_, _ = fmt.Fprintf(w, "Employees:\t%d\n", s.UniqueUsers)
			_, _ = fmt.Fprintf(w, "On time:\t%d\n", s.OnTime)
			_, _ = fmt.Fprintf(w, "Late:\t%d\n", s.Late)
			_, _ = fmt.Fprintf(w, "Overtime:\t%d\n", s.Overtime)
			_, _ = fmt.Fprintf(w, "Productivity:\t%d%%\n", s.Rate())
			_, _ = fmt.Fprintf(w, "Source:\t%s\n", s.Source)
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", time.Now().Format(time.DateOnly), "Day to summarize, YYYY-MM-DD")
	return cmd
}

func employeesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "employees",
		Short: "List employees and accounts awaiting approval",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}

			all, err := a.dashboard.AllUsers(cmd.Context())
			if err != nil {
				return err
			}
			active, pending := dashboard.SplitPendingApproval(all)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
			for _, u := range active {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\tactive\n", u.ID, u.DisplayName(), u.Email, u.Role)
			}
			for _, u := range pending {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\tpending approval\n", u.ID, u.DisplayName(), u.Email, u.Role)
			}
			return w.Flush()
		},
	}
}

func checkinStatus(c dashboard.Checkin) string {
	switch {
	case c.Late && c.Overtime:
		return "late, overtime"
	case c.Late:
		return "late"
	case c.Overtime:
		return "overtime"
	default:
		return "on time"
	}
}
