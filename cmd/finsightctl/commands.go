package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finsight/internal/advisor"
	"finsight/internal/core"
	"finsight/internal/session"
)

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <username>",
		Short: "Print totals, budget and category breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dashboard(cmd, args[0])
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), d, a.currency())
			return nil
		},
	}
}

func (a *app) forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast <username>",
		Short: "Print the month-end projection and where each figure came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dashboard(cmd, args[0])
			if err != nil {
				return err
			}
			printForecast(cmd.OutOrStdout(), d.Forecast, a.currency())
			return nil
		},
	}
}

func (a *app) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <username> <question...>",
		Short: "Ask the advisor a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			s, cleanup, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(cmd.OutOrStdout(), s.Ask(strings.Join(args[1:], " "), today))
			return nil
		},
	}
}

func (a *app) calendarCmd() *cobra.Command {
	var year, month int
	var weekStart string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print a month as a calendar grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			today, err := a.today()
			if err != nil {
				return err
			}
			if year == 0 {
				year = today.Year()
			}
			if month == 0 {
				month = int(today.Month())
			}
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d", month)
			}
			start, err := parseWeekday(weekStart)
			if err != nil {
				return err
			}
			printCalendar(cmd.OutOrStdout(), year, time.Month(month), start)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year, defaults to the current one")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12, defaults to the current one")
	cmd.Flags().StringVar(&weekStart, "week-start", "monday", "first day of the week")
	return cmd
}

func (a *app) dashboard(cmd *cobra.Command, username string) (session.Dashboard, error) {
	today, err := a.today()
	if err != nil {
		return session.Dashboard{}, err
	}
	s, cleanup, err := a.openSession(cmd.Context(), username)
	if err != nil {
		return session.Dashboard{}, err
	}
	defer cleanup()
	return s.Snapshot(today), nil
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid weekday %q", s)
}

func printSummary(w io.Writer, d session.Dashboard, c advisor.Currency) {
	if d.NeedsOnboarding {
		fmt.Fprintf(w, "%s has no transactions yet.\n", d.Username)
		return
	}
	s := d.Summary
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "User\t%s\n", d.Username)
	fmt.Fprintf(tw, "Transactions\t%d\n", s.TransactionCount)
	fmt.Fprintf(tw, "Income\t%s\n", c.Format(s.TotalIncome))
	fmt.Fprintf(tw, "Expense\t%s\n", c.Format(s.TotalExpense))
	fmt.Fprintf(tw, "Balance\t%s\n", c.Format(s.TotalBalance))
	fmt.Fprintf(tw, "Average\t%s\n", c.Format(s.AverageTransaction))
	fmt.Fprintf(tw, "Budget\t%s used of %s (%s)\n", c.Format(d.Budget.Spent), c.Format(d.Budget.Budget), d.Budget.Level)
	tw.Flush()

	if len(d.Categories) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTOTAL\tSHARE\tCOUNT")
	for _, cat := range d.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%d\n", cat.Category, c.Format(cat.Total), cat.Percentage, cat.Count)
	}
	tw.Flush()
}

func printForecast(w io.Writer, f core.Forecast, c advisor.Currency) {
	p := f.Provenance
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE\tSOURCE")
	fmt.Fprintf(tw, "Days remaining\t%d\t%s\n", f.DaysRemaining, p.DaysRemaining)
	fmt.Fprintf(tw, "Projected expense\t%s\t%s\n", c.Format(f.ProjectedTotalExpense), p.ProjectedTotal)
	fmt.Fprintf(tw, "Daily average\t%s\t%s\n", c.Format(f.DailyAverageExpense), p.DailyAverage)
	fmt.Fprintf(tw, "End balance\t%s\t%s\n", c.Format(f.ProjectedEndBalance), p.EndBalance)
	fmt.Fprintf(tw, "Minimum balance\t%s\t%s\n", c.Format(f.ProjectedMinimumBalance), p.MinimumBalance)
	tw.Flush()

	if len(f.Categories) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CATEGORY\tPROJECTED\tPER DAY\t(%s)\n", p.Categories)
	for _, cat := range f.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", cat.Category, c.Format(cat.Total), c.Format(cat.DailyAverage))
	}
	tw.Flush()
}

func printCalendar(w io.Writer, year int, month time.Month, weekStart time.Weekday) {
	fmt.Fprintf(w, "%s %d\n", month, year)
	heads := make([]string, 7)
	for i := range heads {
		heads[i] = time.Weekday((int(weekStart) + i) % 7).String()[:2]
	}
	fmt.Fprintln(w, strings.Join(heads, " "))
	for _, week := range core.MonthGrid(year, month, weekStart) {
		cells := make([]string, len(week))
		for i, d := range week {
			if d.IsZero() {
				cells[i] = "  "
			} else {
				cells[i] = fmt.Sprintf("%2d", d.Day())
			}
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	}
}
