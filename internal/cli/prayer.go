package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/prayer"
)

type prayerEntryView struct {
	Prayer      domain.Prayer `json:"prayer"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

type prayerLogView struct {
	Date      string            `json:"date"`
	Completed int               `json:"completed"`
	Prayers   []prayerEntryView `json:"prayers"`
}

func toPrayerLogView(l domain.PrayerLog) prayerLogView {
	v := prayerLogView{Date: l.Date(), Completed: l.CompletedCount()}
	for _, p := range domain.Prayers() {
		entry := l.Prayers[p]
		v.Prayers = append(v.Prayers, prayerEntryView{Prayer: p, Completed: entry.Completed, CompletedAt: entry.CompletedAt})
	}
	return v
}

// parsePrayer accepts prayer names in any case.
func parsePrayer(s string) (domain.Prayer, error) {
	for _, p := range domain.Prayers() {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return "", domain.NewValidationError("prayer", "must be one of Fajr, Dhuhr, Asr, Maghrib, Isha")
}

func newPrayerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prayer",
		Short: "Track the five daily prayers",
	}
	cmd.AddCommand(
		newPrayerToggleCmd(e),
		newPrayerLogCmd(e),
		newPrayerStreakCmd(e),
		newPrayerStatsCmd(e),
	)
	return cmd
}

func newPrayerToggleCmd(e *env) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "toggle <prayer>",
		Short: "Mark a prayer completed, or undo it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePrayer(args[0])
			if err != nil {
				return err
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				l, err := c.Prayer.TogglePrayer(ctx, p, date)
				if err != nil {
					return err
				}
				return e.printPrayerLog(cmd.OutOrStdout(), c, l)
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Day as YYYY-MM-DD (default today)")

	return cmd
}

func newPrayerLogCmd(e *env) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the prayer ledger for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				l, err := c.Prayer.GetLog(ctx, date)
				if err != nil {
					return err
				}
				return e.printPrayerLog(cmd.OutOrStdout(), c, l)
			})
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Day as YYYY-MM-DD (default today)")

	return cmd
}

func newPrayerStreakCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Count consecutive days with all five prayers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				n, err := c.Prayer.GetStreak(ctx)
				if err != nil {
					return err
				}
				if e.format == FormatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"streak": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d day(s)\n", n)
				return nil
			})
		},
	}
}

func newPrayerStatsCmd(e *env) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Completion rates over a trailing window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				st, err := c.Prayer.GetStats(ctx, days)
				if err != nil {
					return err
				}
				return e.printPrayerStats(cmd.OutOrStdout(), st)
			})
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, fmt.Sprintf("Window size in days (max %d)", prayer.MaxStreakDays))

	return cmd
}

func (e *env) printPrayerLog(w io.Writer, c *app.Client, l domain.PrayerLog) error {
	v := toPrayerLogView(l)
	if e.format == FormatJSON {
		return writeJSON(w, v)
	}

	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s  %d/%d", v.Date, v.Completed, len(v.Prayers)))
	t.AppendHeader(table.Row{"Prayer", "Done", "At"})
	for _, p := range v.Prayers {
		done := ""
		if p.Completed {
			done = "x"
		}
		t.AppendRow(table.Row{p.Prayer, done, formatTimePtr(p.CompletedAt, c.Clock.Location())})
	}
	t.Render()
	return nil
}

func (e *env) printPrayerStats(w io.Writer, st domain.PrayerStats) error {
	if e.format == FormatJSON {
		return writeJSON(w, st)
	}

	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Last %d day(s)", st.Days))
	t.AppendHeader(table.Row{"Prayer", "Completed", "Rate"})
	for _, p := range st.PerPrayer {
		t.AppendRow(table.Row{p.Prayer, p.Completed, fmt.Sprintf("%.0f%%", p.Rate*100)})
	}
	t.AppendFooter(table.Row{"All", st.Completed, fmt.Sprintf("%.0f%%", st.OverallRate*100)})
	t.Render()
	fmt.Fprintf(w, "perfect days: %d\n", st.PerfectDays)
	return nil
}
