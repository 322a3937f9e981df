package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/reading"
)

type progressView struct {
	Position       string   `json:"position,omitempty"`
	ScrollPosition *float64 `json:"scroll_position,omitempty"`
	TotalAyahsRead int      `json:"total_ayahs_read"`
	CurrentStreak  int      `json:"current_streak"`
	LongestStreak  int      `json:"longest_streak"`
	LastReadDate   string   `json:"last_read_date,omitempty"`
}

func toProgressView(p domain.ReadingProgress) progressView {
	v := progressView{
		ScrollPosition: p.LastScrollPosition,
		TotalAyahsRead: p.TotalAyahsRead,
		CurrentStreak:  p.CurrentStreak,
		LongestStreak:  p.LongestStreak,
		LastReadDate:   p.LastReadDate,
	}
	if p.LastSurahID != 0 {
		v.Position = domain.VerseKey(p.LastSurahID, p.LastAyahNumber)
	}
	return v
}

type historyView struct {
	Date        string `json:"date"`
	TotalAyahs  int    `json:"total_ayahs"`
	TotalTimeMs int64  `json:"total_time_ms"`
}

func newReadCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Track reading position, streak and history",
	}
	cmd.AddCommand(
		newReadProgressCmd(e),
		newReadGotoCmd(e),
		newReadMarkCmd(e),
		newReadTimeCmd(e),
		newReadHistoryCmd(e),
	)
	return cmd
}

func newReadProgressCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show the last read position and the reading streak",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				p, err := c.Reading.GetProgress(ctx)
				if err != nil {
					return err
				}
				return e.printProgress(cmd.OutOrStdout(), p)
			})
		},
	}
}

func newReadGotoCmd(e *env) *cobra.Command {
	var scroll float64

	cmd := &cobra.Command{
		Use:   "goto <surah:ayah>",
		Short: "Save the current reading position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surah, ayah, err := domain.ParseVerseKey(args[0])
			if err != nil {
				return err
			}
			input := reading.UpdatePositionInput{SurahID: surah, AyahNumber: ayah}
			if cmd.Flags().Changed("scroll") {
				input.ScrollPosition = &scroll
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				p, err := c.Reading.UpdatePosition(ctx, input)
				if err != nil {
					return err
				}
				return e.printProgress(cmd.OutOrStdout(), p)
			})
		},
	}

	cmd.Flags().Float64Var(&scroll, "scroll", 0, "Scroll offset within the page")

	return cmd
}

func newReadMarkCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <surah:ayah>...",
		Short: "Record ayahs as read today",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			type verse struct{ surah, ayah int }
			verses := make([]verse, len(args))
			for i, a := range args {
				s, n, err := domain.ParseVerseKey(a)
				if err != nil {
					return err
				}
				verses[i] = verse{s, n}
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				recorded := 0
				for _, v := range verses {
					ok, err := c.Reading.RecordAyahRead(ctx, v.surah, v.ayah)
					if err != nil {
						return err
					}
					if ok {
						recorded++
					}
				}
				if e.format == FormatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"recorded": recorded, "skipped": len(verses) - recorded})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recorded %d ayah(s), %d already read today\n", recorded, len(verses)-recorded)
				return nil
			})
		},
	}
}

func newReadTimeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "time <duration>",
		Short: "Add reading time to today, e.g. 15m",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				h, err := c.Reading.AddReadingTime(ctx, d.Milliseconds())
				if err != nil {
					return err
				}
				return e.printHistory(cmd.OutOrStdout(), []domain.ReadingHistory{h})
			})
		},
	}
}

func newReadHistoryCmd(e *env) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show reading history, most recent day first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				list, err := c.Reading.GetHistory(ctx, days)
				if err != nil {
					return err
				}
				return e.printHistory(cmd.OutOrStdout(), list)
			})
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 7, fmt.Sprintf("Window size in days (max %d)", reading.MaxHistoryDays))

	return cmd
}

func (e *env) printProgress(w io.Writer, p domain.ReadingProgress) error {
	v := toProgressView(p)
	if e.format == FormatJSON {
		return writeJSON(w, v)
	}

	scroll := "-"
	if v.ScrollPosition != nil {
		scroll = fmt.Sprintf("%.0f", *v.ScrollPosition)
	}
	keyValues(w, [][2]any{
		{"Position", dash(v.Position)},
		{"Scroll", scroll},
		{"Ayahs read", v.TotalAyahsRead},
		{"Current streak", v.CurrentStreak},
		{"Longest streak", v.LongestStreak},
		{"Last read", dash(v.LastReadDate)},
	})
	return nil
}

func (e *env) printHistory(w io.Writer, list []domain.ReadingHistory) error {
	views := make([]historyView, len(list))
	for i, h := range list {
		views[i] = historyView{Date: h.Date(), TotalAyahs: h.TotalAyahs, TotalTimeMs: h.TotalTimeMs}
	}
	if e.format == FormatJSON {
		return writeJSON(w, views)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "Ayahs", "Time"})
	for _, v := range views {
		t.AppendRow(table.Row{v.Date, v.TotalAyahs, (time.Duration(v.TotalTimeMs) * time.Millisecond).Round(time.Second)})
	}
	t.Render()
	return nil
}
