package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/hifz"
)

type hifzView struct {
	Verse              string            `json:"verse"`
	Status             domain.HifzStatus `json:"status"`
	EaseFactor         float64           `json:"ease_factor"`
	IntervalDays       int               `json:"interval_days"`
	DueAt              time.Time         `json:"due_at"`
	LastReviewedAt     *time.Time        `json:"last_reviewed_at,omitempty"`
	ReviewCount        int               `json:"review_count"`
	ConsecutiveSuccess int               `json:"consecutive_success"`
}

func toHifzView(p domain.HifzProgress) hifzView {
	return hifzView{
		Verse:              p.VerseKey(),
		Status:             p.Status,
		EaseFactor:         p.EaseFactor,
		IntervalDays:       p.IntervalDays,
		DueAt:              p.DueAt,
		LastReviewedAt:     p.LastReviewedAt,
		ReviewCount:        p.ReviewCount,
		ConsecutiveSuccess: p.ConsecutiveSuccess,
	}
}

func parseConfidence(s string) (domain.Confidence, error) {
	c := domain.Confidence(strings.ToLower(s))
	if !c.IsValid() {
		return "", domain.NewValidationError("confidence", "must be one of new, shaky, good, solid")
	}
	return c, nil
}

func newHifzCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hifz",
		Short: "Memorization drill with spaced repetition",
	}
	cmd.AddCommand(
		newHifzStartCmd(e),
		newHifzReviewCmd(e),
		newHifzMemorizedCmd(e),
		newHifzRelearnCmd(e),
		newHifzResetCmd(e),
		newHifzShowCmd(e),
		newHifzDueCmd(e),
		newHifzProgressCmd(e),
		newHifzStreakCmd(e),
		newHifzRefreshCmd(e),
	)
	return cmd
}

func newHifzStartCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "start <surah:ayah>",
		Short: "Start learning a verse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				p, err := c.Hifz.StartLearning(ctx, args[0])
				if err != nil {
					return err
				}
				return e.printHifz(cmd.OutOrStdout(), c, []domain.HifzProgress{p})
			})
		},
	}
}

func newHifzReviewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "review <surah:ayah> <new|shaky|good|solid>",
		Short: "Rate recall of a verse and reschedule it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := parseConfidence(args[1])
			if err != nil {
				return err
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				p, err := c.Hifz.Review(ctx, args[0], conf)
				if err != nil {
					return err
				}
				return e.printHifz(cmd.OutOrStdout(), c, []domain.HifzProgress{p})
			})
		},
	}
}

func newHifzMemorizedCmd(e *env) *cobra.Command {
	var surah int

	cmd := &cobra.Command{
		Use:   "memorized [surah:ayah]",
		Short: "Mark a verse, or a whole surah with --surah, as memorized",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (surah == 0) == (len(args) == 0) {
				return fmt.Errorf("give either a verse or --surah")
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if surah != 0 {
					n, err := c.Hifz.MarkSurahMemorized(ctx, surah)
					if err != nil {
						return err
					}
					if e.format == FormatJSON {
						return writeJSON(cmd.OutOrStdout(), map[string]int{"surah_id": surah, "changed": n})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "surah %d: %d verse(s) marked memorized\n", surah, n)
					return nil
				}
				p, err := c.Hifz.MarkMemorized(ctx, args[0])
				if err != nil {
					return err
				}
				return e.printHifz(cmd.OutOrStdout(), c, []domain.HifzProgress{p})
			})
		},
	}

	cmd.Flags().IntVarP(&surah, "surah", "s", 0, "Mark every verse of this surah")

	return cmd
}

func newHifzRelearnCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "relearn <surah:ayah>",
		Short: "Move a verse back to learning, due now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				p, found, err := c.Hifz.Relearn(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("hifz %s: %w", args[0], domain.ErrNotFound)
				}
				return e.printHifz(cmd.OutOrStdout(), c, []domain.HifzProgress{p})
			})
		},
	}
}

func newHifzResetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <surah:ayah>",
		Short: "Forget all progress on a verse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				removed, err := c.Hifz.Reset(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("hifz %s: %w", args[0], domain.ErrNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", args[0])
				return nil
			})
		},
	}
}

func newHifzShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <surah:ayah>",
		Short: "Show a verse's memorization state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				p, _, err := c.Hifz.GetProgress(ctx, args[0])
				if err != nil {
					return err
				}
				return e.printHifz(cmd.OutOrStdout(), c, []domain.HifzProgress{p})
			})
		},
	}
}

func newHifzDueCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List verses due for review, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				list, err := c.Hifz.GetDueReviews(ctx, limit)
				if err != nil {
					return err
				}
				return e.printHifz(cmd.OutOrStdout(), c, list)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, fmt.Sprintf("Maximum verses (max %d)", hifz.MaxDueReviews))

	return cmd
}

func newHifzProgressCmd(e *env) *cobra.Command {
	var surah int

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Memorization totals for the mushaf or one surah",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if surah != 0 {
					sp, err := c.Hifz.GetSurahProgress(ctx, surah)
					if err != nil {
						return err
					}
					if e.format == FormatJSON {
						return writeJSON(cmd.OutOrStdout(), sp)
					}
					printCounts(cmd.OutOrStdout(), fmt.Sprintf("Surah %d", sp.SurahID), sp.HifzStatusCounts, [][2]any{
						{"Verses", sp.TotalVerses},
						{"Memorized", fmt.Sprintf("%.1f%%", sp.PercentMemorized)},
					})
					return nil
				}

				tp, err := c.Hifz.GetTotalProgress(ctx)
				if err != nil {
					return err
				}
				if e.format == FormatJSON {
					return writeJSON(cmd.OutOrStdout(), tp)
				}
				printCounts(cmd.OutOrStdout(), "Mushaf", tp.HifzStatusCounts, [][2]any{
					{"Verses", tp.TotalVerses},
					{"Surahs memorized", fmt.Sprintf("%d/%d", tp.SurahsMemorized, tp.TotalSurahs)},
					{"Memorized", fmt.Sprintf("%.1f%%", tp.PercentMemorized)},
				})
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&surah, "surah", "s", 0, "Only this surah")

	return cmd
}

func newHifzStreakCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Count consecutive days with at least one review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				n, err := c.Hifz.GetStreak(ctx)
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

func newHifzRefreshCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Move long-overdue verses to needs_revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				n, err := c.Hifz.RefreshOverdue(ctx)
				if err != nil {
					return err
				}
				if e.format == FormatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"changed": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d verse(s) need revision\n", n)
				return nil
			})
		},
	}
}

func (e *env) printHifz(w io.Writer, c *app.Client, list []domain.HifzProgress) error {
	views := make([]hifzView, len(list))
	for i, p := range list {
		views[i] = toHifzView(p)
	}
	if e.format == FormatJSON {
		return writeJSON(w, views)
	}

	loc := c.Clock.Location()
	t := newTable(w)
	t.AppendHeader(table.Row{"Verse", "Status", "Ease", "Interval", "Due", "Last review", "Reviews"})
	for _, v := range views {
		due := "-"
		if v.Status != domain.HifzStatusNotStarted {
			due = formatTime(v.DueAt, loc)
		}
		t.AppendRow(table.Row{
			v.Verse,
			v.Status,
			strconv.FormatFloat(v.EaseFactor, 'f', 2, 64),
			fmt.Sprintf("%dd", v.IntervalDays),
			due,
			formatTimePtr(v.LastReviewedAt, loc),
			v.ReviewCount,
		})
	}
	t.Render()
	return nil
}

func printCounts(w io.Writer, title string, counts domain.HifzStatusCounts, extra [][2]any) {
	t := newTable(w)
	t.SetTitle(title)
	t.AppendRows([]table.Row{
		{"Learning", counts.Learning},
		{"Memorized", counts.Memorized},
		{"Needs revision", counts.NeedsRevision},
		{"Not started", counts.NotStarted},
	})
	t.AppendSeparator()
	for _, r := range extra {
		t.AppendRow(table.Row{r[0], r[1]})
	}
	t.Render()
}
