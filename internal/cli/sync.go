package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/domain"
)

// ErrOffline is returned by commands that need a sync server when none is configured.
var ErrOffline = errors.New("sync is not configured: set SYNC_URL or sync.url")

type syncResultView struct {
	Status    domain.SyncState `json:"status"`
	Error     string           `json:"error,omitempty"`
	Pushed    int              `json:"pushed"`
	Pulled    int              `json:"pulled"`
	Purged    int              `json:"purged"`
	Conflicts int              `json:"conflicts"`
	Failures  []string         `json:"failures,omitempty"`
	Duration  string           `json:"duration"`
}

type syncStatusView struct {
	Online     bool                      `json:"online"`
	AuthState  domain.AuthState          `json:"auth_state"`
	UserID     string                    `json:"user_id,omitempty"`
	ExpiresAt  *time.Time                `json:"expires_at,omitempty"`
	LastSyncAt *time.Time                `json:"last_sync_at,omitempty"`
	Pending    map[domain.EntityKind]int `json:"pending"`
}

func newSyncCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize with the sync server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(e, cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Push local changes and pull remote ones now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSync(e, cmd)
			},
		},
		newSyncStatusCmd(e),
		newSyncLoginCmd(e),
		newSyncLogoutCmd(e),
	)
	return cmd
}

func runSync(e *env, cmd *cobra.Command) error {
	return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
		if !c.Online() {
			return ErrOffline
		}
		res := c.Engine.SyncAll(ctx)

		v := syncResultView{
			Status:    res.Status,
			Pushed:    res.Pushed,
			Pulled:    res.Pulled,
			Purged:    res.Purged,
			Conflicts: res.Conflicts,
			Duration:  res.Duration.Round(time.Millisecond).String(),
		}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		for _, f := range res.Failures {
			v.Failures = append(v.Failures, f.Error())
		}

		w := cmd.OutOrStdout()
		if e.format == FormatJSON {
			if err := writeJSON(w, v); err != nil {
				return err
			}
		} else {
			keyValues(w, [][2]any{
				{"Status", v.Status},
				{"Pushed", v.Pushed},
				{"Pulled", v.Pulled},
				{"Purged", v.Purged},
				{"Conflicts", v.Conflicts},
				{"Duration", v.Duration},
			})
			for _, f := range v.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s\n", f)
			}
		}

		if errors.Is(res.Err, domain.ErrUnauthorized) {
			return fmt.Errorf("sync: %w (run `myquran sync login <token>`)", res.Err)
		}
		return res.Err
	})
}

func newSyncStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sign-in state, last sync and unpushed changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				pending, err := c.Pending(ctx)
				if err != nil {
					return err
				}
				last, err := c.LastSyncAt(ctx)
				if err != nil {
					return err
				}

				v := syncStatusView{
					Online:    c.Online(),
					AuthState: c.Session.State(),
					Pending:   pending,
				}
				if v.AuthState == domain.AuthStateReady {
					v.UserID = c.Session.UserID().String()
				}
				if exp := c.Session.ExpiresAt(); !exp.IsZero() {
					v.ExpiresAt = &exp
				}
				if !last.IsZero() {
					v.LastSyncAt = &last
				}

				w := cmd.OutOrStdout()
				if e.format == FormatJSON {
					return writeJSON(w, v)
				}

				loc := c.Clock.Location()
				keyValues(w, [][2]any{
					{"Online", v.Online},
					{"Auth", v.AuthState},
					{"User", dash(v.UserID)},
					{"Token expires", formatTimePtr(v.ExpiresAt, loc)},
					{"Last sync", formatTimePtr(v.LastSyncAt, loc)},
				})

				t := newTable(w)
				t.AppendHeader(table.Row{"Kind", "Pending"})
				total := 0
				for _, k := range domain.EntityKinds() {
					t.AppendRow(table.Row{k, pending[k]})
					total += pending[k]
				}
				t.AppendFooter(table.Row{"Total", total})
				t.Render()
				return nil
			})
		},
	}
}

func newSyncLoginCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Store a sync token issued by the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := c.Session.SignIn(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", c.Session.UserID(), c.Session.State())
				return nil
			})
		},
	}
}

func newSyncLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the sync token; local data is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := c.Session.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newDaemonCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run background sync and the hifz overdue sweep until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				return c.RunDaemon(ctx)
			})
		},
	}
}
