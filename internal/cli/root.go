// Package cli implements the myquran command line client on top of the
// local store. Every command opens the store, does its work and closes it,
// so commands never share state except through the database file.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/myquran/internal/app"
	"github.com/heartmarshall/myquran/internal/config"
)

// Output formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// OpenFunc opens the client application. verbose raises logging to the
// configured level instead of warnings only.
type OpenFunc func(ctx context.Context, verbose bool) (*app.Client, error)

// Options configure the command tree.
type Options struct {
	// Open defaults to loading config from the environment.
	Open OpenFunc
}

type env struct {
	open    OpenFunc
	format  string
	verbose bool
}

// NewRootCmd builds the myquran command tree.
func NewRootCmd(opts Options) *cobra.Command {
	e := &env{open: opts.Open}
	if e.open == nil {
		e.open = OpenFromConfig
	}

	root := &cobra.Command{
		Use:           "myquran",
		Short:         "Offline-first Quran reading, hifz and prayer companion",
		Long:          "myquran keeps bookmarks, reading progress, memorization reviews and the prayer ledger on this device and syncs them when a server is configured.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch e.format {
			case FormatTable, FormatJSON:
				return nil
			default:
				return fmt.Errorf("invalid output format: %s (valid values: table, json)", e.format)
			}
		},
	}

	root.PersistentFlags().StringVarP(&e.format, "output", "o", FormatTable, "Output format: table or json")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	root.AddCommand(
		newBookmarkCmd(e),
		newCollectionCmd(e),
		newReadCmd(e),
		newPrayerCmd(e),
		newHifzCmd(e),
		newSettingsCmd(e),
		newSyncCmd(e),
		newDaemonCmd(e),
		newVersionCmd(),
	)

	return root
}

// OpenFromConfig loads configuration from the environment and opens the client.
func OpenFromConfig(ctx context.Context, verbose bool) (*app.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !verbose {
		cfg.Log.Level = "warn"
	}
	logger := app.NewLogger(cfg.Log)
	return app.OpenClient(ctx, *cfg, logger)
}

// withClient opens the client for the duration of fn.
func (e *env) withClient(cmd *cobra.Command, fn func(ctx context.Context, c *app.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := e.open(ctx, e.verbose)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	return fn(ctx, c)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion())
		},
	}
}
