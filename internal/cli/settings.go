package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/myquran/internal/app"
)

func newSettingsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and change preferences",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Show all preferences merged over the defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
					vals, err := c.Settings.Get(ctx)
					if err != nil {
						return err
					}
					return e.printSettings(cmd.OutOrStdout(), vals)
				})
			},
		},
		&cobra.Command{
			Use:   "set <key=value>...",
			Short: "Change preferences; values are parsed as JSON when possible",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				patch, err := parsePatch(args)
				if err != nil {
					return err
				}
				return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
					vals, err := c.Settings.Update(ctx, patch)
					if err != nil {
						return err
					}
					return e.printSettings(cmd.OutOrStdout(), vals)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the defaults",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
					vals, err := c.Settings.Reset(ctx)
					if err != nil {
						return err
					}
					return e.printSettings(cmd.OutOrStdout(), vals)
				})
			},
		},
	)
	return cmd
}

// parsePatch turns key=value pairs into a settings patch. 28 becomes a
// number, true a bool, and anything that is not valid JSON a string.
func parsePatch(args []string) (map[string]any, error) {
	patch := make(map[string]any, len(args))
	for _, a := range args {
		k, raw, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid setting %q: want key=value", a)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		patch[k] = v
	}
	return patch, nil
}

func (e *env) printSettings(w io.Writer, vals map[string]any) error {
	if e.format == FormatJSON {
		return writeJSON(w, vals)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, k := range slices.Sorted(maps.Keys(vals)) {
		t.AppendRow(table.Row{k, vals[k]})
	}
	t.Render()
	return nil
}
