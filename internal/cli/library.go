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
	"github.com/heartmarshall/myquran/internal/service/library"
)

type bookmarkView struct {
	ID           string    `json:"id"`
	Verse        string    `json:"verse"`
	Label        string    `json:"label,omitempty"`
	Color        string    `json:"color,omitempty"`
	CollectionID string    `json:"collection_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Synced       bool      `json:"synced"`
}

func toBookmarkView(b domain.Bookmark) bookmarkView {
	return bookmarkView{
		ID:           b.ClientID,
		Verse:        b.VerseKey(),
		Label:        b.Label,
		Color:        b.Color,
		CollectionID: b.CollectionID,
		CreatedAt:    b.CreatedAt,
		Synced:       b.IsSynced() && !b.IsDirty,
	}
}

type collectionView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toCollectionView(c domain.Collection) collectionView {
	return collectionView{ID: c.ClientID, Name: c.Name, Color: c.Color, CreatedAt: c.CreatedAt}
}

// ---------------------------------------------------------------------------
// bookmark
// ---------------------------------------------------------------------------

func newBookmarkCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bookmark",
		Aliases: []string{"bm"},
		Short:   "Manage ayah bookmarks",
	}
	cmd.AddCommand(
		newBookmarkAddCmd(e),
		newBookmarkUpdateCmd(e),
		newBookmarkRemoveCmd(e),
		newBookmarkToggleCmd(e),
		newBookmarkListCmd(e),
	)
	return cmd
}

func newBookmarkAddCmd(e *env) *cobra.Command {
	var label, color, collection string

	cmd := &cobra.Command{
		Use:   "add <surah:ayah>",
		Short: "Bookmark an ayah",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surah, ayah, err := domain.ParseVerseKey(args[0])
			if err != nil {
				return err
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				b, err := c.Library.AddBookmark(ctx, library.AddBookmarkInput{
					SurahID:      surah,
					AyahNumber:   ayah,
					Label:        label,
					Color:        color,
					CollectionID: collection,
				})
				if err != nil {
					return err
				}
				return e.printBookmarks(cmd.OutOrStdout(), c, []domain.Bookmark{b})
			})
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Bookmark label")
	cmd.Flags().StringVar(&color, "color", "", "Bookmark color")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Collection id to file the bookmark under")

	return cmd
}

func newBookmarkUpdateCmd(e *env) *cobra.Command {
	var label, color, collection string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a bookmark's label, color or collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := library.UpdateBookmarkInput{ClientID: args[0]}
			if cmd.Flags().Changed("label") {
				input.Label = &label
			}
			if cmd.Flags().Changed("color") {
				input.Color = &color
			}
			if cmd.Flags().Changed("collection") {
				input.CollectionID = &collection
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				b, found, err := c.Library.UpdateBookmark(ctx, input)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("bookmark %s: %w", args[0], domain.ErrNotFound)
				}
				return e.printBookmarks(cmd.OutOrStdout(), c, []domain.Bookmark{b})
			})
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "New label (empty clears it)")
	cmd.Flags().StringVar(&color, "color", "", "New color (empty clears it)")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Move to collection id (empty removes it from its collection)")

	return cmd
}

func newBookmarkRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a bookmark",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				removed, err := c.Library.RemoveBookmark(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("bookmark %s: %w", args[0], domain.ErrNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newBookmarkToggleCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <surah:ayah>",
		Short: "Bookmark an ayah, or remove its bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surah, ayah, err := domain.ParseVerseKey(args[0])
			if err != nil {
				return err
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				on, err := c.Library.ToggleBookmark(ctx, surah, ayah)
				if err != nil {
					return err
				}
				if e.format == FormatJSON {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"verse": domain.VerseKey(surah, ayah), "bookmarked": on})
				}
				state := "removed"
				if on {
					state = "bookmarked"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", domain.VerseKey(surah, ayah), state)
				return nil
			})
		},
	}
}

func newBookmarkListCmd(e *env) *cobra.Command {
	var (
		surah      int
		collection string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bookmarks, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if surah != 0 && collection != "" {
				return fmt.Errorf("--surah and --collection are mutually exclusive")
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				var (
					list []domain.Bookmark
					err  error
				)
				switch {
				case surah != 0:
					list, err = c.Library.ListSurahBookmarks(ctx, surah)
				case collection != "":
					list, err = c.Library.ListCollectionBookmarks(ctx, collection)
				default:
					list, err = c.Library.ListBookmarks(ctx)
				}
				if err != nil {
					return err
				}
				return e.printBookmarks(cmd.OutOrStdout(), c, list)
			})
		},
	}

	cmd.Flags().IntVarP(&surah, "surah", "s", 0, "Only bookmarks in this surah, in ayah order")
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "Only bookmarks in this collection")

	return cmd
}

func (e *env) printBookmarks(w io.Writer, c *app.Client, list []domain.Bookmark) error {
	views := make([]bookmarkView, len(list))
	for i, b := range list {
		views[i] = toBookmarkView(b)
	}
	if e.format == FormatJSON {
		return writeJSON(w, views)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Verse", "Label", "Color", "Collection", "Created", "Synced"})
	for _, v := range views {
		t.AppendRow(table.Row{
			v.ID,
			v.Verse,
			truncate(v.Label, labelWidth),
			dash(v.Color),
			dash(v.CollectionID),
			formatTime(v.CreatedAt, c.Clock.Location()),
			v.Synced,
		})
	}
	t.Render()
	return nil
}

// ---------------------------------------------------------------------------
// collection
// ---------------------------------------------------------------------------

func newCollectionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Manage bookmark collections",
	}
	cmd.AddCommand(
		newCollectionCreateCmd(e),
		newCollectionRenameCmd(e),
		newCollectionRemoveCmd(e),
		newCollectionListCmd(e),
	)
	return cmd
}

func newCollectionCreateCmd(e *env) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				col, err := c.Library.CreateCollection(ctx, library.CreateCollectionInput{Name: args[0], Color: color})
				if err != nil {
					return err
				}
				return e.printCollections(cmd.OutOrStdout(), c, []domain.Collection{col})
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "Collection color")

	return cmd
}

func newCollectionRenameCmd(e *env) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := library.RenameCollectionInput{ClientID: args[0], Name: args[1]}
			if cmd.Flags().Changed("color") {
				input.Color = &color
			}
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				col, err := c.Library.RenameCollection(ctx, input)
				if err != nil {
					return err
				}
				return e.printCollections(cmd.OutOrStdout(), c, []domain.Collection{col})
			})
		},
	}

	cmd.Flags().StringVar(&color, "color", "", "New color")

	return cmd
}

func newCollectionRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a collection and the bookmarks filed under it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				removed, n, err := c.Library.DeleteCollection(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("collection %s: %w", args[0], domain.ErrNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s and %d bookmark(s)\n", args[0], n)
				return nil
			})
		},
	}
}

func newCollectionListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List collections by name",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				list, err := c.Library.ListCollections(ctx)
				if err != nil {
					return err
				}
				return e.printCollections(cmd.OutOrStdout(), c, list)
			})
		},
	}
}

func (e *env) printCollections(w io.Writer, c *app.Client, list []domain.Collection) error {
	views := make([]collectionView, len(list))
	for i, col := range list {
		views[i] = toCollectionView(col)
	}
	if e.format == FormatJSON {
		return writeJSON(w, views)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Color", "Created"})
	for _, v := range views {
		t.AppendRow(table.Row{v.ID, truncate(v.Name, labelWidth), dash(v.Color), formatTime(v.CreatedAt, c.Clock.Location())})
	}
	t.Render()
	return nil
}
