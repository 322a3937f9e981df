package cli

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	labelWidth = 40
	timeLayout = "2006-01-02 15:04"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if width := terminalWidth(w); width > 0 {
		t.SetAllowedRowLength(width)
	}
	return t
}

// terminalWidth returns the width of w when it is a terminal, else 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to width terminal cells. Arabic and CJK labels are
// measured by display width, not bytes.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(timeLayout)
}

func formatTimePtr(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t, loc)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// keyValues renders a two-column property table.
func keyValues(w io.Writer, rows [][2]any) {
	t := newTable(w)
	for _, r := range rows {
		t.AppendRow(table.Row{r[0], r[1]})
	}
	t.Render()
}
