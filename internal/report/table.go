package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apiarycd/glroster/internal/actions"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 120,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleLight),
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// WriteTable renders one line per row followed by the totals.
func WriteTable(w io.Writer, summary actions.Summary) {
	table := newTable([]string{"Row", "Label", "Target", "Status", "Detail"}, w)

	for _, r := range summary.Results {
		_ = table.Append([]string{
			strconv.Itoa(r.Row),
			r.Label,
			r.Target,
			string(r.Status),
			r.Detail,
		})
	}

	_ = table.Render()

	_, _ = fmt.Fprintf(w, "%s: %d ok, %d skipped, %d failed in %s\n",
		summary.Action,
		summary.Count(actions.StatusOK),
		summary.Count(actions.StatusSkipped),
		summary.Count(actions.StatusFailed),
		summary.Duration().Round(durationPrecision),
	)
}
