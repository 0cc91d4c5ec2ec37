package envelope

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table renders every field of resp as a two-column table for debug output.
func Table(resp Response) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 80},
	})

	dateTime := resp.DateTime
	if local := resp.LocalTime(); !local.IsZero() {
		dateTime += " (" + local.Format(time.RFC1123) + ")"
	}

	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRows([]table.Row{
		{"type", resp.Type},
		{"id", resp.ID},
		{"request id", resp.RequestID},
		{"session id", resp.SessionID},
		{"date-time", dateTime},
		{"event", resp.Event},
		{"code", resp.Code},
		{"content", resp.ContentText()},
	})
	for _, key := range slices.Sorted(maps.Keys(resp.Extra)) {
		tw.AppendRow(table.Row{key, strings.TrimSpace(string(resp.Extra[key]))})
	}
	return tw.Render()
}
