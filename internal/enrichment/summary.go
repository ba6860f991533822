package enrichment

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lepinkainen/gameaugment/internal/catalog"
)

// Summary renders the end-of-run table: record counts followed by one row
// per attribute.
func Summary(t *Tally) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Attribute", "Filled", "Still missing"})

	for _, attr := range catalog.Attributes() {
		tw.AppendRow(table.Row{string(attr), strconv.Itoa(t.Found(attr)), strconv.Itoa(t.NotFound(attr))})
	}

	tw.AppendFooter(table.Row{
		"records " + strconv.Itoa(t.Records()),
		"cached " + strconv.Itoa(t.Count(OutcomeCacheHit)),
		"fetched " + strconv.Itoa(t.Count(OutcomeCacheMiss)) + ", errors " + strconv.Itoa(t.Count(OutcomeError)),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
