package main

import (
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/reelindex/catalog-trust/internal/registry"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show the source reliability table",
	Long: `Print the source reliability table in effect: each known source id
with its tier and weight. Sources absent from the table are treated as tier 3
with the default weight.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		type row struct {
			id    string
			entry registry.Entry
		}
		rows := make([]row, 0, reg.Len())
		reg.Each(func(id string, e registry.Entry) {
			rows = append(rows, row{id: id, entry: e})
		})
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].entry.Tier != rows[j].entry.Tier {
				return rows[i].entry.Tier < rows[j].entry.Tier
			}
			if rows[i].entry.Weight != rows[j].entry.Weight {
				return rows[i].entry.Weight > rows[j].entry.Weight
			}
			return rows[i].id < rows[j].id
		})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Source", "Tier", "Weight"})
		for _, r := range rows {
			t.AppendRow(table.Row{r.id, r.entry.Tier, r.entry.Weight})
		}
		t.AppendFooter(table.Row{"unknown sources", registry.DefaultEntry.Tier, registry.DefaultEntry.Weight})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
		})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
