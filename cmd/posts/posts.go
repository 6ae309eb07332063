// Package posts implements the posts command for browsing harvested posts.
package posts

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/liharvest/cmd/common"
)

// Command returns the posts command.
func Command() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List harvested posts with their engagement counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many posts (0 for all)")

	return cmd
}

func run(cmd *cobra.Command, limit int) error {
	deps, err := cmdcommon.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	records, err := deps.Store.GetAll(cmd.Context())
	if err != nil {
		return err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "ID", "Content", "Likes", "Comments", "Shares", "Views", "Saves"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Content", WidthMax: 50},
		{Name: "Likes", Align: text.AlignRight},
		{Name: "Comments", Align: text.AlignRight},
		{Name: "Shares", Align: text.AlignRight},
		{Name: "Views", Align: text.AlignRight},
		{Name: "Saves", Align: text.AlignRight},
	})

	for i := range records {
		r := &records[i]
		date := "—"
		if r.CreatedAt != nil {
			date = r.CreatedAt.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			date,
			shortID(r.ID),
			r.Content,
			r.Stats.Likes,
			r.Stats.Comments,
			r.Stats.Shares,
			r.Stats.Views,
			r.Stats.Saves,
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d post(s)", len(records)), "", "", "", "", ""})
	t.Render()
	return nil
}

// shortID keeps the tail of a URN, the only part that varies.
func shortID(id string) string {
	const keep = 12
	if len(id) <= keep {
		return id
	}
	return "…" + id[len(id)-keep:]
}
