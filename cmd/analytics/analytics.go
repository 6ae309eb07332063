// Package analytics implements the analytics command, which snapshots
// account-level creator analytics.
package analytics

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/liharvest/cmd/common"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

// Command returns the analytics command.
func Command() *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Fetch and record account-level creator analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, fromStore)
		},
	}

	cmd.Flags().BoolVar(&fromStore, "stored", false, "show the last recorded snapshot instead of fetching")

	return cmd
}

func run(cmd *cobra.Command, fromStore bool) error {
	deps, err := cmdcommon.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	if fromStore {
		snapshot, storeErr := deps.Store.LatestSnapshot(cmd.Context())
		if storeErr != nil {
			return storeErr
		}
		render(snapshot.TotalImpressions, snapshot.TotalInteractions,
			snapshot.TotalFollowers, snapshot.Connections, snapshot.ProfileViews,
			snapshot.UniqueViewers, snapshot.NewFollowers, snapshot.FetchedAt)
		return nil
	}

	sess, err := deps.Session()
	if err != nil {
		return err
	}

	client := voyager.NewClient(
		voyager.WithBaseURL(deps.Config.Voyager.BaseURL),
		voyager.WithCookieHeader(deps.Config.Session.Cookies),
		voyager.WithCallDelay(deps.Config.Voyager.CallDelay),
		voyager.WithLogger(deps.Logger))

	snapshot := client.FetchCreatorAnalytics(cmd.Context(), sess)
	if snapshot == nil {
		deps.Logger.Warn("no analytics available for this session")
		return nil
	}

	if err = deps.Store.SaveSnapshot(cmd.Context(), *snapshot); err != nil {
		return err
	}
	render(snapshot.TotalImpressions, snapshot.TotalInteractions,
		snapshot.TotalFollowers, snapshot.Connections, snapshot.ProfileViews,
		snapshot.UniqueViewers, snapshot.NewFollowers, snapshot.FetchedAt)
	return nil
}

func render(impressions, interactions, followers, connections, profileViews, uniqueViewers, newFollowers int, fetchedAt time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Impressions", impressions},
		{"Interactions", interactions},
		{"Followers", followers},
		{"Connections", connections},
		{"Profile views", profileViews},
		{"Unique viewers", uniqueViewers},
		{"New followers", newFollowers},
		{"Fetched at", fetchedAt.Format(time.RFC3339)},
	})
	t.Render()
}
