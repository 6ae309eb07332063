// Package harvest implements the harvest command, which runs one full
// extraction pass against the authenticated session.
package harvest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/liharvest/cmd/common"
	"github.com/jonesrussell/liharvest/internal/extract"
	"github.com/jonesrussell/liharvest/internal/fetch"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/relay"
	"github.com/jonesrussell/liharvest/internal/statspage"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

// Command returns the harvest command.
func Command() *cobra.Command {
	var pageURL string

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Run one extraction pass over the session's posts",
		Long: `Fetches posts through the private REST surface, loads the given page for
embedded payloads and rendered text, reconciles the three observations and
stores the result. Analytics pages instead update the counters of the one
post they describe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), pageURL)
		},
	}

	cmd.Flags().StringVar(&pageURL, "url",
		"https://www.linkedin.com/in/me/recent-activity/all/",
		"page to load for embedded and rendered extraction")

	return cmd
}

func run(ctx context.Context, pageURL string) error {
	deps, err := cmdcommon.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	sess, err := deps.Session()
	if err != nil {
		return err
	}

	fetcher := fetch.New(deps.Config.Session.Cookies,
		fetch.WithPoliteDelay(deps.Config.Fetch.PoliteDelay),
		fetch.WithLogger(deps.Logger))

	doc, err := fetcher.Load(ctx, pageURL)
	if err != nil {
		deps.Logger.Warn("page load failed, continuing with API only", "url", pageURL, "error", err)
		doc = nil
	}

	pageText := ""
	if doc != nil {
		pageText = doc.Text()
	}
	if statspage.IsAnalyticsPage(pageURL, pageText) {
		return runStatsUpdate(ctx, deps, fetcher, doc, pageURL)
	}

	if doc != nil {
		sess.FillIdentity(doc, pageURL)
	}

	client := voyager.NewClient(
		voyager.WithBaseURL(deps.Config.Voyager.BaseURL),
		voyager.WithCookieHeader(deps.Config.Session.Cookies),
		voyager.WithCallDelay(deps.Config.Voyager.CallDelay),
		voyager.WithLogger(deps.Logger))

	var collector extract.Relay
	if deps.Config.Relay.URL != "" {
		collector = relay.New(deps.Config.Relay.URL, relay.WithLogger(deps.Logger))
	}

	runner := extract.NewRunner(client, deps.Store, collector, deps.Logger)
	records := runner.Run(ctx, sess, doc)

	renderRecords(records)
	return nil
}

func runStatsUpdate(ctx context.Context, deps *cmdcommon.Deps, fetcher *fetch.Fetcher, doc *goquery.Document, pageURL string) error {
	// First attempt reuses the already loaded document; the retry refetches.
	load := func(ctx context.Context) (*goquery.Document, error) {
		if doc != nil {
			d := doc
			doc = nil
			return d, nil
		}
		return fetcher.Load(ctx, pageURL)
	}
	update, err := statspage.ExtractWithRetry(ctx, load, pageURL, statspage.RetryDelay, time.Now())
	if err != nil {
		return err
	}
	if update == nil || update.ActivityID == "" {
		return fmt.Errorf("no analytics data found on %s", pageURL)
	}

	record, err := deps.Store.UpdateStatsByID(ctx, update.ActivityID, update.Stats)
	if err != nil {
		return err
	}
	deps.Logger.Info("post counters updated",
		"id", record.ID,
		"views", record.Stats.Views,
		"likes", record.Stats.Likes,
		"rate", update.EngagementRate)
	renderRecords([]models.PostRecord{record})
	return nil
}

func renderRecords(records []models.PostRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Content", "Likes", "Comments", "Shares", "Views", "Source"})

	for i := range records {
		r := &records[i]
		date := ""
		if r.CreatedAt != nil {
			date = r.CreatedAt.Format("2006-01-02")
		}
		t.AppendRow(table.Row{
			date,
			truncate(r.Content, 60),
			r.Stats.Likes,
			r.Stats.Comments,
			r.Stats.Shares,
			r.Stats.Views,
			r.Source,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d post(s)", len(records)), "", "", "", "", ""})
	t.Render()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
