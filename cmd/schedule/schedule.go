// Package schedule implements the schedule command group for queueing,
// listing and cancelling future posts.
package schedule

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/liharvest/cmd/common"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/scheduler"
	"github.com/jonesrussell/liharvest/internal/session"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

// Command returns the schedule command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage posts queued for future publication",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(addCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(cancelCommand())
	cmd.AddCommand(runCommand())

	return cmd
}

func addCommand() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Queue a post for future publication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at value (want RFC3339, e.g. 2026-09-02T09:00:00Z): %w", err)
			}

			deps, err := cmdcommon.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			post, err := deps.Store.AddScheduled(cmd.Context(), models.ScheduledPost{
				Content:     args[0],
				ScheduledAt: when,
			})
			if err != nil {
				return err
			}
			deps.Logger.Info("post scheduled", "id", post.ID, "at", post.ScheduledAt)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "publication time, RFC3339")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queued posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			posts, err := deps.Store.ListScheduled(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Scheduled At", "Status", "Content", "Last Error"})
			for i := range posts {
				p := &posts[i]
				t.AppendRow(table.Row{
					p.ID,
					p.ScheduledAt.Format(time.RFC3339),
					p.Status,
					truncate(p.Content, 40),
					p.LastError,
				})
			}
			t.Render()
			return nil
		},
	}
}

func cancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [id]",
		Short: "Remove a queued post before it publishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			if err = deps.Store.CancelScheduled(cmd.Context(), args[0]); err != nil {
				return err
			}
			deps.Logger.Info("scheduled post cancelled", "id", args[0])
			return nil
		},
	}
}

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the publication loop until interrupted",
		Long: `Sweeps the queue every minute and publishes every post whose time has
passed, including posts missed while the process was down.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := cmdcommon.Build()
			if err != nil {
				return err
			}
			defer deps.Close()

			sess, err := deps.Session()
			if err != nil {
				return err
			}

			client := voyager.NewClient(
				voyager.WithBaseURL(deps.Config.Voyager.BaseURL),
				voyager.WithCookieHeader(deps.Config.Session.Cookies),
				voyager.WithCallDelay(deps.Config.Voyager.CallDelay),
				voyager.WithLogger(deps.Logger))

			sched := scheduler.New(deps.Store, client,
				func() *session.Session { return sess },
				scheduler.WithLogger(deps.Logger))

			if err = sched.Start(cmd.Context()); err != nil {
				return err
			}
			defer sched.Stop()

			deps.Logger.Info("publication loop running")
			<-cmd.Context().Done()
			return nil
		},
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
