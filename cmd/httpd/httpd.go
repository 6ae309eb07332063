// Package httpd implements the httpd command, which serves the harvested
// data over HTTP and keeps the publication loop running alongside it.
package httpd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cmdcommon "github.com/jonesrussell/liharvest/cmd/common"
	"github.com/jonesrussell/liharvest/internal/api"
	"github.com/jonesrussell/liharvest/internal/scheduler"
	"github.com/jonesrussell/liharvest/internal/session"
	"github.com/jonesrussell/liharvest/internal/voyager"
)

// shutdownTimeout bounds the drain on interrupt.
const shutdownTimeout = 10 * time.Second

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Serve harvested posts, analytics and the schedule over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	deps, err := cmdcommon.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	if err = deps.Config.ValidateServer(); err != nil {
		return err
	}

	client := voyager.NewClient(
		voyager.WithBaseURL(deps.Config.Voyager.BaseURL),
		voyager.WithCookieHeader(deps.Config.Session.Cookies),
		voyager.WithCallDelay(deps.Config.Voyager.CallDelay),
		voyager.WithLogger(deps.Logger))

	// The publication loop runs only when session material is configured;
	// the read API works either way.
	sched := scheduler.New(deps.Store, client,
		func() *session.Session {
			sess, sessErr := deps.Session()
			if sessErr != nil {
				return nil
			}
			return sess
		},
		scheduler.WithLogger(deps.Logger))

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	if deps.Config.Session.Cookies != "" {
		if err = sched.Start(loopCtx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	server := api.NewServer(&deps.Config.Server, deps.Logger, api.Deps{
		Posts:     deps.Store,
		Schedule:  deps.Store,
		Publisher: sched,
		Analytics: deps.Store,
	})

	errC := make(chan error, 1)
	go func() {
		errC <- server.Start()
	}()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)

	select {
	case err = <-errC:
		return err
	case sig := <-sigC:
		deps.Logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}
