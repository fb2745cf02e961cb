package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/chatguard/bootstrap"
	"github.com/jonwraymond/chatguard/chat"
	"github.com/jonwraymond/chatguard/observe"
)

var (
	flagElements       []string
	flagReachability   bool
	flagStatusAddr     string
	flagShutdownWindow time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor the backend and bring up the social feature",
	Long: `Start the health monitor and the social feature bootstrap side by
side, and serve their state on the status server when status.addr is set.

SIGUSR1 signals the client becoming visible and refreshes a ready feature.
The command stops on SIGINT or SIGTERM.`,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.StringSliceVar(&flagElements, "elements",
		[]string{chat.ElementFriendsList, chat.ElementFriendRequests},
		"element ids present in the client document")
	flags.BoolVar(&flagReachability, "require-reachable", false, "gate the controller on a healthy backend")
	flags.StringVar(&flagStatusAddr, "status-addr", "", "status server listen address (overrides status.addr)")
	flags.DurationVar(&flagShutdownWindow, "shutdown-timeout", 5*time.Second, "graceful shutdown timeout of the status server")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := app.Logger
	monitor := app.newMonitor()
	doc := chat.NewDocument(flagElements...)

	var reach bootstrap.Reachability
	if flagReachability {
		reach = monitor
	}
	orch := app.newOrchestrator(doc, reach)
	defer orch.Close()
	orch.Attach(app.Bus)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		monitor.StartPeriodicCheck(gctx)
		<-gctx.Done()
		monitor.Stop()
		return nil
	})

	g.Go(func() error {
		orch.StartAuthWatch(gctx)
		if _, err := orch.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(gctx, "social feature unavailable; waiting for a recovery trigger",
				observe.Field{Key: "error", Value: err},
			)
		}
		return nil
	})

	g.Go(func() error {
		watchVisibility(gctx, app.Bus)
		return nil
	})

	addr := cfg.Status.Addr
	if flagStatusAddr != "" {
		addr = flagStatusAddr
	}
	if addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           newStatusRouter(monitor, chat.Feature, orch, cfg.Telemetry.MetricsExporter == "prometheus"),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info(gctx, "status server listening", observe.Field{Key: "addr", Value: addr})
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), flagShutdownWindow)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	err := g.Wait()
	log.Info(context.Background(), "chatguard stopped")
	return err
}
