//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/chatguard/bootstrap"
)

// watchVisibility publishes a visibility event for every SIGUSR1 until ctx
// is done.
func watchVisibility(ctx context.Context, bus *bootstrap.EventBus) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			bus.PublishVisibility(ctx, true)
		}
	}
}
