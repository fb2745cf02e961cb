//go:build !unix

package main

import (
	"context"

	"github.com/jonwraymond/chatguard/bootstrap"
)

func watchVisibility(ctx context.Context, _ *bootstrap.EventBus) {
	<-ctx.Done()
}
