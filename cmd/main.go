package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/tripweaver/tripweaver-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + a.Cfg.Port
		a.Log.Info("Server listening", "addr", addr)
		return a.Run(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error("Server exited", "error", err)
	}
}
