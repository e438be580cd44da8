package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobscout-engine/internal/httpapi"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the operator HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default app.listen from config)")
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine is already serving %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.runner.Register(a.sched, a.cfg); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}

	var cfgVal atomic.Value // stores config.Config
	cfgVal.Store(a.cfg)

	addr := listenAddr
	if addr == "" {
		addr = a.cfg.App.Listen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler: httpapi.NewHandler(httpapi.Deps{
			DB:        a.db,
			Scheduler: a.sched,
			Runner:    a.runner,
			Engine:    a.engine,
			Hub:       a.hub,
			CfgVal:    &cfgVal,
			CfgPath:   a.cfgPath,
			Gatherer:  a.registry,
			Log:       a.log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.sched.Start(ctx)
	a.log.Info("engine listening", zap.String("addr", "http://"+ln.Addr().String()), zap.String("version", version))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// in-flight harvests finish before the store closes
		a.sched.Stop()
		return err
	})
	return g.Wait()
}
