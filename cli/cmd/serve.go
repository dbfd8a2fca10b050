package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/waystation/config"
	waylog "github.com/justapithecus/waystation/log"
	"github.com/justapithecus/waystation/worker"
)

// ListenFlag names the address the HTTP reverse-proxy entrypoint binds to.
var ListenFlag = &cli.StringFlag{
	Name:  "listen",
	Usage: "HTTP listen address",
	Value: ":8080",
}

// ServeCommand runs the waystation worker: loads a config file, builds
// its clusters, starts monitors/Zeroconf discovery/control-plane
// listener, and serves HTTP requests (SPEC_FULL.md §2 "cli" row: "serve";
// §5 "[ADD] Each worker process is `cmd/waystation serve`").
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the waystation worker",
		Flags:  []cli.Flag{ConfigFlag, ListenFlag},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := waylog.NewLoggerWithConfig("waystation", cfg.Log.LevelOrDefault(), cfg.Log.Format)

	w, err := worker.New(cfg, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer w.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpServer := &http.Server{Addr: c.String("listen"), Handler: w}
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Error("worker stopped with error", map[string]any{"error": err.Error()})
		}
	}()

	logger.Info("waystation serving", map[string]any{"listen": c.String("listen")})

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		return cli.Exit(fmt.Sprintf("http server: %v", err), 1)
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
