// Command hunk serves a folder of static files over HTTP/1.1.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hunk/application/http/actor/server"
	"hunk/application/static"
	"hunk/config"
	"hunk/lib/workerpool"
	"hunk/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "hunk: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, source, err := loadConfig(args, os.Stderr)
	if err != nil {
		return err
	}

	root, err := cfg.ResolveRoot()
	if err != nil {
		return err
	}

	logger := newLogger(os.Stdout, cfg.Log, isatty.IsTerminal(os.Stdout.Fd()))
	if source != "" {
		logger.Debug("loaded config file", "path", source)
	}

	pool, err := workerpool.New(cfg.Server.Workers)
	if err != nil {
		return errors.Wrap(err, "creating worker pool")
	}

	opts := cfg.Options(root)
	if cfg.Log.Requests {
		opts.OnRequest = static.LogTo(logger.With("component", "access"))
	}

	clk := clock.New()
	handler, err := static.NewHandler(opts, pool, clk, logger)
	if err != nil {
		_ = pool.Close()
		return errors.Wrap(err, "creating handler")
	}

	listener, err := tcp.Listen(cfg.Addr())
	if err != nil {
		_ = pool.Close()
		return err
	}

	srv := server.New(listener, logger, clk, handler.Handle, cfg.ServerOptions())
	srv.Start()

	logger.Info("serving",
		"addr", listener.Addr().String(),
		"root", root,
		"browse", opts.Browse,
		"gzip", opts.Gzip != nil,
		"cache", opts.Cache != nil,
		"cors", opts.Cors != nil,
		"workers", pool.Size(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")

	// The server must stop before the pool, since handlers submit to it.
	if err := srv.Close(); err != nil {
		logger.Error("closing server", "error", err)
	}

	var g errgroup.Group
	g.Go(func() error { return errors.Wrap(listener.Close(), "closing listener") })
	g.Go(func() error { return errors.Wrap(pool.Close(), "closing worker pool") })
	return g.Wait()
}

// newLogger picks a text handler for terminals and JSON otherwise,
// unless the format is set explicitly.
func newLogger(w io.Writer, cfg config.LogConfig, terminal bool) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	format := cfg.Format
	if format == "" {
		format = "json"
		if terminal {
			format = "text"
		}
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
