// Package main provides the gifmaker command line tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"github.com/maauso/gifmaker/internal/bootstrap"
	"github.com/maauso/gifmaker/internal/config"
	"github.com/maauso/gifmaker/internal/gif"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one conversion and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "gifmaker: %v\n", err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "gifmaker: load config: %v\n", err)
		return 1
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", slog.String("error", err.Error()))
		return 1
	}

	req := opts.request()
	if opts.Upload {
		if !deps.S3Enabled {
			fmt.Fprintln(stderr, "gifmaker: -upload requires S3_BUCKET and S3_REGION")
			return 2
		}
		req.PublishKey = "gifs/" + uuid.NewString() + "/" + filepath.Base(opts.Output)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ToolTimeout)
		defer cancel()
	}

	res, err := deps.Pipeline.Run(ctx, req)
	if err != nil {
		logger.Error("conversion failed",
			slog.String("stage", string(gif.FailedStage(err))),
			slog.String("error", err.Error()),
		)
		return 1
	}

	logger.Info("gif written",
		slog.String("output", res.Output),
		slog.Int("frames", len(res.Plan.Retained)),
		slog.Int("fps", res.Plan.OutputFPS),
		slog.Int("delay", res.Delay),
	)
	if res.URL != "" {
		fmt.Fprintln(stdout, res.URL)
	}
	return 0
}
