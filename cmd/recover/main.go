// Command recover walks a console user through the forgot-password flow on a
// terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	goRecovery "github.com/MrEthical07/goRecovery"
	"github.com/MrEthical07/goRecovery/internal/console"
)

const envPrefix = "RECOVERY_"

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file; RECOVERY_* environment variables override it")
		baseURL    = flag.String("base-url", "", "backend base URL, overrides config")
		generate   = flag.Int("generate", 0, "print a generated password of this length and exit")
		metrics    = flag.Bool("metrics", false, "print flow metrics in Prometheus text format to stderr on exit")
	)
	flag.Parse()

	if *generate != 0 {
		pw, err := goRecovery.GeneratePassword(*generate)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Println(pw)
		return
	}

	cfg := goRecovery.DefaultConfig()
	if err := console.Load(*configPath, envPrefix, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *baseURL != "" {
		cfg.API.BaseURL = *baseURL
	}

	logger, _ := console.NewLogger(cfg.Log.Level, os.Stderr)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsOut io.Writer
	if *metrics {
		metricsOut = os.Stderr
	}

	if err := run(ctx, cfg, logger, os.Stdin, os.Stdout, metricsOut); err != nil {
		logger.Error("recovery aborted", zap.Error(err))
		os.Exit(1)
	}
}
