// Package main is the entry point for the storefront console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/storefront/internal/app"
	"github.com/dshills/storefront/internal/config"
	"github.com/dshills/storefront/internal/console"
)

// Build information (set via ldflags during build).
var (
	commit = "unknown"
	date   = "unknown"
)

type flags struct {
	configPath  string
	apiOrigin   string
	logLevel    string
	strict      bool
	metricsAddr string
	showVersion bool
}

func main() {
	os.Exit(run())
}

func run() int {
	f := parseFlags()

	if f.showVersion {
		fmt.Printf("storefront %s\n", app.BuildInfo())
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	}

	source := config.LoadOptions{
		Path:      f.configPath,
		Overrides: overrides(f),
	}
	cfg, err := config.Load(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}

	application, err := app.New(app.Options{
		Config:       cfg,
		ConfigSource: source,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ui, err := console.New(console.Options{
		In:      os.Stdin,
		Out:     os.Stdout,
		Emitter: application.Emitter("console"),
		Bus:     application.Bus(),
		Source:  "console",
		Prompt:  term.IsTerminal(int(os.Stdin.Fd())),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start console: %v\n", err)
		return 1
	}
	defer ui.Close()

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := ui.Run(ctx); err != nil {
			application.Logger().Error("reading input: %v", err)
		}
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&f.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&f.apiOrigin, "api-origin", "", "Shop API origin, e.g. https://shop.example")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&f.strict, "strict", false, "Panic on programmer errors")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.BoolVar(&f.showVersion, "version", false, "Show version information")
	flag.BoolVar(&f.showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "storefront - console storefront for the shop API\n\n")
		fmt.Fprintf(os.Stderr, "Usage: storefront [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables prefixed with %s override the config file;\n", config.EnvPrefix)
		fmt.Fprintf(os.Stderr, "flags override both.\n")
	}

	flag.Parse()
	return f
}

// overrides returns the settings given explicitly on the command line.
func overrides(f flags) map[string]any {
	set := make(map[string]any)
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "api-origin":
			set["api.origin"] = f.apiOrigin
		case "log-level":
			set["logging.level"] = f.logLevel
		case "strict":
			set["strict"] = f.strict
		case "metrics-addr":
			set["metrics.addr"] = f.metricsAddr
		}
	})
	return set
}
