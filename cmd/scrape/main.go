package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pricescout/zap-scraper/internal/browser"
	"github.com/pricescout/zap-scraper/internal/config"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
	"github.com/pricescout/zap-scraper/internal/scraper"
)

// One-shot scraper: takes product names as arguments, runs the pipeline for
// each, and writes results as JSON to stdout. No database, no queue.
func main() {
	var (
		headless       = flag.Bool("headless", true, "Run browser in headless mode")
		referencePrice = flag.Float64("reference-price", 0, "Reference price for savings statistics")
		pretty         = flag.Bool("pretty", false, "Indent JSON output")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: scrape [flags] <product name> [<product name> ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	browserOpts := browser.OptionsFromConfig(cfg.Browser)
	browserOpts.Headless = *headless

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to initialize browser", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	table := nomenclature.Load(cfg.Scraper.NoiseTokens...)
	pipeline := scraper.NewPipeline(b, table, cfg.Scraper)

	encoder := json.NewEncoder(os.Stdout)
	if *pretty {
		encoder.SetIndent("", "  ")
	}

	exitCode := 0
	for _, name := range flag.Args() {
		if ctx.Err() != nil {
			break
		}

		result := pipeline.Process(ctx, name, *referencePrice)
		if err := encoder.Encode(result); err != nil {
			logger.Error("failed to encode result", "error", err)
			exitCode = 1
		}
		if result.Status != "success" {
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}
