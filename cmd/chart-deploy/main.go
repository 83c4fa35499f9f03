// Package main provides the chart-deploy CLI for driving declarative helm
// releases.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nathantilsley/chart-deploy/internal/platform/config"
	"github.com/nathantilsley/chart-deploy/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		manifest = flag.String("manifest", "", "Path to the .chart-deploy.yaml manifest (overrides CHART_DEPLOY_MANIFEST)")
		dryRun   = flag.Bool("dry-run", false, "Build and log helm commands without executing them")
		check    = flag.Bool("check", false, "With plan: fail when the stored plan differs from the current one")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return fmt.Errorf("missing command")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *manifest != "" {
		cfg.ManifestPath = *manifest
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()

	// Build dependency container
	container, err := NewContainer(ctx, cfg, log, *dryRun)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}
	defer func() {
		if err := container.Shutdown(ctx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	command := args[0]
	target := ""
	if len(args) > 1 {
		target = args[1]
	}

	switch command {
	case "lint":
		return container.DeployService.Lint(ctx)
	case "deploy":
		if target == "" {
			return fmt.Errorf("deploy requires a target name")
		}
		return container.DeployService.Deploy(ctx, target)
	case "uninstall":
		if target == "" {
			return fmt.Errorf("uninstall requires a target name")
		}
		return container.DeployService.Uninstall(ctx, target)
	case "plan":
		return container.DeployService.Plan(ctx, target, *check)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: chart-deploy [flags] <command> [target]\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  lint                Lint every chart with lint enabled\n")
	fmt.Fprintf(os.Stderr, "  deploy <target>     Install or upgrade the releases selected by the target\n")
	fmt.Fprintf(os.Stderr, "  uninstall <target>  Uninstall the releases selected by the target\n")
	fmt.Fprintf(os.Stderr, "  plan [target]       Render the deploy plan; with -check, fail on drift\n")
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}
