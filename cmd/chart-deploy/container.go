package main

import (
	"context"
	"fmt"
	"log/slog"

	helmexec "github.com/nathantilsley/chart-deploy/internal/deploy/adapters/helm_exec"
	manifestcfg "github.com/nathantilsley/chart-deploy/internal/deploy/adapters/manifest_cfg"
	plandiff "github.com/nathantilsley/chart-deploy/internal/deploy/adapters/plan_diff"
	"github.com/nathantilsley/chart-deploy/internal/deploy/app"
	"github.com/nathantilsley/chart-deploy/internal/deploy/ports"
	"github.com/nathantilsley/chart-deploy/internal/platform/config"
	"github.com/nathantilsley/chart-deploy/internal/platform/telemetry"
)

// Container holds all application dependencies.
type Container struct {
	Config        config.Config
	Logger        *slog.Logger
	DeployService ports.DeployUseCase
	Shutdown      func(ctx context.Context) error
}

// NewContainer builds and wires all dependencies.
func NewContainer(ctx context.Context, cfg config.Config, log *slog.Logger, dryRun bool) (*Container, error) {
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	// Adapters
	manifest := manifestcfg.New(cfg.ManifestPath)
	planStore := plandiff.New(cfg.PlanPath)
	executor, err := helmexec.New(cfg.HelmBin, log)
	if err != nil {
		return nil, fmt.Errorf("creating helm executor: %w", err)
	}

	// Domain service
	deployService, err := app.NewDeployService(
		manifest,
		executor,
		planStore,
		log,
		tel.Meter,
		tel.Tracer,
		cfg.HelmBin,
		cfg.Concurrency,
		dryRun,
	)
	if err != nil {
		return nil, fmt.Errorf("creating deploy service: %w", err)
	}

	return &Container{
		Config:        cfg,
		Logger:        log,
		DeployService: deployService,
		Shutdown:      tel.Shutdown,
	}, nil
}
