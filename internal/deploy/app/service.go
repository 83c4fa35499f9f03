// Package app orchestrates the release operations: it resolves the declared
// configuration into per-chart and per-release snapshots, builds helm
// invocations, and drives them through the executor port.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nathantilsley/chart-deploy/internal/deploy/domain"
	"github.com/nathantilsley/chart-deploy/internal/deploy/ports"
)

// DeployService implements ports.DeployUseCase.
type DeployService struct {
	config      ports.ConfigPort
	executor    ports.ExecutorPort
	planStore   ports.PlanStorePort
	logger      *slog.Logger
	tracer      trace.Tracer
	helmBin     string
	concurrency int
	dryRun      bool

	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewDeployService creates a DeployService wired with all driven ports.
// concurrency bounds how many helm processes run at once; values below one
// collapse to sequential execution.
func NewDeployService(
	cfg ports.ConfigPort,
	exec ports.ExecutorPort,
	planStore ports.PlanStorePort,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
	helmBin string,
	concurrency int,
	dryRun bool,
) (*DeployService, error) {
	invocations, err := meter.Int64Counter("chart_deploy.helm.invocations",
		metric.WithDescription("Number of helm invocations by subcommand and outcome"))
	if err != nil {
		return nil, fmt.Errorf("creating invocation counter: %w", err)
	}
	duration, err := meter.Float64Histogram("chart_deploy.helm.duration",
		metric.WithDescription("Wall time of helm invocations in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	return &DeployService{
		config:      cfg,
		executor:    exec,
		planStore:   planStore,
		logger:      logger,
		tracer:      tracer,
		helmBin:     helmBin,
		concurrency: concurrency,
		dryRun:      dryRun,
		invocations: invocations,
		duration:    duration,
	}, nil
}

// Lint runs helm lint for every chart whose resolved lint config is enabled.
// Charts lint concurrently; resolution is pure so no state is shared.
func (s *DeployService) Lint(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "lint")
	defer span.End()

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	builder := domain.NewCommandBuilder(s.helmBin, cfg.BaseDir)
	settings := cfg.Global.Settings.Resolve()

	// Build every invocation before spawning any process so configuration
	// errors fail the whole operation without partial lint runs.
	type job struct {
		chart string
		inv   domain.Invocation
	}
	var jobs []job

	for _, chart := range cfg.Charts {
		lint := domain.ResolveLint(cfg.Global.Lint, chart.Lint)
		if !lint.Enabled {
			s.logger.Info("lint disabled, skipping chart", "chart", chart.Name)
			continue
		}

		inv, err := builder.Lint(chart, lint, settings)
		if err != nil {
			return fmt.Errorf("building lint command: %w", err)
		}
		jobs = append(jobs, job{chart: chart.Name, inv: inv})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			if err := s.run(ctx, j.inv); err != nil {
				return fmt.Errorf("linting chart %s: %w", j.chart, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Deploy installs or upgrades every release whose tags match the target's
// combined selector.
func (s *DeployService) Deploy(ctx context.Context, target string) error {
	ctx, span := s.tracer.Start(ctx, "deploy")
	defer span.End()

	return s.forEachSelected(ctx, target, func(builder domain.CommandBuilder, rr domain.ResolvedRelease) (domain.Invocation, error) {
		return builder.InstallOrUpgrade(rr)
	})
}

// Uninstall removes every release whose tags match the target's combined
// selector.
func (s *DeployService) Uninstall(ctx context.Context, target string) error {
	ctx, span := s.tracer.Start(ctx, "uninstall")
	defer span.End()

	return s.forEachSelected(ctx, target, func(builder domain.CommandBuilder, rr domain.ResolvedRelease) (domain.Invocation, error) {
		return builder.Uninstall(rr)
	})
}

// Plan renders the deploy invocations for the named target, or for every
// target when the name is empty, into a deterministic textual plan. With
// check set it compares against the stored plan and fails on drift; without
// it the plan is written for the next check.
func (s *DeployService) Plan(ctx context.Context, target string, check bool) error {
	ctx, span := s.tracer.Start(ctx, "plan")
	defer span.End()

	cfg, err := s.config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if target != "" {
		if _, ok := cfg.TargetByName(target); !ok {
			return fmt.Errorf("unknown target %q", target)
		}
	}

	current, err := s.renderPlan(cfg, target)
	if err != nil {
		return err
	}

	if !check {
		if err := s.planStore.Write(current); err != nil {
			return fmt.Errorf("writing plan: %w", err)
		}
		s.logger.Info("plan written", "bytes", len(current))
		return nil
	}

	stored, err := s.planStore.Read()
	if err != nil {
		return fmt.Errorf("reading stored plan: %w", err)
	}

	if diff := s.planStore.Diff(stored, current); diff != "" {
		s.logger.Error("plan drift detected", "diff", diff)
		return fmt.Errorf("plan drift detected:\n%s", diff)
	}

	s.logger.Info("plan is up to date")
	return nil
}

// forEachSelected resolves the target, filters releases through its tag
// selector, builds one invocation per selected release, and executes them
// with bounded concurrency. All invocations build before any process spawns
// so configuration errors fail the whole operation fast.
func (s *DeployService) forEachSelected(
	ctx context.Context,
	target string,
	build func(domain.CommandBuilder, domain.ResolvedRelease) (domain.Invocation, error),
) error {
	cfg, err := s.config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	t, ok := cfg.TargetByName(target)
	if !ok {
		return fmt.Errorf("unknown target %q", target)
	}

	builder := domain.NewCommandBuilder(s.helmBin, cfg.BaseDir)
	resolved := domain.ResolveTarget(cfg.Global, t)

	type job struct {
		release string
		inv     domain.Invocation
	}
	var jobs []job

	for _, rel := range cfg.Releases {
		if !resolved.ShouldInclude(rel) {
			s.logger.Info("release not selected by target",
				"release", rel.Name, "target", target, "tags", rel.Tags)
			continue
		}

		inv, err := build(builder, domain.ResolveRelease(cfg, resolved, rel))
		if err != nil {
			return fmt.Errorf("building command for release %s: %w", rel.Name, err)
		}
		jobs = append(jobs, job{release: rel.Name, inv: inv})
	}

	if len(jobs) == 0 {
		s.logger.Info("no releases selected", "target", target)
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, j := range jobs {
		g.Go(func() error {
			if err := s.run(ctx, j.inv); err != nil {
				return fmt.Errorf("release %s: %w", j.release, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// renderPlan builds every deploy invocation for the selected targets and
// renders them as sorted text, one invocation per line.
func (s *DeployService) renderPlan(cfg domain.Config, target string) ([]byte, error) {
	builder := domain.NewCommandBuilder(s.helmBin, cfg.BaseDir)

	var lines []string
	for _, t := range cfg.Targets {
		if target != "" && t.Name != target {
			continue
		}
		resolved := domain.ResolveTarget(cfg.Global, t)
		for _, rel := range cfg.Releases {
			if !resolved.ShouldInclude(rel) {
				continue
			}
			inv, err := builder.InstallOrUpgrade(domain.ResolveRelease(cfg, resolved, rel))
			if err != nil {
				return nil, fmt.Errorf("building plan for release %s: %w", rel.Name, err)
			}
			lines = append(lines, fmt.Sprintf("%s/%s: %s", t.Name, rel.Name, inv.String()))
		}
	}

	sort.Strings(lines)
	if len(lines) == 0 {
		return []byte{}, nil
	}
	return []byte(strings.Join(lines, "\n") + "\n"), nil
}

// run executes one invocation through the executor port, recording metrics
// and a span. In dry-run mode it only logs the command.
func (s *DeployService) run(ctx context.Context, inv domain.Invocation) error {
	subcommand := ""
	if len(inv.Args) > 0 {
		subcommand = inv.Args[0]
	}

	if s.dryRun {
		s.logger.Info("dry-run, not executing", "command", inv.String())
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "helm "+subcommand)
	defer span.End()

	s.logger.Info("executing helm", "command", inv.String())
	start := time.Now()
	result, err := s.executor.Run(ctx, inv)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("subcommand", subcommand),
		attribute.String("outcome", outcome),
	)
	s.invocations.Add(ctx, 1, attrs)
	s.duration.Record(ctx, elapsed.Seconds(), attrs)

	if err != nil {
		s.logger.Error("helm failed",
			"command", inv.String(),
			"duration", elapsed,
			"error", err,
		)
		return err
	}

	s.logger.Info("helm completed",
		"subcommand", subcommand,
		"duration", elapsed,
		"stdout_bytes", len(result.Stdout),
	)
	return nil
}
