package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/nathantilsley/chart-deploy/internal/deploy/domain"
	"github.com/nathantilsley/chart-deploy/internal/deploy/ports"
	"github.com/nathantilsley/chart-deploy/internal/platform/logger"
)

// Mock adapters for testing

type mockConfig struct {
	cfg domain.Config
	err error
}

func (m *mockConfig) Load(_ context.Context) (domain.Config, error) {
	return m.cfg, m.err
}

type mockExecutor struct {
	mu       sync.Mutex
	commands []string
	failOn   string // fail any invocation whose rendered form contains this
}

func (m *mockExecutor) Run(_ context.Context, inv domain.Invocation) (ports.ExecResult, error) {
	m.mu.Lock()
	m.commands = append(m.commands, inv.String())
	m.mu.Unlock()

	if m.failOn != "" && strings.Contains(inv.String(), m.failOn) {
		return ports.ExecResult{}, &domain.ProcessError{
			Bin:      inv.Bin,
			Args:     inv.Args,
			ExitCode: 1,
			Stderr:   "Error: release failed",
		}
	}
	return ports.ExecResult{Stdout: []byte("ok\n")}, nil
}

func (m *mockExecutor) sorted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.commands...)
	sort.Strings(out)
	return out
}

type mockPlanStore struct {
	stored  []byte
	written []byte
	readErr error
}

func (m *mockPlanStore) Read() ([]byte, error) { return m.stored, m.readErr }

func (m *mockPlanStore) Write(plan []byte) error {
	m.written = append([]byte(nil), plan...)
	return nil
}

func (m *mockPlanStore) Diff(stored, current []byte) string {
	if string(stored) == string(current) {
		return ""
	}
	return "-" + string(stored) + "+" + string(current)
}

func newTestService(t *testing.T, cfg domain.Config, exec ports.ExecutorPort, store ports.PlanStorePort, dryRun bool) *DeployService {
	t.Helper()
	svc, err := NewDeployService(
		&mockConfig{cfg: cfg}, exec, store,
		logger.New("error"),
		noopmetric.NewMeterProvider().Meter("test"),
		nooptrace.NewTracerProvider().Tracer("test"),
		"helm", 2, dryRun,
	)
	if err != nil {
		t.Fatalf("NewDeployService: %v", err)
	}
	return svc
}

func boolPtr(b bool) *bool { return &b }

func testConfig() domain.Config {
	return domain.Config{
		BaseDir: "/work",
		Charts: []domain.Chart{
			{Name: "api", Path: "charts/api"},
			{Name: "worker", Path: "charts/worker", Lint: domain.LintOptions{Enabled: boolPtr(false)}},
		},
		Releases: []domain.Release{
			{Name: "api-prod", Chart: "api", Tags: []string{"prod"}},
			{Name: "worker-prod", Chart: "worker", Tags: []string{"prod", "batch"}},
			{Name: "api-staging", Chart: "api", Tags: []string{"staging"}},
		},
		Targets: []domain.Target{
			{Name: "prod", Selector: mustParse("prod")},
			{Name: "staging", Selector: mustParse("staging")},
		},
	}
}

func mustParse(expr string) domain.TagExpression {
	parsed, err := domain.ParseTagExpression(expr)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestService_LintSkipsDisabledCharts(t *testing.T) {
	exec := &mockExecutor{}
	svc := newTestService(t, testConfig(), exec, &mockPlanStore{}, false)

	if err := svc.Lint(context.Background()); err != nil {
		t.Fatalf("Lint failed: %v", err)
	}

	commands := exec.sorted()
	if len(commands) != 1 {
		t.Fatalf("expected 1 lint invocation, got %d: %v", len(commands), commands)
	}
	if !strings.Contains(commands[0], "lint /work/charts/api") {
		t.Errorf("unexpected lint command: %s", commands[0])
	}
}

func TestService_LintFailsFastOnBadChart(t *testing.T) {
	cfg := testConfig()
	cfg.Charts = append(cfg.Charts, domain.Chart{Name: "broken"})

	exec := &mockExecutor{}
	svc := newTestService(t, cfg, exec, &mockPlanStore{}, false)

	err := svc.Lint(context.Background())
	if err == nil {
		t.Fatal("expected a configuration error for the pathless chart")
	}
	var cerr *domain.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *domain.ConfigurationError, got %v", err)
	}
	if len(exec.sorted()) != 0 {
		t.Errorf("no process should spawn when any lint command fails to build, got %v", exec.sorted())
	}
}

func TestService_LintPropagatesFailure(t *testing.T) {
	exec := &mockExecutor{failOn: "charts/api"}
	svc := newTestService(t, testConfig(), exec, &mockPlanStore{}, false)

	err := svc.Lint(context.Background())
	if err == nil {
		t.Fatal("expected lint failure to propagate")
	}
	if !strings.Contains(err.Error(), "linting chart api") {
		t.Errorf("error should name the failing chart: %v", err)
	}
}

func TestService_DeploySelectedReleases(t *testing.T) {
	exec := &mockExecutor{}
	svc := newTestService(t, testConfig(), exec, &mockPlanStore{}, false)

	if err := svc.Deploy(context.Background(), "prod"); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	commands := exec.sorted()
	if len(commands) != 2 {
		t.Fatalf("expected 2 invocations for target prod, got %d: %v", len(commands), commands)
	}
	for _, cmd := range commands {
		if !strings.Contains(cmd, "upgrade --install") {
			t.Errorf("expected upgrade --install, got %s", cmd)
		}
		if strings.Contains(cmd, "api-staging") {
			t.Errorf("staging release should not deploy to prod: %s", cmd)
		}
	}
}

func TestService_DeployReplaceDrivesInstall(t *testing.T) {
	cfg := testConfig()
	cfg.Releases[0].Install = domain.InstallOptions{Replace: boolPtr(true)}

	exec := &mockExecutor{}
	svc := newTestService(t, cfg, exec, &mockPlanStore{}, false)

	if err := svc.Deploy(context.Background(), "prod"); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}

	var installs, upgrades int
	for _, cmd := range exec.sorted() {
		switch {
		case strings.Contains(cmd, "helm install"):
			installs++
			if !strings.Contains(cmd, "--replace") {
				t.Errorf("install path should carry --replace: %s", cmd)
			}
		case strings.Contains(cmd, "upgrade --install"):
			upgrades++
		}
	}
	if installs != 1 || upgrades != 1 {
		t.Errorf("expected 1 install and 1 upgrade, got %d and %d", installs, upgrades)
	}
}

func TestService_DeployUnknownTarget(t *testing.T) {
	exec := &mockExecutor{}
	svc := newTestService(t, testConfig(), exec, &mockPlanStore{}, false)

	err := svc.Deploy(context.Background(), "nowhere")
	if err == nil || !strings.Contains(err.Error(), `unknown target "nowhere"`) {
		t.Fatalf("expected unknown target error, got %v", err)
	}
	if len(exec.sorted()) != 0 {
		t.Error("no invocation should run for an unknown target")
	}
}

func TestService_DeployFailsFastOnBadRelease(t *testing.T) {
	cfg := testConfig()
	cfg.Releases = append(cfg.Releases, domain.Release{Name: "", Chart: "api", Tags: []string{"prod"}})

	exec := &mockExecutor{}
	svc := newTestService(t, cfg, exec, &mockPlanStore{}, false)

	err := svc.Deploy(context.Background(), "prod")
	if err == nil {
		t.Fatal("expected a configuration error")
	}
	if len(exec.sorted()) != 0 {
		t.Errorf("no process should spawn when command building fails, got %v", exec.sorted())
	}
}

func TestService_DeployDryRunExecutesNothing(t *testing.T) {
	exec := &mockExecutor{}
	svc := newTestService(t, testConfig(), exec, &mockPlanStore{}, true)

	if err := svc.Deploy(context.Background(), "prod"); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if len(exec.sorted()) != 0 {
		t.Errorf("dry-run must not execute, got %v", exec.sorted())
	}
}

func TestService_Uninstall(t *testing.T) {
	exec := &mockExecutor{}
	svc := newTestService(t, testConfig(), exec, &mockPlanStore{}, false)

	if err := svc.Uninstall(context.Background(), "staging"); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}

	commands := exec.sorted()
	if len(commands) != 1 {
		t.Fatalf("expected 1 uninstall, got %d: %v", len(commands), commands)
	}
	if !strings.Contains(commands[0], "uninstall api-staging") {
		t.Errorf("unexpected command: %s", commands[0])
	}
}

func TestService_PlanWriteAndCheck(t *testing.T) {
	store := &mockPlanStore{}
	svc := newTestService(t, testConfig(), &mockExecutor{}, store, false)
	ctx := context.Background()

	if err := svc.Plan(ctx, "prod", false); err != nil {
		t.Fatalf("Plan write failed: %v", err)
	}
	if len(store.written) == 0 {
		t.Fatal("plan write produced no output")
	}
	lines := strings.Split(strings.TrimRight(string(store.written), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 plan lines, got %d: %q", len(lines), string(store.written))
	}
	if !sort.StringsAreSorted(lines) {
		t.Errorf("plan lines should be sorted: %v", lines)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "prod/") {
			t.Errorf("plan line should carry target prefix: %s", line)
		}
	}

	store.stored = store.written
	if err := svc.Plan(ctx, "prod", true); err != nil {
		t.Fatalf("Plan check against identical plan failed: %v", err)
	}
}

func TestService_PlanCheckDetectsDrift(t *testing.T) {
	store := &mockPlanStore{stored: []byte("prod/api-prod: helm upgrade --install api-prod /old/path\n")}
	svc := newTestService(t, testConfig(), &mockExecutor{}, store, false)

	err := svc.Plan(context.Background(), "prod", true)
	if err == nil || !strings.Contains(err.Error(), "plan drift detected") {
		t.Fatalf("expected drift error, got %v", err)
	}
}

func TestService_PlanUnknownTarget(t *testing.T) {
	store := &mockPlanStore{}
	svc := newTestService(t, testConfig(), &mockExecutor{}, store, false)

	for _, check := range []bool{false, true} {
		err := svc.Plan(context.Background(), "nowhere", check)
		if err == nil || !strings.Contains(err.Error(), `unknown target "nowhere"`) {
			t.Fatalf("Plan(check=%v) = %v, want unknown target error", check, err)
		}
	}
	if store.written != nil {
		t.Errorf("no plan should be written for an unknown target, got %q", store.written)
	}
}

func TestService_PlanAllTargets(t *testing.T) {
	store := &mockPlanStore{}
	svc := newTestService(t, testConfig(), &mockExecutor{}, store, false)

	if err := svc.Plan(context.Background(), "", false); err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	plan := string(store.written)
	if !strings.Contains(plan, "prod/api-prod:") || !strings.Contains(plan, "staging/api-staging:") {
		t.Errorf("plan should cover every target, got:\n%s", plan)
	}
}
