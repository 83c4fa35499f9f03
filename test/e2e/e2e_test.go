package e2e

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	helmexec "github.com/nathantilsley/chart-deploy/internal/deploy/adapters/helm_exec"
	manifestcfg "github.com/nathantilsley/chart-deploy/internal/deploy/adapters/manifest_cfg"
	plandiff "github.com/nathantilsley/chart-deploy/internal/deploy/adapters/plan_diff"
	"github.com/nathantilsley/chart-deploy/internal/deploy/app"
	"github.com/nathantilsley/chart-deploy/internal/platform/logger"
)

const manifest = `
helm:
  namespace: apps
  install:
    wait: true
  valueFiles:
    - values/base.yaml

charts:
  - name: api
    path: charts/api
  - name: worker
    path: charts/worker
    lint:
      enabled: false

releases:
  - name: api-prod
    chart: api
    tags: [prod]
    values:
      replicas: 3
  - name: api-staging
    chart: api
    tags: [staging]

targets:
  - name: prod
    selectTags: prod
    kubeContext: prod-cluster
  - name: staging
    selectTags: staging
`

// helmScript answers the version probe, logs every other invocation's
// arguments to the file named by HELM_LOG, and fails when HELM_FAIL is set.
const helmScript = `#!/bin/sh
if [ "$1" = "version" ]; then printf 'v3.14.0'; exit 0; fi
if [ -n "$HELM_FAIL" ]; then printf 'Error: chart not found\n' >&2; exit 1; fi
echo "$@" >> "$HELM_LOG"
`

// setup writes a project tree plus a fake helm on PATH and wires the full
// service the way the CLI container does.
func setup(t *testing.T) (*app.DeployService, string, *plandiff.Adapter) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake helm script requires a POSIX shell")
	}

	dir := t.TempDir()
	for _, sub := range []string{"charts/api", "charts/worker", "values"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	manifestPath := filepath.Join(dir, ".chart-deploy.yaml")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "helm"), []byte(helmScript), 0o755); err != nil {
		t.Fatal(err)
	}
	helmLog := filepath.Join(t.TempDir(), "helm.log")
	t.Setenv("PATH", binDir)
	t.Setenv("HELM_LOG", helmLog)

	log := logger.New("error")
	executor, err := helmexec.New("helm", log)
	if err != nil {
		t.Fatalf("wiring helm executor: %v", err)
	}

	planStore := plandiff.New(filepath.Join(dir, "chart-deploy.plan"))
	svc, err := app.NewDeployService(
		manifestcfg.New(manifestPath), executor, planStore, log,
		noopmetric.NewMeterProvider().Meter("e2e"),
		nooptrace.NewTracerProvider().Tracer("e2e"),
		"helm", 2, false,
	)
	if err != nil {
		t.Fatalf("wiring service: %v", err)
	}
	return svc, helmLog, planStore
}

func helmCalls(t *testing.T, helmLog string) []string {
	t.Helper()
	raw, err := os.ReadFile(helmLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestE2E_FullWorkflow(t *testing.T) {
	svc, helmLog, planStore := setup(t)
	ctx := context.Background()

	// Lint: one chart enabled, one disabled.
	if err := svc.Lint(ctx); err != nil {
		t.Fatalf("Lint failed: %v", err)
	}
	calls := helmCalls(t, helmLog)
	if len(calls) != 1 {
		t.Fatalf("expected 1 lint call, got %v", calls)
	}
	if !strings.HasPrefix(calls[0], "lint ") || !strings.HasSuffix(calls[0], "--namespace apps") {
		t.Errorf("unexpected lint call: %s", calls[0])
	}
	if !strings.Contains(calls[0], "charts/api") || strings.Contains(calls[0], "charts/worker") {
		t.Errorf("lint should cover api only: %s", calls[0])
	}

	// Deploy to prod: only the prod-tagged release.
	if err := svc.Deploy(ctx, "prod"); err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	calls = helmCalls(t, helmLog)
	if len(calls) != 2 {
		t.Fatalf("expected lint + 1 deploy, got %v", calls)
	}
	deploy := calls[1]
	for _, want := range []string{
		"upgrade --install api-prod",
		"--wait",
		"--set replicas=3",
		"--kube-context prod-cluster",
		"--namespace apps",
		filepath.Join("values", "base.yaml"),
	} {
		if !strings.Contains(deploy, want) {
			t.Errorf("deploy call missing %q: %s", want, deploy)
		}
	}
	if strings.Contains(deploy, "api-staging") {
		t.Errorf("staging release deployed to prod: %s", deploy)
	}

	// Plan write then check: no drift right after writing.
	if err := svc.Plan(ctx, "", false); err != nil {
		t.Fatalf("Plan write failed: %v", err)
	}
	plan, err := planStore.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plan), "prod/api-prod:") || !strings.Contains(string(plan), "staging/api-staging:") {
		t.Errorf("plan should cover both targets:\n%s", plan)
	}
	if err := svc.Plan(ctx, "", true); err != nil {
		t.Fatalf("Plan check failed: %v", err)
	}

	// Drift the stored plan and expect the check to fail.
	if err := planStore.Write([]byte("prod/api-prod: helm upgrade --install api-prod /stale\n")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Plan(ctx, "", true); err == nil || !strings.Contains(err.Error(), "plan drift detected") {
		t.Fatalf("expected drift error, got %v", err)
	}

	// Uninstall from staging.
	if err := svc.Uninstall(ctx, "staging"); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	calls = helmCalls(t, helmLog)
	last := calls[len(calls)-1]
	if !strings.HasPrefix(last, "uninstall api-staging") {
		t.Errorf("unexpected uninstall call: %s", last)
	}
}

func TestE2E_ProcessFailureSurfacesStderr(t *testing.T) {
	svc, _, _ := setup(t)
	t.Setenv("HELM_FAIL", "1")

	err := svc.Deploy(context.Background(), "prod")
	if err == nil {
		t.Fatal("expected deploy failure")
	}
	if !strings.Contains(err.Error(), "release api-prod") || !strings.Contains(err.Error(), "Error: chart not found") {
		t.Errorf("error should name the release and carry stderr: %v", err)
	}
}
