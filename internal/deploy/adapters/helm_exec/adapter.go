// Package helmexec runs built invocations against the real helm binary.
package helmexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/nathantilsley/chart-deploy/internal/deploy/domain"
	"github.com/nathantilsley/chart-deploy/internal/deploy/ports"
)

// minHelmVersion is the oldest helm client the flag surface is known to
// work with.
const minHelmVersion = ">= 3.0.0"

// Adapter implements ports.ExecutorPort by shelling out to helm. It
// verifies at construction time that the binary exists on PATH and meets
// the minimum client version.
type Adapter struct {
	helmBin string
	logger  *slog.Logger
}

// New locates the helm binary and gates on its client version.
func New(bin string, logger *slog.Logger) (*Adapter, error) {
	if bin == "" {
		bin = "helm"
	}

	helmBin, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("helm binary not found: %w", err)
	}

	a := &Adapter{helmBin: helmBin, logger: logger}
	if err := a.checkVersion(); err != nil {
		return nil, err
	}
	return a, nil
}

// Run executes the invocation, capturing stdout and stderr separately. A
// nonzero exit returns *domain.ProcessError with stderr attached verbatim.
func (a *Adapter) Run(ctx context.Context, inv domain.Invocation) (ports.ExecResult, error) {
	cmd := exec.CommandContext(ctx, a.helmBin, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = mergedEnv(inv.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ports.ExecResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return result, &domain.ProcessError{
				Bin:      a.helmBin,
				Args:     inv.Args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
			}
		}
		return result, fmt.Errorf("running helm: %w", err)
	}

	return result, nil
}

// checkVersion runs `helm version` and rejects clients older than
// minHelmVersion.
func (a *Adapter) checkVersion() error {
	out, err := exec.Command(a.helmBin, "version", "--template", "{{.Version}}").Output()
	if err != nil {
		return fmt.Errorf("querying helm version: %w", err)
	}

	raw := strings.TrimSpace(string(out))
	version, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return fmt.Errorf("parsing helm version %q: %w", raw, err)
	}

	constraint, err := semver.NewConstraint(minHelmVersion)
	if err != nil {
		return fmt.Errorf("parsing version constraint: %w", err)
	}

	if !constraint.Check(version) {
		return fmt.Errorf("helm %s is too old, need %s", raw, minHelmVersion)
	}

	a.logger.Debug("helm binary verified", "path", a.helmBin, "version", raw)
	return nil
}

// mergedEnv overlays the invocation's environment overrides on the current
// process environment, overrides last and in sorted order so the command
// line stays reproducible.
func mergedEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil // nil Env means inherit the process environment
	}

	env := os.Environ()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
