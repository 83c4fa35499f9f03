// Package manifestcfg loads the declarative deployment configuration from a
// .chart-deploy.yaml manifest on disk.
package manifestcfg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	shellwords "github.com/mattn/go-shellwords"
	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/chart-deploy/api"
	"github.com/nathantilsley/chart-deploy/internal/deploy/domain"
)

// Adapter implements ports.ConfigPort by parsing the manifest file and
// translating it into the domain's declaration structs. Tag expressions and
// extraArgs are parsed eagerly so malformed configuration fails at load
// time, before any resolution happens.
type Adapter struct {
	path string
}

// New creates a manifest adapter for the given file path.
func New(path string) *Adapter {
	return &Adapter{path: path}
}

// Load reads and translates the manifest. The returned config's BaseDir is
// the manifest's directory, so relative chart and value-file paths resolve
// relative to the manifest.
func (a *Adapter) Load(_ context.Context) (domain.Config, error) {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("reading manifest %s: %w", a.path, err)
	}

	var manifest api.Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return domain.Config{}, fmt.Errorf("parsing manifest YAML: %w", err)
	}

	abs, err := filepath.Abs(a.path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("resolving manifest path: %w", err)
	}

	global, err := convertGlobal(manifest.Helm)
	if err != nil {
		return domain.Config{}, err
	}

	cfg := domain.Config{
		BaseDir: filepath.Dir(abs),
		Global:  global,
	}

	for _, c := range manifest.Charts {
		cfg.Charts = append(cfg.Charts, domain.Chart{
			Name: c.Name,
			Path: c.Path,
			Lint: convertLint(c.Lint),
		})
	}

	for _, r := range manifest.Releases {
		cfg.Releases = append(cfg.Releases, domain.Release{
			Name:    r.Name,
			Chart:   r.Chart,
			Tags:    r.Tags,
			Install: convertInstall(r.Install),
			Values:  convertValues(r.ValuesBlock),
		})
	}

	for _, t := range manifest.Targets {
		target, err := convertTarget(t)
		if err != nil {
			return domain.Config{}, err
		}
		cfg.Targets = append(cfg.Targets, target)
	}

	return cfg, nil
}

func convertGlobal(g api.GlobalBlock) (domain.Global, error) {
	selector, err := parseSelector(g.SelectTags)
	if err != nil {
		return domain.Global{}, err
	}

	extraArgs, err := parseExtraArgs(g.ExtraArgs)
	if err != nil {
		return domain.Global{}, err
	}

	return domain.Global{
		Lint:    convertLint(g.Lint),
		Install: convertInstall(g.Install),
		Values:  convertValues(g.ValuesBlock),
		Settings: domain.Settings{
			Kubeconfig:  g.Kubeconfig,
			KubeContext: g.KubeContext,
			Namespace:   g.Namespace,
		},
		Selector:  selector,
		ExtraArgs: extraArgs,
	}, nil
}

func convertTarget(t api.TargetBlock) (domain.Target, error) {
	selector, err := parseSelector(t.SelectTags)
	if err != nil {
		return domain.Target{}, fmt.Errorf("target %q: %w", t.Name, err)
	}

	extraArgs, err := parseExtraArgs(t.ExtraArgs)
	if err != nil {
		return domain.Target{}, fmt.Errorf("target %q: %w", t.Name, err)
	}

	return domain.Target{
		Name:     t.Name,
		Selector: selector,
		Install:  convertInstall(t.Install),
		Values:   convertValues(t.ValuesBlock),
		Settings: domain.Settings{
			Kubeconfig:  t.Kubeconfig,
			KubeContext: t.KubeContext,
			Namespace:   t.Namespace,
		},
		ExtraArgs: extraArgs,
	}, nil
}

func convertLint(l api.LintBlock) domain.LintOptions {
	return domain.LintOptions{
		Enabled: l.Enabled,
		Strict:  l.Strict,
		Values:  convertValues(l.ValuesBlock),
	}
}

func convertInstall(i api.InstallBlock) domain.InstallOptions {
	return domain.InstallOptions{
		Atomic:      i.Atomic,
		CAFile:      i.CAFile,
		CertFile:    i.CertFile,
		Devel:       i.Devel,
		DryRun:      i.DryRun,
		KeyFile:     i.KeyFile,
		NoHooks:     i.NoHooks,
		Password:    i.Password,
		Repository:  i.Repository,
		Username:    i.Username,
		Verify:      i.Verify,
		Version:     i.Version,
		Wait:        i.Wait,
		Replace:     i.Replace,
		ResetValues: i.ResetValues,
		ReuseValues: i.ReuseValues,
	}
}

func convertValues(v api.ValuesBlock) domain.ValueOptions {
	return domain.ValueOptions{
		Values:     v.Values,
		FileValues: v.FileValues,
		ValueFiles: v.ValueFiles,
	}
}

// parseSelector parses a selectTags expression. An omitted expression means
// the scope does not constrain selection.
func parseSelector(expr string) (domain.TagExpression, error) {
	if expr == "" {
		return domain.MatchAll(), nil
	}
	return domain.ParseTagExpression(expr)
}

// parseExtraArgs tokenizes the freeform extraArgs string the way a shell
// would, so quoted arguments survive intact.
func parseExtraArgs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parsing extraArgs %q: %w", s, err)
	}
	return args, nil
}
