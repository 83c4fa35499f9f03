package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Invocation is a fully built external helm command: executable, ordered
// arguments, and optional working directory and environment overrides. It is
// immutable once built and carries no execution logic.
type Invocation struct {
	Bin  string
	Args []string
	Dir  string
	Env  map[string]string
}

// String renders the invocation the way it would appear on a shell, with
// environment overrides in sorted order. Used for logs and plan output.
func (i Invocation) String() string {
	var b strings.Builder
	for _, k := range sortedKeys(i.Env) {
		fmt.Fprintf(&b, "%s=%s ", k, i.Env[k])
	}
	b.WriteString(i.Bin)
	for _, a := range i.Args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	return b.String()
}

// CommandBuilder assembles helm invocations from resolved configuration.
// It never executes anything; the executor port owns process lifecycles.
type CommandBuilder struct {
	Bin     string // helm executable name or path
	BaseDir string // directory relative chart and file paths resolve against
}

// NewCommandBuilder returns a builder for the given helm executable and base
// directory.
func NewCommandBuilder(bin, baseDir string) CommandBuilder {
	if bin == "" {
		bin = "helm"
	}
	return CommandBuilder{Bin: bin, BaseDir: baseDir}
}

// Lint builds `helm lint <path> [value options] [--strict]`. The caller is
// responsible for skipping charts whose lint config is disabled.
func (b CommandBuilder) Lint(chart Chart, lint ResolvedLint, settings ResolvedSettings) (Invocation, error) {
	if chart.Path == "" {
		return Invocation{}, &ConfigurationError{
			Subject: fmt.Sprintf("chart %q", chart.Name),
			Missing: "chart path",
		}
	}

	args := []string{"lint", resolvePath(b.BaseDir, chart.Path)}
	args = append(args, lint.Values.Render(b.BaseDir)...)
	args = append(args, Flag{Name: "strict", Enabled: lint.Strict}.Render()...)
	args = append(args, b.settingsArgs(settings)...)

	return Invocation{Bin: b.Bin, Args: args}, nil
}

// Install builds `helm install <name> <chart> [options]`.
func (b CommandBuilder) Install(r ResolvedRelease) (Invocation, error) {
	if err := b.requireIdentity(r); err != nil {
		return Invocation{}, err
	}

	args := []string{"install", r.Name, b.chartArg(r)}
	args = append(args, b.installArgs(r)...)
	args = append(args, Flag{Name: "replace", Enabled: r.Install.Replace}.Render()...)
	args = append(args, b.settingsArgs(r.Settings)...)
	args = append(args, r.ExtraArgs...)

	return Invocation{Bin: b.Bin, Args: args}, nil
}

// Upgrade builds `helm upgrade --install <name> <chart> [options]`.
// Both --reset-values and --reuse-values pass through when set; if a user
// sets both, helm's own behavior decides which wins.
func (b CommandBuilder) Upgrade(r ResolvedRelease) (Invocation, error) {
	if err := b.requireIdentity(r); err != nil {
		return Invocation{}, err
	}

	args := []string{"upgrade", "--install", r.Name, b.chartArg(r)}
	args = append(args, Flag{Name: "reset-values", Enabled: r.Install.ResetValues}.Render()...)
	args = append(args, Flag{Name: "reuse-values", Enabled: r.Install.ReuseValues}.Render()...)
	args = append(args, b.installArgs(r)...)
	args = append(args, b.settingsArgs(r.Settings)...)
	args = append(args, r.ExtraArgs...)

	return Invocation{Bin: b.Bin, Args: args}, nil
}

// InstallOrUpgrade picks between the two paths: a release marked replace
// drives a fresh install with --replace, everything else upgrades with
// --install.
func (b CommandBuilder) InstallOrUpgrade(r ResolvedRelease) (Invocation, error) {
	if r.Install.Replace {
		return b.Install(r)
	}
	return b.Upgrade(r)
}

// Uninstall builds `helm uninstall <name>`. No value options apply.
func (b CommandBuilder) Uninstall(r ResolvedRelease) (Invocation, error) {
	if r.Name == "" {
		return Invocation{}, &ConfigurationError{Subject: "release", Missing: "release name"}
	}

	args := []string{"uninstall", r.Name}
	args = append(args, b.settingsArgs(r.Settings)...)
	args = append(args, r.ExtraArgs...)

	return Invocation{Bin: b.Bin, Args: args}, nil
}

// installArgs renders the installation options shared by install and
// upgrade, each independently optional, followed by the value options.
// --devel is ignored when an explicit version is set, matching helm's
// documented behavior.
func (b CommandBuilder) installArgs(r ResolvedRelease) []string {
	o := r.Install
	args := renderOptions(
		Flag{Name: "atomic", Enabled: o.Atomic},
		FileOption{Name: "ca-file", Path: o.CAFile, BaseDir: b.BaseDir},
		FileOption{Name: "cert-file", Path: o.CertFile, BaseDir: b.BaseDir},
		Flag{Name: "devel", Enabled: o.Devel && o.Version == ""},
		Flag{Name: "dry-run", Enabled: o.DryRun},
		FileOption{Name: "key-file", Path: o.KeyFile, BaseDir: b.BaseDir},
		Flag{Name: "no-hooks", Enabled: o.NoHooks},
		StringOption{Name: "password", Value: o.Password},
		StringOption{Name: "repo", Value: o.Repository},
		StringOption{Name: "username", Value: o.Username},
		Flag{Name: "verify", Enabled: o.Verify},
		StringOption{Name: "version", Value: o.Version},
		Flag{Name: "wait", Enabled: o.Wait},
	)
	return append(args, r.Values.Render(b.BaseDir)...)
}

// settingsArgs renders the helm-wide options appended to every subcommand.
func (b CommandBuilder) settingsArgs(s ResolvedSettings) []string {
	return renderOptions(
		FileOption{Name: "kubeconfig", Path: s.Kubeconfig, BaseDir: b.BaseDir},
		StringOption{Name: "kube-context", Value: s.KubeContext},
		StringOption{Name: "namespace", Value: s.Namespace},
	)
}

// chartArg resolves a chart argument: filesystem paths (declared charts)
// resolve against the base directory, repository references pass through
// untouched.
func (b CommandBuilder) chartArg(r ResolvedRelease) string {
	if r.ChartIsPath {
		return resolvePath(b.BaseDir, r.Chart)
	}
	return r.Chart
}

func (b CommandBuilder) requireIdentity(r ResolvedRelease) error {
	if r.Name == "" {
		return &ConfigurationError{Subject: "release", Missing: "release name"}
	}
	if r.Chart == "" {
		return &ConfigurationError{
			Subject: fmt.Sprintf("release %q", r.Name),
			Missing: "chart reference",
		}
	}
	return nil
}

// SortInvocations orders invocations by their rendered form, giving plan
// output a stable order independent of declaration order.
func SortInvocations(invs []Invocation) {
	sort.Slice(invs, func(i, j int) bool {
		return invs[i].String() < invs[j].String()
	})
}
