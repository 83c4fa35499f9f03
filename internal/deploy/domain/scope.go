package domain

// Configuration is declared in nested scopes: one global scope, plus charts,
// releases, and targets that inherit from it. Declaration-time structs use
// pointer fields so an unset value is distinguishable from an explicit zero:
// an unset field inherits the parent's value, a set field always wins.
// Collection fields (values, fileValues, valueFiles, extraArgs) are additive
// instead: parent entries first, child entries appended, child winning map
// key collisions.
//
// Resolution is a pure function of the declarations. Resolved snapshots are
// never fed back into another merge, so re-resolving with unchanged inputs
// yields identical output and never duplicates collection entries.

// InstallOptions holds declaration-time installation settings shared by the
// install and upgrade subcommands. Nil means unset.
type InstallOptions struct {
	Atomic      *bool
	CAFile      *string
	CertFile    *string
	Devel       *bool
	DryRun      *bool
	KeyFile     *string
	NoHooks     *bool
	Password    *string
	Repository  *string
	Username    *string
	Verify      *bool
	Version     *string
	Wait        *bool
	Replace     *bool
	ResetValues *bool
	ReuseValues *bool
}

// MergeInstallOptions overlays child declarations on parent declarations:
// each set child field replaces the parent's, each unset field inherits.
func MergeInstallOptions(parent, child InstallOptions) InstallOptions {
	return InstallOptions{
		Atomic:      orBool(parent.Atomic, child.Atomic),
		CAFile:      orString(parent.CAFile, child.CAFile),
		CertFile:    orString(parent.CertFile, child.CertFile),
		Devel:       orBool(parent.Devel, child.Devel),
		DryRun:      orBool(parent.DryRun, child.DryRun),
		KeyFile:     orString(parent.KeyFile, child.KeyFile),
		NoHooks:     orBool(parent.NoHooks, child.NoHooks),
		Password:    orString(parent.Password, child.Password),
		Repository:  orString(parent.Repository, child.Repository),
		Username:    orString(parent.Username, child.Username),
		Verify:      orBool(parent.Verify, child.Verify),
		Version:     orString(parent.Version, child.Version),
		Wait:        orBool(parent.Wait, child.Wait),
		Replace:     orBool(parent.Replace, child.Replace),
		ResetValues: orBool(parent.ResetValues, child.ResetValues),
		ReuseValues: orBool(parent.ReuseValues, child.ReuseValues),
	}
}

// ResolvedInstall is the immutable snapshot of installation settings consumed
// by the command builder. Unset fields collapse to their zero value.
type ResolvedInstall struct {
	Atomic      bool
	CAFile      string
	CertFile    string
	Devel       bool
	DryRun      bool
	KeyFile     string
	NoHooks     bool
	Password    string
	Repository  string
	Username    string
	Verify      bool
	Version     string
	Wait        bool
	Replace     bool
	ResetValues bool
	ReuseValues bool
}

// Resolve collapses the declarations into a concrete snapshot.
func (o InstallOptions) Resolve() ResolvedInstall {
	return ResolvedInstall{
		Atomic:      deref(o.Atomic, false),
		CAFile:      deref(o.CAFile, ""),
		CertFile:    deref(o.CertFile, ""),
		Devel:       deref(o.Devel, false),
		DryRun:      deref(o.DryRun, false),
		KeyFile:     deref(o.KeyFile, ""),
		NoHooks:     deref(o.NoHooks, false),
		Password:    deref(o.Password, ""),
		Repository:  deref(o.Repository, ""),
		Username:    deref(o.Username, ""),
		Verify:      deref(o.Verify, false),
		Version:     deref(o.Version, ""),
		Wait:        deref(o.Wait, false),
		Replace:     deref(o.Replace, false),
		ResetValues: deref(o.ResetValues, false),
		ReuseValues: deref(o.ReuseValues, false),
	}
}

// LintOptions holds declaration-time lint settings for the global scope or a
// single chart.
type LintOptions struct {
	Enabled *bool
	Strict  *bool
	Values  ValueOptions
}

// ResolvedLint is the merged lint configuration for one chart.
type ResolvedLint struct {
	Enabled bool
	Strict  bool
	Values  ValueOptions
}

// ResolveLint merges the global lint scope with a chart's overrides.
// Enabled defaults to true when unset at every level.
func ResolveLint(global, chart LintOptions) ResolvedLint {
	return ResolvedLint{
		Enabled: deref(orBool(global.Enabled, chart.Enabled), true),
		Strict:  deref(orBool(global.Strict, chart.Strict), false),
		Values:  MergeValueOptions(global.Values, chart.Values),
	}
}

// Settings are helm-wide options applied to every invocation: cluster
// access and target namespace.
type Settings struct {
	Kubeconfig  *string
	KubeContext *string
	Namespace   *string
}

// ResolvedSettings is the concrete helm-wide option set for one scope.
type ResolvedSettings struct {
	Kubeconfig  string
	KubeContext string
	Namespace   string
}

func mergeSettings(parent, child Settings) Settings {
	return Settings{
		Kubeconfig:  orString(parent.Kubeconfig, child.Kubeconfig),
		KubeContext: orString(parent.KubeContext, child.KubeContext),
		Namespace:   orString(parent.Namespace, child.Namespace),
	}
}

// Resolve collapses the declarations into a concrete snapshot.
func (s Settings) Resolve() ResolvedSettings {
	return ResolvedSettings{
		Kubeconfig:  deref(s.Kubeconfig, ""),
		KubeContext: deref(s.KubeContext, ""),
		Namespace:   deref(s.Namespace, ""),
	}
}

// Chart is a lintable deployment unit: a chart directory within the project.
type Chart struct {
	Name string
	Path string
	Lint LintOptions
}

// Release declares a named helm release of a chart, with the tag set that
// targets use to decide whether the release applies to them.
type Release struct {
	Name    string
	Chart   string // declared chart name or a direct chart reference
	Tags    []string
	Install InstallOptions
	Values  ValueOptions
}

// Target is a named deployment environment with its own overrides and a tag
// filter selecting which releases apply to it.
type Target struct {
	Name      string
	Selector  TagExpression // nil means match all
	Install   InstallOptions
	Values    ValueOptions
	Settings  Settings
	ExtraArgs []string
}

// Global is the root scope every other scope inherits from.
type Global struct {
	Lint      LintOptions
	Install   InstallOptions
	Values    ValueOptions
	Settings  Settings
	Selector  TagExpression // nil means match all
	ExtraArgs []string
}

// Config is the fully declared deployment configuration: one global scope
// plus all charts, releases, and targets. It is frozen after the declaration
// phase; resolution never mutates it.
type Config struct {
	BaseDir  string // directory relative paths resolve against
	Global   Global
	Charts   []Chart
	Releases []Release
	Targets  []Target
}

// TargetByName returns the declared target with the given name.
func (c Config) TargetByName(name string) (Target, bool) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// ChartRef maps a release's chart field to the invocation's chart argument.
// A declared chart name resolves to that chart's path (isPath true, so the
// builder resolves it against the base directory); anything else passes
// through as a direct chart reference such as "repo/chart" or "oci://...".
func (c Config) ChartRef(name string) (ref string, isPath bool) {
	for _, ch := range c.Charts {
		if ch.Name == name {
			return ch.Path, true
		}
	}
	return name, false
}

// ResolvedTarget carries the target's merged declarations. Install options
// stay in declaration form because each release overlays its own on top.
type ResolvedTarget struct {
	Name      string
	Selector  TagExpression
	Install   InstallOptions
	Values    ValueOptions
	Settings  Settings
	ExtraArgs []string
}

// ResolveTarget merges the global scope into a target: scalar fields
// override, collections append, and the tag selector becomes the AND of the
// global and target selectors.
func ResolveTarget(g Global, t Target) ResolvedTarget {
	selector := g.Selector
	if selector == nil {
		selector = MatchAll()
	}
	local := t.Selector
	if local == nil {
		local = MatchAll()
	}

	extra := make([]string, 0, len(g.ExtraArgs)+len(t.ExtraArgs))
	extra = append(extra, g.ExtraArgs...)
	extra = append(extra, t.ExtraArgs...)

	return ResolvedTarget{
		Name:      t.Name,
		Selector:  selector.And(local),
		Install:   MergeInstallOptions(g.Install, t.Install),
		Values:    MergeValueOptions(g.Values, t.Values),
		Settings:  mergeSettings(g.Settings, t.Settings),
		ExtraArgs: extra,
	}
}

// ShouldInclude reports whether the release's tags satisfy the target's
// combined selector.
func (t ResolvedTarget) ShouldInclude(r Release) bool {
	return t.Selector.Matches(r.Tags)
}

// ResolvedRelease is the read-only snapshot for one (release, target) pair,
// ready for command construction.
type ResolvedRelease struct {
	Name        string
	Chart       string
	ChartIsPath bool // true when Chart is a filesystem path, not a repo ref
	Install     ResolvedInstall
	Values      ValueOptions
	Settings    ResolvedSettings
	ExtraArgs   []string
}

// ResolveRelease overlays a release's declarations on a resolved target and
// collapses the result. Both inputs come from declarations, so resolving the
// same pair twice yields an identical snapshot.
func ResolveRelease(c Config, t ResolvedTarget, r Release) ResolvedRelease {
	ref, isPath := c.ChartRef(r.Chart)
	return ResolvedRelease{
		Name:        r.Name,
		Chart:       ref,
		ChartIsPath: isPath,
		Install:     MergeInstallOptions(t.Install, r.Install).Resolve(),
		Values:      MergeValueOptions(t.Values, r.Values),
		Settings:    t.Settings.Resolve(),
		ExtraArgs:   t.ExtraArgs,
	}
}

func orBool(parent, child *bool) *bool {
	if child != nil {
		return child
	}
	return parent
}

func orString(parent, child *string) *string {
	if child != nil {
		return child
	}
	return parent
}

func deref[T any](p *T, fallback T) T {
	if p != nil {
		return *p
	}
	return fallback
}
