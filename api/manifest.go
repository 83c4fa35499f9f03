// Package api defines the schema of the .chart-deploy.yaml manifest.
package api

// Manifest is the top-level schema of the .chart-deploy.yaml file. The helm
// block is the global scope; charts, releases, and targets inherit from it.
type Manifest struct {
	Helm     GlobalBlock    `yaml:"helm"`
	Charts   []ChartBlock   `yaml:"charts"`
	Releases []ReleaseBlock `yaml:"releases"`
	Targets  []TargetBlock  `yaml:"targets"`
}

// GlobalBlock holds build-wide helm configuration. Optional scalar fields
// use pointers so an omitted key stays distinguishable from an explicit
// false or empty string.
type GlobalBlock struct {
	Kubeconfig  *string `yaml:"kubeconfig"`
	KubeContext *string `yaml:"kubeContext"`
	Namespace   *string `yaml:"namespace"`
	SelectTags  string  `yaml:"selectTags"`
	ExtraArgs   string  `yaml:"extraArgs"`

	Lint        LintBlock    `yaml:"lint"`
	Install     InstallBlock `yaml:"install"`
	ValuesBlock `yaml:",inline"`
}

// LintBlock configures helm lint, globally or per chart.
type LintBlock struct {
	Enabled     *bool `yaml:"enabled"`
	Strict      *bool `yaml:"strict"`
	ValuesBlock `yaml:",inline"`
}

// InstallBlock maps one-to-one onto helm install/upgrade flags.
type InstallBlock struct {
	Atomic      *bool   `yaml:"atomic"`
	CAFile      *string `yaml:"caFile"`
	CertFile    *string `yaml:"certFile"`
	Devel       *bool   `yaml:"devel"`
	DryRun      *bool   `yaml:"dryRun"`
	KeyFile     *string `yaml:"keyFile"`
	NoHooks     *bool   `yaml:"noHooks"`
	Password    *string `yaml:"password"`
	Repository  *string `yaml:"repository"`
	Username    *string `yaml:"username"`
	Verify      *bool   `yaml:"verify"`
	Version     *string `yaml:"version"`
	Wait        *bool   `yaml:"wait"`
	Replace     *bool   `yaml:"replace"`
	ResetValues *bool   `yaml:"resetValues"`
	ReuseValues *bool   `yaml:"reuseValues"`
}

// ValuesBlock holds the three value sources any scope can declare. Value
// files apply in declared order (helm gives later files precedence).
type ValuesBlock struct {
	Values     map[string]any    `yaml:"values"`
	FileValues map[string]string `yaml:"fileValues"`
	ValueFiles []string          `yaml:"valueFiles"`
}

// ChartBlock declares a lintable chart directory.
type ChartBlock struct {
	Name string    `yaml:"name"`
	Path string    `yaml:"path"`
	Lint LintBlock `yaml:"lint"`
}

// ReleaseBlock declares a named release of a chart. Chart is either the name
// of a declared chart or a direct reference such as "repo/chart".
type ReleaseBlock struct {
	Name        string       `yaml:"name"`
	Chart       string       `yaml:"chart"`
	Tags        []string     `yaml:"tags"`
	Install     InstallBlock `yaml:"install"`
	ValuesBlock `yaml:",inline"`
}

// TargetBlock declares a deployment environment. SelectTags filters which
// releases apply; it is ANDed with the global selectTags.
type TargetBlock struct {
	Name        string       `yaml:"name"`
	SelectTags  string       `yaml:"selectTags"`
	Kubeconfig  *string      `yaml:"kubeconfig"`
	KubeContext *string      `yaml:"kubeContext"`
	Namespace   *string      `yaml:"namespace"`
	ExtraArgs   string       `yaml:"extraArgs"`
	Install     InstallBlock `yaml:"install"`
	ValuesBlock `yaml:",inline"`
}
