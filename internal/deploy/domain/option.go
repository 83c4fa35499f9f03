package domain

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
)

// Option is a single helm CLI parameter. An absent option renders to an
// empty token sequence and contributes nothing to the argument list.
type Option interface {
	Present() bool
	Render() []string
}

// Flag is a boolean switch: rendered as --name when enabled, omitted otherwise.
type Flag struct {
	Name    string
	Enabled bool
}

func (f Flag) Present() bool { return f.Enabled }

func (f Flag) Render() []string {
	if !f.Enabled {
		return nil
	}
	return []string{"--" + f.Name}
}

// StringOption is a scalar-valued parameter: rendered as --name value when
// the value is non-empty.
type StringOption struct {
	Name  string
	Value string
}

func (o StringOption) Present() bool { return o.Value != "" }

func (o StringOption) Render() []string {
	if o.Value == "" {
		return nil
	}
	return []string{"--" + o.Name, o.Value}
}

// FileOption is a path-valued parameter. Relative paths are resolved against
// BaseDir at render time, so late-bound file providers see the final location.
type FileOption struct {
	Name    string
	Path    string
	BaseDir string
}

func (o FileOption) Present() bool { return o.Path != "" }

func (o FileOption) Render() []string {
	if o.Path == "" {
		return nil
	}
	return []string{"--" + o.Name, resolvePath(o.BaseDir, o.Path)}
}

// SetOption renders a map of keys to scalar values as repeated --set /
// --set-string arguments. String values use --set-string so helm does not
// coerce numeric-looking strings (a chart version "1.10" must stay a string).
// Keys render in sorted order so repeated builds produce identical argument
// sequences.
type SetOption struct {
	Values map[string]any
}

func (o SetOption) Present() bool { return len(o.Values) > 0 }

func (o SetOption) Render() []string {
	if len(o.Values) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(o.Values))
	for _, k := range sortedKeys(o.Values) {
		switch v := o.Values[k].(type) {
		case string:
			out = append(out, "--set-string", k+"="+v)
		default:
			out = append(out, "--set", k+"="+formatScalar(v))
		}
	}
	return out
}

// FileValueOption renders a map of keys to file paths as repeated
// --set-file key=path arguments, keys sorted, paths resolved against BaseDir.
type FileValueOption struct {
	Values  map[string]string
	BaseDir string
}

func (o FileValueOption) Present() bool { return len(o.Values) > 0 }

func (o FileValueOption) Render() []string {
	if len(o.Values) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(o.Values))
	for _, k := range sortedKeys(o.Values) {
		out = append(out, "--set-file", k+"="+resolvePath(o.BaseDir, o.Values[k]))
	}
	return out
}

// ValueFilesOption renders an ordered list of value files as repeated
// --values arguments. Order is preserved: helm gives later files precedence,
// so the declared order is the configured precedence.
type ValueFilesOption struct {
	Paths   []string
	BaseDir string
}

func (o ValueFilesOption) Present() bool { return len(o.Paths) > 0 }

func (o ValueFilesOption) Render() []string {
	if len(o.Paths) == 0 {
		return nil
	}
	out := make([]string, 0, 2*len(o.Paths))
	for _, p := range o.Paths {
		out = append(out, "--values", resolvePath(o.BaseDir, p))
	}
	return out
}

// renderOptions concatenates the rendered tokens of each option in order.
func renderOptions(opts ...Option) []string {
	var out []string
	for _, o := range opts {
		out = append(out, o.Render()...)
	}
	return out
}

// formatScalar converts a non-string scalar to its helm --set representation.
func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func resolvePath(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
