package domain

// ValueOptions groups the three parallel value sources a scope can declare:
// direct key/value pairs (--set / --set-string), file-content values
// (--set-file), and whole value files (--values).
type ValueOptions struct {
	Values     map[string]any
	FileValues map[string]string
	ValueFiles []string
}

// MergeValueOptions combines a parent scope's value options with a child's.
// Merging is additive: map entries from both sides are present with the
// child winning on key collision, and value files keep parent-first order so
// child files override parent files when helm merges them. The inputs are
// never mutated; the result holds fresh maps and slices.
func MergeValueOptions(parent, child ValueOptions) ValueOptions {
	merged := ValueOptions{}

	if len(parent.Values)+len(child.Values) > 0 {
		merged.Values = make(map[string]any, len(parent.Values)+len(child.Values))
		for k, v := range parent.Values {
			merged.Values[k] = v
		}
		for k, v := range child.Values {
			merged.Values[k] = v
		}
	}

	if len(parent.FileValues)+len(child.FileValues) > 0 {
		merged.FileValues = make(map[string]string, len(parent.FileValues)+len(child.FileValues))
		for k, v := range parent.FileValues {
			merged.FileValues[k] = v
		}
		for k, v := range child.FileValues {
			merged.FileValues[k] = v
		}
	}

	if len(parent.ValueFiles)+len(child.ValueFiles) > 0 {
		merged.ValueFiles = make([]string, 0, len(parent.ValueFiles)+len(child.ValueFiles))
		merged.ValueFiles = append(merged.ValueFiles, parent.ValueFiles...)
		merged.ValueFiles = append(merged.ValueFiles, child.ValueFiles...)
	}

	return merged
}

// Render emits the full value argument sequence in fixed precedence order:
// --values files first (lowest precedence for helm), then --set-file
// entries, then --set/--set-string entries (highest precedence). Relative
// paths resolve against baseDir.
func (v ValueOptions) Render(baseDir string) []string {
	return renderOptions(
		ValueFilesOption{Paths: v.ValueFiles, BaseDir: baseDir},
		FileValueOption{Values: v.FileValues, BaseDir: baseDir},
		SetOption{Values: v.Values},
	)
}

// IsEmpty reports whether no value source is declared.
func (v ValueOptions) IsEmpty() bool {
	return len(v.Values) == 0 && len(v.FileValues) == 0 && len(v.ValueFiles) == 0
}
