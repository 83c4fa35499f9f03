// Package plandiff persists invocation plans and computes unified diffs
// between them.
package plandiff

import (
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Adapter implements ports.PlanStorePort with a plain text file and
// line-based unified diffs.
type Adapter struct {
	path string
}

// New creates a plan store backed by the given file path.
func New(path string) *Adapter {
	return &Adapter{path: path}
}

// Read returns the stored plan, or empty bytes when no plan file exists yet.
func (a *Adapter) Read() ([]byte, error) {
	raw, err := os.ReadFile(a.path)
	if os.IsNotExist(err) {
		return []byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", a.path, err)
	}
	return raw, nil
}

// Write stores the plan, replacing any previous one.
func (a *Adapter) Write(plan []byte) error {
	if err := os.WriteFile(a.path, plan, 0o644); err != nil {
		return fmt.Errorf("writing plan %s: %w", a.path, err)
	}
	return nil
}

// Diff computes a unified diff between the stored and current plans,
// returning the empty string when they match.
func (a *Adapter) Diff(stored, current []byte) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(stored)),
		B:        difflib.SplitLines(string(current)),
		FromFile: a.path,
		ToFile:   "current",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fmt.Sprintf("error computing diff: %s", err)
	}
	return strings.TrimSpace(text)
}
