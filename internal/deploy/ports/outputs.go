package ports

import (
	"context"

	"github.com/nathantilsley/chart-deploy/internal/deploy/domain"
)

// ExecResult carries the captured output of a completed helm invocation.
type ExecResult struct {
	Stdout []byte
	Stderr []byte
}

// ExecutorPort abstracts running a built invocation as an external process.
// The executor owns binary selection: it runs the binary it resolved and
// verified at construction, and inv.Bin is only the display name used in
// logs and plan output. A nonzero exit surfaces as *domain.ProcessError
// with stderr attached.
type ExecutorPort interface {
	Run(ctx context.Context, inv domain.Invocation) (ExecResult, error)
}

// ConfigPort abstracts loading the declarative deployment configuration.
type ConfigPort interface {
	Load(ctx context.Context) (domain.Config, error)
}

// PlanStorePort abstracts persistence and comparison of invocation plans,
// separated from the service so the diff strategy is independently
// swappable.
type PlanStorePort interface {
	// Read returns the stored plan, or empty bytes when none exists yet.
	Read() ([]byte, error)
	Write(plan []byte) error
	// Diff returns a unified diff between the stored and current plans,
	// empty when they are identical.
	Diff(stored, current []byte) string
}
