package ports

import "context"

// DeployUseCase is the driving port for the release operations.
type DeployUseCase interface {
	// Lint runs helm lint for every chart whose lint config is enabled.
	Lint(ctx context.Context) error
	// Deploy installs or upgrades every release selected by the target.
	Deploy(ctx context.Context, target string) error
	// Uninstall removes every release selected by the target.
	Uninstall(ctx context.Context, target string) error
	// Plan renders the deploy invocations without executing them. With
	// check set it compares against the stored plan and fails on drift;
	// otherwise it writes the plan.
	Plan(ctx context.Context, target string, check bool) error
}
