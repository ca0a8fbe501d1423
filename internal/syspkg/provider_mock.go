package syspkg

import (
	"context"

	"github.com/quantmind-br/pkgtx/internal/core"
)

// MockProvider is a mock implementation of Provider for testing
type MockProvider struct {
	NameFunc         func() string
	LockFunc         func(ctx context.Context) error
	UnlockFunc       func() error
	StageInstallFunc func(name, version string) error
	StageEraseFunc   func(name, version string) error
	BuildPlanFunc    func(ctx context.Context) (core.PlanStatus, []string, error)
	CommitFunc       func(ctx context.Context, sink EventSink) (*Plan, error)
	ResetFunc        func()
	ListPackagesFunc func(ctx context.Context, scope ListScope) (*PackageLists, error)
}

// Name implements Provider.Name
func (m *MockProvider) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Lock implements Provider.Lock
func (m *MockProvider) Lock(ctx context.Context) error {
	if m.LockFunc != nil {
		return m.LockFunc(ctx)
	}
	return nil
}

// Unlock implements Provider.Unlock
func (m *MockProvider) Unlock() error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc()
	}
	return nil
}

// StageInstall implements Provider.StageInstall
func (m *MockProvider) StageInstall(name, version string) error {
	if m.StageInstallFunc != nil {
		return m.StageInstallFunc(name, version)
	}
	return nil
}

// StageErase implements Provider.StageErase
func (m *MockProvider) StageErase(name, version string) error {
	if m.StageEraseFunc != nil {
		return m.StageEraseFunc(name, version)
	}
	return nil
}

// BuildPlan implements Provider.BuildPlan
func (m *MockProvider) BuildPlan(ctx context.Context) (core.PlanStatus, []string, error) {
	if m.BuildPlanFunc != nil {
		return m.BuildPlanFunc(ctx)
	}
	return core.PlanNothingToDo, nil, nil
}

// Commit implements Provider.Commit
func (m *MockProvider) Commit(ctx context.Context, sink EventSink) (*Plan, error) {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx, sink)
	}
	return &Plan{}, nil
}

// Reset implements Provider.Reset
func (m *MockProvider) Reset() {
	if m.ResetFunc != nil {
		m.ResetFunc()
	}
}

// ListPackages implements Provider.ListPackages
func (m *MockProvider) ListPackages(ctx context.Context, scope ListScope) (*PackageLists, error) {
	if m.ListPackagesFunc != nil {
		return m.ListPackagesFunc(ctx, scope)
	}
	return &PackageLists{}, nil
}
