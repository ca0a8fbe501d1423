package syspkg

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantmind-br/pkgtx/internal/core"
)

// PackageID is the resolved identity of a package
type PackageID struct {
	Name    string `json:"name"`
	Epoch   string `json:"epoch,omitempty"`
	Version string `json:"version"`
	Release string `json:"release,omitempty"`
	Arch    string `json:"arch,omitempty"`
	Repo    string `json:"repo,omitempty"`
}

// String returns the NEVRA form (name-[epoch:]version-release.arch)
func (p PackageID) String() string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString("-")
	if p.Epoch != "" && p.Epoch != "0" {
		b.WriteString(p.Epoch)
		b.WriteString(":")
	}
	b.WriteString(p.Version)
	if p.Release != "" {
		b.WriteString("-")
		b.WriteString(p.Release)
	}
	if p.Arch != "" {
		b.WriteString(".")
		b.WriteString(p.Arch)
	}
	return b.String()
}

// ParseEVR splits "[epoch:]version[-release]" into its parts. Epoch defaults to "0".
func ParseEVR(evr string) (epoch, version, release string) {
	epoch = "0"
	if e, rest, ok := strings.Cut(evr, ":"); ok {
		epoch, evr = e, rest
	}
	if i := strings.LastIndex(evr, "-"); i >= 0 {
		return epoch, evr[:i], evr[i+1:]
	}
	return epoch, evr, ""
}

// Member is one entry of a transaction plan.
// Package is nil when the member never resolved to a concrete package.
type Member struct {
	Name    string
	Package *PackageID
	Code    core.ActionCode
}

// Plan is the resolved set of transaction members in host order
type Plan struct {
	Members []Member
}

// Failed returns the names of members whose final code is failed, in plan order
func (p *Plan) Failed() []string {
	if p == nil {
		return nil
	}
	var names []string
	for _, m := range p.Members {
		if m.Code == core.ActionFailed {
			names = append(names, m.DisplayName())
		}
	}
	return names
}

// DisplayName returns the NEVRA when resolved, otherwise the bare name
func (m Member) DisplayName() string {
	if m.Package != nil {
		return m.Package.String()
	}
	return m.Name
}

// EventSink receives transaction lifecycle events from a provider during Commit.
// Methods may be invoked zero or many times in any order.
type EventSink interface {
	OnProgress(pkg string, done, total int64)
	OnScriptOutput(pkg, text string)
	OnError(text string)
	OnPackageEvent(pkg string, code core.ActionCode)
}

// ListScope selects which package lists a query returns
type ListScope string

const (
	ScopeAll       ListScope = "all"
	ScopeInstalled ListScope = "installed"
	ScopeAvailable ListScope = "available"
	ScopeExtras    ListScope = "extras"
)

// ParseListScope validates a scope name
func ParseListScope(s string) (ListScope, error) {
	switch scope := ListScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case ScopeAll, ScopeInstalled, ScopeAvailable, ScopeExtras:
		return scope, nil
	case "":
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("unknown list scope %q", s)
	}
}

// PackageLists is the result of a read-only package query
type PackageLists struct {
	Installed     []PackageID `json:"installed"`
	Available     []PackageID `json:"available"`
	Reinstallable []PackageID `json:"reinstallable"`
	Extras        []PackageID `json:"extras"`
}

// Provider defines the interface for the host package manager
type Provider interface {
	// Name returns the provider name (e.g., "dnf", "pacman")
	Name() string

	// Lock acquires the exclusive package database lock
	Lock(ctx context.Context) error

	// Unlock releases the package database lock
	Unlock() error

	// StageInstall records an install request; version may be empty
	StageInstall(name, version string) error

	// StageErase records an erase request; version may be empty
	StageErase(name, version string) error

	// BuildPlan resolves everything staged so far into a plan
	BuildPlan(ctx context.Context) (core.PlanStatus, []string, error)

	// Commit runs a dry-run pass and then the real transaction, reporting events to sink,
	// and returns the plan with final action codes
	Commit(ctx context.Context, sink EventSink) (*Plan, error)

	// Reset discards staged requests and plan state
	Reset()

	// ListPackages performs a read-only query
	ListPackages(ctx context.Context, scope ListScope) (*PackageLists, error)
}

// Locker is an exclusive lock over the host package database
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// BuildDepInstaller is implemented by providers that can install the build
// dependencies of a source package
type BuildDepInstaller interface {
	InstallBuildDeps(ctx context.Context, spec string) error
}
