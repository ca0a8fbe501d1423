package core

import "strings"

// RequestKind is the operation a caller requests for a package
type RequestKind string

const (
	RequestInstall RequestKind = "install"
	RequestErase   RequestKind = "erase"
)

// SpecSeparator separates the name and version of a package specifier ("name,version")
const SpecSeparator = ","

// PackageRequest is one install or erase request.
// An empty Version means any version.
type PackageRequest struct {
	Name    string      `json:"name" yaml:"name"`
	Version string      `json:"version,omitempty" yaml:"version,omitempty"`
	Kind    RequestKind `json:"kind" yaml:"kind"`
}

// ParseRequest builds a request from a textual specifier.
// A specifier without a separator, or with an empty version field, yields a name-only request.
func ParseRequest(kind RequestKind, spec string) PackageRequest {
	spec = strings.TrimSpace(spec)
	name, version, found := strings.Cut(spec, SpecSeparator)
	if !found {
		return PackageRequest{Name: spec, Kind: kind}
	}
	return PackageRequest{
		Name:    strings.TrimSpace(name),
		Version: strings.TrimSpace(version),
		Kind:    kind,
	}
}

// ParseRequests parses specifiers in order, skipping blank entries
func ParseRequests(kind RequestKind, specs []string) []PackageRequest {
	requests := make([]PackageRequest, 0, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		requests = append(requests, ParseRequest(kind, spec))
	}
	return requests
}

// String renders the request back into specifier form
func (r PackageRequest) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + SpecSeparator + r.Version
}

// ActionCode is the low-level outcome code reported by the host package manager
// for one member of a transaction.
type ActionCode string

const (
	ActionUpdate      ActionCode = "update"
	ActionInstall     ActionCode = "install"
	ActionTrueInstall ActionCode = "true-install"
	ActionObsoleting  ActionCode = "obsoleting"
	ActionReinstall   ActionCode = "reinstall"
	ActionDowngrade   ActionCode = "downgrade"
	ActionErase       ActionCode = "erase"
	ActionObsoleted   ActionCode = "obsoleted"
	ActionUpdated     ActionCode = "updated"
	ActionDowngraded  ActionCode = "downgraded"
	ActionReinstalled ActionCode = "reinstalled"
	ActionAvailable   ActionCode = "available"
	ActionFailed      ActionCode = "failed"
)

// InstallStates lists the codes that leave a package installed on the system
var InstallStates = []ActionCode{
	ActionInstall,
	ActionTrueInstall,
	ActionUpdate,
	ActionObsoleting,
	ActionReinstall,
	ActionDowngrade,
}

// RemoveStates lists the codes that take a package off the system
var RemoveStates = []ActionCode{
	ActionErase,
	ActionObsoleted,
	ActionUpdated,
	ActionDowngraded,
	ActionReinstalled,
}

// ActionKind is the semantic category exposed in reports
type ActionKind string

const (
	KindInstall ActionKind = "install"
	KindUpgrade ActionKind = "upgrade"
	KindErase   ActionKind = "erase"
	KindError   ActionKind = "error"
	KindOther   ActionKind = "other"
)

// PackageOutcome is the report record for one affected package.
// Fields are declared in key order so the encoded object is sorted by field name.
type PackageOutcome struct {
	ActionCode ActionCode `json:"action_code,omitempty"`
	ActionType ActionKind `json:"action_type"`
	Arch       string     `json:"arch,omitempty"`
	Epoch      string     `json:"epoch,omitempty"`
	Name       string     `json:"name"`
	Release    string     `json:"release,omitempty"`
	Repo       string     `json:"repo,omitempty"`
	Version    string     `json:"version,omitempty"`
}

// PlanStatus is the status code returned by the host when building a plan
type PlanStatus int

const (
	// PlanNothingToDo means the staged requests are already satisfied
	PlanNothingToDo PlanStatus = 0
	// PlanReady means a plan was built and can be committed
	PlanReady PlanStatus = 2
)

// Result is the aggregated outcome of one successful invocation
type Result struct {
	Status   PlanStatus       `json:"status"`
	Outcomes []PackageOutcome `json:"outcomes"`
}

// Exit codes
const (
	ExitSuccess           = 0
	ExitGeneral           = 1
	ExitInvalidArgs       = 2
	ExitResolutionFailed  = 3
	ExitTransactionFailed = 4
	ExitLocked            = 5
	ExitDatabase          = 6
	ExitCommandNotFound   = 8
	ExitInterrupted       = 130
)
