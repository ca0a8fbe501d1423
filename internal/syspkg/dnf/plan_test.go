package dnf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
)

func TestParseTransactionTable(t *testing.T) {
	output := `Dependencies resolved.
================================================================================
 Package                      Arch     Version               Repo         Size
================================================================================
Installing:
 newtool                      noarch   2.0-1.fc39            updates      10 k
     replacing  oldtool.noarch 1.5-3.fc38
Upgrading:
 bash                         x86_64   5.2.26-1.fc39         updates     1.8 M
     replacing  bash.x86_64 5.2.21-1.fc39
Installing dependencies:
 python3-very-long-package-name-that-wraps
                              x86_64   1:3.12.1-2.fc39       fedora      100 k
Installing weak dependencies:
 bash-completion              noarch   1:2.11-12.fc39        fedora      292 k
Downgrading:
 zlib                         x86_64   1.2.13-4.fc39         fedora       93 k
Removing dependent packages:
 legacy                       x86_64   0.9-1                 @System      12 k
Skipping packages with broken dependencies:
 ignored                      x86_64   1-1                   fedora        1 k

Transaction Summary
================================================================================
Install  3 Packages
`

	want := []syspkg.Member{
		{Name: "newtool", Package: &syspkg.PackageID{Name: "newtool", Epoch: "0", Version: "2.0", Release: "1.fc39", Arch: "noarch", Repo: "updates"}, Code: core.ActionObsoleting},
		{Name: "oldtool", Package: &syspkg.PackageID{Name: "oldtool", Epoch: "0", Version: "1.5", Release: "3.fc38", Arch: "noarch", Repo: "@System"}, Code: core.ActionObsoleted},
		{Name: "bash", Package: &syspkg.PackageID{Name: "bash", Epoch: "0", Version: "5.2.26", Release: "1.fc39", Arch: "x86_64", Repo: "updates"}, Code: core.ActionUpdate},
		{Name: "bash", Package: &syspkg.PackageID{Name: "bash", Epoch: "0", Version: "5.2.21", Release: "1.fc39", Arch: "x86_64", Repo: "@System"}, Code: core.ActionUpdated},
		{Name: "python3-very-long-package-name-that-wraps", Package: &syspkg.PackageID{Name: "python3-very-long-package-name-that-wraps", Epoch: "1", Version: "3.12.1", Release: "2.fc39", Arch: "x86_64", Repo: "fedora"}, Code: core.ActionTrueInstall},
		{Name: "bash-completion", Package: &syspkg.PackageID{Name: "bash-completion", Epoch: "1", Version: "2.11", Release: "12.fc39", Arch: "noarch", Repo: "fedora"}, Code: core.ActionTrueInstall},
		{Name: "zlib", Package: &syspkg.PackageID{Name: "zlib", Epoch: "0", Version: "1.2.13", Release: "4.fc39", Arch: "x86_64", Repo: "fedora"}, Code: core.ActionDowngrade},
		{Name: "legacy", Package: &syspkg.PackageID{Name: "legacy", Epoch: "0", Version: "0.9", Release: "1", Arch: "x86_64", Repo: "@System"}, Code: core.ActionErase},
	}

	got := parseTransactionTable(output)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseTransactionTable() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTransactionTable_Empty(t *testing.T) {
	if got := parseTransactionTable("Dependencies resolved.\nNothing to do.\nComplete!\n"); len(got) != 0 {
		t.Errorf("expected no members, got %v", got)
	}
}

func TestAppendReplaced_Downgrade(t *testing.T) {
	members := []syspkg.Member{{Name: "zlib", Code: core.ActionDowngrade}}
	members = appendReplaced(members, "zlib.x86_64", "1.3-1.fc39")

	if members[1].Code != core.ActionDowngraded {
		t.Errorf("replaced code = %s, want %s", members[1].Code, core.ActionDowngraded)
	}
	if members[0].Code != core.ActionDowngrade {
		t.Errorf("downgrade code changed to %s", members[0].Code)
	}
}

func TestDiagnostics_FallsBackToStderr(t *testing.T) {
	got := diagnostics("", "Curl error (6): Couldn't resolve host name\n\n")
	want := []string{"Curl error (6): Couldn't resolve host name"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("diagnostics() mismatch (-want +got):\n%s", diff)
	}
}
