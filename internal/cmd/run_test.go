package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/quantmind-br/pkgtx/internal/history"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/quantmind-br/pkgtx/internal/transaction"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stagingHost struct {
	*syspkg.MockProvider
	staged   []string
	locked   bool
	unlocked bool
}

func newStagingHost(status core.PlanStatus, plan *syspkg.Plan) *stagingHost {
	h := &stagingHost{MockProvider: &syspkg.MockProvider{NameFunc: func() string { return "dnf" }}}
	h.StageEraseFunc = func(name, version string) error {
		h.staged = append(h.staged, "erase "+name+" "+version)
		return nil
	}
	h.StageInstallFunc = func(name, version string) error {
		h.staged = append(h.staged, "install "+name+" "+version)
		return nil
	}
	h.LockFunc = func(context.Context) error {
		h.locked = true
		return nil
	}
	h.UnlockFunc = func() error {
		h.unlocked = true
		return nil
	}
	h.BuildPlanFunc = func(context.Context) (core.PlanStatus, []string, error) {
		return status, []string{"No match for argument: missing"}, nil
	}
	h.CommitFunc = func(context.Context, syspkg.EventSink) (*syspkg.Plan, error) {
		return plan, nil
	}
	return h
}

func successPlan() *syspkg.Plan {
	return &syspkg.Plan{Members: []syspkg.Member{
		{Name: "pkgX", Package: &syspkg.PackageID{Name: "pkgX", Epoch: "0", Version: "1.0", Release: "1", Arch: "x86_64", Repo: "@System"}, Code: core.ActionErase},
		{Name: "pkgY", Package: &syspkg.PackageID{Name: "pkgY", Epoch: "0", Version: "2.0", Release: "1", Arch: "noarch", Repo: "updates"}, Code: core.ActionTrueInstall},
	}}
}

func readHistory(t *testing.T, env *testEnv) []history.Entry {
	t.Helper()
	db, err := history.New(context.Background(), env.cfg.Paths.HistoryDB)
	require.NoError(t, err)
	defer db.Close()
	entries, err := db.List(context.Background(), 0)
	require.NoError(t, err)
	return entries
}

func TestRunCmd_EndToEnd(t *testing.T) {
	t.Parallel()
	host := newStagingHost(core.PlanReady, successPlan())
	env := newTestEnv(t, host)

	_, err := env.execute("run", "--erase", "pkgX", "--install", "pkgY,2.0", "--output", "/out/report.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"erase pkgX ", "install pkgY 2.0"}, host.staged)
	assert.True(t, host.unlocked)

	data, err := afero.ReadFile(env.fs, "/out/report.json")
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"action_code":"erase","action_type":"erase","arch":"x86_64","epoch":"0","name":"pkgX","release":"1","repo":"@System","version":"1.0"},
		{"action_code":"true-install","action_type":"install","arch":"noarch","epoch":"0","name":"pkgY","release":"1","repo":"updates","version":"2.0"}
	]`, string(data))

	entries := readHistory(t, env)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusCompleted, entries[0].Status)
	assert.Equal(t, "dnf", entries[0].Backend)
	assert.Len(t, entries[0].Outcomes, 2)
	assert.Len(t, entries[0].Requests, 2)
}

func TestRunCmd_EraseStagedBeforeInstallRegardlessOfFlagOrder(t *testing.T) {
	t.Parallel()
	host := newStagingHost(core.PlanReady, successPlan())
	env := newTestEnv(t, host)

	_, err := env.execute("run", "-i", "pkgY,2.0", "-e", "pkgX", "-o", "/report.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"erase pkgX ", "install pkgY 2.0"}, host.staged)
}

func TestRunCmd_NothingToDo(t *testing.T) {
	t.Parallel()
	host := newStagingHost(core.PlanNothingToDo, nil)
	env := newTestEnv(t, host)

	_, err := env.execute("run", "--install", "pkgY", "--output", "/report.json")
	require.NoError(t, err)

	data, err := afero.ReadFile(env.fs, "/report.json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	entries := readHistory(t, env)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusNothingToDo, entries[0].Status)
}

func TestRunCmd_ResolutionFailure(t *testing.T) {
	t.Parallel()
	host := newStagingHost(1, nil)
	env := newTestEnv(t, host)

	_, err := env.execute("run", "--install", "missing", "--output", "/report.json")
	require.Error(t, err)

	var resolution *transaction.ResolutionError
	require.True(t, errors.As(err, &resolution))
	assert.Equal(t, core.ExitResolutionFailed, ExitCodeForError(err))
	assert.True(t, host.unlocked)

	exists, _ := afero.Exists(env.fs, "/report.json")
	assert.False(t, exists, "no document on failure")

	entries := readHistory(t, env)
	require.Len(t, entries, 1)
	assert.Equal(t, history.StatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Error, "status 1")
}

func TestRunCmd_PartialFailure(t *testing.T) {
	t.Parallel()
	plan := successPlan()
	plan.Members[1].Code = core.ActionFailed
	env := newTestEnv(t, newStagingHost(core.PlanReady, plan))

	_, err := env.execute("run", "--install", "pkgY", "--output", "/report.json")
	require.Error(t, err)
	assert.Equal(t, core.ExitTransactionFailed, ExitCodeForError(err))
}

func TestRunCmd_InvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"shell metacharacters", []string{"--install", "pkg;rm"}},
		{"leading dash", []string{"--erase=-rf"}},
		{"empty name with version", []string{"--install", ",1.0"}},
		{"missing request file", []string{"--requests", "/missing.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			host := newStagingHost(core.PlanReady, successPlan())
			env := newTestEnv(t, host)

			_, err := env.execute(append([]string{"run"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, core.ExitInvalidArgs, ExitCodeForError(err))
			assert.Empty(t, host.staged)
		})
	}
}

func TestRunCmd_MalformedVersionStagesNameOnly(t *testing.T) {
	t.Parallel()
	host := newStagingHost(core.PlanReady, successPlan())
	env := newTestEnv(t, host)

	_, err := env.execute("run",
		"--install", "pkgY,2.0",
		"--install", "pkgZ,1.0,extra",
		"--erase", "pkgX,1.0$(x)",
		"--output", "/report.json",
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"erase pkgX ", "install pkgY 2.0", "install pkgZ "}, host.staged)

	exists, _ := afero.Exists(env.fs, "/report.json")
	assert.True(t, exists)
}

func TestRunCmd_UnwritableOutputRejectedBeforeLocking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(env *testEnv)
		args  []string
	}{
		{
			name:  "descriptor not open",
			setup: func(env *testEnv) { env.cfg.Output.FD = 987 },
			args:  []string{"--install", "pkgY"},
		},
		{
			name:  "read-only output directory",
			setup: func(env *testEnv) { env.fs = afero.NewReadOnlyFs(afero.NewMemMapFs()) },
			args:  []string{"--install", "pkgY", "--output", "/out/report.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			host := newStagingHost(core.PlanReady, successPlan())
			env := newTestEnv(t, host)
			tt.setup(env)

			_, err := env.execute(append([]string{"run"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, core.ExitInvalidArgs, ExitCodeForError(err))
			assert.Contains(t, err.Error(), "not writable")
			assert.False(t, host.locked)
			assert.Empty(t, host.staged)
			assert.Empty(t, readHistory(t, env))
		})
	}
}

func TestRunCmd_RequestFileAppendedAfterFlags(t *testing.T) {
	t.Parallel()
	host := newStagingHost(core.PlanReady, successPlan())
	env := newTestEnv(t, host)
	require.NoError(t, afero.WriteFile(env.fs, "/requests.yaml", []byte("install:\n  - pkgZ,3.1\nerase:\n  - pkgW\n"), 0o644))

	_, err := env.execute("run", "--install", "pkgY", "--erase", "pkgX", "--requests", "/requests.yaml", "--output", "/report.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"erase pkgX ", "erase pkgW ", "install pkgY ", "install pkgZ 3.1"}, host.staged)
}

func TestRunCmd_HistoryDisabled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, newStagingHost(core.PlanReady, successPlan()))
	env.cfg.History.Enabled = false

	_, err := env.execute("run", "--install", "pkgY", "--output", "/report.json")
	require.NoError(t, err)

	exists, err := afero.Exists(afero.NewOsFs(), env.cfg.Paths.HistoryDB)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCmd_HistoryFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, newStagingHost(core.PlanReady, successPlan()))
	env.cfg.Paths.HistoryDB = "/dev/null/history.db"

	_, err := env.execute("run", "--install", "pkgY", "--output", "/report.json")
	require.NoError(t, err)
}

func TestRunCmd_ProviderError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	logger := env.logger
	root := NewRootCmd(env.cfg, &logger, "test",
		WithFs(env.fs),
		WithProviderFactory(func() (syspkg.Provider, error) {
			return nil, errors.New("no supported package manager found")
		}),
	)
	root.SetArgs([]string{"run", "--install", "pkgY", "--output", "/report.json"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported package manager")
}
