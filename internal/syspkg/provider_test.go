package syspkg

import (
	"testing"

	"github.com/quantmind-br/pkgtx/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageID_String(t *testing.T) {
	tests := []struct {
		name string
		id   PackageID
		want string
	}{
		{
			name: "full nevra",
			id:   PackageID{Name: "bash", Epoch: "1", Version: "5.2", Release: "3.fc39", Arch: "x86_64"},
			want: "bash-1:5.2-3.fc39.x86_64",
		},
		{
			name: "zero epoch omitted",
			id:   PackageID{Name: "bash", Epoch: "0", Version: "5.2", Release: "3.fc39", Arch: "x86_64"},
			want: "bash-5.2-3.fc39.x86_64",
		},
		{
			name: "no release or arch",
			id:   PackageID{Name: "zlib", Version: "1.3"},
			want: "zlib-1.3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.String())
		})
	}
}

func TestParseEVR(t *testing.T) {
	tests := []struct {
		evr                     string
		epoch, version, release string
	}{
		{"1:3.1-2.fc39", "1", "3.1", "2.fc39"},
		{"2.0-1", "0", "2.0", "1"},
		{"2.0", "0", "2.0", ""},
		{"1.2.3-4-5", "0", "1.2.3-4", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.evr, func(t *testing.T) {
			e, v, r := ParseEVR(tt.evr)
			assert.Equal(t, tt.epoch, e)
			assert.Equal(t, tt.version, v)
			assert.Equal(t, tt.release, r)
		})
	}
}

func TestPlan_Failed(t *testing.T) {
	plan := &Plan{Members: []Member{
		{Name: "a", Code: core.ActionInstall},
		{Name: "b", Package: &PackageID{Name: "b", Version: "1", Release: "1", Arch: "noarch"}, Code: core.ActionFailed},
		{Name: "c", Code: core.ActionFailed},
	}}

	assert.Equal(t, []string{"b-1-1.noarch", "c"}, plan.Failed())

	var nilPlan *Plan
	assert.Nil(t, nilPlan.Failed())
}

func TestParseListScope(t *testing.T) {
	scope, err := ParseListScope("")
	require.NoError(t, err)
	assert.Equal(t, ScopeAll, scope)

	scope, err = ParseListScope("Installed")
	require.NoError(t, err)
	assert.Equal(t, ScopeInstalled, scope)

	_, err = ParseListScope("recent")
	assert.Error(t, err)
}
