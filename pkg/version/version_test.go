package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBuildInfo(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	oldVersion, oldCommit, oldBuildTime := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, buildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = oldVersion, oldCommit, oldBuildTime
	})
}

func TestGetDefaults(t *testing.T) {
	info := Get()

	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "unknown", info.GitCommit)
	assert.Equal(t, "unknown", info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestGetReflectsLinkerFlags(t *testing.T) {
	setBuildInfo(t, "v0.3.0", "9f2c1e4", "2026-10-01T12:00:00Z")

	info := Get()
	assert.Equal(t, "v0.3.0", info.Version)
	assert.Equal(t, "9f2c1e4", info.GitCommit)
	assert.Equal(t, "2026-10-01T12:00:00Z", info.BuildTime)
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v0.3.0", GitCommit: "9f2c1e4", BuildTime: "2026-10-01T12:00:00Z", GoVersion: "go1.25.1"}

	assert.Equal(t,
		"Version: v0.3.0, GitCommit: 9f2c1e4, BuildTime: 2026-10-01T12:00:00Z, GoVersion: go1.25.1",
		info.String())
}

func TestInfoJSON(t *testing.T) {
	setBuildInfo(t, "v0.3.0", "9f2c1e4", "2026-10-01T12:00:00Z")

	out, err := Get().JSON()
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &fields))
	assert.Equal(t, map[string]string{
		"version":   "v0.3.0",
		"gitCommit": "9f2c1e4",
		"buildTime": "2026-10-01T12:00:00Z",
		"goVersion": runtime.Version(),
	}, fields)
	assert.Contains(t, out, "\n  \"version\": \"v0.3.0\"")
}
