package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuildVars(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	oldVersion, oldCommit, oldTime := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, buildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = oldVersion, oldCommit, oldTime
	})
}

func TestRelease(t *testing.T) {
	withBuildVars(t, "v1.2.3", "0123456789abcdef", "2026-01-02T03:04:05Z")

	assert.Equal(t, "v1.2.3", GetVersion())
	assert.True(t, IsRelease())
	assert.Equal(t, "v1.2.3 (0123456)", GetShortVersion())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), GetBuildTime())

	detailed := GetDetailedVersion()
	assert.True(t, strings.HasPrefix(detailed, "Version: v1.2.3\nCommit: 0123456789abcdef"))
	assert.Contains(t, detailed, "Built: 2026-01-02T03:04:05Z")
}

func TestParseISOTime(t *testing.T) {
	tests := []struct {
		input string
		zero  bool
	}{
		{"", true},
		{"unknown", true},
		{"yesterday", true},
		{"2026-01-02T03:04:05Z", false},
		{"2026-01-02T03:04:05", false},
		{"2026-01-02 03:04:05", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.zero, parseISOTime(tt.input).IsZero())
		})
	}
}

func TestGetBuildInfo(t *testing.T) {
	withBuildVars(t, "v0.1.0", "unknown", "unknown")

	info := GetBuildInfo()
	assert.Equal(t, "v0.1.0", info.Version)
	assert.True(t, info.BuildTime.IsZero())
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
