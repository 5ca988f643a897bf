package version_test

import (
	"runtime"
	"testing"

	"github.com/paveg/returnlab/internal/version"
	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	info := version.Info()

	assert.Equal(t, version.Version, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Contains(t, info.String(), "returnlab ")
	assert.Contains(t, info.String(), "Go Version: ")
}

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info version.BuildInfo
		want string
	}{
		{"no commit", version.BuildInfo{Version: "dev", GitCommit: "unknown"}, "dev"},
		{"abbreviated", version.BuildInfo{Version: "v1.2.0", GitCommit: "abcdef123456"}, "v1.2.0 (abcdef1)"},
		{"dirty", version.BuildInfo{Version: "v1.2.0", GitCommit: "abcdef123456-dirty", Dirty: true}, "v1.2.0 (abcdef1, dirty)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.Short())
		})
	}
}

func TestIsRelease(t *testing.T) {
	original := version.Version
	t.Cleanup(func() { version.Version = original })

	version.Version = "dev"
	assert.False(t, version.IsRelease())
	version.Version = "v1.0.0-rc.1"
	assert.False(t, version.IsRelease())
	version.Version = "v1.0.0"
	assert.True(t, version.IsRelease())
}
