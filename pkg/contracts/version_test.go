package contracts

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, VersionStage, info.Stage)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.True(t, IsPrerelease())

	full := GetFullVersionString()
	assert.True(t, strings.HasPrefix(full, "aadhaarcli v"+Version))
	assert.Contains(t, full, runtime.GOOS+"/"+runtime.GOARCH)
}
