package audiotag

import "runtime"

// Version is the semantic version of the library.
const Version = "0.1.0"

// VersionInfo describes the build.
type VersionInfo struct {
	Version   string
	GitCommit string // set via -ldflags at build time
	BuildTime string // set via -ldflags at build time
	GoVersion string
}

// GetVersionInfo returns the build information. Fields not set at build
// time read "unknown", except GoVersion which falls back to the running
// toolchain:
//
//	go build -ldflags="-X github.com/simonhull/audiotag.gitCommit=$(git rev-parse HEAD) \
//	  -X github.com/simonhull/audiotag.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
func GetVersionInfo() VersionInfo {
	goVer := goVersion
	if goVer == "unknown" {
		goVer = runtime.Version()
	}
	return VersionInfo{
		Version:   Version,
		GitCommit: gitCommit,
		BuildTime: buildTime,
		GoVersion: goVer,
	}
}

var (
	gitCommit = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)
