package common

import (
	"fmt"
	"io"
	"runtime"
)

const (
	ProjectName = "OU Reversion Bot"
	ProjectRepo = "github.com/ducminhle1904/ou-reversion-bot"
)

// Build information, overridden at build time via -ldflags "-X ..."
var (
	ProjectVersion = "1.0.0"
	BuildDate      = "unknown"
	BuildCommit    = "dev"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	ProjectName  string `json:"project_name"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	BuildCommit  string `json:"build_commit"`
	GoVersion    string `json:"go_version"`
	Architecture string `json:"architecture"`
	Repository   string `json:"repository"`
}

// GetVersionInfo returns complete version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ProjectName:  ProjectName,
		Version:      ProjectVersion,
		BuildDate:    BuildDate,
		BuildCommit:  BuildCommit,
		GoVersion:    runtime.Version(),
		Architecture: runtime.GOOS + "/" + runtime.GOARCH,
		Repository:   ProjectRepo,
	}
}

// PrintVersion prints version information in a formatted way
func PrintVersion(w io.Writer, appName string) {
	info := GetVersionInfo()

	fmt.Fprintf(w, "%s v%s\n", appName, info.Version)
	fmt.Fprintf(w, "Build: %s (%s)\n", info.BuildCommit, info.BuildDate)
	fmt.Fprintf(w, "Go: %s (%s)\n", info.GoVersion, info.Architecture)
}

// GetFullVersion returns a full version string with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s-%s (%s)", ProjectVersion, BuildCommit, BuildDate)
}

// IsDevBuild returns true if this is a development build
func IsDevBuild() bool {
	return BuildCommit == "dev"
}
