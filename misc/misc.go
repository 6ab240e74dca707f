// Package misc provides program identity shared by commands, logging and
// generated file names.
package misc

import (
	"runtime/debug"
)

const appName = "cssel"

// GetAppName returns short program name.
func GetAppName() string {
	return appName
}

// GetVersion returns module version recorded by the build system.
func GetVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) > 0 {
		return bi.Main.Version
	}
	return "unknown"
}

// GetGitHash returns VCS revision recorded by the build system.
func GetGitHash() string {
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}
