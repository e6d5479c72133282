// Package version carries build metadata, overridable with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0"
	Commit    = "dev"
	BuildDate = "2025-02-20"
)

// Info is the build metadata reported by the CLI and the API.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Build     string `json:"build"`
	GoVersion string `json:"go"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{
		Service:   "vantage",
		Version:   Version,
		Commit:    Commit,
		Build:     BuildDate,
		GoVersion: runtime.Version(),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", i.Service, i.Version, i.Commit, i.Build, i.GoVersion)
}
