// Package version reports build information stamped in with -ldflags
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func Get() *Info {
	return &Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func (i *Info) String() string {
	return fmt.Sprintf("drivesync %s (%s) built %s with %s for %s", i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform)
}

func (i *Info) Short() string {
	return i.Version
}

// Headers, Rows and EmptyMessage let the CLI render Info as a table
func (i *Info) Headers() []string {
	return []string{"Version", "Commit", "Built", "Go", "Platform"}
}

func (i *Info) Rows() [][]string {
	return [][]string{{i.Version, i.GitCommit, i.BuildTime, i.GoVersion, i.Platform}}
}

func (i *Info) EmptyMessage() string { return i.String() }
