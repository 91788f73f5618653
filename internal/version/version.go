// Package version holds build metadata injected with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/aristath/tradejournal/internal/version.Version=1.2.0"
package version

var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)
