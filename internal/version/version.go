// Package version carries build metadata for quotestream.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/jsphbtst/personal-alpaca-cli/internal/version.Version=1.2.0 \
//	                   -X github.com/jsphbtst/personal-alpaca-cli/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/quotestream
package version

import "fmt"

// ServiceName identifies the process in logs and traces.
const ServiceName = "quotestream"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns "<version> (<commit>, built <time>)".
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, Commit, BuildTime)
}

// UserAgent returns the value sent in the websocket handshake.
func UserAgent() string {
	return ServiceName + "/" + Version
}
