// Package contracts carries the version constants and build stamps shared
// by every binary. Release builds overwrite the stamps with ldflags:
//
//	-X rosterkit/pkg/contracts.BuildTime=... -X rosterkit/pkg/contracts.GitCommit=...
package contracts

const (
	// Version is the current version of the application
	Version = "0.1.0"

	// DataFormatVersion is the version of the cleaned-data format
	DataFormatVersion = "v1"

	// APIVersion is the version of the API (WebSocket messages)
	APIVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)
