package contracts

import (
	"fmt"
	"runtime"
)

// Product is the display name used by the binaries
const Product = "GCTI Incident Dashboard"

const (
	Version = "1.0.0"

	// DataFormatVersion tracks the column layout of generated and exported datasets
	DataFormatVersion = "v1"

	// APIVersion covers both the JSON API and the WebSocket message envelope
	APIVersion = "v1"
)

// Stamped by build.go through -ldflags -X
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo describes the running build
type VersionInfo struct {
	Version    string `json:"version"`
	BuildTime  string `json:"build_time"`
	GitCommit  string `json:"git_commit"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	DataFormat string `json:"data_format"`
	APIVersion string `json:"api_version"`
}

func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:    Version,
		BuildTime:  BuildTime,
		GitCommit:  GitCommit,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		DataFormat: DataFormatVersion,
		APIVersion: APIVersion,
	}
}

// GetFullVersionString renders the build for --version output
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s v%s (dataset %s, api %s, commit %s, built %s, %s %s)",
		Product, info.Version, info.DataFormat, info.APIVersion,
		info.GitCommit, info.BuildTime, info.GoVersion, info.Platform)
}
