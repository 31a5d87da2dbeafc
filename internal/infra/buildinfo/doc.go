// Package buildinfo exposes version information for miniredis binaries.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/miniredis-go/internal/infra/buildinfo.Version=v1.0.0"
//
// When ldflags are absent, the commit and build time fall back to the VCS
// stamps the Go toolchain embeds.
package buildinfo
