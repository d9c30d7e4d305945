// Package version reports the openaikit release compiled into a binary and
// the User-Agent string the client sends with every request.
//
// Version is normally taken from the module version recorded by the Go
// toolchain. Binaries built from a checkout can set it explicitly:
//
//	go build -ldflags "-X github.com/kbukum/openaikit/version.Version=1.2.0"
package version
