package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// ModulePath is the import path looked up in the build info.
const ModulePath = "github.com/kbukum/openaikit"

// Version is set at build time using -ldflags. Empty means "ask the build info".
var Version = ""

// Info describes the library build.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	GitCommit string `json:"git_commit,omitempty"`
	IsDirty   bool   `json:"is_dirty"`
	IsRelease bool   `json:"is_release"`
}

var readBuildInfo = debug.ReadBuildInfo

// Get resolves version information from the ldflags value, the module
// dependency list or the main module, in that order.
func Get() Info {
	info := Info{Version: Version, GoVersion: runtime.Version()}

	if bi, ok := readBuildInfo(); ok {
		if info.Version == "" {
			info.Version = moduleVersion(bi)
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			case "vcs.modified":
				info.IsDirty = s.Value == "true"
			}
		}
	}

	if info.Version == "" || info.Version == "(devel)" {
		info.Version = "dev"
	}
	info.IsRelease = info.Version != "dev" && !info.IsDirty && !strings.Contains(info.Version, "-")
	return info
}

func moduleVersion(bi *debug.BuildInfo) string {
	if bi.Main.Path == ModulePath {
		return bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path != ModulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return ""
}

// Short returns the version with the commit appended when known.
func Short() string {
	info := Get()
	if info.GitCommit == "" {
		return info.Version
	}
	if info.IsDirty {
		return fmt.Sprintf("%s-%s-dirty", info.Version, info.GitCommit)
	}
	return fmt.Sprintf("%s-%s", info.Version, info.GitCommit)
}

// UserAgent is the default User-Agent header value, e.g. "openaikit/1.2.0 (go1.25.0)".
func UserAgent() string {
	info := Get()
	return fmt.Sprintf("openaikit/%s (%s)", strings.TrimPrefix(info.Version, "v"), info.GoVersion)
}
