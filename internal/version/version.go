// Package version reports the sash build. The variables below are injected at
// build time with -ldflags "-X github.com/Neverlord/sash/internal/version.Version=...".
package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the parsed build information.
type Info struct {
	SemVer    *semver.Version
	GitCommit string
	BuildDate string
	GoVersion string
	Platform  string
}

// Current parses the injected build variables.
func Current() (*Info, error) {
	sv, err := semver.NewVersion(Version)
	if err != nil {
		return nil, fmt.Errorf("invalid semantic version '%s': %w", Version, err)
	}
	return &Info{
		SemVer:    sv,
		GitCommit: known(GitCommit),
		BuildDate: known(BuildDate),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}, nil
}

func known(s string) string {
	if s == "unknown" {
		return ""
	}
	return s
}

// Short is the one-line banner printed by `sash version` and the shell.
func Short() string {
	info, err := Current()
	if err != nil {
		return fmt.Sprintf("sash v%s (invalid version)", Version)
	}

	parts := []string{"sash v" + info.SemVer.String()}
	if info.SemVer.Prerelease() != "" {
		parts[0] += " (prerelease)"
	}
	if c := info.GitCommit; c != "" {
		parts = append(parts, "commit "+c[:min(len(c), 7)])
	}
	if info.BuildDate != "" {
		parts = append(parts, "built "+info.BuildDate)
	}
	return strings.Join(parts, ", ")
}

// Detailed lists every field, one per line. `sash version` prints it at
// debug log level.
func Detailed() string {
	info, err := Current()
	if err != nil {
		return fmt.Sprintf("sash v%s (error: %v)", Version, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "sash v%s\n", info.SemVer)
	if pre := info.SemVer.Prerelease(); pre != "" {
		fmt.Fprintf(&b, "Prerelease: %s\n", pre)
	}
	if meta := info.SemVer.Metadata(); meta != "" {
		fmt.Fprintf(&b, "Build Metadata: %s\n", meta)
	}
	fmt.Fprintf(&b, "Git Commit: %s\n", or(info.GitCommit, "unknown"))
	fmt.Fprintf(&b, "Build Date: %s\n", or(info.BuildDate, "unknown"))
	fmt.Fprintf(&b, "Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(&b, "Platform: %s", info.Platform)
	return b.String()
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
