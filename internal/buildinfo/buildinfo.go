// Package buildinfo carries the version stamped into the flowadmin binary.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags -X.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// DisplayVersion returns "dev", or the version with a "v" prefix. Unset
// versions fall back to the module version embedded by go install.
func DisplayVersion() string {
	v := strings.TrimSpace(Version)
	if v == "" || v == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			if mv := strings.TrimSpace(bi.Main.Version); mv != "" && mv != "(devel)" {
				v = mv
			}
		}
	}
	switch {
	case v == "" || v == "dev" || v == "(devel)":
		return "dev"
	case strings.HasPrefix(v, "v"):
		return v
	case v[0] >= '0' && v[0] <= '9':
		return "v" + v
	}
	return v
}

// Info is what `flowadmin version` prints.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func Current() Info {
	return Info{Version: DisplayVersion(), Commit: Commit, Date: Date}
}

// Inline is the compact header form: version, short commit and day, each
// only when known.
func (i Info) Inline() string {
	parts := []string{i.Version}
	if c := strings.TrimSpace(i.Commit); c != "" && c != "none" {
		if len(c) > 7 {
			c = c[:7]
		}
		parts = append(parts, c)
	}
	if d := day(i.Date); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, " · ")
}

func day(date string) string {
	d := strings.TrimSpace(date)
	if d == "" || d == "unknown" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, d); err == nil {
		return t.Format(time.DateOnly)
	}
	if len(d) >= 10 {
		return d[:10]
	}
	return d
}

func (i Info) String() string {
	return fmt.Sprintf("flowadmin %s (%s, %s)", i.Version, i.Commit, i.Date)
}
