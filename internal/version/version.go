// Package version reports how the running pixterm binary was built.
package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const modulePath = "pkt.systems/pixterm"

const unknownVersion = "v0.0.0-unknown"

// buildVersion is set via -ldflags "-X pkt.systems/pixterm/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build. Version never carries the +dirty
// suffix; Modified records it instead.
type Info struct {
	Module   string
	Version  string
	Revision string
	Time     time.Time
	Modified bool
}

// Read collects Info from the linker override and the embedded build info.
func Read() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		bi = nil
	}
	return fromBuildInfo(bi, buildVersion)
}

// String returns the version, with +dirty appended for modified builds when
// withDirty is set.
func (i Info) String(withDirty bool) string {
	if withDirty && i.Modified {
		return i.Version + "+dirty"
	}
	return i.Version
}

// Line is the one-line form printed by the version command.
func (i Info) Line(withDirty bool) string {
	return i.Module + " " + i.String(withDirty)
}

func fromBuildInfo(bi *debug.BuildInfo, override string) Info {
	info := Info{Module: modulePath, Version: unknownVersion}
	mainVersion := ""
	if bi != nil {
		if path := strings.TrimSpace(bi.Main.Path); path != "" {
			info.Module = path
		}
		if v := strings.TrimSpace(bi.Main.Version); v != "(devel)" {
			mainVersion = v
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				info.Revision = setting.Value
			case "vcs.time":
				if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					info.Time = ts.UTC()
				}
			case "vcs.modified":
				info.Modified = setting.Value == "true"
			}
		}
	}
	switch {
	case strings.TrimSpace(override) != "":
		info.Version = info.takeDirty(override)
	case mainVersion != "":
		info.Version = info.takeDirty(mainVersion)
	case info.Revision != "" && !info.Time.IsZero():
		info.Version = "v0.0.0-" + info.Time.Format("20060102150405") + "-" + shortRevision(info.Revision)
	}
	return info
}

func (i *Info) takeDirty(v string) string {
	v = strings.TrimSpace(v)
	if trimmed, ok := strings.CutSuffix(v, "+dirty"); ok {
		i.Modified = true
		return trimmed
	}
	return v
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
