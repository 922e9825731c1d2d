package version

import (
	"runtime/debug"
	"testing"
	"time"
)

func vcsInfo(modified string) *debug.BuildInfo {
	return &debug.BuildInfo{
		Main: debug.Module{Path: "example.test/pixterm", Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC).Format(time.RFC3339)},
			{Key: "vcs.modified", Value: modified},
		},
	}
}

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name      string
		info      *debug.BuildInfo
		override  string
		want      string
		wantDirty string
	}{
		{"no build info", nil, "", unknownVersion, unknownVersion},
		{"override wins", vcsInfo("false"), "v1.2.3", "v1.2.3", "v1.2.3"},
		{"dirty override", vcsInfo("false"), "v1.2.3+dirty", "v1.2.3", "v1.2.3+dirty"},
		{"module version", &debug.BuildInfo{Main: debug.Module{Version: "v0.4.0"}}, "", "v0.4.0", "v0.4.0"},
		{"pseudo from vcs", vcsInfo("false"), "", "v0.0.0-20250102030405-1234567890ab", "v0.0.0-20250102030405-1234567890ab"},
		{"pseudo modified", vcsInfo("true"), "", "v0.0.0-20250102030405-1234567890ab", "v0.0.0-20250102030405-1234567890ab+dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := fromBuildInfo(tt.info, tt.override)
			if got := info.String(false); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if got := info.String(true); got != tt.wantDirty {
				t.Fatalf("expected dirty form %q, got %q", tt.wantDirty, got)
			}
		})
	}
}

func TestFromBuildInfoModule(t *testing.T) {
	if got := fromBuildInfo(nil, "").Module; got != modulePath {
		t.Fatalf("expected default module %q, got %q", modulePath, got)
	}
	info := fromBuildInfo(vcsInfo("true"), "")
	if info.Module != "example.test/pixterm" {
		t.Fatalf("expected module from build info, got %q", info.Module)
	}
	if info.Revision != "1234567890abcdef" || info.Time.IsZero() {
		t.Fatalf("expected vcs details, got %+v", info)
	}
	if got := info.Line(false); got != "example.test/pixterm v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestReadPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v9.9.9"
	t.Cleanup(func() { buildVersion = old })

	if got := Read().String(false); got != "v9.9.9" {
		t.Fatalf("expected build version, got %q", got)
	}
}
