package main

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestVersionFrom(t *testing.T) {
	tests := []struct {
		name string
		info *debug.BuildInfo
		want string
	}{
		{"no build info", nil, "0.1.0"},
		{
			"installed",
			&debug.BuildInfo{Main: debug.Module{Version: "v0.1.0"}},
			"v0.1.0",
		},
		{
			"devel with revision",
			&debug.BuildInfo{
				Main:     debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc1234def"}},
			},
			"devel-0.1.0+abc1234",
		},
		{
			"devel dirty",
			&debug.BuildInfo{
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc1234def"},
					{Key: "vcs.modified", Value: "true"},
				},
			},
			"devel-0.1.0+abc1234-dirty",
		},
		{"devel without vcs", &debug.BuildInfo{}, "devel-0.1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := versionFrom("0.1.0", tt.info); got != tt.want {
				t.Errorf("versionFrom() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersion_Embedded(t *testing.T) {
	if strings.TrimSpace(embeddedVersion) == "" {
		t.Fatal("VERSION is empty")
	}
	if Version() == "" {
		t.Error("Version() is empty")
	}
}
