package nameclean

import (
	"testing"

	"github.com/codeGROOVE-dev/sivaguard/pkg/identity"
)

func TestClean(t *testing.T) {
	tests := []struct {
		raw      string
		platform identity.Platform
		want     string
	}{
		{"Jane Doe | Facebook", identity.Facebook, "Jane Doe"},
		{"Jane • Instagram photos and videos", identity.Instagram, "Jane"},
		{"John Doe (@johndoe) / X", identity.X, "John Doe"},
		{"  John   Doe  ", identity.GitHub, "John Doe"},
		{"John Doe on Twitter", identity.X, "John Doe on"},
		{"Jane Doe x", identity.X, "Jane Doe"},
		{"Jane Doe LinkedIn", identity.LinkedIn, "Jane Doe"},
		{"octocat · GitHub", identity.GitHub, "octocat"},
		{"Jane Doe Facebook", identity.Instagram, "Jane Doe Facebook"},
		{"Facebook", identity.Facebook, "Facebook"},
		{"Dev: Jane", identity.Other, "Dev"},
		{"", identity.Facebook, ""},
		{"   ", identity.Facebook, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Clean(tt.raw, tt.platform); got != tt.want {
				t.Errorf("Clean(%q, %s) = %q, want %q", tt.raw, tt.platform, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	for _, raw := range []string{"Jane Doe | Facebook", "Mike  Mike", "A - B - C", "x"} {
		once := Clean(raw, identity.Facebook)
		if twice := Clean(once, identity.Facebook); twice != once {
			t.Errorf("Clean not idempotent for %q: %q then %q", raw, once, twice)
		}
	}
}
