package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColoredKeepsText(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() {
		Version, color.NoColor = orig, origNoColor
	})
	color.NoColor = true

	tests := []struct {
		version string
		want    string
	}{
		{version: "0.1.0-dev", want: "0.1.0-dev"},
		{version: "1.2.3", want: "1.2.3"},
		{version: "1.2.3-rc.1+build.123", want: "1.2.3-rc.1+build.123"},
		{version: "nightly", want: "nightly"},
	}
	for _, tt := range tests {
		Version = tt.version
		if got := Colored(); got != tt.want {
			t.Errorf("Colored() with %q = %q, want %q", tt.version, got, tt.want)
		}
	}
}
