package sbpm

import (
	"testing"

	"github.com/daslaller/necbuild/internal/core"
)

func TestDetectPlatform_Darwin(t *testing.T) {
	cases := map[string]string{
		"arm64":   PrefixAppleSilicon,
		"amd64":   PrefixIntel,
		"386":     PrefixIntel,
		"riscv64": PrefixIntel,
		"":        PrefixIntel,
	}
	for arch, want := range cases {
		got, err := DetectPlatform("darwin", arch)
		if err != nil {
			t.Fatalf("arch %q: unexpected error: %v", arch, err)
		}
		if got.Prefix != want || got.Arch != arch || got.OS != "macos" {
			t.Fatalf("arch %q: got %+v want prefix %s", arch, got, want)
		}
		again, _ := DetectPlatform("darwin", arch)
		if again != got {
			t.Fatalf("arch %q: detection not deterministic: %+v vs %+v", arch, got, again)
		}
	}
}

func TestDetectPlatform_Unsupported(t *testing.T) {
	for _, goos := range []string{"linux", "windows", "freebsd"} {
		_, err := DetectPlatform(goos, "arm64")
		if core.KindOf(err) != core.UnsupportedPlatform {
			t.Fatalf("%s: expected UnsupportedPlatform, got %v", goos, err)
		}
	}
}

func TestDetectHost_Override(t *testing.T) {
	p, err := DetectHost("macos")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Prefix != PrefixFor(p.Arch) {
		t.Fatalf("prefix mismatch: %+v", p)
	}
	if _, err := DetectHost("linux"); core.KindOf(err) != core.UnsupportedPlatform {
		t.Fatalf("expected UnsupportedPlatform for linux override, got %v", err)
	}
}
