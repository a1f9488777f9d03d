package sbpm

import (
	"runtime"

	"github.com/daslaller/necbuild/internal/core"
)

// Install-prefix roots used by Homebrew on macOS.
const (
	PrefixAppleSilicon = "/opt/homebrew"
	PrefixIntel        = "/usr/local"
)

// Profile captures the OS/arch of the host and the Homebrew prefix derived
// from it. It is computed once per run and passed by value.
type Profile struct {
	OS     string
	Arch   string
	Prefix string
}

// DetectPlatform returns the profile for the given GOOS/GOARCH pair. Only
// darwin is supported. arm64 maps to the Apple Silicon prefix and every other
// architecture to the Intel one.
func DetectPlatform(goos, goarch string) (Profile, error) {
	if goos != "darwin" {
		return Profile{}, core.Errorf(core.UnsupportedPlatform, "macOS (darwin) is required, host is %q", goos)
	}
	return Profile{OS: "macos", Arch: goarch, Prefix: PrefixFor(goarch)}, nil
}

// DetectHost runs DetectPlatform against the running binary, allowing an
// optional override for the OS identifier.
func DetectHost(override string) (Profile, error) {
	goos := runtime.GOOS
	switch override {
	case "macos", "darwin":
		goos = "darwin"
	case "":
	default:
		goos = override
	}
	return DetectPlatform(goos, runtime.GOARCH)
}

// PrefixFor maps an architecture identifier to its install prefix.
func PrefixFor(arch string) string {
	if arch == "arm64" {
		return PrefixAppleSilicon
	}
	return PrefixIntel
}
