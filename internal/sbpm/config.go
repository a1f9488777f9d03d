package sbpm

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/daslaller/necbuild/internal/core"
)

// Manifest describes what to install and how to build. Any field left empty
// in the file keeps its default.
type Manifest struct {
	Required       []string `yaml:"required"`
	Optional       []string `yaml:"optional"`
	ConfigureFlags []string `yaml:"configure_flags"`
	Artifact       string   `yaml:"artifact"`
	InstallDir     string   `yaml:"install_dir"`
}

// Package is one Homebrew formula the build depends on.
type Package struct {
	Name     string
	Required bool
}

// DefaultManifest returns the dependency set for building xnec2c.
func DefaultManifest() Manifest {
	return Manifest{
		Required:       []string{"autoconf", "automake", "libtool", "pkg-config", "gettext", "gtk+3"},
		Optional:       []string{"gnuplot", "adwaita-icon-theme"},
		ConfigureFlags: []string{"--enable-optimizations"},
		Artifact:       "src/xnec2c",
		InstallDir:     "/usr/local/bin",
	}
}

// LoadManifest reads a YAML manifest and overlays it on the defaults. Its
// configure flags are appended to the default ones. An empty path or a file
// that does not exist yields the defaults.
func LoadManifest(path string) (Manifest, error) {
	m := DefaultManifest()
	if strings.TrimSpace(path) == "" {
		return m, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var file Manifest
	if err := yaml.Unmarshal(b, &file); err != nil {
		return Manifest{}, core.Errorf(core.InvalidArgument, "parse manifest %s: %w", path, err)
	}
	if len(file.Required) > 0 {
		m.Required = file.Required
	}
	if len(file.Optional) > 0 {
		m.Optional = file.Optional
	}
	for _, f := range file.ConfigureFlags {
		if !slices.Contains(m.ConfigureFlags, f) {
			m.ConfigureFlags = append(m.ConfigureFlags, f)
		}
	}
	if file.Artifact != "" {
		m.Artifact = file.Artifact
	}
	if file.InstallDir != "" {
		m.InstallDir = file.InstallDir
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate rejects duplicate names within the required or optional list.
// A name appearing in both lists is allowed.
func (m Manifest) Validate() error {
	for label, names := range map[string][]string{"required": m.Required, "optional": m.Optional} {
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if strings.TrimSpace(n) == "" {
				return core.Errorf(core.InvalidArgument, "manifest: empty package name in %s list", label)
			}
			if seen[n] {
				return core.Errorf(core.InvalidArgument, "manifest: duplicate package %q in %s list", n, label)
			}
			seen[n] = true
		}
	}
	return nil
}

// RequiredPackages returns the required list as Packages.
func (m Manifest) RequiredPackages() []Package { return toPackages(m.Required, true) }

// OptionalPackages returns the optional list as Packages.
func (m Manifest) OptionalPackages() []Package { return toPackages(m.Optional, false) }

func toPackages(names []string, required bool) []Package {
	out := make([]Package, 0, len(names))
	for _, n := range names {
		out = append(out, Package{Name: n, Required: required})
	}
	return out
}
