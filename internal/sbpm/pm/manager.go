package pm

import (
	"context"
)

type Package struct {
	Name string
}

// Manager is the subset of a package manager the build needs: presence
// queries and one bulk install.
type Manager interface {
	Name() string
	Present(ctx context.Context, pkg Package) (bool, error)
	Install(ctx context.Context, pkgs []Package) error
}

// Executor matches the command runner used by higher layers. It is re-declared
// here to avoid an import cycle between sbpm and pm packages.
// Run captures output quietly; Stream also echoes it to the terminal.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
	Stream(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}
