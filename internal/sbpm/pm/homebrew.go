package pm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by FindHomebrew when no brew binary is available.
var ErrNotFound = errors.New("homebrew not found")

// InstallHint is shown when Homebrew is missing.
const InstallHint = `install Homebrew first: /bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)" (see https://brew.sh)`

// FindHomebrew locates the brew binary, preferring <prefix>/bin/brew over
// whatever is first on PATH.
func FindHomebrew(prefix string) (string, error) {
	candidate := filepath.Join(prefix, "bin", "brew")
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	if p, err := exec.LookPath("brew"); err == nil {
		return p, nil
	}
	return "", ErrNotFound
}

// Homebrew implements Manager using the `brew` CLI on macOS.
// Commands are invoked directly without shell wrapping.
type Homebrew struct {
	bin  string
	exec Executor
}

func NewHomebrew(bin string, exec Executor) *Homebrew {
	if bin == "" {
		bin = "brew"
	}
	return &Homebrew{bin: bin, exec: exec}
}

func (h *Homebrew) Name() string { return "homebrew" }

func (h *Homebrew) Present(ctx context.Context, pkg Package) (bool, error) {
	// `brew list --versions <name>` returns 0 if installed and prints versions.
	_, _, err := h.exec.Run(ctx, h.bin, "list", "--versions", pkg.Name)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

// Install installs every package in a single brew invocation. Packages that
// brew managed to install before a failure stay installed.
func (h *Homebrew) Install(ctx context.Context, pkgs []Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := []string{"install"}
	for _, p := range pkgs {
		args = append(args, p.Name)
	}
	_, stderr, err := h.exec.Stream(ctx, h.bin, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return fmt.Errorf("brew %s: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("brew %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return nil
}
