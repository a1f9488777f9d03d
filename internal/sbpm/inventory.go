package sbpm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/daslaller/necbuild/internal/core"
	"github.com/daslaller/necbuild/internal/sbpm/pm"
)

// Confirmer asks whether to proceed with the described action.
type Confirmer interface {
	Confirm(ctx context.Context, description string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, description string) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, description string) (bool, error) {
	return f(ctx, description)
}

// InventoryResult maps package name to whether it is installed.
type InventoryResult map[string]bool

// pmExecAdapter bridges internal Executor to pm.Executor.
// Defined at package level to avoid function-local method definition.
//
type pmExecAdapter struct {
	inner Executor
	env   Environment
}

func (a pmExecAdapter) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return a.inner.Run(ctx, Command{Name: name, Args: args, Env: a.env})
}

func (a pmExecAdapter) Stream(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return a.inner.Run(ctx, Command{Name: name, Args: args, Env: a.env, Stream: true})
}

// NewHomebrew returns a Homebrew manager that runs bin through exec with env.
func NewHomebrew(bin string, exec Executor, env Environment) *pm.Homebrew {
	return pm.NewHomebrew(bin, pmExecAdapter{inner: exec, env: env})
}

// Inventory queries and installs build dependencies.
type Inventory struct {
	m      pm.Manager
	logger *slog.Logger
}

func NewInventory(m pm.Manager, logger *slog.Logger) *Inventory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inventory{m: m, logger: logger}
}

// CheckInstalled reports whether name is installed. Query failures count as
// not installed.
func (inv *Inventory) CheckInstalled(ctx context.Context, name string) bool {
	present, err := inv.m.Present(ctx, pm.Package{Name: name})
	if err != nil {
		inv.logger.Debug("presence check failed", "manager", inv.m.Name(), "pkg", name, "err", err)
		return false
	}
	return present
}

// ComputeMissing returns the required packages that are not installed, in
// input order.
func (inv *Inventory) ComputeMissing(ctx context.Context, required []Package) []Package {
	var missing []Package
	for _, p := range required {
		if inv.CheckInstalled(ctx, p.Name) {
			inv.logger.Info("required package present", "pkg", p.Name)
			continue
		}
		inv.logger.Warn("required package missing", "pkg", p.Name)
		missing = append(missing, p)
	}
	return missing
}

// ReportOptional logs which optional packages are present. It never fails:
// a missing optional package only costs the feature that uses it.
func (inv *Inventory) ReportOptional(ctx context.Context, optional []Package) InventoryResult {
	res := make(InventoryResult, len(optional))
	for _, p := range optional {
		present := inv.CheckInstalled(ctx, p.Name)
		res[p.Name] = present
		if present {
			inv.logger.Info("optional package present", "pkg", p.Name)
		} else {
			inv.logger.Info("optional package not installed", "pkg", p.Name, "hint", "brew install "+p.Name)
		}
	}
	return res
}

// InstallMissing installs missing after the confirmer agrees. Nothing is
// asked when missing is empty.
func (inv *Inventory) InstallMissing(ctx context.Context, missing []Package, confirm Confirmer) error {
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	pkgs := make([]pm.Package, 0, len(missing))
	for _, p := range missing {
		names = append(names, p.Name)
		pkgs = append(pkgs, pm.Package{Name: p.Name})
	}
	desc := fmt.Sprintf("Install missing packages with %s: %s?", inv.m.Name(), strings.Join(names, ", "))
	ok, err := confirm.Confirm(ctx, desc)
	if err != nil {
		return &core.Error{Kind: core.DependenciesDeclined, Err: fmt.Errorf("confirmation: %w", err)}
	}
	if !ok {
		return core.Errorf(core.DependenciesDeclined, "required packages not installed: %s", strings.Join(names, ", "))
	}
	inv.logger.Info("installing packages", "manager", inv.m.Name(), "pkgs", strings.Join(names, " "))
	if err := inv.m.Install(ctx, pkgs); err != nil {
		return &core.Error{Kind: core.InstallationFailure, Err: err}
	}
	return nil
}
