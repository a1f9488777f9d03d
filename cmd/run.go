package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daslaller/necbuild/internal/build"
	"github.com/daslaller/necbuild/internal/cli"
	"github.com/daslaller/necbuild/internal/core"
	"github.com/daslaller/necbuild/internal/sbpm"
	"github.com/daslaller/necbuild/internal/tui"
)

// Deps holds everything Run touches outside the process.
type Deps struct {
	Config  core.Config
	Logger  *slog.Logger
	Exec    sbpm.Executor
	Environ []string
	Stdout  io.Writer

	// Detect returns the host profile.
	Detect func() (sbpm.Profile, error)
	// FindBrew returns the brew binary for a prefix.
	FindBrew func(prefix string) (string, error)
	Confirm  sbpm.Confirmer
	// Stat overrides the artifact check; nil uses os.Stat.
	Stat func(string) (fs.FileInfo, error)
}

// NewRootCommand returns the necbuild command. Cobra parses --install and
// --help; every error it returns has already been reported to the user.
func NewRootCommand(d Deps) *cobra.Command {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rep := tui.NewReporter(d.Stdout)
	invalid := func(err error) error {
		cli.PrintUsage(d.Stdout)
		rep.Failure(err)
		return err
	}

	root := &cobra.Command{
		Use:           "necbuild",
		Short:         "Build xnec2c from source on macOS",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	opts := cli.Bind(root.Flags())
	root.Args = func(c *cobra.Command, args []string) error {
		if err := cli.CheckArgs(c.Flags(), args); err != nil {
			return invalid(err)
		}
		return nil
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalid(cli.FlagError(err))
	})
	root.SetHelpFunc(func(*cobra.Command, []string) {
		cli.PrintUsage(d.Stdout)
	})
	root.SetOut(d.Stdout)
	root.SetErr(d.Stdout)
	root.RunE = func(c *cobra.Command, _ []string) error {
		if err := run(c.Context(), *opts, d, logger, rep); err != nil {
			rep.Failure(err)
			return err
		}
		return nil
	}
	return root
}

// Run executes the whole build for args and returns the error that ended
// it, already reported to the user.
func Run(ctx context.Context, args []string, d Deps) error {
	if len(args) > 0 && (args[0] == cobra.ShellCompRequestCmd || args[0] == cobra.ShellCompNoDescRequestCmd) {
		// cobra would route these to its hidden completion command.
		err := core.Errorf(core.InvalidArgument, "unexpected argument(s): %s", args[0])
		cli.PrintUsage(d.Stdout)
		tui.NewReporter(d.Stdout).Failure(err)
		return err
	}
	root := NewRootCommand(d)
	// A nil slice makes cobra fall back to os.Args.
	root.SetArgs(append([]string{}, args...))
	return root.ExecuteContext(ctx)
}

func run(ctx context.Context, opts cli.Options, d Deps, logger *slog.Logger, rep *tui.Reporter) error {
	profile, err := d.Detect()
	if err != nil {
		return err
	}
	rep.Platform(profile)
	logger.Debug("platform detected", "arch", profile.Arch, "prefix", profile.Prefix)

	manifest, err := sbpm.LoadManifest(d.Config.ManifestPath)
	if err != nil {
		return err
	}

	base := sbpm.NewEnvironment(d.Environ)
	brew, err := d.FindBrew(profile.Prefix)
	if err != nil {
		return &core.Error{Kind: core.MissingDependencyManager, Err: err}
	}
	inv := sbpm.NewInventory(sbpm.NewHomebrew(brew, d.Exec, base), logger)

	missing := inv.ComputeMissing(ctx, manifest.RequiredPackages())
	optional := inv.ReportOptional(ctx, manifest.OptionalPackages())
	rep.Inventory(missing, optional)
	if err := inv.InstallMissing(ctx, missing, d.Confirm); err != nil {
		return err
	}

	env := sbpm.ConfigureEnvironment(profile, base)

	sourceDir, err := filepath.Abs(d.Config.SourceDir)
	if err != nil {
		return fmt.Errorf("resolve source dir: %w", err)
	}
	p := build.New(build.Options{
		SourceDir:      sourceDir,
		Jobs:           d.Config.Jobs,
		ConfigureFlags: manifest.ConfigureFlags,
		Artifact:       manifest.Artifact,
		Install:        opts.Install,
	}, d.Exec, env, rep, logger)
	if d.Stat != nil {
		p.WithStat(d.Stat)
	}
	rep.Plan(p.Steps())

	res := p.Run(ctx)
	if !res.OK() {
		return res.Err
	}
	rep.Success(opts.Install, p.ArtifactPath(), manifest.InstallDir)
	logger.Info("build complete", "artifact", p.ArtifactPath(), "installed", opts.Install)
	return nil
}
