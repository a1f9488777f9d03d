package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/daslaller/necbuild/internal/core"
	"github.com/daslaller/necbuild/internal/sbpm"
	"github.com/daslaller/necbuild/internal/sbpm/pm"
	"github.com/daslaller/necbuild/internal/tui"
)

// Execute runs the root command.
func Execute() error {
	cfg := core.ParseEnv()
	logger := core.NewLogger(cfg, os.Stderr)

	interactive := tui.Interactive(cfg.NoInteraction)
	tui.ConfigureColor(interactive)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Run(ctx, os.Args[1:], Deps{
		Config:   cfg,
		Logger:   logger,
		Exec:     &sbpm.DefaultExecutor{Stdout: os.Stdout, Stderr: os.Stderr},
		Environ:  os.Environ(),
		Stdout:   os.Stdout,
		Detect:   func() (sbpm.Profile, error) { return sbpm.DetectHost(cfg.Platform) },
		FindBrew: pm.FindHomebrew,
		Confirm:  tui.NewConfirmer(cfg.AssumeYes, interactive, os.Stdin, os.Stderr),
	})
}
