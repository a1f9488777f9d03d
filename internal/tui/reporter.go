package tui

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/daslaller/necbuild/internal/build"
	"github.com/daslaller/necbuild/internal/core"
	"github.com/daslaller/necbuild/internal/sbpm"
	"github.com/daslaller/necbuild/internal/sbpm/pm"
)

// Reporter renders progress and final guidance. It makes no decisions and
// ignores write errors.
type Reporter struct {
	w     io.Writer
	total int
	index int
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.w, format, a...)
}

// Platform announces the detected profile.
func (r *Reporter) Platform(p sbpm.Profile) {
	r.printf("%s %s\n", headerStyle.Render("necbuild"), mutedStyle.Render(fmt.Sprintf("macOS %s, Homebrew prefix %s", p.Arch, p.Prefix)))
}

// Inventory summarises the dependency check.
func (r *Reporter) Inventory(missing []sbpm.Package, optional sbpm.InventoryResult) {
	if len(missing) == 0 {
		r.printf("%s all required packages installed\n", successStyle.Render("✓"))
	} else {
		names := make([]string, 0, len(missing))
		for _, p := range missing {
			names = append(names, p.Name)
		}
		r.printf("%s missing required packages: %s\n", warnStyle.Render("!"), strings.Join(names, ", "))
	}
	var absent []string
	for name, ok := range optional {
		if !ok {
			absent = append(absent, name)
		}
	}
	if len(absent) > 0 {
		slices.Sort(absent)
		r.printf("%s optional packages not installed: %s\n", mutedStyle.Render("·"), mutedStyle.Render(strings.Join(absent, ", ")))
	}
}

// Plan records how many stages will run so markers can show [n/N].
func (r *Reporter) Plan(steps []build.Step) {
	r.total = len(steps)
	r.index = 0
}

func (r *Reporter) StageStarted(step build.Step) {
	r.index++
	counter := ""
	if r.total > 0 {
		counter = mutedStyle.Render(fmt.Sprintf("[%d/%d] ", r.index, r.total))
	}
	r.printf("%s%s %s\n", counter, accentStyle.Render("▶"), step.Label)
}

func (r *Reporter) StageFinished(step build.Step, exitCode int, err error) {
	if err != nil {
		r.printf("%s %s %s\n", errorStyle.Render("✗"), errorStyle.Render(step.Label), mutedStyle.Render(fmt.Sprintf("(exit %d)", exitCode)))
		return
	}
	r.printf("%s %s\n", successStyle.Render("✓"), step.Label)
}

// Success prints the final banner and next steps. artifact is the built
// binary; installDir is where make install puts it.
func (r *Reporter) Success(install bool, artifact, installDir string) {
	r.printf("\n%s\n", bannerStyle.BorderForeground(green).Foreground(green).Render("Build succeeded"))
	for _, line := range SuccessGuidance(install, artifact, installDir) {
		r.printf("  %s\n", line)
	}
}

// Failure prints the failure banner and what to do next.
func (r *Reporter) Failure(err error) {
	r.printf("\n%s\n", bannerStyle.BorderForeground(red).Foreground(red).Render("Build failed"))
	r.printf("  %s\n", errorStyle.Render(err.Error()))
	for _, line := range FailureGuidance(err) {
		r.printf("  %s\n", line)
	}
}

// SuccessGuidance returns next-step hints after a successful run.
func SuccessGuidance(install bool, artifact, installDir string) []string {
	name := filepath.Base(artifact)
	if install {
		return []string{
			fmt.Sprintf("Installed to %s", filepath.Join(installDir, name)),
			fmt.Sprintf("Start it with: %s", name),
		}
	}
	return []string{
		fmt.Sprintf("Run it directly: %s", artifact),
		"Re-run with --install to install it system-wide.",
	}
}

// FailureGuidance returns hints for err's kind.
func FailureGuidance(err error) []string {
	var e *core.Error
	stage := ""
	if errors.As(err, &e) {
		stage = e.Stage
	}
	switch core.KindOf(err) {
	case core.InvalidArgument:
		return []string{"Run necbuild --help for usage."}
	case core.UnsupportedPlatform:
		return []string{"This build helper only supports macOS with Homebrew."}
	case core.MissingDependencyManager:
		return []string{"Homebrew is required: " + pm.InstallHint}
	case core.DependenciesDeclined:
		return []string{"Install the missing packages with brew, or re-run and accept the prompt (NECBUILD_ASSUME_YES=1 skips it)."}
	case core.InstallationFailure:
		return []string{"Homebrew reported the error above. Fix it (try `brew doctor`) and re-run."}
	case core.StageFailure:
		switch stage {
		case build.StateGenerating.String():
			return []string{"autogen.sh failed, so no configure script exists yet. Check that autoconf, automake and libtool are installed."}
		case build.StateConfiguring.String():
			return []string{"configure failed. See config.log in the source directory."}
		case build.StateCompiling.String():
			return []string{"Compilation failed. Re-run with NECBUILD_JOBS=1 for readable compiler output."}
		}
		return []string{"A build stage failed. See the output above."}
	case core.MissingArtifact:
		return []string{"Every stage exited 0 but no binary was produced. Run `make clean` in the source directory and re-run."}
	case core.PermissionDenied:
		return []string{"The privileged install was refused. Run `sudo make install` in the source directory yourself."}
	}
	return nil
}
