// Package build drives the autotools toolchain through its fixed stages:
// generate, configure, compile, verify and, optionally, install.
//
// The Pipeline is a small state machine. Every stage yields an exit code;
// the machine advances only on exactly zero and otherwise lands in
// StateFailed with a typed *core.Error. Stages never overlap.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/daslaller/necbuild/internal/core"
	"github.com/daslaller/necbuild/internal/sbpm"
)

// State is a pipeline state.
type State int

const (
	StatePending State = iota
	StateGenerating
	StateConfiguring
	StateCompiling
	StateVerifying
	StateInstalling
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateGenerating:
		return "generating"
	case StateConfiguring:
		return "configuring"
	case StateCompiling:
		return "compiling"
	case StateVerifying:
		return "verifying"
	case StateInstalling:
		return "installing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

// Step is one toolchain stage. Verify has no command.
type Step struct {
	Label string
	State State
	Name  string
	Args  []string
	Dir   string
}

// RunResult is the outcome of a pipeline run. Step and ExitCode describe the
// last stage that ran; Failed is the state the pipeline failed from.
type RunResult struct {
	Step     Step
	ExitCode int
	State    State
	Failed   State
	Err      error
}

// OK reports whether the pipeline reached StateDone.
func (r RunResult) OK() bool { return r.State == StateDone && r.Err == nil }

// Observer receives stage progress. Implementations must not fail the run.
type Observer interface {
	StageStarted(step Step)
	StageFinished(step Step, exitCode int, err error)
}

// Options configures a Pipeline.
type Options struct {
	SourceDir      string
	Jobs           int
	ConfigureFlags []string
	Artifact       string // relative to SourceDir
	Install        bool
}

// Pipeline runs the build stages in order.
type Pipeline struct {
	opts     Options
	exec     sbpm.Executor
	env      sbpm.Environment
	stat     func(string) (fs.FileInfo, error)
	observer Observer
	logger   *slog.Logger

	state   State
	history []State
}

// New returns a Pipeline in StatePending. env is passed to every stage.
func New(opts Options, exec sbpm.Executor, env sbpm.Environment, observer Observer, logger *slog.Logger) *Pipeline {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		opts:     opts,
		exec:     exec,
		env:      env,
		stat:     os.Stat,
		observer: observer,
		logger:   logger,
		state:    StatePending,
		history:  []State{StatePending},
	}
}

// WithStat replaces the filesystem check used by the verify stage.
func (p *Pipeline) WithStat(stat func(string) (fs.FileInfo, error)) *Pipeline {
	p.stat = stat
	return p
}

// State returns the current state.
func (p *Pipeline) State() State { return p.state }

// History returns every state the pipeline has entered, in order.
func (p *Pipeline) History() []State { return append([]State(nil), p.history...) }

// Steps returns the fixed stage sequence for these options.
func (p *Pipeline) Steps() []Step {
	dir := p.opts.SourceDir
	steps := []Step{
		{Label: "Generate build files", State: StateGenerating, Name: "./autogen.sh", Dir: dir},
		{Label: "Configure", State: StateConfiguring, Name: "./configure", Args: append([]string(nil), p.opts.ConfigureFlags...), Dir: dir},
		{Label: "Compile", State: StateCompiling, Name: "make", Args: []string{"-j" + strconv.Itoa(p.opts.Jobs)}, Dir: dir},
		{Label: "Verify artifact", State: StateVerifying, Dir: dir},
	}
	if p.opts.Install {
		steps = append(steps, Step{Label: "Install", State: StateInstalling, Name: "sudo", Args: []string{"make", "install"}, Dir: dir})
	}
	return steps
}

// ArtifactPath is the absolute location checked by the verify stage.
func (p *Pipeline) ArtifactPath() string {
	return filepath.Join(p.opts.SourceDir, p.opts.Artifact)
}

// Run executes every stage until one fails. A Pipeline runs once.
func (p *Pipeline) Run(ctx context.Context) RunResult {
	if p.state != StatePending {
		return RunResult{State: p.state, Err: fmt.Errorf("pipeline already ran (state %s)", p.state)}
	}
	var res RunResult
	for _, step := range p.Steps() {
		p.enter(step.State)
		if p.observer != nil {
			p.observer.StageStarted(step)
		}
		code, err := p.runStep(ctx, step)
		if p.observer != nil {
			p.observer.StageFinished(step, code, err)
		}
		res = RunResult{Step: step, ExitCode: code}
		if err != nil {
			res.Failed = step.State
			res.Err = err
			p.enter(StateFailed)
			res.State = p.state
			p.logger.Error("stage failed", "stage", step.State.String(), "exit_code", code, "err", err)
			return res
		}
		p.logger.Debug("stage complete", "stage", step.State.String())
	}
	p.enter(StateDone)
	res.State = p.state
	return res
}

func (p *Pipeline) enter(s State) {
	p.state = s
	p.history = append(p.history, s)
}

func (p *Pipeline) runStep(ctx context.Context, step Step) (int, error) {
	if step.State == StateVerifying {
		return p.verify()
	}
	if err := ctx.Err(); err != nil {
		return -1, &core.Error{Kind: core.StageFailure, Stage: step.State.String(), Err: err}
	}
	p.logger.Info("running stage", "stage", step.State.String(), "cmd", sbpm.Command{Name: step.Name, Args: step.Args}.String())
	_, stderr, err := p.exec.Run(ctx, sbpm.Command{Name: step.Name, Args: step.Args, Dir: step.Dir, Env: p.env, Stream: true})
	code := sbpm.ExitStatus(err)
	if code == 0 {
		return 0, nil
	}
	if err == nil {
		err = fmt.Errorf("exit status %d", code)
	}
	kind := core.StageFailure
	if step.State == StateInstalling {
		kind = core.PermissionDenied
	}
	if len(stderr) > 0 {
		p.logger.Debug("stage stderr", "stage", step.State.String(), "stderr", string(stderr))
	}
	if step.State == StateGenerating {
		err = fmt.Errorf("no configure script was produced: %w", err)
	}
	return code, &core.Error{Kind: kind, Stage: step.State.String(), Err: err}
}

func (p *Pipeline) verify() (int, error) {
	path := p.ArtifactPath()
	info, err := p.stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%s was not produced although every stage exited 0", path)
		}
		return 1, &core.Error{Kind: core.MissingArtifact, Stage: StateVerifying.String(), Err: err}
	}
	if !info.Mode().IsRegular() {
		return 1, &core.Error{Kind: core.MissingArtifact, Stage: StateVerifying.String(), Err: fmt.Errorf("%s is not a regular file", path)}
	}
	return 0, nil
}
