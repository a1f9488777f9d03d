package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/daslaller/necbuild/internal/core"
	"github.com/daslaller/necbuild/internal/sbpm"
)

type recorder struct {
	started  []State
	finished []int
}

func (r *recorder) StageStarted(step Step) { r.started = append(r.started, step.State) }

func (r *recorder) StageFinished(step Step, exitCode int, err error) {
	r.finished = append(r.finished, exitCode)
}

// sourceTree returns a source dir, optionally containing the built artifact.
func sourceTree(t *testing.T, withArtifact bool) string {
	t.Helper()
	dir := t.TempDir()
	if withArtifact {
		if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "src", "xnec2c"), []byte("bin"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testOptions(dir string, install bool) Options {
	return Options{
		SourceDir:      dir,
		Jobs:           8,
		ConfigureFlags: []string{"--enable-optimizations"},
		Artifact:       "src/xnec2c",
		Install:        install,
	}
}

func testEnv() sbpm.Environment {
	return sbpm.NewEnvironment([]string{"PATH=/opt/homebrew/bin:/usr/bin"})
}

func runPipeline(t *testing.T, p *Pipeline) RunResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return p.Run(ctx)
}

func TestPipeline_AllStagesInOrder(t *testing.T) {
	dir := sourceTree(t, true)
	fe := &sbpm.FakeExecutor{}
	rec := &recorder{}
	p := New(testOptions(dir, false), fe, testEnv(), rec, nil)

	res := runPipeline(t, p)
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	want := []string{"./autogen.sh", "./configure --enable-optimizations", "make -j8"}
	if got := fe.CommandLines(); !slices.Equal(got, want) {
		t.Fatalf("commands: got %v want %v", got, want)
	}
	for i, c := range fe.Calls {
		if c.Dir != dir {
			t.Fatalf("call %d ran in %q, want %q", i, c.Dir, dir)
		}
		if v, _ := c.Env.Get("PATH"); v != "/opt/homebrew/bin:/usr/bin" {
			t.Fatalf("call %d did not receive derived env: %q", i, v)
		}
	}
	wantHistory := []State{StatePending, StateGenerating, StateConfiguring, StateCompiling, StateVerifying, StateDone}
	if !slices.Equal(p.History(), wantHistory) {
		t.Fatalf("history: got %v want %v", p.History(), wantHistory)
	}
	if !slices.Equal(rec.started, []State{StateGenerating, StateConfiguring, StateCompiling, StateVerifying}) {
		t.Fatalf("observer saw %v", rec.started)
	}
	if res.Step.State != StateVerifying || res.ExitCode != 0 {
		t.Fatalf("unexpected terminal step: %+v", res)
	}
}

func TestPipeline_WithInstall(t *testing.T) {
	dir := sourceTree(t, true)
	fe := &sbpm.FakeExecutor{}
	p := New(testOptions(dir, true), fe, testEnv(), nil, nil)

	res := runPipeline(t, p)
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	lines := fe.CommandLines()
	if lines[len(lines)-1] != "sudo make install" {
		t.Fatalf("expected privileged install last, got %v", lines)
	}
	if res.Step.State != StateInstalling {
		t.Fatalf("expected install to be the final step, got %v", res.Step.State)
	}
}

func TestPipeline_GenerateFailure(t *testing.T) {
	fe := &sbpm.FakeExecutor{Responses: map[string]sbpm.ExecResponse{
		sbpm.Key("./autogen.sh"): {Err: sbpm.ExitCodeError(127)},
	}}
	p := New(testOptions(sourceTree(t, false), false), fe, testEnv(), nil, nil)

	res := runPipeline(t, p)
	if res.State != StateFailed || res.Failed != StateGenerating || res.ExitCode != 127 {
		t.Fatalf("unexpected result: %+v", res)
	}
	var e *core.Error
	if !errors.As(res.Err, &e) || e.Kind != core.StageFailure || e.Stage != "generating" {
		t.Fatalf("expected StageFailure in generating, got %v", res.Err)
	}
	if len(fe.Calls) != 1 {
		t.Fatalf("later stages must not run: %v", fe.CommandLines())
	}
}

func TestPipeline_ConfigureFailureStopsEverything(t *testing.T) {
	fe := &sbpm.FakeExecutor{Responses: map[string]sbpm.ExecResponse{
		sbpm.Key("./configure", "--enable-optimizations"): {Err: sbpm.ExitCodeError(1)},
	}}
	statCalled := false
	p := New(testOptions(sourceTree(t, true), true), fe, testEnv(), nil, nil).
		WithStat(func(string) (fs.FileInfo, error) {
			statCalled = true
			return nil, fs.ErrNotExist
		})

	res := runPipeline(t, p)
	if res.Failed != StateConfiguring || res.State != StateFailed {
		t.Fatalf("expected failure from configuring, got %+v", res)
	}
	if core.KindOf(res.Err) != core.StageFailure {
		t.Fatalf("expected StageFailure, got %v", res.Err)
	}
	want := []string{"./autogen.sh", "./configure --enable-optimizations"}
	if got := fe.CommandLines(); !slices.Equal(got, want) {
		t.Fatalf("commands: got %v want %v", got, want)
	}
	if statCalled {
		t.Fatalf("verify must not run after a configure failure")
	}
	wantHistory := []State{StatePending, StateGenerating, StateConfiguring, StateFailed}
	if !slices.Equal(p.History(), wantHistory) {
		t.Fatalf("history: got %v want %v", p.History(), wantHistory)
	}
}

func TestPipeline_CompileFailure(t *testing.T) {
	fe := &sbpm.FakeExecutor{Responses: map[string]sbpm.ExecResponse{
		sbpm.Key("make", "-j8"): {Err: sbpm.ExitCodeError(2)},
	}}
	statCalled := false
	rec := &recorder{}
	p := New(testOptions(sourceTree(t, true), true), fe, testEnv(), rec, nil).
		WithStat(func(string) (fs.FileInfo, error) {
			statCalled = true
			return nil, fs.ErrNotExist
		})

	res := runPipeline(t, p)
	if res.State != StateFailed || res.Failed != StateCompiling || res.ExitCode != 2 {
		t.Fatalf("expected failure from compiling, got %+v", res)
	}
	var e *core.Error
	if !errors.As(res.Err, &e) || e.Kind != core.StageFailure || e.Stage != "compiling" {
		t.Fatalf("expected StageFailure in compiling, got %v", res.Err)
	}
	want := []string{"./autogen.sh", "./configure --enable-optimizations", "make -j8"}
	if got := fe.CommandLines(); !slices.Equal(got, want) {
		t.Fatalf("commands: got %v want %v", got, want)
	}
	if statCalled {
		t.Fatalf("verify must not run after a compile failure")
	}
	wantHistory := []State{StatePending, StateGenerating, StateConfiguring, StateCompiling, StateFailed}
	if !slices.Equal(p.History(), wantHistory) {
		t.Fatalf("history: got %v want %v", p.History(), wantHistory)
	}
	if !slices.Equal(rec.finished, []int{0, 0, 2}) {
		t.Fatalf("observer exit codes: %v", rec.finished)
	}
}

func TestPipeline_MissingArtifactDespiteZeroExits(t *testing.T) {
	fe := &sbpm.FakeExecutor{}
	p := New(testOptions(sourceTree(t, false), true), fe, testEnv(), nil, nil)

	res := runPipeline(t, p)
	if core.KindOf(res.Err) != core.MissingArtifact {
		t.Fatalf("expected MissingArtifact, got %v", res.Err)
	}
	if res.Failed != StateVerifying {
		t.Fatalf("expected failure from verifying, got %v", res.Failed)
	}
	for _, line := range fe.CommandLines() {
		if line == "sudo make install" {
			t.Fatalf("install must not run without an artifact")
		}
	}
}

func TestPipeline_ArtifactIsDirectory(t *testing.T) {
	dir := sourceTree(t, false)
	if err := os.MkdirAll(filepath.Join(dir, "src", "xnec2c"), 0o755); err != nil {
		t.Fatal(err)
	}
	res := runPipeline(t, New(testOptions(dir, false), &sbpm.FakeExecutor{}, testEnv(), nil, nil))
	if core.KindOf(res.Err) != core.MissingArtifact {
		t.Fatalf("expected MissingArtifact for a directory, got %v", res.Err)
	}
}

func TestPipeline_InstallRejected(t *testing.T) {
	fe := &sbpm.FakeExecutor{Responses: map[string]sbpm.ExecResponse{
		sbpm.Key("sudo", "make", "install"): {Stderr: []byte("sudo: 3 incorrect password attempts\n"), Err: sbpm.ExitCodeError(1)},
	}}
	rec := &recorder{}
	res := runPipeline(t, New(testOptions(sourceTree(t, true), true), fe, testEnv(), rec, nil))
	if core.KindOf(res.Err) != core.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", res.Err)
	}
	if res.Failed != StateInstalling || res.ExitCode != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if rec.finished[len(rec.finished)-1] != 1 {
		t.Fatalf("observer should see install exit code, got %v", rec.finished)
	}
}

func TestPipeline_RunsOnce(t *testing.T) {
	p := New(testOptions(sourceTree(t, true), false), &sbpm.FakeExecutor{}, testEnv(), nil, nil)
	if res := runPipeline(t, p); !res.OK() {
		t.Fatalf("first run failed: %+v", res)
	}
	if res := runPipeline(t, p); res.Err == nil {
		t.Fatalf("second run should be rejected")
	}
}

func TestPipeline_CancelledContext(t *testing.T) {
	fe := &sbpm.FakeExecutor{}
	p := New(testOptions(sourceTree(t, true), false), fe, testEnv(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := p.Run(ctx)
	if res.Failed != StateGenerating || len(fe.Calls) != 0 {
		t.Fatalf("expected abort before generating, got %+v calls=%v", res, fe.CommandLines())
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StatePending, StateGenerating, StateConfiguring, StateCompiling, StateVerifying, StateInstalling} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	if !StateDone.Terminal() || !StateFailed.Terminal() {
		t.Fatalf("done and failed are terminal")
	}
}
