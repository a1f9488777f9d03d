package sbpm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Command is one external invocation. Env is passed verbatim to the child;
// a zero Environment means an empty environment, not the parent's.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Env    Environment
	Stream bool // copy output to the executor's writers while capturing
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Executor runs external commands.
//
type Executor interface {
	Run(ctx context.Context, cmd Command) (stdout, stderr []byte, err error)
}

// DefaultExecutor uses exec.CommandContext and captures stdout/stderr.
// It does not invoke a shell; args are passed directly.
//
type DefaultExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (d *DefaultExecutor) Run(ctx context.Context, c Command) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env.Pairs()
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if c.Stream {
		if d.Stdout != nil {
			cmd.Stdout = io.MultiWriter(&outBuf, d.Stdout)
		}
		if d.Stderr != nil {
			cmd.Stderr = io.MultiWriter(&errBuf, d.Stderr)
		}
	}
	err := cmd.Run()
	if err != nil {
		return outBuf.Bytes(), errBuf.Bytes(), fmt.Errorf("exec %s: %w", c, err)
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

// ExitCodeError is a bare non-zero exit status, used by fakes.
type ExitCodeError int

func (e ExitCodeError) Error() string { return "exit status " + strconv.Itoa(int(e)) }

func (e ExitCodeError) ExitCode() int { return int(e) }

// ExitStatus extracts the exit code from a Run error: 0 for nil, the process
// status when the command ran, and -1 when it could not be started.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code != 0 {
			return code
		}
	}
	return -1
}

// FakeExecutor records invocations and returns canned responses. Useful in tests.
// Not concurrency-safe; use per-test.
//
type FakeExecutor struct {
	Calls []ExecCall
	// Map key: name + "\x00" + strings.Join(args, "\x00")
	Responses map[string]ExecResponse
}

type ExecCall struct {
	Name string
	Args []string
	Dir  string
	Env  Environment
}

type ExecResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// Key builds the Responses key for a command line.
func Key(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), "\x00")
}

func (f *FakeExecutor) Run(ctx context.Context, c Command) ([]byte, []byte, error) {
	f.Calls = append(f.Calls, ExecCall{Name: c.Name, Args: append([]string(nil), c.Args...), Dir: c.Dir, Env: c.Env})
	if f.Responses != nil {
		if r, ok := f.Responses[Key(c.Name, c.Args...)]; ok {
			return r.Stdout, r.Stderr, r.Err
		}
	}
	return nil, nil, nil
}

// CommandLines renders recorded calls as "name arg arg" strings.
func (f *FakeExecutor) CommandLines() []string {
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		out = append(out, Command{Name: c.Name, Args: c.Args}.String())
	}
	return out
}
