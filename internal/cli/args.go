// Package cli parses the command line into Options.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/daslaller/necbuild/internal/core"
)

// Options is the parsed command line. It is read-only after Parse.
type Options struct {
	Install bool
	Help    bool
}

// Usage is printed for --help and after an invalid argument.
const Usage = `necbuild - build xnec2c from source on macOS

Usage:
  necbuild [--install] [--help]

Flags:
  --install   run "sudo make install" after a successful build
  -h, --help  show this help and exit

Environment:
  NECBUILD_SOURCE_DIR     xnec2c source checkout (default: current directory)
  NECBUILD_JOBS           parallel make jobs (default: number of CPUs)
  NECBUILD_MANIFEST       YAML file overriding packages and build settings
  NECBUILD_ASSUME_YES     install missing packages without asking
  NECBUILD_NO_INTERACTION never prompt (missing packages are declined)
  NECBUILD_DEBUG          verbose logging
  NECBUILD_QUIET          errors only
`

// Bind registers --install and --help on fs and returns the Options they
// fill in.
func Bind(fs *pflag.FlagSet) *Options {
	opts := &Options{}
	fs.BoolVar(&opts.Install, "install", false, "run privileged install after a successful build")
	fs.BoolVarP(&opts.Help, "help", "h", false, "show help")
	return opts
}

// CheckArgs rejects whatever fs left unparsed: positional arguments and a
// bare "--" terminator.
func CheckArgs(fs *pflag.FlagSet, rest []string) error {
	if fs.ArgsLenAtDash() >= 0 {
		return core.Errorf(core.InvalidArgument, "unexpected argument: --")
	}
	if len(rest) > 0 {
		return core.Errorf(core.InvalidArgument, "unexpected argument(s): %s", strings.Join(rest, " "))
	}
	return nil
}

// FlagError wraps a flag parsing error as InvalidArgument.
func FlagError(err error) error {
	return &core.Error{Kind: core.InvalidArgument, Err: err}
}

// Parse recognises --install and --help. Any other flag or positional
// argument is an InvalidArgument error.
func Parse(args []string) (Options, error) {
	fs := pflag.NewFlagSet("necbuild", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	opts := Bind(fs)

	if err := fs.Parse(args); err != nil {
		return Options{}, FlagError(err)
	}
	if err := CheckArgs(fs, fs.Args()); err != nil {
		return Options{}, err
	}
	return *opts, nil
}

// PrintUsage writes Usage to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, Usage)
}
