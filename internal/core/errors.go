package core

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal run failure.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidArgument
	UnsupportedPlatform
	MissingDependencyManager
	DependenciesDeclined
	InstallationFailure
	StageFailure
	MissingArtifact
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case UnsupportedPlatform:
		return "unsupported platform"
	case MissingDependencyManager:
		return "missing dependency manager"
	case DependenciesDeclined:
		return "dependencies declined"
	case InstallationFailure:
		return "installation failure"
	case StageFailure:
		return "stage failure"
	case MissingArtifact:
		return "missing artifact"
	case PermissionDenied:
		return "permission denied"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced to the user. Stage is set for
// failures that happen inside the build pipeline.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

// Errorf builds an *Error of the given kind with a formatted cause.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Stage != "" {
		msg += " in " + e.Stage
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode maps a run error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
