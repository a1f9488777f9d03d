package core

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Config holds the application configuration read from the environment.
// Flags are handled separately by internal/cli; everything here is ambient.
type Config struct {
	SourceDir     string
	Jobs          int
	Debug         bool
	Quiet         bool
	AssumeYes     bool
	NoInteraction bool
	Platform      string // overrides runtime.GOOS when set
	ManifestPath  string
}

// ParseEnv creates a Config from environment variables.
func ParseEnv() Config {
	return ParseEnvFrom(os.Getenv)
}

// ParseEnvFrom is ParseEnv with an injectable lookup.
func ParseEnvFrom(getenv func(string) string) Config {
	cfg := Config{
		SourceDir:     strings.TrimSpace(getenv("NECBUILD_SOURCE_DIR")),
		Jobs:          parseInt(getenv("NECBUILD_JOBS"), runtime.NumCPU()),
		Debug:         parseBool(getenv("NECBUILD_DEBUG")),
		Quiet:         parseBool(getenv("NECBUILD_QUIET")),
		AssumeYes:     parseBool(getenv("NECBUILD_ASSUME_YES")),
		NoInteraction: parseBool(getenv("NECBUILD_NO_INTERACTION")) || parseBool(getenv("CI")),
		Platform:      strings.TrimSpace(getenv("NECBUILD_PLATFORM")),
		ManifestPath:  strings.TrimSpace(getenv("NECBUILD_MANIFEST")),
	}
	if cfg.Jobs < 1 {
		cfg.Jobs = 1
	}
	return cfg
}

// NewLogger builds the run logger. Every record carries the run id so that
// interleaved output from repeated runs can be told apart.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	lvl := new(slog.LevelVar)
	switch {
	case cfg.Debug:
		lvl.Set(slog.LevelDebug)
	case cfg.Quiet:
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("run_id", uuid.NewString())
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func parseInt(s string, defaultVal int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return i
}
