package sbpm

import (
	"path/filepath"
	"slices"
	"strings"
)

// Environment is an immutable KEY=VALUE list handed to child processes.
// Methods that change it return a copy.
type Environment struct {
	pairs []string
}

// NewEnvironment snapshots pairs such as the result of os.Environ. Later
// duplicates of a key win, matching exec.Cmd semantics.
func NewEnvironment(pairs []string) Environment {
	var e Environment
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		e = e.With(k, v)
	}
	return e
}

// Get returns the value for key and whether it is set.
func (e Environment) Get(key string) (string, bool) {
	prefix := key + "="
	for _, p := range e.pairs {
		if strings.HasPrefix(p, prefix) {
			return p[len(prefix):], true
		}
	}
	return "", false
}

// With returns a copy of e with key set to value.
func (e Environment) With(key, value string) Environment {
	prefix := key + "="
	out := make([]string, 0, len(e.pairs)+1)
	replaced := false
	for _, p := range e.pairs {
		if strings.HasPrefix(p, prefix) {
			if !replaced {
				out = append(out, prefix+value)
				replaced = true
			}
			continue
		}
		out = append(out, p)
	}
	if !replaced {
		out = append(out, prefix+value)
	}
	return Environment{pairs: out}
}

// Pairs returns a copy of the KEY=VALUE list.
func (e Environment) Pairs() []string {
	return slices.Clone(e.pairs)
}

// Search-path variables derived from the platform profile.
const (
	EnvPath          = "PATH"
	EnvPkgConfigPath = "PKG_CONFIG_PATH"
)

// ConfigureEnvironment derives the child-process environment for profile.
// The profile's directories are prepended to PATH and PKG_CONFIG_PATH; the
// inherited values follow. Existing copies of the prepended directories are
// dropped from the inherited tail, so applying it twice changes nothing. The
// rest of the tail, empty segments included, is kept as inherited.
func ConfigureEnvironment(p Profile, base Environment) Environment {
	env := base
	env = prependList(env, EnvPath, []string{
		filepath.Join(p.Prefix, "bin"),
		filepath.Join(p.Prefix, "sbin"),
	})
	env = prependList(env, EnvPkgConfigPath, []string{
		filepath.Join(p.Prefix, "lib", "pkgconfig"),
		filepath.Join(p.Prefix, "share", "pkgconfig"),
	})
	return env
}

func prependList(env Environment, key string, dirs []string) Environment {
	current, _ := env.Get(key)
	segments := slices.Clone(dirs)
	for _, seg := range filepath.SplitList(current) {
		// Empty segments mean the working directory and are kept.
		if slices.Contains(dirs, seg) {
			continue
		}
		segments = append(segments, seg)
	}
	return env.With(key, strings.Join(segments, string(filepath.ListSeparator)))
}
