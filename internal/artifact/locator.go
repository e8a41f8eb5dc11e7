// Package artifact finds the executable the packager produced.
//
// Lookup is non-recursive. When several files qualify, the most recently
// modified one wins and equal modification times fall back to the
// lexicographically smallest name, so repeated scans of the same directory
// always pick the same file.
package artifact

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

// Pattern selects candidate files. Name is an exact file name tried first;
// Glob is a shell pattern (path.Match syntax) applied when Name is empty or
// absent.
type Pattern struct {
	Glob string
	Name string
}

func (p Pattern) String() string {
	switch {
	case p.Name != "" && p.Glob != "":
		return p.Name + " | " + p.Glob
	case p.Name != "":
		return p.Name
	default:
		return p.Glob
	}
}

// Match is the located artifact.
type Match struct {
	// Path is absolute when located on the OS filesystem.
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
}

// Locator scans an output directory for one artifact.
type Locator struct {
	pattern Pattern
}

// NewLocator validates p and returns a locator for it.
func NewLocator(p Pattern) (*Locator, error) {
	if p.Glob == "" && p.Name == "" {
		return nil, ferrors.ValidationError("artifact pattern is empty").Build()
	}
	if p.Glob != "" {
		if _, err := path.Match(p.Glob, ""); err != nil {
			return nil, ferrors.ValidationError("invalid artifact pattern").
				WithCause(err).
				WithContext("pattern", p.Glob).
				Build()
		}
	}
	if strings.ContainsAny(p.Name, `/\`) {
		return nil, ferrors.ValidationError("artifact name must not contain a path separator").
			WithContext("name", p.Name).
			Build()
	}
	return &Locator{pattern: p}, nil
}

// Pattern returns the configured pattern.
func (l *Locator) Pattern() Pattern { return l.pattern }

// Locate scans dir. No match and a missing dir both return nil, nil.
func (l *Locator) Locate(dir string) (*Match, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, ferrors.ArtifactNotFoundError("cannot resolve output directory").WithCause(err).Build()
	}
	m, err := l.LocateFS(os.DirFS(abs), ".")
	if err != nil || m == nil {
		return nil, err
	}
	m.Path = filepath.Join(abs, filepath.FromSlash(m.Path))
	return m, nil
}

// LocateFS scans root inside fsys. The returned Match.Path is slash-separated
// and relative to fsys.
func (l *Locator) LocateFS(fsys fs.FS, root string) (*Match, error) {
	entries, err := fs.ReadDir(fsys, root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.ArtifactNotFoundError("cannot read output directory").
			WithCause(err).
			WithContext("dir", root).
			Build()
	}

	var exact *Match
	var candidates []Match
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		isExact := l.pattern.Name != "" && name == l.pattern.Name
		if !isExact && (strings.HasPrefix(name, ".") || !l.globMatch(name)) {
			continue
		}
		info, infoErr := e.Info()
		if infoErr != nil {
			// Removed between ReadDir and Info.
			continue
		}
		m := Match{Path: path.Join(root, name), Name: name, ModTime: info.ModTime(), Size: info.Size()}
		if isExact {
			exact = &m
			continue
		}
		candidates = append(candidates, m)
	}
	if exact != nil {
		return exact, nil
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	slices.SortFunc(candidates, compareMatches)
	return &candidates[0], nil
}

func (l *Locator) globMatch(name string) bool {
	if l.pattern.Glob == "" {
		return false
	}
	ok, _ := path.Match(l.pattern.Glob, name)
	return ok
}

// compareMatches orders newest first, then by ascending name.
func compareMatches(a, b Match) int {
	if c := b.ModTime.Compare(a.ModTime); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}
