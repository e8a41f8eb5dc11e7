// Package manifest reads the dependency manifest handed to the installer.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DependencySet is the ordered list of dependency identifiers declared by a
// manifest. Entries are forwarded as written; nothing is validated.
type DependencySet struct {
	// Source is the manifest file the set was read from.
	Source string
	Items  []string
}

// Len returns the number of declared dependencies.
func (d DependencySet) Len() int {
	return len(d.Items)
}

// Empty reports whether nothing needs provisioning.
func (d DependencySet) Empty() bool {
	return len(d.Items) == 0
}

// Load reads a newline-delimited manifest. Blank lines and lines starting
// with '#' are skipped, trailing " # comments" are stripped.
func Load(path string) (DependencySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return DependencySet{Source: path}, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	set, err := Parse(f)
	set.Source = path
	if err != nil {
		return set, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return set, nil
}

// Parse reads identifiers from r in declaration order.
func Parse(r io.Reader) (DependencySet, error) {
	var set DependencySet
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.Index(line, " #"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		set.Items = append(set.Items, line)
	}
	return set, scanner.Err()
}
