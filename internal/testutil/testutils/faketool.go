package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RequireShell skips tests that drive fake tools through /bin/sh.
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
}

// FakeTool writes an executable shell script named name into dir and returns
// its absolute path. body is the script without the shebang line.
func FakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequireShell(t)
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	// #nosec G306 - the script must be executable
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write fake tool %s: %v", path, err)
	}
	return path
}
