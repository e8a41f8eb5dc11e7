package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/epubbuild/internal/testutil/testutils"
)

func TestRunStreamsAndCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	tool := testutils.FakeTool(t, dir, "say.sh", `echo "hello $1"; echo "warning: careful" >&2`)

	var stdout, stderr bytes.Buffer
	r := NewRunner(&stdout, &stderr)
	out := r.Run(context.Background(), Command{Name: tool, Args: []string{"world"}, Dir: dir})

	require.NoError(t, out.Err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, 0, out.ExitCode)
	assert.Equal(t, "hello world\n", stdout.String())
	assert.Equal(t, "warning: careful\n", stderr.String())
	assert.Contains(t, out.Output, "hello world")
	assert.Contains(t, out.Output, "warning: careful")
}

func TestRunNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	tool := testutils.FakeTool(t, dir, "fail.sh", `echo "cannot resolve spec" >&2; exit 3`)

	out := NewRunner(&bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background(), Command{Name: tool, Dir: dir})

	require.Error(t, out.Err)
	assert.False(t, out.Succeeded())
	assert.False(t, out.Canceled)
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "cannot resolve spec", out.Output)
}

func TestRunRelativeToolResolvesAgainstDir(t *testing.T) {
	dir := t.TempDir()
	testutils.FakeTool(t, dir+"/tools", "ok.sh", `pwd`)

	var stdout bytes.Buffer
	out := NewRunner(&stdout, &bytes.Buffer{}).Run(context.Background(), Command{Name: "./tools/ok.sh", Dir: dir})

	require.NoError(t, out.Err)
	assert.Contains(t, stdout.String(), dir)
}

func TestRunMissingTool(t *testing.T) {
	out := NewRunner(&bytes.Buffer{}, &bytes.Buffer{}).Run(context.Background(), Command{Name: "epubbuild-no-such-tool-xyz"})

	require.Error(t, out.Err)
	assert.True(t, errors.Is(out.Err, ErrToolNotFound))
	assert.Equal(t, -1, out.ExitCode)
}

func TestRunCancelKillsProcess(t *testing.T) {
	dir := t.TempDir()
	tool := testutils.FakeTool(t, dir, "slow.sh", `echo started; exec sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	out := NewRunner(&bytes.Buffer{}, &bytes.Buffer{}).Run(ctx, Command{Name: tool, Dir: dir})

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, out.Canceled)
	assert.Equal(t, -1, out.ExitCode)
	require.Error(t, out.Err)
	assert.True(t, errors.Is(out.Err, context.Canceled))
}

func TestRunAlreadyCanceled(t *testing.T) {
	dir := t.TempDir()
	tool := testutils.FakeTool(t, dir, "never.sh", `touch ran`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := NewRunner(&bytes.Buffer{}, &bytes.Buffer{}).Run(ctx, Command{Name: tool, Dir: dir})
	assert.True(t, out.Canceled)
	testutils.NewFileAssertions(t, dir).AssertFileNotExists("ran")
}

func TestExpand(t *testing.T) {
	vars := map[string][]string{
		"manifest": {"requirements.txt"},
		"deps":     {"alpha", "beta"},
		"none":     nil,
	}
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"whole placeholder", []string{"-r", "{manifest}"}, []string{"-r", "requirements.txt"}},
		{"multi value", []string{"install", "{deps}"}, []string{"install", "alpha", "beta"}},
		{"empty value", []string{"install", "{none}", "-q"}, []string{"install", "-q"}},
		{"embedded", []string{"--requirement={manifest}"}, []string{"--requirement=requirements.txt"}},
		{"unknown kept", []string{"{spec}"}, []string{"{spec}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.args, vars))
		})
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	tb := newTailBuffer(3)
	for i := 1; i <= 10; i++ {
		_, _ = fmt.Fprintf(tb, "line %d\r\n", i)
	}
	_, _ = tb.Write([]byte("\n\n"))
	assert.Equal(t, "line 8\nline 9\nline 10", tb.String())
}

func TestTailBufferByteCap(t *testing.T) {
	tb := newTailBuffer(5)
	_, _ = tb.Write([]byte(strings.Repeat("x", maxTailBytes*2)))
	assert.LessOrEqual(t, len(tb.String()), maxTailBytes)
}

func TestTailBufferTrimsToWholeLines(t *testing.T) {
	tb := newTailBuffer(1000)
	line := strings.Repeat("é", 100) + "\n"
	for range (maxTailBytes / len(line)) + 50 {
		_, _ = tb.Write([]byte(line))
	}
	out := tb.String()
	assert.True(t, utf8.ValidString(out))
	for l := range strings.SplitSeq(out, "\n") {
		assert.Equal(t, strings.TrimSuffix(line, "\n"), l)
	}
}

func TestRunSharedWriterInterleavedStreams(t *testing.T) {
	dir := t.TempDir()
	tool := testutils.FakeTool(t, dir, "noisy.sh", `i=0
while [ $i -lt 2000 ]; do
	echo "out $i"
	echo "err $i" >&2
	i=$((i+1))
done`)

	var buf bytes.Buffer
	out := NewRunner(&buf, &buf).Run(context.Background(), Command{Name: tool, Dir: dir})

	require.NoError(t, out.Err)
	assert.Equal(t, 4000, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "out 1999\n")
	assert.Contains(t, buf.String(), "err 1999\n")
	assert.Contains(t, out.Output, "1999")
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "pyinstaller --noconfirm app.spec", Command{Name: "pyinstaller", Args: []string{"--noconfirm", "app.spec"}}.String())
}
