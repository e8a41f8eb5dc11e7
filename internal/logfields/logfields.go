package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID      = "build_id"
	KeyStage        = "stage"
	KeyDurationMS   = "duration_ms"
	KeyPath         = "path"
	KeyTool         = "tool"
	KeyArgs         = "args"
	KeyExitCode     = "exit_code"
	KeyDependencies = "dependencies"
	KeyPattern      = "pattern"
	KeyStatus       = "status"
	KeyError        = "error"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Args(a []string) slog.Attr       { return slog.Any(KeyArgs, a) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Dependencies(n int) slog.Attr    { return slog.Int(KeyDependencies, n) }
func Pattern(p string) slog.Attr      { return slog.String(KeyPattern, p) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
