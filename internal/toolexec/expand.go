package toolexec

import "strings"

// Expand substitutes {name} placeholders in args. An argument that is exactly
// one placeholder expands to all of its values (possibly none); placeholders
// embedded in a longer argument are replaced by the values joined by spaces.
// Unknown placeholders are left as written.
func Expand(args []string, vars map[string][]string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if key, ok := placeholder(arg); ok {
			if values, known := vars[key]; known {
				out = append(out, values...)
				continue
			}
		}
		for key, values := range vars {
			arg = strings.ReplaceAll(arg, "{"+key+"}", strings.Join(values, " "))
		}
		out = append(out, arg)
	}
	return out
}

func placeholder(arg string) (string, bool) {
	if len(arg) > 2 && arg[0] == '{' && arg[len(arg)-1] == '}' && !strings.ContainsAny(arg[1:len(arg)-1], "{} ") {
		return arg[1 : len(arg)-1], true
	}
	return "", false
}
