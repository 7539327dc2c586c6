package backend

import "strings"

// ShellEscape quotes s for display in a shell command line. It is used
// for logging only; exec.Command takes the arguments unquoted.
func ShellEscape(s string) string {
	if s == "" {
		return "''"
	}

	if !strings.ContainsFunc(s, isShellSpecialChar) {
		return s
	}

	// A single quote ends the quoted string, is emitted in double quotes
	// and the quoting restarts.
	var result strings.Builder
	result.WriteString("'")
	for _, c := range s {
		if c == '\'' {
			result.WriteString("'\"'\"'")
		} else {
			result.WriteRune(c)
		}
	}
	result.WriteString("'")
	return result.String()
}

// ShellEscapeCommand renders an argument vector as a shell command line
func ShellEscapeCommand(args []string) string {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = ShellEscape(arg)
	}
	return strings.Join(escaped, " ")
}

func isShellSpecialChar(c rune) bool {
	switch c {
	case ' ', '\t', '\'', '"', '$', '`', '\\', '!', '*', '?', '[', ']',
		'(', ')', '{', '}', '|', ';', '<', '>', '&', '~', '#', '%', '\n', '\r':
		return true
	default:
		return false
	}
}
