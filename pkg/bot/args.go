package bot

import "strings"

// SplitArgs splits a command line on spaces, honoring double-quoted
// strings so names containing spaces survive as one argument. Quotes are
// stripped from the result; an unterminated quote runs to end of line.
func SplitArgs(line string) []string {
	var (
		args     []string
		current  strings.Builder
		inQuotes bool
		started  bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case r == ' ' && !inQuotes:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, current.String())
	}
	return args
}
