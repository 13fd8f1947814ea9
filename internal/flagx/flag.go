// Package flagx contains helpers for layered flag parsing: filtering
// os.Args down to the flags a component owns, and locating the optional
// JSON config file flag.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args containing only the allowed flags
// and their values.
//
// Supported forms:
//  1. flag and value as separate arguments:  -c conf.json
//  2. flag and value combined with '=':      --config=conf.json
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--flag=value" or "-f=value"
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			// the next argument, unless it looks like another flag, is this
			// flag's value
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// JsonConfigFlags parses only the -c/-config flags out of os.Args and
// returns the JSON config file path, or "" when the flag is absent.
func JsonConfigFlags() string {
	args := FilterArgs(os.Args[1:], []string{"-c", "-config", "--config"})

	fs := flag.NewFlagSet("json-config", flag.ContinueOnError)

	var path string
	fs.StringVar(&path, "c", "", "path to JSON config file")
	fs.StringVar(&path, "config", path, "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return ""
	}

	return path
}
