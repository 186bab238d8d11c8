// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"io"
	"strings"
	"unicode"
)

// Context is what a handler sees besides its arguments.
type Context struct {
	Out io.Writer

	// RawArgs is the input after the command name, untouched. Commands
	// that take JSON read it instead of the split args.
	RawArgs string
}

// Parse splits a line into the command name, its arguments and the raw
// text after the name. Single or double quotes group words; the quotes
// are dropped from args but kept in raw.
func Parse(line string) (name string, args []string, raw string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, ""
	}

	end := strings.IndexFunc(line, unicode.IsSpace)
	if end < 0 {
		return strings.ToLower(line), nil, ""
	}
	name = strings.ToLower(line[:end])
	raw = strings.TrimSpace(line[end:])
	return name, splitArgs(raw), raw
}

// SplitN returns the first n whitespace-separated words of raw and the
// untouched remainder.
func SplitN(raw string, n int) (words []string, rest string) {
	rest = strings.TrimSpace(raw)
	for len(words) < n && rest != "" {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			words = append(words, rest)
			return words, ""
		}
		words = append(words, rest[:end])
		rest = strings.TrimSpace(rest[end:])
	}
	return words, rest
}

func splitArgs(s string) []string {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		args = append(args, current.String())
	}
	return args
}
