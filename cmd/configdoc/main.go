// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// configdoc generates markdown documentation from Go struct tags.
// Usage: go run ./cmd/configdoc > doc/CONFIG_REFERENCE.md
package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/aplane-algo/minter/internal/util"
)

// EnvVar represents an environment variable configuration
type EnvVar struct {
	Name        string
	Description string
	UsedBy      string
}

var envVars = []EnvVar{
	{"MINTER_DATA", "Data directory (config, stored sessions)", "minter"},
	{"MINTER_DEBUG", "Set to any value to enable debug logging", "minter"},
	{"NO_COLOR", "Set to any value to disable colored prompts", "minter"},
	{"SSH_AUTH_SOCK", "SSH agent socket, used when no identity file is readable", "minter (ssh tunnel)"},
	{"MINTER_WALLET", "Wallet id the bridge was started for", "wallet bridges"},
	{"MINTER_CHAIN_ID", "Chain id of the session manager", "wallet bridges"},
	{"MINTER_CHAIN_URL", "Node endpoint of the session manager", "wallet bridges"},
}

func main() {
	writeReference(os.Stdout)
}

func writeReference(w io.Writer) {
	fmt.Fprintln(w, "# Configuration Reference")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Auto-generated from Go struct tags. Do not edit manually.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "---")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## minter Configuration")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "File: `config.yaml` in the minter data directory (`-d` or `MINTER_DATA`)")
	fmt.Fprintln(w)
	printStructTable(w, reflect.TypeOf(util.Config{}))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Environment Variables")
	fmt.Fprintln(w)
	printEnvVars(w)
}

func printStructTable(w io.Writer, t reflect.Type) {
	fmt.Fprintln(w, "| Field | Type | Default | Description |")
	fmt.Fprintln(w, "|-------|------|---------|-------------|")
	printStructRows(w, t, "")
}

func printStructRows(w io.Writer, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Get yaml tag first, fall back to json tag
		tag := field.Tag.Get("yaml")
		if tag == "" {
			tag = field.Tag.Get("json")
		}
		if tag == "" || tag == "-" {
			continue
		}
		fieldName := strings.Split(tag, ",")[0]
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		// Nested blocks, by value or pointer
		nested := field.Type
		if nested.Kind() == reflect.Ptr {
			nested = nested.Elem()
		}
		if nested.Kind() == reflect.Struct {
			desc := field.Tag.Get("description")
			if desc == "" {
				desc = "(nested config block)"
			}
			fmt.Fprintf(w, "| `%s` | object | (none) | %s |\n", fieldName, desc)
			printStructRows(w, nested, fieldName)
			continue
		}

		desc := field.Tag.Get("description")
		if desc == "" {
			desc = "(no description)"
		}

		def := field.Tag.Get("default")
		switch def {
		case "":
			def = "(none)"
		case `""`:
			def = "(empty string)"
		}

		fmt.Fprintf(w, "| `%s` | %s | `%s` | %s |\n", fieldName, formatType(field.Type), def, desc)

		// Map values that are blocks get a row per field under <key>.
		if field.Type.Kind() == reflect.Map && field.Type.Elem().Kind() == reflect.Struct {
			printStructRows(w, field.Type.Elem(), fieldName+".<id>")
		}
	}
}

func formatType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "[]" + formatType(t.Elem())
	case reflect.Map:
		return "map[" + formatType(t.Key()) + "]" + formatType(t.Elem())
	case reflect.Ptr:
		return "*" + formatType(t.Elem())
	case reflect.Struct:
		return "object"
	default:
		return t.String()
	}
}

func printEnvVars(w io.Writer) {
	fmt.Fprintln(w, "| Variable | Description | Used By |")
	fmt.Fprintln(w, "|----------|-------------|---------|")

	for _, env := range envVars {
		fmt.Fprintf(w, "| `%s` | %s | %s |\n", env.Name, env.Description, env.UsedBy)
	}
}
