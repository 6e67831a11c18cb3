// Package vars holds the named string variables of a shell session.
package vars

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Variables is an in-memory variable store. It is owned by a single shell and
// is not safe for concurrent use.
type Variables struct {
	vars map[string]string
}

// New creates an empty variable store.
func New() *Variables {
	return &Variables{vars: make(map[string]string)}
}

// NewFromEnviron creates a store seeded from a list of KEY=VALUE pairs as
// returned by os.Environ. Entries without an equals sign get an empty value.
func NewFromEnviron(environ []string) *Variables {
	out := New()

	for _, e := range environ {
		split := strings.SplitN(e, "=", 2)
		key, value := split[0], ""
		if len(split) > 1 {
			value = split[1]
		}
		if key == "" {
			continue
		}
		out.Set(key, value)
	}

	return out
}

// Set assigns value to name, overwriting any previous value.
func (v *Variables) Set(name, value string) {
	v.vars[name] = value
}

// Unset removes name, it reports whether the variable existed.
func (v *Variables) Unset(name string) bool {
	_, ok := v.vars[name]
	delete(v.vars, name)
	return ok
}

// Lookup gets the value of name and whether it was set.
func (v *Variables) Lookup(name string) (string, bool) {
	val, ok := v.vars[name]
	return val, ok
}

// Get gets the value of name or the empty string if it's unset.
func (v *Variables) Get(name string) string {
	val, _ := v.Lookup(name)
	return val
}

// List gets the whitespace separated fields of the variable.
func (v *Variables) List(name string) []string {
	return strings.Fields(v.Get(name))
}

// Range gets the fields [start, end) of the variable as a list. Out of range
// bounds are clamped.
func (v *Variables) Range(name string, start, end int) []string {
	fields := v.List(name)
	if start < 0 {
		start = 0
	}
	if end > len(fields) {
		end = len(fields)
	}
	if start >= end {
		return nil
	}
	return fields[start:end]
}

// Names gets the sorted names of all set variables.
func (v *Variables) Names() []string {
	var names []string
	for k := range v.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Environ gets the variables in KEY=VALUE form, sorted by key, suitable for
// passing to a child process.
func (v *Variables) Environ() []string {
	var env []string

	for _, k := range v.Names() {
		if !IsValidName(k) {
			continue
		}
		env = append(env, fmt.Sprintf("%s=%s", k, v.vars[k]))
	}

	return env
}

// IsValidName checks that name is usable as a variable: a letter or
// underscore followed by letters, digits or underscores.
func IsValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
