// Package cookies holds the session cookie set carried between calls to the
// remote system. The remote only uses plain session cookies, so attributes
// such as Path, Domain and Expires are dropped on the floor.
package cookies

import (
	"maps"
	"slices"
	"strings"
)

// Set maps a cookie name to its value. Names are unique by construction.
type Set map[string]string

// splitPair splits "name=value" at the first '='. ok is false when there is
// no '=' or the name is empty.
func splitPair(pair string) (name, value string, ok bool) {
	name, value, found := strings.Cut(pair, "=")
	if !found {
		return "", "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// Merge combines old with a batch of Set-Cookie directives. Later directives
// win over earlier ones and over old entries with the same name; old entries
// not named in the batch are kept. old is never mutated.
func Merge(old Set, directives []string) Set {
	out := make(Set, len(old)+len(directives))
	for name, value := range old {
		out[name] = value
	}
	for _, directive := range directives {
		pair, _, _ := strings.Cut(directive, ";")
		name, value, ok := splitPair(pair)
		if !ok {
			continue
		}
		out[name] = value
	}
	return out
}

// Parse reads a Cookie header value ("a=1; b=2") into a Set.
func Parse(header string) Set {
	out := Set{}
	for _, pair := range strings.Split(header, ";") {
		name, value, ok := splitPair(pair)
		if !ok {
			continue
		}
		out[name] = value
	}
	return out
}

// Header renders the set as a single Cookie header value. Names are sorted so
// the output is stable.
func (s Set) Header() string {
	names := slices.Sorted(maps.Keys(s))
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + s[name]
	}
	return strings.Join(pairs, "; ")
}

// Has reports whether a cookie with the given name is present.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Clone() Set {
	if s == nil {
		return Set{}
	}
	return maps.Clone(s)
}
