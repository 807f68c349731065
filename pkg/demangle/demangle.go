// Package demangle turns Itanium C++ mangled symbol names back into their
// source form without running an external c++filt.
package demangle

import (
	"context"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Native is an in-process demangler. Its output matches llvm-cxxfilt for the
// function symbols rules refer to.
type Native struct{}

// Demangle implements the demangler used by the symbol locator.
func (Native) Demangle(_ context.Context, name string) (string, error) {
	return Symbol(name), nil
}

// Symbol demangles name, returning it unchanged when it is not mangled.
//
// Mach-O symbol tables carry an extra leading underscore (__ZN...), and
// compiler-split .cold.N clones sometimes appear as a bare Z...; both are
// normalized before giving up.
func Symbol(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	if out, ok := try(name); ok {
		return out
	}
	switch {
	case strings.HasPrefix(name, "__Z"):
		if out, ok := try(name[1:]); ok {
			return out
		}
	case strings.HasPrefix(name, "Z"):
		if out, ok := try("_" + name); ok {
			return out
		}
	}
	return name
}

func try(name string) (string, bool) {
	out, err := demangle.ToString(name)
	if err != nil || out == name {
		return "", false
	}
	return out, true
}
