// Package label provides the canonical identity for Bazel build targets.
package label

import (
	"fmt"
	"strings"
)

// Label is the normalized string form of a Bazel target label
// (e.g., "//Library/Sources:MyLibrary"). Labels compare and hash by
// their normalized string, which makes Label the universal map key for
// everything derived from the build graph.
type Label string

// Parse normalizes a raw label string into its canonical form.
// Shorthand package labels are expanded to their implicit target name
// ("//foo/bar" -> "//foo/bar:bar"). External repository prefixes
// ("@repo//...") are preserved.
func Parse(s string) (Label, error) {
	if s == "" {
		return "", fmt.Errorf("empty label")
	}

	repo := ""
	rest := s
	if strings.HasPrefix(rest, "@") {
		slash := strings.Index(rest, "//")
		if slash < 0 {
			return "", fmt.Errorf("invalid label %q: missing // after repository name", s)
		}
		repo = rest[:slash]
		rest = rest[slash:]
	}

	if !strings.HasPrefix(rest, "//") {
		return "", fmt.Errorf("invalid label %q: must start with // or @repo//", s)
	}

	pkg := rest[2:]
	name := ""
	if colon := strings.Index(pkg, ":"); colon >= 0 {
		name = pkg[colon+1:]
		pkg = pkg[:colon]
	}
	if name == "" {
		// Shorthand: the target name defaults to the last package segment.
		if pkg == "" {
			return "", fmt.Errorf("invalid label %q: no target name", s)
		}
		segments := strings.Split(pkg, "/")
		name = segments[len(segments)-1]
	}

	return Label(repo + "//" + pkg + ":" + name), nil
}

// MustParse is Parse for labels known to be well-formed, such as
// literals in tests. It panics on error.
func MustParse(s string) Label {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// String returns the normalized label string.
func (l Label) String() string { return string(l) }

// PackageName returns the package path without the leading "//"
// (e.g., "Library/Sources" for "//Library/Sources:MyLibrary").
func (l Label) PackageName() string {
	s := string(l)
	if at := strings.Index(s, "//"); at >= 0 {
		s = s[at+2:]
	}
	if colon := strings.Index(s, ":"); colon >= 0 {
		s = s[:colon]
	}
	return s
}

// TargetName returns the target part of the label
// (e.g., "MyLibrary" for "//Library/Sources:MyLibrary").
func (l Label) TargetName() string {
	s := string(l)
	if colon := strings.LastIndex(s, ":"); colon >= 0 {
		return s[colon+1:]
	}
	return s
}

// AsFullPBXTargetName flattens the label into a name that is safe as an
// Xcode target name and unique across packages. Used when two selected
// labels collide on their short target name.
func (l Label) AsFullPBXTargetName() string {
	s := strings.TrimPrefix(string(l), "@")
	s = strings.TrimPrefix(s, "//")
	s = strings.ReplaceAll(s, "//", "/")
	s = strings.ReplaceAll(s, ":", "-")
	return strings.ReplaceAll(s, "/", "-")
}
