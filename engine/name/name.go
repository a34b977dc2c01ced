// Package name defines the normalized, package scoped identifiers used for resources and properties.
package name

import (
	"fmt"
	"strings"
	"unicode"
)

// NamespaceSeparator is kept verbatim by Normalize
const NamespaceSeparator = ':'

// Name identifies a resource or property inside one store.
// Compare Names with ==, they are plain values.
type Name struct {
	ID      string
	Package uint32
}

// New creates a Name with the id normalized
func New(id string, pkg uint32) Name {
	return Name{ID: Normalize(id), Package: pkg}
}

// Less orders names by id first, then package
func (n Name) Less(other Name) bool {
	if n.ID != other.ID {
		return n.ID < other.ID
	}
	return n.Package < other.Package
}

func (n Name) String() string {
	return fmt.Sprintf("%d:%s", n.Package, n.ID)
}

// Normalize lowercases letters, keeps digits and ':' and collapses every run of other characters into one '_'
func Normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inRun := false
	for _, c := range s {
		switch {
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			sb.WriteRune(unicode.ToLower(c))
			inRun = false
		case c == NamespaceSeparator:
			sb.WriteRune(c)
			inRun = false
		default:
			if !inRun {
				sb.WriteByte('_')
				inRun = true
			}
		}
	}
	return sb.String()
}
