package namespace

import (
	"fmt"
	"slices"
	"strings"

	"github.com/coro-sh/catalog/constants"
)

// Identity identifies a Namespace by its ordered levels, e.g. ["a", "b"] for
// the namespace displayed as "a.b". The zero value is not a valid Identity.
type Identity struct {
	levels []string
}

// MaxLevelLength is the maximum length in bytes of a single namespace level.
const MaxLevelLength = 1024

// NewIdentity creates an Identity from the provided levels. At least one
// level is required. Levels must be non-empty, at most MaxLevelLength bytes
// and free of constants.NamespaceLevelSeparator.
func NewIdentity(levels ...string) (Identity, error) {
	if len(levels) == 0 {
		return Identity{}, MalformedError("namespace must have at least one level")
	}
	for _, level := range levels {
		if level == "" {
			return Identity{}, MalformedError("namespace levels must not be empty")
		}
		if len(level) > MaxLevelLength {
			return Identity{}, MalformedError(fmt.Sprintf("namespace levels must not exceed %d bytes", MaxLevelLength))
		}
		if strings.Contains(level, constants.NamespaceLevelSeparator) {
			return Identity{}, MalformedError("namespace levels must not contain the level separator")
		}
	}
	return Identity{levels: slices.Clone(levels)}, nil
}

// MustIdentity is like NewIdentity but panics if the levels are invalid.
func MustIdentity(levels ...string) Identity {
	id, err := NewIdentity(levels...)
	if err != nil {
		panic(err)
	}
	return id
}

// ParseIdentity parses the wire encoding of an Identity, where levels are
// joined by constants.NamespaceLevelSeparator.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return Identity{}, MalformedError("namespace must not be empty")
	}
	return NewIdentity(strings.Split(s, constants.NamespaceLevelSeparator)...)
}

// Levels returns a copy of the Identity levels.
func (i Identity) Levels() []string {
	return slices.Clone(i.levels)
}

// Len returns the number of levels.
func (i Identity) Len() int {
	return len(i.levels)
}

// IsZero reports whether the Identity has no levels.
func (i Identity) IsZero() bool {
	return len(i.levels) == 0
}

// Equal reports whether both identities have the same levels in the same
// order. Comparison is case-sensitive.
func (i Identity) Equal(other Identity) bool {
	return slices.Equal(i.levels, other.levels)
}

// Parent returns the Identity one level up. The boolean is false for top
// level identities.
func (i Identity) Parent() (Identity, bool) {
	if len(i.levels) <= 1 {
		return Identity{}, false
	}
	return Identity{levels: slices.Clone(i.levels[:len(i.levels)-1])}, true
}

// IsDirectChildOf reports whether the Identity is exactly one level below
// parent.
func (i Identity) IsDirectChildOf(parent Identity) bool {
	if len(i.levels) != len(parent.levels)+1 {
		return false
	}
	return slices.Equal(i.levels[:len(parent.levels)], parent.levels)
}

// String returns the display form of the Identity, e.g. "a.b".
func (i Identity) String() string {
	return strings.Join(i.levels, constants.NamespaceDisplaySeparator)
}

// Encode returns the wire encoding of the Identity. It is the inverse of
// ParseIdentity.
func (i Identity) Encode() string {
	return strings.Join(i.levels, constants.NamespaceLevelSeparator)
}

// SortIdentities sorts identities in ascending order of their display form.
func SortIdentities(ids []Identity) {
	slices.SortFunc(ids, func(a, b Identity) int {
		if c := strings.Compare(a.String(), b.String()); c != 0 {
			return c
		}
		// "a.b" as one level and ["a", "b"] display the same
		return slices.Compare(a.levels, b.levels)
	})
}
