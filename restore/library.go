package restore

import (
	"fmt"
	"strings"
)

// LibraryRef names one required module. The active set is compared by
// value after de-duplication; changing it invalidates a prior restore only
// when the set actually differs.
type LibraryRef struct {
	Name    string
	Version string
}

func (r LibraryRef) String() string {
	if r.Version == "" {
		return r.Name
	}
	return r.Name + "@" + r.Version
}

// ParseLibraryRef parses "module[@version]".
func ParseLibraryRef(s string) (LibraryRef, error) {
	name, version, _ := strings.Cut(s, "@")
	if name == "" {
		return LibraryRef{}, fmt.Errorf("invalid library reference %q", s)
	}
	return LibraryRef{Name: name, Version: version}, nil
}

// Dedup returns the set with duplicate entries removed, preserving order.
func Dedup(refs []LibraryRef) []LibraryRef {
	seen := make(map[LibraryRef]struct{}, len(refs))
	out := make([]LibraryRef, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// EqualSets reports whether two reference lists denote the same
// de-duplicated set, ignoring order.
func EqualSets(a, b []LibraryRef) bool {
	as := make(map[LibraryRef]struct{}, len(a))
	for _, r := range a {
		as[r] = struct{}{}
	}
	bs := make(map[LibraryRef]struct{}, len(b))
	for _, r := range b {
		bs[r] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for r := range as {
		if _, ok := bs[r]; !ok {
			return false
		}
	}
	return true
}
