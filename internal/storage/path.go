package storage

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectPath normalizes an object path, dropping a leading "/".
func ObjectPath(path string) (string, error) {
	p := strings.TrimPrefix(path, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q is not an object path", ErrInvalidPath, path)
	}
	return p, nil
}

// FolderPath normalizes a folder path. The root folder becomes "".
func FolderPath(path string) (string, error) {
	p := strings.TrimPrefix(path, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q is not a folder path", ErrInvalidPath, path)
	}
	return p, nil
}

// ChildName reports the name of path inside folder if path is an object
// stored directly in it.
func ChildName(folder, path string) (string, bool) {
	if !strings.HasPrefix(path, folder) {
		return "", false
	}
	rest := path[len(folder):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// Listing builds the sorted immediate children of folder from a set of
// object paths. Nested objects collapse into their first sub-folder.
func Listing(folder string, paths []string) []string {
	seen := make(map[string]struct{})
	for _, p := range paths {
		if !strings.HasPrefix(p, folder) {
			continue
		}
		rest := p[len(folder):]
		if rest == "" {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			rest = rest[:i+1]
		}
		seen[rest] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
