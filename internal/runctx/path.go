package runctx

import (
	"regexp"
	"strconv"
	"strings"
)

// RootPath is the path of the top-level node of a run.
const RootPath = "."

// Join appends an edge name to a parent path.
func Join(parent, edge string) string {
	if parent == RootPath || parent == "" {
		return RootPath + edge
	}
	return parent + "." + edge
}

// Indexed returns the path of the k-th call of edge under parent. The 0th
// call is the bare edge.
func Indexed(parent, edge string, k int) string {
	p := Join(parent, edge)
	if k == 0 {
		return p
	}
	return p + "[" + strconv.Itoa(k) + "]"
}

// Parent returns the parent of path. The parent of a root child is the
// root; the root has no parent and returns "".
func Parent(path string) string {
	if path == RootPath || path == "" {
		return ""
	}
	i := strings.LastIndexByte(path, '.')
	if i <= 0 {
		return RootPath
	}
	return path[:i]
}

// Edge returns the last segment of path including any [k] suffix.
func Edge(path string) string {
	if path == RootPath {
		return ""
	}
	return path[strings.LastIndexByte(path, '.')+1:]
}

// IsAncestor reports whether anc is a strict ancestor of path.
func IsAncestor(anc, path string) bool {
	if anc == path {
		return false
	}
	if anc == RootPath {
		return strings.HasPrefix(path, RootPath)
	}
	return strings.HasPrefix(path, anc+".")
}

// InSubtree reports whether path is root or one of its descendants.
func InSubtree(root, path string) bool {
	return root == path || IsAncestor(root, path)
}

// Match reports whether path matches pattern, where "*" stands for exactly
// one non-empty segment fragment without dots. ".*.b" matches ".a.b" but
// not ".a.c.b".
func Match(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	if !strings.Contains(pattern, "*") {
		return pattern == path
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, `[^.]+`) + "$")
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// IsParentOf reports whether path is the direct parent of whatever pattern
// names. The last segment of pattern may be a wildcard.
func IsParentOf(path, pattern string) bool {
	i := strings.LastIndexByte(pattern, '.')
	if i < 0 {
		return false
	}
	parent := pattern[:i]
	if parent == "" {
		parent = RootPath
	}
	return Match(parent, path)
}
