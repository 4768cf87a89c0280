package imgfs

import "strings"

// parsePath splits a host-supplied path into its non-empty segments,
// discarding leading, trailing, and duplicate adjacent slashes.
//
//	parsePath("/")     -> []string{}
//	parsePath("/a")    -> []string{"a"}
//	parsePath("/a/b")  -> []string{"a", "b"}
//	parsePath("/a/")   -> []string{"a"}
//
// Grounded on original_source/path_parser.c's parse_path, reimplemented
// with strings.Split instead of a manual char-buffer walk.
func parsePath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// basename returns the final segment of path, or "" if path has none.
func basename(path string) string {
	segs := parsePath(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}
