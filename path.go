package pbo

import "strings"

// NormalizePath converts an entry name to fs.ValidPath format.
//
// Entry names are conventionally written with backslash separators. It
// performs the following transformations:
//   - Converts backslashes to slashes: `data\model.p3d` → "data/model.p3d"
//   - Strips leading and trailing slashes
//   - Collapses consecutive slashes: "data//model.p3d" → "data/model.p3d"
//   - Converts empty string to root: "" → "."
//
// Paths containing "." or ".." elements are preserved; callers that write
// to disk reject them via fs.ValidPath.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}
