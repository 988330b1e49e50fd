package static

import (
	"path/filepath"
	"strings"
)

// ResolvePath maps an unescaped request path onto root.
// It does not touch the file system.
// Paths that are not absolute, or that contain "." or ".." segments, are rejected.
func ResolvePath(root, requestPath string) (string, bool) {
	if !strings.HasPrefix(requestPath, "/") {
		return "", false
	}

	if strings.ContainsAny(requestPath, "\x00\\") {
		return "", false
	}

	for _, segment := range strings.Split(requestPath[1:], "/") {
		if segment == "." || segment == ".." {
			return "", false
		}
	}

	return filepath.Join(root, filepath.FromSlash(requestPath[1:])), true
}
