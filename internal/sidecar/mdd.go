// Package sidecar discovers companion MDD resource archives next to an
// MDX file and normalises MDD keys from Windows-style back-slash paths
// into URL-style virtual paths.
package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Discover returns the paths of every companion MDD archive for the MDX
// file at mdxPath: "name.mdd" first, then "name.1.mdd", "name.2.mdd", …
// by contiguous numeric probing, stopping at the first missing index.
func Discover(mdxPath string) []string {
	base := strings.TrimSuffix(mdxPath, filepath.Ext(mdxPath))

	var paths []string
	if p := base + ".mdd"; exists(p) {
		paths = append(paths, p)
	} else {
		return nil
	}
	for i := 1; ; i++ {
		p := fmt.Sprintf("%s.%d.mdd", base, i)
		if !exists(p) {
			break
		}
		paths = append(paths, p)
	}
	return paths
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NormalizeKey strips the leading '\' from an MDD keyword and rewrites
// remaining '\' to '/', yielding a URL-style virtual path such as
// "image/cat.png" from "\image\cat.png".
func NormalizeKey(raw []byte) []byte {
	s := string(raw)
	s = strings.TrimPrefix(s, `\`)
	s = strings.ReplaceAll(s, `\`, "/")
	return []byte(s)
}

// CachePath returns the on-disk location of the persistent index cache
// for the MDX file at mdxPath: same basename, ".db" extension.
func CachePath(mdxPath string) string {
	return strings.TrimSuffix(mdxPath, filepath.Ext(mdxPath)) + ".db"
}
