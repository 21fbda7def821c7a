package geotag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// isJPEG reports whether path has a JPEG file extension.
func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// Collect expands directories in paths into the JPEG files below them.
// Other paths are passed through as given so that Load can report them.
// Hidden files and directories are skipped.
func Collect(paths []string) ([]string, error) {
	found := []string{}

	for _, root := range paths {
		st, err := os.Stat(root)
		if err != nil || !st.IsDir() {
			found = append(found, root)
			continue
		}

		err = godirwalk.Walk(root, &godirwalk.Options{
			Callback: func(path string, de *godirwalk.Dirent) error {
				if path != root && filepath.Base(path)[0] == '.' {
					if de.IsDir() {
						return godirwalk.SkipThis
					}
					return nil
				}

				if !de.IsDir() && isJPEG(path) {
					klog.V(1).Infof("found %s", path)
					found = append(found, path)
				}
				return nil
			},
		})
		if err != nil {
			return found, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	return found, nil
}
