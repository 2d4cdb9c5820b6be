package csvio

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// readZIP returns the content of the first CSV file in the archive.
// macOS resource forks (__MACOSX/) are skipped.
func readZIP(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in ZIP: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s in ZIP: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("no CSV file found in %s", filepath.Base(path))
}
