package manifest

import (
	"net/url"
	"os"
	"path/filepath"
)

// ResolveURL normalizes a manifest locator to a dereferenceable URL. A
// locator naming an existing local file becomes an absolute file:// URL;
// anything else is returned unchanged and treated as already-remote. No
// network access happens here; a bad remote URL surfaces later as a fetch
// failure.
func ResolveURL(locator string) string {
	info, err := os.Stat(locator)
	if err != nil || info.IsDir() {
		return locator
	}
	abs, err := filepath.Abs(locator)
	if err != nil {
		return locator
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
