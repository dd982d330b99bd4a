// Package static embeds the browser assets of the editor page.
package static

import (
	"crypto/sha1"
	"embed"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

//go:embed css js
var files embed.FS

var (
	versions   = map[string]string{}
	versionsMu sync.Mutex
)

// Handler serves the embedded assets. Mount it under /static/ with
// http.StripPrefix.
func Handler() http.Handler { return http.FileServerFS(files) }

// Path returns /static/<rel>?v=<hash> for cache busting. External URLs and
// unknown files are returned unversioned.
func Path(rel string) string {
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") || strings.HasPrefix(rel, "//") {
		return rel
	}
	rel = strings.TrimPrefix(rel, "/")

	versionsMu.Lock()
	defer versionsMu.Unlock()
	if v, ok := versions[rel]; ok {
		return v
	}
	b, err := files.ReadFile(rel)
	if err != nil {
		return "/static/" + rel
	}
	h := sha1.Sum(b)
	v := "/static/" + rel + "?v=" + fmt.Sprintf("%x", h[:8])
	versions[rel] = v
	return v
}
