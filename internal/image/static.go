package image

import (
	"net/http"
	"strings"

	"github.com/radif/imagegw/internal/storage"
)

// StaticFiles serves the local image tree under storage.LocalURLPrefix.
// Directory listings are not served.
func StaticFiles(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.StripPrefix(storage.LocalURLPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		// stored files never change under the same name
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	}))
}
