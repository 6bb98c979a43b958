package web

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vectortube/internal/storage"
)

// handleThumbnail serves one stored file. Nested paths, hidden files and
// in-flight writes are not served.
func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "*")
	if ref == "" || strings.ContainsAny(ref, `/\`) || strings.HasPrefix(ref, ".") || storage.IsTemp(ref) {
		http.NotFound(w, r)
		return
	}

	path, err := s.assets.Path(ref)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to open thumbnail", zap.String("ref", ref), zap.Error(err))
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, ref, info.ModTime(), f)
}
