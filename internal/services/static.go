package services

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

const indexFile = "index.html"

// StaticFileService serves the built dashboard. Unknown paths fall back to
// index.html so client side routes survive a reload.
type StaticFileService struct {
	directory string
	files     http.Handler
}

func NewStaticFileService(directory string) (*StaticFileService, error) {
	info, err := os.Stat(filepath.Join(directory, indexFile))
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("static files: %s is a directory", indexFile)
	}
	return &StaticFileService{
		directory: directory,
		files:     http.FileServer(http.Dir(directory)),
	}, nil
}

func (s *StaticFileService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", s.serve)
	return r
}

func (s *StaticFileService) serve(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + chi.URLParam(r, "*"))
	if name != "/" && name != "/"+indexFile {
		info, err := os.Stat(filepath.Join(s.directory, filepath.FromSlash(name)))
		if err == nil && !info.IsDir() {
			r.URL.Path = name
			s.files.ServeHTTP(w, r)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	r.URL.Path = "/"
	http.ServeFile(w, r, filepath.Join(s.directory, indexFile))
}
