// Package htmlserve serves the *.html files of one directory, with an index
// of them at "/".
package htmlserve

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/a-h/templ"

	appLog "taskcal/internal/log"
)

type Handler struct {
	dir string
}

func NewHandler(dir string) *Handler {
	if dir == "" {
		dir = "."
	}
	return &Handler{dir: dir}
}

// ListHTML returns the names of the regular *.html files in the directory,
// sorted.
func (h *Handler) ListHTML() ([]string, error) {
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".html") {
			out = append(out, e.Name())
		}
	}
	slices.Sort(out)
	return out, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		h.serveIndex(w, r)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/")
	if strings.Contains(name, "..") {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(filepath.Join(h.dir, filepath.FromSlash(name)))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			appLog.Debug("htmlserve read failed", "path", name, "err", err.Error())
		}
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	files, err := h.ListHTML()
	if err != nil {
		appLog.Error("htmlserve list failed", err, "dir", h.dir)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := index(files).Render(r.Context(), w); err != nil {
		appLog.Error("htmlserve render failed", err)
	}
}

func index(files []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<title>HTML File List</title>\n</head>\n<body>\n")
		sb.WriteString("<h1>Available HTML Files</h1>\n<ul>\n")
		for _, f := range files {
			sb.WriteString(`<li><a href="/`)
			sb.WriteString(templ.EscapeString(url.PathEscape(f)))
			sb.WriteString(`" target="_blank">`)
			sb.WriteString(templ.EscapeString(f))
			sb.WriteString("</a></li>\n")
		}
		sb.WriteString("</ul>\n</body>\n</html>\n")
		_, err := io.WriteString(w, sb.String())
		return err
	})
}
