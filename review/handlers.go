package review

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"dupfinder/types"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Page is one chunk of the group list
type Page struct {
	Page       int                    `json:"page"`
	TotalPages int                    `json:"total_pages"`
	Total      int                    `json:"total"`
	Groups     []types.DuplicateGroup `json:"groups"`
}

func (s *Server) page(n int) Page {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalPages := (len(s.groups) + PageSize - 1) / PageSize
	p := Page{Page: n, TotalPages: totalPages, Total: len(s.groups), Groups: []types.DuplicateGroup{}}

	start := n * PageSize
	if start >= len(s.groups) {
		return p
	}
	end := start + PageSize
	if end > len(s.groups) {
		end = len(s.groups)
	}
	p.Groups = append(p.Groups, s.groups[start:end]...)
	return p
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid page")
			return
		}
		n = v
	}
	s.respondJSON(w, http.StatusOK, s.page(n))
}

func (s *Server) handleGetPicture(w http.ResponseWriter, r *http.Request) {
	path := pictureParam(r)
	s.mu.Lock()
	_, ok := s.members[path]
	s.mu.Unlock()
	if !ok {
		s.respondError(w, http.StatusNotFound, "picture not found")
		return
	}
	http.ServeFile(w, r, path)
}

// handleDeletePicture answers with the plain-text boolean of the relocation.
// Paths outside the groups are never handed to the deleter.
func (s *Server) handleDeletePicture(w http.ResponseWriter, r *http.Request) {
	path := pictureParam(r)
	s.logger.Debug("delete picture request", zap.String("path", path))

	s.mu.Lock()
	_, member := s.members[path]
	s.mu.Unlock()

	ok := false
	if member {
		ok = s.deleter.DeletePicture(r.Context(), path)
	} else {
		s.logger.Warn("refusing to delete picture outside the groups", zap.String("path", path))
	}
	if ok {
		s.forget(path)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strconv.FormatBool(ok)))
}

// forget drops a relocated picture from the members and the group list.
// Groups left empty disappear.
func (s *Server) forget(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members, path)
	groups := s.groups[:0:0]
	for _, g := range s.groups {
		items := make([]types.DuplicateItem, 0, len(g.Items))
		for _, item := range g.Items {
			if item.FileName != path {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		g.Items = items
		g.Total = len(items)
		groups = append(groups, g)
	}
	s.groups = groups
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pictureParam returns the file path captured by the wildcard. Clients that
// collapse the leading slash of an absolute path get it back.
func pictureParam(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	path, err := url.PathUnescape(raw)
	if err != nil {
		path = raw
	}
	if !filepath.IsAbs(path) {
		path = "/" + path
	}
	return filepath.Clean(path)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
