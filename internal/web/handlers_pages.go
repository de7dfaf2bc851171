package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvstandard/internal/logging"
	"github.com/JonMunkholm/csvstandard/internal/schema"
	"github.com/JonMunkholm/csvstandard/internal/web/templates"
)

// handleUploadPage renders the landing page for a template link.
func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.service.Template(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	description, err := schema.RenderDescription(tmpl.Description)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.UploadPage(tmpl, description).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}
