package web

import (
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/logging"
	"github.com/JonMunkholm/csvstandard/internal/schema"
)

// templateResponse adds the rendered description to a template.
type templateResponse struct {
	*core.Template
	DescriptionHTML string `json:"descriptionHtml,omitempty"`
}

// handleListTemplates returns all templates sorted by name.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []core.Template{}
	}
	writeJSON(w, list)
}

// handleGetTemplate returns one template by ID or slug.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.service.Template(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	html, err := schema.RenderDescription(tmpl.Description)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, templateResponse{Template: tmpl, DescriptionHTML: html})
}

// handleCreateTemplate stores a new template. The body is a template
// definition in JSON, or YAML when sent as application/yaml.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	data, format, err := readDefinition(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tmpl, err := schema.Load(data, format)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if tmpl.UserID == "" {
		tmpl.UserID = core.UserIDFromContext(r.Context())
	}

	if err := s.store.Save(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "template_id", tmpl.ID, "template", tmpl.Slug).
		Info("template created", "fields", len(tmpl.Fields))
	writeJSONStatus(w, http.StatusCreated, tmpl)
}

// handleUpdateTemplate replaces a template's definition. The ID, creation
// time and owner are kept; so is the slug unless the body sets a new one.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	data, format, err := readDefinition(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := schema.CheckStructure(data, format); err != nil {
		respondError(w, r, err)
		return
	}
	tmpl, err := schema.Decode(data, format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tmpl.ID = existing.ID
	tmpl.CreatedAt = existing.CreatedAt
	if tmpl.Slug == "" {
		tmpl.Slug = existing.Slug
	}
	if tmpl.UserID == "" {
		tmpl.UserID = existing.UserID
	}
	schema.Normalize(tmpl)
	if err := schema.Validate(tmpl); err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.store.Save(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "template_id", tmpl.ID, "template", tmpl.Slug).Info("template updated")
	writeJSON(w, tmpl)
}

// handleDeleteTemplate removes a template and its upload history.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.store.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), tmpl.ID); err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "template_id", tmpl.ID, "template", tmpl.Slug).Info("template deleted")
	w.WriteHeader(http.StatusNoContent)
}

// connectSheetRequest points a template at a spreadsheet tab.
type connectSheetRequest struct {
	SpreadsheetID   string `json:"spreadsheetId" validate:"required"`
	SpreadsheetName string `json:"spreadsheetName"`
	SheetName       string `json:"sheetName"`
}

// handleConnectSheet sets the template's destination sheet.
func (s *Server) handleConnectSheet(w http.ResponseWriter, r *http.Request) {
	var req connectSheetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tmpl, err := s.store.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	tmpl.Destination = &core.SheetConnection{
		Provider:        core.ProviderGoogleSheets,
		SpreadsheetID:   req.SpreadsheetID,
		SpreadsheetName: schema.Sanitize(req.SpreadsheetName),
		SheetName:       req.SheetName,
		ConnectedAt:     time.Now().UTC(),
	}
	schema.Normalize(tmpl)
	if err := schema.Validate(tmpl); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.Save(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "template_id", tmpl.ID, "spreadsheet_id", req.SpreadsheetID).
		Info("sheet connected")
	writeJSON(w, tmpl)
}

// handleDisconnectSheet clears the template's destination.
func (s *Server) handleDisconnectSheet(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.store.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	tmpl.Destination = nil
	if err := s.store.Save(r.Context(), tmpl); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, tmpl)
}

// handleTemplateUploads returns the template's upload history, newest first.
func (s *Server) handleTemplateUploads(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if history == nil {
		history = []core.UploadRecord{}
	}
	writeJSON(w, history)
}

// readDefinition reads a template body and picks its format from the
// Content-Type header.
func readDefinition(r *http.Request) ([]byte, schema.Format, error) {
	format := schema.FormatJSON
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch mt {
		case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
			format = schema.FormatYAML
		}
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	if err != nil {
		return nil, "", invalidRequest("read body: %v", err)
	}
	if len(data) == 0 {
		return nil, "", invalidRequest("empty body")
	}
	return data, format, nil
}
