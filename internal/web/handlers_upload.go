package web

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/export"
	"github.com/JonMunkholm/csvstandard/internal/logging"
)

const (
	// multipartMemory is how much of a multipart form is kept in memory
	// before parts spill to temporary files.
	multipartMemory = 32 << 20

	// multipartOverhead allows for boundaries and form fields around the file.
	multipartOverhead = 1 << 20
)

// handleUpload parses a CSV file for the template named in the URL and opens
// an upload session. The form carries the file in "file" and an optional
// "charset" for files that are not UTF-8.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "id")
	maxSize := s.cfg.Upload.MaxFileSize

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		respondError(w, r, invalidRequest("parse form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		respondError(w, r, fmt.Errorf("%w: %d bytes, limit is %d", core.ErrFileTooLarge, header.Size, maxSize))
		return
	}

	view, err := s.service.StartSession(r.Context(), ref, header.Filename, file, r.FormValue("charset"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "session_id", view.ID, "template", ref).
		Info("upload received", "file", header.Filename, "bytes", header.Size)
	writeJSONStatus(w, http.StatusCreated, view)
}

// handleGetSession returns the session's current state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Session(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, view)
}

// handleResetSession discards the session so the user can start over.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetSession(chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// replaceMappingsRequest is a complete mapping set.
type replaceMappingsRequest struct {
	Mappings core.Mappings `json:"mappings"`
}

// handleReplaceMappings swaps the session's whole mapping set.
func (s *Server) handleReplaceMappings(w http.ResponseWriter, r *http.Request) {
	var req replaceMappingsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.service.ReplaceMappings(chi.URLParam(r, "id"), req.Mappings)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, view)
}

// updateMappingRequest maps one field. An empty sourceColumn unmaps it.
type updateMappingRequest struct {
	FieldID      string `json:"fieldId" validate:"required"`
	SourceColumn string `json:"sourceColumn"`
}

// handleUpdateMapping changes the column mapped to one field.
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	var req updateMappingRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.service.UpdateMapping(chi.URLParam(r, "id"), req.FieldID, req.SourceColumn)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, view)
}

// validateResponse lists the invalid cells found in a session.
type validateResponse struct {
	Valid      bool                   `json:"valid"`
	ErrorCount int                    `json:"errorCount"`
	Errors     []core.ValidationError `json:"errors"`
}

// handleValidate checks every row against the template. Unmapped required
// fields fail with 422 before any row is checked.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	errs, err := s.service.Validate(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if errs == nil {
		errs = []core.ValidationError{}
	}
	writeJSON(w, validateResponse{Valid: len(errs) == 0, ErrorCount: len(errs), Errors: errs})
}

// standardizeFailure is the 422 body when rows still have invalid values.
type standardizeFailure struct {
	ErrorResponse
	ErrorCount int                    `json:"errorCount"`
	Errors     []core.ValidationError `json:"errors"`
}

// handleStandardize transforms the session's rows into canonical output.
func (s *Server) handleStandardize(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.service.Standardize(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrValidationFailed) && res != nil {
			logging.WithFields(r.Context(), "session_id", id).
				Warn("standardize rejected", "errors", len(res.Errors))
			writeJSONStatus(w, http.StatusUnprocessableEntity, standardizeFailure{
				ErrorResponse: newErrorResponse(err),
				ErrorCount:    len(res.Errors),
				Errors:        res.Errors,
			})
			return
		}
		respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleDownload sends the standardized rows as an attachment, as CSV by
// default or as Parquet with ?format=parquet.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "parquet" {
		respondError(w, r, invalidRequest("unsupported format %q", format))
		return
	}

	tmpl, header, rows, err := s.service.Output(id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "parquet":
		headers, values := core.Project(rows, tmpl.Fields)
		err = export.WriteParquet(&buf, headers, values)
		contentType = "application/vnd.apache.parquet"
	default:
		err = core.Serialize(&buf, rows, header)
		contentType = "text/csv; charset=utf-8"
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	filename := core.ExportFileName(tmpl.Name, format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Can't change status code after writing, just log.
		logging.WithFields(r.Context(), "session_id", id).Error("write download", "error", err)
	}
}

// appendRequest carries the caller's OAuth tokens for one append.
type appendRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken"`
}

// handleAppend sends the standardized rows to the template's connected
// sheet. Each call appends again; nothing is retried.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := s.service.AppendToSheet(r.Context(), chi.URLParam(r, "id"), core.SheetCredentials{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}
