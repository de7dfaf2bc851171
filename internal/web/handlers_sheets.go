package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/sheets"
)

// RefreshTokenHeader optionally carries a refresh token next to the bearer
// access token on /api/sheets requests.
const RefreshTokenHeader = "X-Refresh-Token"

// sheetCredentials reads the caller's OAuth tokens from the request headers.
func sheetCredentials(r *http.Request) (core.SheetCredentials, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return core.SheetCredentials{}, invalidRequest("missing bearer token")
	}
	return core.SheetCredentials{
		AccessToken:  strings.TrimSpace(token),
		RefreshToken: r.Header.Get(RefreshTokenHeader),
	}, nil
}

// sheetsRequest resolves the directory and credentials every /api/sheets
// handler needs.
func (s *Server) sheetsRequest(r *http.Request) (SheetDirectory, core.SheetCredentials, error) {
	if s.sheets == nil {
		return nil, core.SheetCredentials{}, errSheetsUnavailable
	}
	creds, err := sheetCredentials(r)
	if err != nil {
		return nil, core.SheetCredentials{}, err
	}
	return s.sheets, creds, nil
}

// handleListSpreadsheets lists spreadsheets visible to the token holder.
func (s *Server) handleListSpreadsheets(w http.ResponseWriter, r *http.Request) {
	dir, creds, err := s.sheetsRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	list, err := dir.ListSpreadsheets(r.Context(), creds)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if list == nil {
		list = []sheets.Spreadsheet{}
	}
	writeJSON(w, list)
}

type createSpreadsheetRequest struct {
	Title string `json:"title" validate:"required"`
}

// handleCreateSpreadsheet creates a new spreadsheet to connect a template to.
func (s *Server) handleCreateSpreadsheet(w http.ResponseWriter, r *http.Request) {
	dir, creds, err := s.sheetsRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req createSpreadsheetRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	created, err := dir.CreateSpreadsheet(r.Context(), creds, req.Title)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

// handleSheetTabs lists the tabs of one spreadsheet.
func (s *Server) handleSheetTabs(w http.ResponseWriter, r *http.Request) {
	dir, creds, err := s.sheetsRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	names, err := dir.SheetNames(r.Context(), creds, chi.URLParam(r, "spreadsheetID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, map[string][]string{"sheets": names})
}
