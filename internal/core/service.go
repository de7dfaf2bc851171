package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 30 * time.Minute

// DefaultMaxFileSize is the upload size limit when none is configured.
const DefaultMaxFileSize = 100 << 20

// DefaultSheetName is used when a destination does not name a sheet.
const DefaultSheetName = "Sheet1"

// Service runs the upload workflow: parse, map, validate, standardize and
// export. It holds one session per in-progress upload.
type Service struct {
	store    TemplateStore
	sink     SheetSink
	recorder UploadRecorder
	limiter  *UploadLimiter
	matcher  Matcher
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// Option configures a Service.
type Option func(*Service)

// WithSheetSink sets the destination used by AppendToSheet.
func WithSheetSink(sink SheetSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithRecorder sets where standardized uploads are recorded.
func WithRecorder(r UploadRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLimiter bounds concurrent parses.
func WithLimiter(l *UploadLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithSessionTTL sets how long an idle session survives a Sweep.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithMaxFileSize sets the upload size limit in bytes.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithMatcher replaces the default synonym table used for auto-mapping.
func WithMatcher(m Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service backed by store.
func NewService(store TemplateStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		limiter:  NewUploadLimiter(DefaultMaxConcurrentUploads, DefaultMaxWaitTime),
		matcher:  DefaultMatcher(),
		ttl:      DefaultSessionTTL,
		maxBytes: DefaultMaxFileSize,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Template loads a template by ID or slug.
func (s *Service) Template(ctx context.Context, ref string) (*Template, error) {
	return s.store.Get(ctx, ref)
}

// StartSession parses an uploaded file for the referenced template and opens
// a session. A fresh session has no mapping, so Suggest runs exactly once
// here; later edits never re-run it. charset may be empty for UTF-8.
func (s *Service) StartSession(ctx context.Context, templateRef, fileName string, r io.Reader, charset string) (*SessionView, error) {
	if r == nil {
		return nil, ErrNoFile
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	tmpl, err := s.store.Get(ctx, templateRef)
	if err != nil {
		return nil, err
	}

	decoded, err := DecodeCharset(WrapUpload(r, s.maxBytes), charset)
	if err != nil {
		return nil, err
	}

	parsed, err := Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fileName, err)
	}
	if len(parsed.Headers) == 0 {
		return nil, fmt.Errorf("parse %s: %w", fileName, ErrEmptyFile)
	}

	suggested := s.matcher.Suggest(parsed.Headers, tmpl.Fields)

	now := s.now()
	sess := &session{
		id:         uuid.NewString(),
		template:   tmpl,
		fileName:   fileName,
		parsed:     parsed,
		mappings:   suggested,
		autoMapped: len(suggested) > 0,
		createdAt:  now,
		lastAccess: now,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	slog.Info("upload session started",
		"session_id", sess.id,
		"template", tmpl.Slug,
		"file", fileName,
		"rows", parsed.RowCount,
		"columns", len(parsed.Headers),
		"auto_mapped", len(suggested),
		"client_ip", ClientIPFromContext(ctx),
	)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// lookup returns the session and marks it as accessed.
func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	sess.lastAccess = s.now()
	sess.mu.Unlock()
	return sess, nil
}

// Session returns a snapshot of the session.
func (s *Service) Session(id string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// UpdateMapping maps one field to a column, replacing any previous mapping of
// that field. An empty column unmaps the field. Auto-mapping is not re-run.
func (s *Service) UpdateMapping(id, fieldID, column string) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if _, ok := sess.template.Field(fieldID); !ok {
		return nil, &PreconditionError{Reason: fmt.Sprintf("unknown field %q", fieldID)}
	}
	if column != "" && !containsColumn(sess.parsed.Headers, column) {
		return nil, &PreconditionError{Reason: fmt.Sprintf("unknown column %q", column)}
	}

	sess.mappings = sess.mappings.Set(fieldID, column)
	sess.invalidate()
	return sess.view(), nil
}

// ReplaceMappings swaps the whole mapping set after checking it against the
// file's headers and the template's fields.
func (s *Service) ReplaceMappings(id string, mappings Mappings) (*SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := CheckMappings(sess.parsed.Headers, sess.template.Fields, mappings); err != nil {
		return nil, err
	}

	sess.mappings = mappings.Clone()
	sess.invalidate()
	return sess.view(), nil
}

// ResetSession discards a session so the user can start over with a new file.
func (s *Service) ResetSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// Validate checks the session's rows. It fails with a *PreconditionError if a
// required field is unmapped; otherwise it returns every ValidationError.
func (s *Service) Validate(id string) ([]ValidationError, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	errs, err := sess.validate()
	if err != nil {
		return nil, err
	}
	return append([]ValidationError(nil), errs...), nil
}

// validate runs the required-mapping gate and the row validator.
// Caller holds s.mu.
func (s *session) validate() ([]ValidationError, error) {
	if err := CheckRequiredMapped(s.template.Fields, s.mappings); err != nil {
		return nil, err
	}
	s.errors = Validate(s.parsed.Data, s.template.Fields, s.mappings)
	s.validated = true
	return s.errors, nil
}

// StandardizeResult reports the outcome of Standardize.
type StandardizeResult struct {
	UploadID string            `json:"uploadId,omitempty"`
	RowCount int               `json:"rowCount"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// Standardize validates the session and, when there are no errors, transforms
// its rows into canonical output and records the upload. If validation finds
// errors the result carries them and the error wraps ErrValidationFailed.
func (s *Service) Standardize(ctx context.Context, id string) (*StandardizeResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	errs, err := sess.validate()
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		res := &StandardizeResult{
			RowCount: sess.parsed.RowCount,
			Errors:   append([]ValidationError(nil), errs...),
		}
		return res, fmt.Errorf("%w: %d errors", ErrValidationFailed, len(errs))
	}

	sess.output = Transform(sess.parsed.Data, sess.template.Fields, sess.mappings)
	sess.standardized = true

	res := &StandardizeResult{RowCount: len(sess.output)}

	if s.recorder != nil {
		rec := UploadRecord{
			ID:         ulid.Make().String(),
			TemplateID: sess.template.ID,
			FileName:   sess.fileName,
			RowCount:   len(sess.output),
			ErrorCount: 0,
			Mappings:   sess.mappings.Clone(),
			CreatedAt:  s.now(),
		}
		if err := s.recorder.RecordUpload(ctx, rec); err != nil {
			// The output is still usable; history is best effort.
			slog.Warn("failed to record upload", "session_id", id, "error", err)
		} else {
			res.UploadID = rec.ID
		}
	}

	slog.Info("upload standardized",
		"session_id", id,
		"template", sess.template.Slug,
		"rows", len(sess.output),
	)
	return res, nil
}

// Output returns the standardized rows, their header in field order and the
// session's template. Fails with ErrNotStandardized before Standardize succeeds.
func (s *Service) Output(id string) (*Template, []string, []CanonicalRow, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, nil, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.standardized {
		return nil, nil, nil, ErrNotStandardized
	}
	return sess.template, Header(sess.template.Fields), sess.output, nil
}

// ExportCSV writes the standardized rows as CSV.
func (s *Service) ExportCSV(id string, w io.Writer) error {
	_, header, rows, err := s.Output(id)
	if err != nil {
		return err
	}
	return Serialize(w, rows, header)
}

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)

// ExportFileName derives the download name from a template name:
// lower-cased, whitespace runs replaced by "-", plus "-standardized.<ext>".
// ext defaults to "csv".
func ExportFileName(templateName, ext string) string {
	if ext == "" {
		ext = "csv"
	}
	base := whitespaceRun.ReplaceAllString(strings.ToLower(templateName), "-")
	return base + "-standardized." + ext
}

// AppendToSheet sends the standardized rows to the template's connected sheet.
// It is fire-once: a failed append is reported and never retried.
func (s *Service) AppendToSheet(ctx context.Context, id string, creds SheetCredentials) (AppendResult, error) {
	tmpl, _, rows, err := s.Output(id)
	if err != nil {
		return AppendResult{}, err
	}

	dest := tmpl.Destination
	if s.sink == nil || dest == nil || dest.SpreadsheetID == "" {
		return AppendResult{}, ErrNoDestination
	}

	sheet := dest.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}

	headers, values := Project(rows, tmpl.Fields)
	res, err := s.sink.Append(ctx, AppendRequest{
		SpreadsheetID: dest.SpreadsheetID,
		SheetName:     sheet,
		Headers:       headers,
		Rows:          values,
		Credentials:   creds,
	})
	if err != nil {
		return AppendResult{}, fmt.Errorf("append to sheet: %w", err)
	}

	slog.Info("rows appended to sheet",
		"session_id", id,
		"spreadsheet_id", dest.SpreadsheetID,
		"sheet", sheet,
		"rows", res.RowsAdded,
	)
	return res, nil
}

// History lists recorded uploads for a template.
func (s *Service) History(ctx context.Context, templateRef string) ([]UploadRecord, error) {
	tmpl, err := s.store.Get(ctx, templateRef)
	if err != nil {
		return nil, err
	}
	if s.recorder == nil {
		return []UploadRecord{}, nil
	}
	return s.recorder.ListUploads(ctx, tmpl.ID)
}

// ActiveSessions returns the number of open sessions.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LimiterStatus reports upload slot usage.
func (s *Service) LimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

// WaitForUploads blocks until in-flight parses finish or ctx is done.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func containsColumn(columns []string, target string) bool {
	for _, c := range columns {
		if c == target {
			return true
		}
	}
	return false
}
