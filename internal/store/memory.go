// Package store provides TemplateStore and UploadRecorder implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

// Memory keeps templates and upload history in process memory.
// Safe for concurrent use. Returned values are copies.
type Memory struct {
	mu        sync.RWMutex
	templates map[string]core.Template // keyed by ID
	uploads   map[string][]core.UploadRecord
	now       func() time.Time
}

var (
	_ core.TemplateStore  = (*Memory)(nil)
	_ core.UploadRecorder = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		templates: make(map[string]core.Template),
		uploads:   make(map[string][]core.UploadRecord),
		now:       time.Now,
	}
}

// Get returns the template whose ID or slug equals ref.
func (m *Memory) Get(ctx context.Context, ref string) (*core.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.templates[ref]; ok {
		return cloneTemplate(t), nil
	}
	for _, t := range m.templates {
		if t.Slug == ref {
			return cloneTemplate(t), nil
		}
	}
	return nil, core.ErrTemplateNotFound
}

// Save inserts or replaces a template by ID. A slug owned by another
// template is rejected with core.ErrSlugConflict. CreatedAt is preserved on
// update and UpdatedAt is always refreshed.
func (m *Memory) Save(ctx context.Context, t *core.Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.templates {
		if id != t.ID && t.Slug != "" && existing.Slug == t.Slug {
			return core.ErrSlugConflict
		}
	}

	now := m.now().UTC()
	if prev, ok := m.templates[t.ID]; ok {
		t.CreatedAt = prev.CreatedAt
	} else if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	m.templates[t.ID] = *cloneTemplate(*t)
	return nil
}

// Delete removes a template and its upload history.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return core.ErrTemplateNotFound
	}
	delete(m.templates, id)
	delete(m.uploads, id)
	return nil
}

// List returns every template sorted by name.
func (m *Memory) List(ctx context.Context) ([]core.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, *cloneTemplate(t))
	}
	sortTemplates(out)
	return out, nil
}

// RecordUpload appends an upload to the template's history.
func (m *Memory) RecordUpload(ctx context.Context, rec core.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Mappings = append([]core.ColumnMapping(nil), rec.Mappings...)
	m.uploads[rec.TemplateID] = append(m.uploads[rec.TemplateID], rec)
	return nil
}

// ListUploads returns a template's uploads, newest first.
func (m *Memory) ListUploads(ctx context.Context, templateID string) ([]core.UploadRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := m.uploads[templateID]
	out := make([]core.UploadRecord, len(recs))
	for i, rec := range recs {
		rec.Mappings = append([]core.ColumnMapping(nil), rec.Mappings...)
		out[len(recs)-1-i] = rec
	}
	return out, nil
}

// Seed saves each template that is not already present. Existing templates
// are left untouched.
func Seed(ctx context.Context, s core.TemplateStore, templates []core.Template) (int, error) {
	added := 0
	for i := range templates {
		t := templates[i]
		if _, err := s.Get(ctx, t.ID); err == nil {
			continue
		}
		if err := s.Save(ctx, &t); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func sortTemplates(ts []core.Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := strings.ToLower(ts[i].Name), strings.ToLower(ts[j].Name)
		if a != b {
			return a < b
		}
		return ts[i].ID < ts[j].ID
	})
}

func cloneTemplate(t core.Template) *core.Template {
	t.Fields = append([]core.TemplateField(nil), t.Fields...)
	if t.Destination != nil {
		d := *t.Destination
		t.Destination = &d
	}
	return &t
}
