package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvstandard/internal/core"
)

func testTemplate(id, name, slug string) *core.Template {
	return &core.Template{
		ID:   id,
		Name: name,
		Slug: slug,
		Fields: []core.TemplateField{
			{ID: id + "-f1", Name: "name", DisplayName: "Name", Type: core.FieldText, Required: true},
		},
	}
}

func TestMemory_GetByIDOrSlug(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, testTemplate("t1", "Customers", "customers-abc123")))

	byID, err := m.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Customers", byID.Name)

	bySlug, err := m.Get(ctx, "customers-abc123")
	require.NoError(t, err)
	assert.Equal(t, "t1", bySlug.ID)

	_, err = m.Get(ctx, "nope")
	assert.True(t, errors.Is(err, core.ErrTemplateNotFound))
}

func TestMemory_SaveTimestampsAndCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	tmpl := testTemplate("t1", "A", "a")
	require.NoError(t, m.Save(ctx, tmpl))
	assert.Equal(t, clock, tmpl.CreatedAt)
	assert.Equal(t, clock, tmpl.UpdatedAt)

	// Mutating the caller's copy does not leak into the store.
	tmpl.Fields[0].Name = "mutated"
	got, err := m.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "name", got.Fields[0].Name)

	clock = clock.Add(time.Hour)
	update := testTemplate("t1", "A2", "a")
	require.NoError(t, m.Save(ctx, update))
	assert.Equal(t, clock.Add(-time.Hour), update.CreatedAt)
	assert.Equal(t, clock, update.UpdatedAt)
}

func TestMemory_SlugConflict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, testTemplate("t1", "A", "shared")))

	err := m.Save(ctx, testTemplate("t2", "B", "shared"))
	assert.True(t, errors.Is(err, core.ErrSlugConflict))
	assert.Equal(t, "TPL003", core.MapError(err).Code)

	// Re-saving the owner is fine.
	assert.NoError(t, m.Save(ctx, testTemplate("t1", "A", "shared")))
}

func TestMemory_ListSortedByName(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, tmpl := range []*core.Template{
		testTemplate("3", "zeta", "z"),
		testTemplate("1", "Alpha", "a"),
		testTemplate("2", "beta", "b"),
	} {
		require.NoError(t, m.Save(ctx, tmpl))
	}

	list, err := m.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, tmpl := range list {
		names = append(names, tmpl.Name)
	}
	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, names)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, testTemplate("t1", "A", "a")))
	require.NoError(t, m.RecordUpload(ctx, core.UploadRecord{ID: "u1", TemplateID: "t1"}))

	require.NoError(t, m.Delete(ctx, "t1"))
	_, err := m.Get(ctx, "t1")
	assert.True(t, errors.Is(err, core.ErrTemplateNotFound))

	uploads, err := m.ListUploads(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, uploads)

	assert.True(t, errors.Is(m.Delete(ctx, "t1"), core.ErrTemplateNotFound))
}

func TestMemory_Uploads(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := 1; i <= 3; i++ {
		require.NoError(t, m.RecordUpload(ctx, core.UploadRecord{
			ID:         fmt.Sprintf("u%d", i),
			TemplateID: "t1",
			RowCount:   i,
			Mappings:   []core.ColumnMapping{{SourceColumn: "A", TargetFieldID: "f1"}},
		}))
	}
	require.NoError(t, m.RecordUpload(ctx, core.UploadRecord{ID: "other", TemplateID: "t2"}))

	got, err := m.ListUploads(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "u3", got[0].ID)
	assert.Equal(t, "u1", got[2].ID)

	got[0].Mappings[0].SourceColumn = "changed"
	again, err := m.ListUploads(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "A", again[0].Mappings[0].SourceColumn)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, testTemplate("t1", "Custom", "t1-slug")))

	added, err := Seed(ctx, m, []core.Template{
		*testTemplate("t1", "Overwritten?", "t1-slug"),
		*testTemplate("t2", "New", "t2-slug"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	kept, err := m.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Custom", kept.Name)
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d", i)
			_ = m.Save(ctx, testTemplate(id, id, id))
			_, _ = m.Get(ctx, id)
			_, _ = m.List(ctx)
			_ = m.RecordUpload(ctx, core.UploadRecord{ID: id, TemplateID: id})
		}(i)
	}
	wg.Wait()

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
