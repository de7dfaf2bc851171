package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvstandard/internal/config"
	"github.com/JonMunkholm/csvstandard/internal/store"
)

const ordersYAML = `
id: orders-template
name: Orders
fields:
  - name: order_id
    displayName: Order ID
    type: text
    required: true
`

func TestOpenStore_MemoryWithoutDatabase(t *testing.T) {
	cfg := &config.Config{}

	st, closeStore, err := openStore(t.Context(), cfg)
	require.NoError(t, err)
	defer closeStore()

	_, ok := st.(*store.Memory)
	assert.True(t, ok, "expected in-memory store, got %T", st)
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.yaml"), []byte(ordersYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	tests := []struct {
		name  string
		seed  bool
		dir   string
		want  int
		refs  []string
	}{
		{name: "seed only", seed: true, want: 3, refs: []string{"contacts", "customers", "transactions"}},
		{name: "dir only", dir: dir, want: 1, refs: []string{"orders-template"}},
		{name: "seed and dir", seed: true, dir: dir, want: 4, refs: []string{"contacts", "orders-template"}},
		{name: "nothing", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Templates.Seed = tt.seed
			cfg.Templates.Dir = tt.dir

			st := store.NewMemory()
			require.NoError(t, loadTemplates(t.Context(), cfg, st))

			list, err := st.List(t.Context())
			require.NoError(t, err)
			assert.Len(t, list, tt.want)
			for _, ref := range tt.refs {
				_, err := st.Get(t.Context(), ref)
				assert.NoError(t, err, ref)
			}
		})
	}
}

func TestLoadTemplates_BadDir(t *testing.T) {
	cfg := &config.Config{}
	cfg.Templates.Dir = filepath.Join(t.TempDir(), "missing")

	err := loadTemplates(t.Context(), cfg, store.NewMemory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read template dir")
}
