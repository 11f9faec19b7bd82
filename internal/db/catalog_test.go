package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisongmechlab/lsml-sub002/internal/catalog"
)

func openTemp(t *testing.T) *CatalogStore {
	t.Helper()
	db, err := OpenCatalogDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCatalogStore(db)
}

func TestCatalogStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTemp(t)
	doc, err := catalog.BuiltinDocument()
	require.NoError(t, err)

	require.NoError(t, store.WriteDocument(ctx, doc))
	got, err := store.LoadDocument(ctx)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	cat, err := store.LoadCatalog(ctx)
	require.NoError(t, err)
	ch, err := cat.Chassis("hgn-733")
	require.NoError(t, err)
	assert.Equal(t, 90, ch.Tonnage)
	assert.Len(t, cat.AllChassis(), len(doc.Chassis))
}

func TestCatalogStoreWriteReplaces(t *testing.T) {
	ctx := context.Background()
	store := openTemp(t)
	doc, err := catalog.BuiltinDocument()
	require.NoError(t, err)
	require.NoError(t, store.WriteDocument(ctx, doc))

	smaller := *doc
	smaller.Chassis = doc.Chassis[:1]
	require.NoError(t, store.WriteDocument(ctx, &smaller))

	got, err := store.LoadDocument(ctx)
	require.NoError(t, err)
	require.Len(t, got.Chassis, 1)
	assert.Equal(t, doc.Chassis[0].ID, got.Chassis[0].ID)
	assert.Len(t, got.Items, len(doc.Items))
}

func TestCatalogStoreEmpty(t *testing.T) {
	store := openTemp(t)
	doc, err := store.LoadDocument(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc.Items)

	_, err = store.LoadCatalog(context.Background())
	assert.Error(t, err)
}
