package storage

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/events"
	"github.com/SYNC-360/kravet-scraper/internal/models"
)

func TestDataset_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "items.jsonl")

	ds, err := NewDataset(path)
	require.NoError(t, err)

	first := events.NewItemScraped(&models.ProductRecord{SKU: "ABC-100", Brand: "Kravet"})
	second := events.NewItemScraped(&models.ProductRecord{SKU: "ABC-200", Brand: "Lee Jofa"})
	require.NoError(t, ds.Append(first))
	require.NoError(t, ds.Append(second))
	assert.Equal(t, 2, ds.Count())
	require.NoError(t, ds.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, first.EventID, loaded[0].EventID)
	assert.Equal(t, "ABC-100", loaded[0].Record.SKU)
	assert.Equal(t, "ABC-200", loaded[1].Record.SKU)
	assert.Equal(t, events.EventTypeItemScraped, loaded[1].EventType)
}

func TestDataset_AppendsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonl")

	for _, sku := range []string{"AAA-1", "BBB-2"} {
		ds, err := NewDataset(path)
		require.NoError(t, err)
		require.NoError(t, ds.Append(events.NewItemScraped(&models.ProductRecord{SKU: sku})))
		require.NoError(t, ds.Close())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestDataset_ConcurrentAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.jsonl")
	ds, err := NewDataset(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, ds.Append(events.NewItemScraped(&models.ProductRecord{SKU: "SKU-X"})))
		}()
	}
	wg.Wait()
	require.NoError(t, ds.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, loaded, 20)
}

func TestDataset_AppendAfterClose(t *testing.T) {
	ds, err := NewDataset(filepath.Join(t.TempDir(), "items.jsonl"))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	err = ds.Append(events.NewItemScraped(&models.ProductRecord{SKU: "ABC-100"}))
	assert.Error(t, err)
}
