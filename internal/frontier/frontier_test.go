package frontier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/brand"
)

const origin = "https://www.kravet.com"

func newFrontier(t *testing.T, maxPerBrand int) *Frontier {
	t.Helper()
	f, err := New(origin, maxPerBrand)
	require.NoError(t, err)
	return f
}

func target(key string) brand.Target {
	t, _ := brand.Lookup(key)
	return t
}

func urls(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.URL
	}
	return out
}

func TestNewValidates(t *testing.T) {
	_, err := New("not a url", 5)
	assert.Error(t, err)
	_, err = New(origin, 0)
	assert.Error(t, err)
}

func TestSeedListing(t *testing.T) {
	f := newFrontier(t, 5)

	e := f.SeedListing(target("leejofa"))
	require.NotNil(t, e)
	assert.Equal(t, Entry{URL: origin + "/shop/fabric?brand=Lee+Jofa", Kind: Listing, Brand: "leejofa", Page: 1}, *e)
	assert.Nil(t, f.SeedListing(target("leejofa")), "same listing twice")
	assert.Equal(t, 1, f.Len())
}

func TestEnqueueProductsDedup(t *testing.T) {
	f := newFrontier(t, 100)

	first := f.EnqueueProducts([]string{"/product/a", "/product/b", "/product/a"}, "kravet")
	assert.Equal(t, []string{origin + "/product/a", origin + "/product/b"}, urls(first))

	second := f.EnqueueProducts([]string{origin + "/product/b#details", "/product/c"}, "kravet")
	assert.Equal(t, []string{origin + "/product/c"}, urls(second), "seen on an earlier page")

	other := f.EnqueueProducts([]string{"/product/a", "/product/d"}, "leejofa")
	assert.Equal(t, []string{origin + "/product/d"}, urls(other), "seen under another brand")

	assert.Equal(t, 3, f.Admitted("kravet"))
	assert.Equal(t, 1, f.Admitted("leejofa"))
	assert.True(t, f.Seen("/product/b"))
	assert.False(t, f.Seen("/product/z"))
}

func TestEnqueueProductsTruncatesInOrder(t *testing.T) {
	f := newFrontier(t, 5)

	var page []string
	for i := 1; i <= 8; i++ {
		page = append(page, fmt.Sprintf("/product/p-%d", i))
	}

	added := f.EnqueueProducts(page, "kravet")
	require.Len(t, added, 5)
	assert.Equal(t, origin+"/product/p-1", added[0].URL)
	assert.Equal(t, origin+"/product/p-5", added[4].URL)
	assert.Equal(t, 0, f.Remaining("kravet"))

	assert.Empty(t, f.EnqueueProducts([]string{"/product/p-9"}, "kravet"))
	assert.False(t, f.Seen("/product/p-6"), "truncated urls are not marked seen")
}

func TestEnqueueProductsCountsDuplicatesOnce(t *testing.T) {
	f := newFrontier(t, 2)

	added := f.EnqueueProducts([]string{"/product/a", "/product/a", "/product/a", "/product/b"}, "kravet")
	assert.Equal(t, []string{origin + "/product/a", origin + "/product/b"}, urls(added))
}

func TestMaybeEnqueueNextListing(t *testing.T) {
	f := newFrontier(t, 3)
	f.SeedListing(target("kravet"))

	next := f.MaybeEnqueueNextListing("kravet", 1, "/shop/fabric?p=2")
	require.NotNil(t, next)
	assert.Equal(t, Entry{URL: origin + "/shop/fabric?p=2", Kind: Listing, Brand: "kravet", Page: 2}, *next)

	assert.Nil(t, f.MaybeEnqueueNextListing("kravet", 2, "/shop/fabric?p=2"), "already seen")
	assert.Nil(t, f.MaybeEnqueueNextListing("kravet", 2, "#"))
	assert.Nil(t, f.MaybeEnqueueNextListing("kravet", 2, ""))
	assert.Nil(t, f.MaybeEnqueueNextListing("kravet", 2, "javascript:void(0)"))
	assert.Nil(t, f.MaybeEnqueueNextListing("kravet", 2, origin+"/shop/fabric#top"), "page 1 again")

	f.EnqueueProducts([]string{"/product/a", "/product/b", "/product/c"}, "kravet")
	assert.Nil(t, f.MaybeEnqueueNextListing("kravet", 2, "/shop/fabric?p=3"), "cap reached")
	assert.NotNil(t, f.MaybeEnqueueNextListing("leejofa", 1, "/shop/fabric?brand=Lee+Jofa&p=2"))
}

func TestNextIsFIFO(t *testing.T) {
	f := newFrontier(t, 10)
	f.SeedListing(target("kravet"))
	f.EnqueueProducts([]string{"/product/a"}, "kravet")
	f.MaybeEnqueueNextListing("kravet", 1, "/shop/fabric?p=2")

	var kinds []Kind
	for {
		e, ok := f.Next()
		if !ok {
			break
		}
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []Kind{Listing, Product, Listing}, kinds)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, "product", Product.String())
}
