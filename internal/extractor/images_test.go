package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SYNC-360/kravet-scraper/internal/models"
)

func TestOrderImages(t *testing.T) {
	got := OrderImages("https://cdn/b.jpg", []string{
		"https://cdn/a.jpg",
		"https://cdn/b.jpg",
		"https://cdn/a.jpg",
		"https://cdn/loading.gif",
		"",
	})
	assert.Equal(t, []string{"https://cdn/b.jpg", "https://cdn/a.jpg"}, got)

	assert.Equal(t, []string{"https://cdn/a.jpg"}, OrderImages("", []string{"https://cdn/a.jpg"}))
	assert.Empty(t, OrderImages("https://cdn/placeholder.png", nil))
}

func TestIsPlaceholderImage(t *testing.T) {
	assert.True(t, IsPlaceholderImage("https://x/media/Placeholder/default.jpg"))
	assert.True(t, IsPlaceholderImage("data:image/gif;base64,R0lGOD"))
	assert.True(t, IsPlaceholderImage("/static/blank.gif"))
	assert.False(t, IsPlaceholderImage("https://cdn.kravet.com/media/34500_16.jpg"))
}

func TestImagesAcrossGroupsPrimaryFirst(t *testing.T) {
	e := newTestExtractor(t)
	html := `<html><head><meta property="og:image" content="https://cdn/p.jpg"></head><body>
<div class="product-image"><img src="https://cdn/a.jpg"></div>
<div class="fotorama__stage"><img data-large="https://cdn/p.jpg" src="https://cdn/p_small.jpg"></div>
<div class="gallery"><img src="https://cdn/a.jpg"><img data-lazy="https://cdn/c.jpg"></div>
</body></html>`

	raw, err := e.Extract(&models.Page{URL: "https://www.kravet.com/product/x-100", HTML: html})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn/p.jpg", raw.First(models.FieldPrimaryImage))
	assert.Equal(t, []string{"https://cdn/p.jpg", "https://cdn/a.jpg", "https://cdn/c.jpg"}, raw.List(models.FieldImages))
}
