package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
)

func newTestParser() *PageParser {
	return NewPageParser(nomenclature.Load())
}

func TestParseSuggestions(t *testing.T) {
	p := newTestParser()

	t.Run("rows with direct href", func(t *testing.T) {
		html := `
			<div class="acSearch-row-container" href="/model.aspx?modelid=1186041">מזגן טורנדו INV PRO SQ 150</div>
			<div class="acSearch-row-container" href="/models.aspx?sog=e-airconditioner">טורנדו INV PRO</div>`

		suggestions, err := p.ParseSuggestions(html)
		require.NoError(t, err)
		require.Len(t, suggestions, 2)

		assert.Equal(t, "מזגן טורנדו INV PRO SQ 150", suggestions[0].Text)
		assert.Equal(t, "/model.aspx?modelid=1186041", suggestions[0].Href)
		assert.Equal(t, "/models.aspx?sog=e-airconditioner", suggestions[1].Href)
	})

	t.Run("href on nested anchor", func(t *testing.T) {
		html := `<div class="acSearch-row-container"><a href="/model.aspx?modelid=7">ELECTRA INV 140</a></div>`

		suggestions, err := p.ParseSuggestions(html)
		require.NoError(t, err)
		require.Len(t, suggestions, 1)
		assert.Equal(t, "/model.aspx?modelid=7", suggestions[0].Href)
	})

	t.Run("empty rows skipped", func(t *testing.T) {
		html := `<div class="acSearch-row-container">  </div>`

		suggestions, err := p.ParseSuggestions(html)
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})
}

func TestParseCandidates(t *testing.T) {
	p := newTestParser()

	t.Run("dedupes by model id", func(t *testing.T) {
		html := `
			<div class="ModelRow">
				<a href="/model.aspx?modelid=1186041">טורנדו INV PRO SQ 150</a>
				<a href="/model.aspx?modelid=1186041"><img src="x.jpg"/>טורנדו INV PRO SQ 150</a>
			</div>
			<div class="ModelRow">
				<a href="/model.aspx?modelid=99">ELECTRA INV 140</a>
			</div>
			<a href="/models.aspx?sog=e-airconditioner">כל המזגנים</a>`

		candidates, err := p.ParseCandidates(html, models.SourceSearchResults)
		require.NoError(t, err)
		require.Len(t, candidates, 2)

		assert.Equal(t, "1186041", candidates[0].ID)
		assert.Equal(t, "טורנדו INV PRO SQ 150", candidates[0].RawName)
		assert.Equal(t, "/model.aspx?modelid=1186041", candidates[0].URL)
		assert.Equal(t, models.SourceSearchResults, candidates[0].Source)
		assert.Equal(t, "99", candidates[1].ID)
	})

	t.Run("image link falls back to enclosing row name", func(t *testing.T) {
		html := `
			<div class="ModelRow">
				<a href="/model.aspx?modelid=5"><img src="x.jpg"/></a>
				<span>TADIRAN WIND 300</span>
			</div>`

		candidates, err := p.ParseCandidates(html, models.SourceDropdown)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "TADIRAN WIND 300", candidates[0].RawName)
	})

	t.Run("href without model id keyed by href", func(t *testing.T) {
		html := `<a href="/model.aspx?x=1">ELECTRA 45</a>`

		candidates, err := p.ParseCandidates(html, models.SourceSearchResults)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "/model.aspx?x=1", candidates[0].ID)
	})
}

func TestParseListingRows(t *testing.T) {
	p := newTestParser()

	html := `
		<div class="compare-item-row product-item">
			<span class="model-name">מזגן טורנדו INV PRO SQ 150</span>
			<span class="total-price">₪ 4,870</span>
			<a href="/fs.aspx?id=1">קנו עכשיו</a>
		</div>
		<div class="compare-item-row product-item">
			<span class="model-name">Tornado INV PRO SQ 150</span>
			<span class="total-price">₪ 4,990</span>
			<a href="/fs.aspx?id=2">לפרטים נוספים</a>
		</div>
		<div class="noModelRow ModelRow">
			<span class="model-name">TORNADO INV PRO SQ 150</span>
			<span class="price">₪ 5,100</span>
			<button>השוואת מחירים</button>
		</div>
		<div class="compare-item-row product-item">
			<span class="model-name">Row without any action control</span>
		</div>`

	rows, err := p.ParseListingRows(html)
	require.NoError(t, err)
	require.Len(t, rows, 3, "rows without a recognized button are dropped")

	assert.Equal(t, "מזגן טורנדו INV PRO SQ 150", rows[0].DisplayedName)
	assert.Equal(t, 4870.0, rows[0].Price)
	assert.Equal(t, LabelBuyNow, rows[0].ButtonLabel)
	assert.Equal(t, "/fs.aspx?id=1", rows[0].ButtonHref)

	assert.Equal(t, LabelMoreDetails, rows[1].ButtonLabel)
	assert.Equal(t, 4990.0, rows[1].Price)

	assert.Equal(t, LabelComparePrices, rows[2].ButtonLabel)
	assert.Equal(t, 5100.0, rows[2].Price)
	assert.Empty(t, rows[2].ButtonHref, "buttons carry no href")
}

func TestExpectedVendorCount(t *testing.T) {
	p := newTestParser()

	assert.Equal(t, 22, p.ExpectedVendorCount(`<h2>השוואת הצעות (22)</h2>`))
	assert.Equal(t, 0, p.ExpectedVendorCount(`<h2>השוואת הצעות</h2>`))
	assert.Equal(t, 0, p.ExpectedVendorCount(""))
}

func TestParseVendorProductName(t *testing.T) {
	p := newTestParser()

	t.Run("h1 preferred", func(t *testing.T) {
		html := `<html><head><title>חנות</title></head><body><h1>Tornado INV PRO SQ 150</h1></body></html>`
		assert.Equal(t, "Tornado INV PRO SQ 150", p.ParseVendorProductName(html))
	})

	t.Run("falls back to product title class", func(t *testing.T) {
		html := `<div class="product-title">ELECTRA INV 140</div>`
		assert.Equal(t, "ELECTRA INV 140", p.ParseVendorProductName(html))
	})

	t.Run("empty page", func(t *testing.T) {
		assert.Equal(t, "", p.ParseVendorProductName("<div></div>"))
	})
}

func TestVendorNameFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"www prefix stripped", "https://www.payngo.co.il/product/123", "payngo"},
		{"no www", "https://shop.example.com/p/1", "shop"},
		{"bare host", "https://localhost/x", "localhost"},
		{"relative url", "/fs.aspx?id=1", ""},
		{"garbage", "://not-a-url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VendorNameFromURL(tt.url))
		})
	}
}
