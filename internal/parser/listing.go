package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
)

// Button labels as they appear on the comparison site. The label text is the
// only signal for classifying a vendor action control.
const (
	LabelBuyNow        = "קנו עכשיו"     // buy directly through the platform
	LabelMoreDetails   = "לפרטים נוספים" // external vendor page
	LabelComparePrices = "השוואת מחירים" // nested comparison page
)

// Suggestion is one row of the incremental search dropdown.
type Suggestion struct {
	Text string
	Href string
}

// ListingRow is one vendor row on a model page, before button dispatch.
type ListingRow struct {
	DisplayedName string
	Price         float64
	ButtonLabel   string
	ButtonHref    string
}

var (
	modelIDPattern       = regexp.MustCompile(`modelid=(\d+)`)
	expectedCountPattern = regexp.MustCompile(`השוואת הצעות \((\d+)\)`)
)

// PageParser extracts structured data from captured page HTML.
type PageParser struct {
	table *nomenclature.Table
}

func NewPageParser(table *nomenclature.Table) *PageParser {
	return &PageParser{table: table}
}

// ParseSuggestions extracts the incremental-search dropdown rows.
func (p *PageParser) ParseSuggestions(html string) ([]Suggestion, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var suggestions []Suggestion
	doc.Find(".acSearch-row-container").Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(row.Text())
		if text == "" {
			return
		}

		href, ok := row.Attr("href")
		if !ok {
			href, _ = row.Find("a").First().Attr("href")
		}

		suggestions = append(suggestions, Suggestion{
			Text: nomenclature.NormalizeText(text),
			Href: href,
		})
	})

	return suggestions, nil
}

// ParseCandidates extracts product candidates from a multi-result listing
// page (models.aspx or a literal search results page).
func (p *PageParser) ParseCandidates(html string, source models.CandidateSource) ([]models.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	var candidates []models.Candidate

	doc.Find("a[href*='model.aspx']").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		name := nomenclature.NormalizeText(link.Text())

		// Model links often wrap an image plus the name; fall back to the
		// enclosing row when the anchor itself has no text.
		if name == "" {
			name = nomenclature.NormalizeText(link.Closest("[class*='ModelRow'], [class*='model-row']").Text())
		}
		if name == "" || href == "" {
			return
		}

		id := modelIDFromHref(href)
		if id == "" {
			id = href
		}
		if seen[id] {
			return
		}
		seen[id] = true

		candidates = append(candidates, models.Candidate{
			ID:      id,
			RawName: name,
			URL:     href,
			Source:  source,
		})
	})

	return candidates, nil
}

// ParseListingRows extracts the vendor rows of a model page. Each row is the
// displayed product name, the listed price, and the single action control.
func (p *PageParser) ParseListingRows(html string) ([]ListingRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rows []ListingRow
	doc.Find(".compare-item-row.product-item, .noModelRow.ModelRow").Each(func(_ int, row *goquery.Selection) {
		listing := ListingRow{
			DisplayedName: p.extractRowName(row),
			Price:         p.extractRowPrice(row),
		}

		row.Find("a, button").EachWithBreak(func(_ int, control *goquery.Selection) bool {
			label := nomenclature.NormalizeText(control.Text())
			if !isButtonLabel(label) {
				return true
			}
			listing.ButtonLabel = label
			listing.ButtonHref, _ = control.Attr("href")
			return false
		})

		if listing.ButtonLabel != "" {
			rows = append(rows, listing)
		}
	})

	return rows, nil
}

// ExpectedVendorCount reads the "comparison of offers (N)" header when
// present, 0 otherwise. Used to log extraction completeness.
func (p *PageParser) ExpectedVendorCount(html string) int {
	match := expectedCountPattern.FindStringSubmatch(html)
	if len(match) < 2 {
		return 0
	}
	count := 0
	fmt.Sscanf(match[1], "%d", &count)
	return count
}

// ParseVendorProductName extracts the product name a vendor page displays.
func (p *PageParser) ParseVendorProductName(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, selector := range []string{"h1", ".product-title", "[class*='product-name']", "title"} {
		name := nomenclature.NormalizeText(doc.Find(selector).First().Text())
		if name != "" {
			return name
		}
	}
	return ""
}

// VendorNameFromURL derives a vendor name from the final destination URL of
// an external offer.
func VendorNameFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

func (p *PageParser) extractRowName(row *goquery.Selection) string {
	for _, selector := range []string{"[class*='model-name']", "[class*='ProdName']", "a[href*='model.aspx']", "span"} {
		name := nomenclature.NormalizeText(row.Find(selector).First().Text())
		if name != "" && !isButtonLabel(name) {
			return name
		}
	}

	// Fall back to the longest text line that is not a button label.
	best := ""
	for _, line := range strings.Split(row.Text(), "\n") {
		line = nomenclature.NormalizeText(line)
		if len(line) > len(best) && !isButtonLabel(line) {
			best = line
		}
	}
	return best
}

func (p *PageParser) extractRowPrice(row *goquery.Selection) float64 {
	for _, selector := range []string{"[class*='total-price']", "[class*='price']"} {
		if price := nomenclature.ExtractPrice(row.Find(selector).First().Text()); price > 0 {
			return price
		}
	}
	return nomenclature.ExtractPrice(row.Text())
}

func isButtonLabel(text string) bool {
	return strings.Contains(text, LabelBuyNow) ||
		strings.Contains(text, LabelMoreDetails) ||
		strings.Contains(text, LabelComparePrices)
}

func modelIDFromHref(href string) string {
	match := modelIDPattern.FindStringSubmatch(href)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}
