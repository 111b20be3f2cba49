package parser

import (
	"regexp"
	"strings"

	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
)

// modelPattern matches a model number: digits optionally followed by a slash
// and an alphanumeric phase suffix, e.g. "150", "40/1P", "45/3".
var modelPattern = regexp.MustCompile(`\d+(?:/\d+[A-Z]*)?`)

// descriptorWords are catalog filler that never belongs to a product series.
var descriptorWords = map[string]bool{
	"מזגן":  true,
	"עילי":  true,
	"מיני":  true,
	"מרכזי": true,
	"דגם":   true,
	"שנת":   true,
	`כ"ס`:   true,
}

// NameParser decomposes free-text product names into their components.
type NameParser struct {
	table *nomenclature.Table
}

func NewNameParser(table *nomenclature.Table) *NameParser {
	return &NameParser{table: table}
}

// Parse builds a ProductQuery from a raw product name. It fails soft: a name
// without a recognizable model number yields an empty ModelNumber, which can
// never pass the model gate downstream.
func (p *NameParser) Parse(raw string) models.ProductQuery {
	query := models.ProductQuery{RawName: raw}

	cleaned := p.table.CleanName(raw)
	query.ModelNumber = p.ExtractModel(cleaned, "")

	for _, word := range strings.Fields(cleaned) {
		upper := strings.ToUpper(word)

		if upper == query.ModelNumber {
			continue
		}
		if modelPattern.FindString(upper) == upper {
			// Another bare number (year, capacity). Not a series token.
			continue
		}
		if descriptorWords[word] || descriptorWords[upper] {
			continue
		}

		if query.Manufacturer == "" && !strings.ContainsAny(upper, "0123456789") && p.table.IsManufacturer(upper) {
			query.Manufacturer = strings.ToUpper(p.table.Translate(upper))
			continue
		}

		query.SeriesTokens = append(query.SeriesTokens, upper)
	}

	return query
}

// ExtractModel finds the model number in a product name using the shared
// extraction rule. When the text contains several numbers, an exact match of
// preferred wins, then the first non-year number, then the first number.
func (p *NameParser) ExtractModel(text, preferred string) string {
	matches := modelPattern.FindAllString(strings.ToUpper(text), -1)
	if len(matches) == 0 {
		return ""
	}

	if preferred != "" {
		for _, m := range matches {
			if m == preferred {
				return m
			}
		}
	}

	for _, m := range matches {
		if !p.table.IsYear(m) {
			return m
		}
	}
	return matches[0]
}
