package nomenclature

import (
	"regexp"
	"strconv"
	"strings"
)

// Hebrew text handling. Vendor pages on the comparison site mix Hebrew
// descriptors and directional control characters into product names; scoring
// operates on the cleaned Latin form.

var (
	directionalMarks = strings.NewReplacer(
		"\u200e", "", // left-to-right mark
		"\u200f", "", // right-to-left mark
		"\u202a", "", // left-to-right embedding
		"\u202b", "", // right-to-left embedding
		"\u202c", "", // pop directional formatting
		"\u202d", "", // left-to-right override
		"\u202e", "", // right-to-left override
	)

	hebrewPunctuation = strings.NewReplacer(
		"״", `"`, // gershayim
		"׳", "'", // geresh
		"־", "-", // maqaf
	)

	nonASCII     = regexp.MustCompile(`[^\x00-\x7F]+`)
	pricePattern = regexp.MustCompile(`[\d,]+\.?\d*`)
)

// NormalizeText strips directional marks, maps Hebrew punctuation to ASCII
// and collapses whitespace.
func NormalizeText(text string) string {
	text = directionalMarks.Replace(text)
	text = hebrewPunctuation.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// CleanName translates known Hebrew manufacturer and nomenclature tokens to
// their Latin form and drops any remaining non-ASCII runs. The result is
// what the gates and the scoring engine compare against.
func (t *Table) CleanName(name string) string {
	name = NormalizeText(name)
	for hebrew, english := range t.translations {
		name = strings.ReplaceAll(name, hebrew, english)
	}
	for hebrew, english := range t.hebrewAliases {
		name = strings.ReplaceAll(name, hebrew, english)
	}
	name = nonASCII.ReplaceAllString(name, " ")
	return strings.Join(strings.Fields(name), " ")
}

// ContainsHebrew reports whether text has characters in the Hebrew block.
func ContainsHebrew(text string) bool {
	for _, r := range text {
		if r >= 0x0590 && r <= 0x05FF {
			return true
		}
	}
	return false
}

// ExtractPrice pulls a numeric price out of Hebrew or mixed price text such
// as "₪ 4,870" or "מחיר: 1234 ש\"ח". Returns 0 when no sane price is found;
// anything outside (0, 1000000) shekels is treated as garbage.
func ExtractPrice(text string) float64 {
	text = NormalizeText(text)
	for _, marker := range []string{"₪", `ש"ח`, "שח", "מחיר:", "מחיר"} {
		text = strings.ReplaceAll(text, marker, "")
	}

	match := pricePattern.FindString(text)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil || price <= 0 || price >= 1000000 {
		return 0
	}
	return price
}
