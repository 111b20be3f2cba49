package nomenclature

import (
	"regexp"
	"strings"
)

// Table holds the static equivalence and translation data the matching
// pipeline depends on. It is loaded once at startup and read-only afterwards,
// so it is safe to share across goroutines.
type Table struct {
	translations   map[string]string
	manufacturers  map[string]bool
	classByToken   map[string]int
	classes        [][]string
	nonEquivalent  map[string]bool
	partialTokens  map[string]bool
	noiseTokens    map[string]bool
	hebrewAliases  map[string]string
	inverterClass  int
}

var yearPattern = regexp.MustCompile(`^20\d{2}$`)

// Load builds the default nomenclature table for the air-conditioner domain.
// extraNoise extends the extra-word penalty exemption list from config.
func Load(extraNoise ...string) *Table {
	t := &Table{
		translations: map[string]string{
			"טורנדו":  "TORNADO",
			"טורנאדו": "TORNADO",
			"אלקטרה":  "ELECTRA",
			"תדיראן":  "TADIRAN",
			"גרי":     "GREE",
			"מידאה":   "MIDEA",
			"האייר":   "HAIER",
		},
		manufacturers: toSet([]string{
			"ELECTRA", "TADIRAN", "ELCO", "TORNADO", "RELAX",
			"SUPREME", "TITANIUM", "GREE", "MIDEA", "HAIER",
		}),
		classByToken: make(map[string]int),
		// WD/WV/WH are mini-central configuration prefixes for physically
		// different units and must never cross-equate.
		nonEquivalent: toSet([]string{"WD", "WV", "WH"}),
		partialTokens: toSet([]string{"1PH", "3PH", "1PHASE", "3PHASE"}),
		noiseTokens: toSet([]string{
			"ZAP", "SHOP", "LOGO", "מזגן", "עילי", "מיני", "מרכזי",
		}),
	}

	t.inverterClass = t.addClass("INV", "INVERTER", "אינוורטר")

	// Hebrew class members map onto the canonical Latin member so cleaned
	// names keep carrying the token.
	t.hebrewAliases = map[string]string{
		"אינוורטר": "INVERTER",
	}

	for _, token := range extraNoise {
		token = strings.ToUpper(strings.TrimSpace(token))
		if token != "" {
			t.noiseTokens[token] = true
		}
	}

	return t
}

func (t *Table) addClass(tokens ...string) int {
	id := len(t.classes)
	class := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToUpper(token)
		class = append(class, token)
		t.classByToken[token] = id
	}
	t.classes = append(t.classes, class)
	return id
}

// Translate maps a Hebrew manufacturer name to its canonical Latin form.
// Unknown tokens come back unchanged.
func (t *Table) Translate(token string) string {
	if english, ok := t.translations[strings.TrimSpace(token)]; ok {
		return english
	}
	return token
}

// IsManufacturer reports whether a token (after translation) is a known
// manufacturer name.
func (t *Table) IsManufacturer(token string) bool {
	return t.manufacturers[strings.ToUpper(t.Translate(token))]
}

// Equivalent reports whether two tokens are 100% interchangeable: either
// equal case-insensitively or members of the same equivalence class. The
// configuration prefixes (WD/WV/WH) never equate unless identical.
func (t *Table) Equivalent(a, b string) bool {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))

	if a == b {
		return true
	}

	if t.nonEquivalent[a] || t.nonEquivalent[b] {
		return false
	}

	classA, okA := t.classByToken[a]
	classB, okB := t.classByToken[b]
	return okA && okB && classA == classB
}

// InInverterClass reports whether a token belongs to the inverter
// equivalence class that drives the Product Type Gate.
func (t *Table) InInverterClass(token string) bool {
	id, ok := t.classByToken[strings.ToUpper(strings.TrimSpace(token))]
	return ok && id == t.inverterClass
}

// InverterTokens returns the members of the inverter equivalence class.
func (t *Table) InverterTokens() []string {
	return t.classes[t.inverterClass]
}

// IsPartial reports whether a token has a documented partial relation
// (optional phase specs) worth half credit when missing.
func (t *Table) IsPartial(token string) bool {
	return t.partialTokens[strings.ToUpper(strings.TrimSpace(token))]
}

// IsNoise reports whether a token is exempt from the extra-word penalty.
// Bare 4-digit calendar years are always exempt.
func (t *Table) IsNoise(token string) bool {
	token = strings.ToUpper(strings.TrimSpace(token))
	if yearPattern.MatchString(token) {
		return true
	}
	return t.noiseTokens[token]
}

// IsYear reports whether a token is a bare calendar year like 2024.
func (t *Table) IsYear(token string) bool {
	return yearPattern.MatchString(strings.TrimSpace(token))
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, token := range tokens {
		set[strings.ToUpper(token)] = true
	}
	return set
}
