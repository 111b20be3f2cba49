package match

import (
	"strings"

	"github.com/pricescout/zap-scraper/internal/models"
)

// Scoring weights. Manufacturer is deliberately light: the model number and
// series carry the physical identity of the unit.
const (
	manufacturerWeight = 1.0
	seriesWeight       = 4.0
	modelWeight        = 5.0
	extraWordPenalty   = 0.1
	maxScore           = 10.0

	// AcceptThreshold is the minimum total for a candidate or offer to be
	// accepted anywhere in the pipeline.
	AcceptThreshold = 8.0
)

// Score computes the weighted match score of a candidate name against the
// target query. A candidate that fails either gate is forced to zero.
func (v *Validator) Score(query models.ProductQuery, candidateName string) models.ScoreBreakdown {
	gates := v.CheckGates(query, candidateName)
	if !gates.Passed() {
		return models.ScoreBreakdown{}
	}

	cleaned := strings.ToUpper(v.table.CleanName(candidateName))
	candidateTokens := strings.Fields(cleaned)

	breakdown := models.ScoreBreakdown{
		Series: v.seriesScore(query.SeriesTokens, cleaned, candidateTokens),
		Model:  modelWeight,
	}
	breakdown.Manufacturer = v.manufacturerScore(query, cleaned, candidateTokens, breakdown.Series)
	breakdown.ExtraWordPenalty = -v.extraWords(query, candidateTokens) * extraWordPenalty

	total := breakdown.Manufacturer + breakdown.Series + breakdown.Model + breakdown.ExtraWordPenalty
	if total < 0 {
		total = 0
	}
	if total > maxScore {
		total = maxScore
	}
	breakdown.Total = total

	return breakdown
}

// manufacturerScore awards full credit for an exact (or translated)
// manufacturer match, and half credit only when the candidate carries no
// manufacturer token at all while everything else matched perfectly.
// Misspellings score zero; there is no fuzzy matching.
func (v *Validator) manufacturerScore(query models.ProductQuery, cleaned string, candidateTokens []string, seriesScore float64) float64 {
	if query.Manufacturer == "" {
		return manufacturerWeight
	}

	if strings.Contains(cleaned, query.Manufacturer) {
		return manufacturerWeight
	}

	candidateHasManufacturer := false
	for _, token := range candidateTokens {
		if v.table.IsManufacturer(token) {
			candidateHasManufacturer = true
			break
		}
	}

	if !candidateHasManufacturer && seriesScore == seriesWeight {
		return manufacturerWeight / 2
	}
	return 0
}

// seriesScore sums per-token weights and normalizes to the series weight.
// A target with zero series tokens gets vacuous full credit so short and
// long nomenclatures compete on the same 0-10 scale.
func (v *Validator) seriesScore(seriesTokens []string, cleaned string, candidateTokens []string) float64 {
	if len(seriesTokens) == 0 {
		return seriesWeight
	}

	matched := 0.0
	for _, token := range seriesTokens {
		matched += v.tokenWeight(token, cleaned, candidateTokens)
	}

	return matched / float64(len(seriesTokens)) * seriesWeight
}

func (v *Validator) tokenWeight(token, cleaned string, candidateTokens []string) float64 {
	if v.tokenPresent(token, candidateTokens) {
		return 1.0
	}

	// Hyphenated compounds like WD-INV-PRO-SQ match their space-separated
	// form when every part is present.
	if strings.Contains(token, "-") {
		allPresent := true
		for _, part := range strings.Split(token, "-") {
			if part != "" && !v.tokenPresent(part, candidateTokens) {
				allPresent = false
				break
			}
		}
		if allPresent {
			return 1.0
		}
	}

	if v.table.IsPartial(token) {
		return 0.5
	}
	return 0
}

// tokenPresent checks equivalence-aware presence of a target token among the
// candidate's tokens and their hyphen-separated parts. Equivalence handles
// INV/INVERTER; the configuration prefixes never cross-equate.
func (v *Validator) tokenPresent(token string, candidateTokens []string) bool {
	for _, candidate := range candidateTokens {
		if v.table.Equivalent(token, candidate) {
			return true
		}
		if strings.Contains(candidate, "-") {
			for _, part := range strings.Split(candidate, "-") {
				if v.table.Equivalent(token, part) {
					return true
				}
			}
		}
	}
	return false
}

// extraWords counts candidate tokens unrelated to any target component.
// Noise tokens and bare calendar years are exempt.
func (v *Validator) extraWords(query models.ProductQuery, candidateTokens []string) float64 {
	targets := make([]string, 0, len(query.SeriesTokens)+2)
	if query.Manufacturer != "" {
		targets = append(targets, query.Manufacturer)
	}
	targets = append(targets, query.SeriesTokens...)
	if query.ModelNumber != "" {
		targets = append(targets, query.ModelNumber)
	}

	extra := 0.0
	for _, token := range candidateTokens {
		if v.table.IsNoise(token) {
			continue
		}

		related := false
		for _, target := range targets {
			if v.table.Equivalent(token, target) ||
				strings.Contains(token, target) || strings.Contains(target, token) {
				related = true
				break
			}
		}
		if !related {
			extra++
		}
	}
	return extra
}
