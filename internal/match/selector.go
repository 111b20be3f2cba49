package match

import (
	"sort"

	"github.com/pricescout/zap-scraper/internal/models"
)

// ScoredCandidate pairs a surviving candidate with its breakdown.
type ScoredCandidate struct {
	Candidate models.Candidate
	Score     models.ScoreBreakdown
}

// SelectBest gate-filters the candidates, scores the survivors and picks the
// best one. Ties break on ascending raw name for determinism. The returned
// status is StatusSuccess when a candidate cleared the acceptance threshold.
func (v *Validator) SelectBest(query models.ProductQuery, candidates []models.Candidate) (*models.SelectedProduct, models.Status) {
	var survivors []ScoredCandidate
	for _, candidate := range candidates {
		if !v.CheckGates(query, candidate.RawName).Passed() {
			continue
		}
		survivors = append(survivors, ScoredCandidate{
			Candidate: candidate,
			Score:     v.Score(query, candidate.RawName),
		})
	}

	if len(survivors) == 0 {
		return nil, models.StatusGateFailed
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Score.Total != survivors[j].Score.Total {
			return survivors[i].Score.Total > survivors[j].Score.Total
		}
		return survivors[i].Candidate.RawName < survivors[j].Candidate.RawName
	})

	best := survivors[0]
	if best.Score.Total < AcceptThreshold {
		return nil, models.StatusScoreBelowThreshold
	}

	return &models.SelectedProduct{
		CandidateID: best.Candidate.ID,
		Name:        best.Candidate.RawName,
		URL:         best.Candidate.URL,
		Score:       best.Score,
	}, models.StatusSuccess
}
