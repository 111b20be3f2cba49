package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
)

func TestSelectBest(t *testing.T) {
	v := NewValidator(nomenclature.Load())
	query := tornadoQuery()

	t.Run("picks highest scoring survivor", func(t *testing.T) {
		candidates := []models.Candidate{
			{ID: "1", RawName: "TORNADO INV SQ 150", URL: "/model.aspx?modelid=1"},
			{ID: "2", RawName: "TORNADO INV PRO SQ 150", URL: "/model.aspx?modelid=2"},
			{ID: "3", RawName: "TORNADO INV PRO SQ 140", URL: "/model.aspx?modelid=3"},
		}

		selected, status := v.SelectBest(query, candidates)

		require.Equal(t, models.StatusSuccess, status)
		require.NotNil(t, selected)
		assert.Equal(t, "2", selected.CandidateID)
		assert.Equal(t, "/model.aspx?modelid=2", selected.URL)
		assert.Equal(t, 10.0, selected.Score.Total)
	})

	t.Run("ties break on ascending raw name", func(t *testing.T) {
		candidates := []models.Candidate{
			{ID: "b", RawName: "TORNADO INVERTER PRO SQ 150"},
			{ID: "a", RawName: "TORNADO INV PRO SQ 150"},
		}

		selected, status := v.SelectBest(query, candidates)

		require.Equal(t, models.StatusSuccess, status)
		assert.Equal(t, "a", selected.CandidateID)
	})

	t.Run("all candidates gated out", func(t *testing.T) {
		candidates := []models.Candidate{
			{ID: "1", RawName: "TORNADO INV PRO SQ 140"},
			{ID: "2", RawName: "TORNADO PRO SQ 150"},
		}

		selected, status := v.SelectBest(query, candidates)

		assert.Nil(t, selected)
		assert.Equal(t, models.StatusGateFailed, status)
	})

	t.Run("best survivor below threshold", func(t *testing.T) {
		candidates := []models.Candidate{
			{ID: "1", RawName: "ELECTRA INV 150"},
		}

		selected, status := v.SelectBest(query, candidates)

		assert.Nil(t, selected)
		assert.Equal(t, models.StatusScoreBelowThreshold, status)
	})

	t.Run("no candidates at all", func(t *testing.T) {
		selected, status := v.SelectBest(query, nil)

		assert.Nil(t, selected)
		assert.Equal(t, models.StatusGateFailed, status)
	})
}
