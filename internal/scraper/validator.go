package scraper

import (
	"log/slog"

	"github.com/pricescout/zap-scraper/internal/match"
	"github.com/pricescout/zap-scraper/internal/models"
)

// Rejection reasons for the exceptions report.
const (
	ReasonModelMismatch  = "model number mismatch"
	ReasonMissingType    = "missing inverter/type token"
	ReasonBelowThreshold = "score below threshold"
	ReasonLowSuccessRate = "discarded: low vendor success rate"
)

// ResultValidator re-scores every collected offer against the product name
// the vendor actually displays. Vendor pages embellish and abbreviate, so
// passing candidate selection does not guarantee the offer is the right
// unit.
type ResultValidator struct {
	validator *match.Validator
	threshold float64
	logger    *slog.Logger
}

func NewResultValidator(validator *match.Validator, threshold float64) *ResultValidator {
	return &ResultValidator{
		validator: validator,
		threshold: threshold,
		logger:    slog.Default().With("component", "result_validator"),
	}
}

// Validate splits offers into accepted and rejected. Every offer gets its
// validation score attached either way.
func (rv *ResultValidator) Validate(query models.ProductQuery, offers []models.VendorOffer) ([]models.VendorOffer, []models.RejectedOffer) {
	var accepted []models.VendorOffer
	var rejected []models.RejectedOffer

	for _, offer := range offers {
		gates := rv.validator.CheckGates(query, offer.DisplayedProductName)
		score := rv.validator.Score(query, offer.DisplayedProductName)
		offer.ValidationScore = &score

		switch {
		case !gates.ModelGatePassed:
			rejected = append(rejected, models.RejectedOffer{Offer: offer, Reason: ReasonModelMismatch})
		case !gates.TypeGatePassed:
			rejected = append(rejected, models.RejectedOffer{Offer: offer, Reason: ReasonMissingType})
		case score.Total < rv.threshold:
			rejected = append(rejected, models.RejectedOffer{Offer: offer, Reason: ReasonBelowThreshold})
		default:
			accepted = append(accepted, offer)
		}
	}

	if len(rejected) > 0 {
		rv.logger.Info("offers rejected on re-validation",
			"accepted", len(accepted), "rejected", len(rejected))
	}

	return accepted, rejected
}
