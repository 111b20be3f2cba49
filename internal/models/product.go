package models

import (
	"time"
)

// ProductQuery is the parsed form of a raw product name. It is built once
// per input product and never mutated afterwards.
type ProductQuery struct {
	RawName      string   `json:"raw_name"`
	Manufacturer string   `json:"manufacturer"`
	SeriesTokens []string `json:"series_tokens"`
	ModelNumber  string   `json:"model_number"`
}

// CandidateSource records which search path surfaced a candidate.
type CandidateSource string

const (
	SourceDropdown      CandidateSource = "dropdown"
	SourceSearchResults CandidateSource = "search_results"
)

// Candidate is a tentative product match surfaced by search, not yet verified.
type Candidate struct {
	ID      string          `json:"id"`
	RawName string          `json:"raw_name"`
	URL     string          `json:"url"`
	Source  CandidateSource `json:"source"`
}

// GateOutcome is the result of the two mandatory correctness gates.
type GateOutcome struct {
	ModelGatePassed bool `json:"model_gate_passed"`
	TypeGatePassed  bool `json:"type_gate_passed"`
}

func (g GateOutcome) Passed() bool {
	return g.ModelGatePassed && g.TypeGatePassed
}

// ScoreBreakdown is the weighted match score of a candidate name against a
// ProductQuery. Total = Manufacturer + Series + Model - |ExtraWordPenalty|,
// clamped to [0, 10].
type ScoreBreakdown struct {
	Manufacturer     float64 `json:"manufacturer_score"`
	Series           float64 `json:"series_score"`
	Model            float64 `json:"model_score"`
	ExtraWordPenalty float64 `json:"extra_word_penalty"`
	Total            float64 `json:"total"`
}

// SelectedProduct exists only once a candidate scored at or above the
// acceptance threshold.
type SelectedProduct struct {
	CandidateID string         `json:"candidate_id"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Score       ScoreBreakdown `json:"score"`
}

// ButtonType classifies a vendor action control by its visible label.
type ButtonType string

const (
	ButtonDirect           ButtonType = "direct"
	ButtonExternal         ButtonType = "external"
	ButtonRecursiveCompare ButtonType = "recursive_compare"
)

// VendorButton is one action control found on a listing row. AnchorRef is
// the href the control navigates to when activated.
type VendorButton struct {
	Type          ButtonType `json:"type"`
	Label         string     `json:"label"`
	ListingPrice  float64    `json:"listing_price"`
	DisplayedName string     `json:"displayed_name"`
	AnchorRef     string     `json:"anchor_ref"`
}

// VendorOffer is one vendor's price and link for the confirmed product.
// Immutable once appended to a result.
type VendorOffer struct {
	VendorName           string          `json:"vendor_name"`
	Price                float64         `json:"price"`
	URL                  string          `json:"url"`
	ButtonType           ButtonType      `json:"button_type"`
	DisplayedProductName string          `json:"displayed_product_name"`
	ValidationScore      *ScoreBreakdown `json:"validation_score,omitempty"`
}

// RejectedOffer is an offer that failed post-hoc validation, kept for the
// exceptions report.
type RejectedOffer struct {
	Offer  VendorOffer `json:"offer"`
	Reason string      `json:"reason"`
}

// Status is the terminal outcome of a product run. Every failure mode is a
// status, not an error.
type Status string

const (
	StatusSuccess                   Status = "success"
	StatusNoCandidate               Status = "no_candidate"
	StatusGateFailed                Status = "gate_failed"
	StatusScoreBelowThreshold       Status = "score_below_threshold"
	StatusNavigationFailed          Status = "navigation_failed"
	StatusNoListings                Status = "no_listings"
	StatusInsufficientVendorButtons Status = "insufficient_vendor_buttons"
	StatusLowVendorSuccessRate      Status = "low_vendor_success_rate"
	StatusValidationFailed          Status = "validation_failed"
)

// OfferStats summarizes accepted offers against the caller's reference price.
type OfferStats struct {
	MinPrice       float64 `json:"min_price"`
	MaxPrice       float64 `json:"max_price"`
	AveragePrice   float64 `json:"average_price"`
	PriceRange     float64 `json:"price_range"`
	CheapestVendor string  `json:"cheapest_vendor"`
	ReferencePrice float64 `json:"reference_price"`
	SavingsPercent float64 `json:"savings_percent"`
}

// ScrapeResult is the complete outcome of one product run. Terminal once
// returned.
type ScrapeResult struct {
	ID              string           `json:"id"`
	Query           ProductQuery     `json:"query"`
	Selected        *SelectedProduct `json:"selected,omitempty"`
	Offers          []VendorOffer    `json:"offers"`
	Exceptions      []RejectedOffer  `json:"exceptions,omitempty"`
	VendorAttempts  int              `json:"vendor_attempt_count"`
	VendorSuccesses int              `json:"vendor_success_count"`
	Status          Status           `json:"status"`
	Stats           *OfferStats      `json:"stats,omitempty"`
	ScrapedAt       time.Time        `json:"scraped_at"`
}

// SuccessRate is VendorSuccesses/VendorAttempts, or 0 when nothing was
// attempted.
func (r *ScrapeResult) SuccessRate() float64 {
	if r.VendorAttempts == 0 {
		return 0
	}
	return float64(r.VendorSuccesses) / float64(r.VendorAttempts)
}

// ComputeStats fills Stats from the accepted offers. No-op without offers.
func (r *ScrapeResult) ComputeStats(referencePrice float64) {
	if len(r.Offers) == 0 {
		return
	}

	stats := &OfferStats{
		MinPrice:       r.Offers[0].Price,
		MaxPrice:       r.Offers[0].Price,
		CheapestVendor: r.Offers[0].VendorName,
		ReferencePrice: referencePrice,
	}

	sum := 0.0
	for _, offer := range r.Offers {
		if offer.Price < stats.MinPrice {
			stats.MinPrice = offer.Price
			stats.CheapestVendor = offer.VendorName
		}
		if offer.Price > stats.MaxPrice {
			stats.MaxPrice = offer.Price
		}
		sum += offer.Price
	}

	stats.AveragePrice = sum / float64(len(r.Offers))
	stats.PriceRange = stats.MaxPrice - stats.MinPrice

	if referencePrice > 0 {
		stats.SavingsPercent = (referencePrice - stats.MinPrice) / referencePrice * 100
	}

	r.Stats = stats
}
