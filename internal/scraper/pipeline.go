package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pricescout/zap-scraper/internal/config"
	"github.com/pricescout/zap-scraper/internal/match"
	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
	"github.com/pricescout/zap-scraper/internal/parser"
	"github.com/pricescout/zap-scraper/internal/ratelimit"
)

// Pipeline runs the full per-product flow: parse, search, select, extract
// vendors, schedule vendor processing, validate. Each stage returns a tagged
// status and the orchestration is a linear sequence with early return on any
// non-success status. Expected failures never surface as errors; every call
// produces a complete ScrapeResult.
type Pipeline struct {
	browser   Browser
	table     *nomenclature.Table
	names     *parser.NameParser
	validator *match.Validator
	search    *SearchEngine
	extractor *VendorExtractor
	scheduler *Scheduler
	results   *ResultValidator
	limiter   ratelimit.RateLimiter
	logger    *slog.Logger
	cfg       config.ScraperConfig
}

func NewPipeline(browser Browser, table *nomenclature.Table, cfg config.ScraperConfig) *Pipeline {
	pages := parser.NewPageParser(table)
	validator := match.NewValidator(table)

	return &Pipeline{
		browser:   browser,
		table:     table,
		names:     parser.NewNameParser(table),
		validator: validator,
		search:    NewSearchEngine(pages, validator, cfg),
		extractor: NewVendorExtractor(pages, cfg.MinVendorButtons),
		scheduler: NewScheduler(browser, pages, cfg),
		results:   NewResultValidator(validator, cfg.ScoreThreshold),
		limiter:   ratelimit.NewSimpleRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax),
		logger:    slog.Default().With("component", "pipeline"),
		cfg:       cfg,
	}
}

// Process runs one product end to end. Calls are independent: no state is
// shared between runs beyond the read-only nomenclature table.
func (p *Pipeline) Process(ctx context.Context, queryText string, referencePrice float64) *models.ScrapeResult {
	result := &models.ScrapeResult{
		ID:        uuid.New().String(),
		Query:     p.names.Parse(queryText),
		ScrapedAt: time.Now(),
	}

	logger := p.logger.With("product", queryText)
	logger.Info("processing product",
		"manufacturer", result.Query.Manufacturer,
		"model", result.Query.ModelNumber,
		"series", result.Query.SeriesTokens)

	if err := p.limiter.Wait(ctx); err != nil {
		result.Status = models.StatusNavigationFailed
		return result
	}

	page, err := p.browser.NewPage(ctx)
	if err != nil {
		logger.Error("failed to create navigation context", "error", err)
		result.Status = models.StatusNavigationFailed
		return result
	}
	defer page.Close()

	// Stage 1: search. Either a pre-resolved selection or candidates.
	outcome, err := p.search.Run(ctx, page, result.Query)
	if err != nil {
		logger.Warn("search produced nothing usable", "error", err)
		result.Status = models.StatusNoCandidate
		return result
	}

	// Stage 2: selection.
	selected := outcome.Selected
	if selected == nil {
		if len(outcome.Candidates) == 0 {
			result.Status = models.StatusNoCandidate
			return result
		}

		var status models.Status
		selected, status = p.validator.SelectBest(result.Query, outcome.Candidates)
		if status != models.StatusSuccess {
			logger.Info("no candidate selected",
				"status", status, "candidates", len(outcome.Candidates))
			result.Status = status
			return result
		}
	}
	result.Selected = selected
	logger.Info("product resolved",
		"candidate", selected.Name, "score", selected.Score.Total, "url", selected.URL)

	// Stage 3: navigate to the resolved product page.
	if page.URL() != selected.URL {
		if err := page.Navigate(ctx, absoluteURL(p.cfg.BaseURL, selected.URL)); err != nil {
			logger.Warn("product page did not load", "error", err)
			result.Status = models.StatusNavigationFailed
			return result
		}
	}

	// Stage 4: vendor button extraction.
	buttons, status, err := p.extractor.Extract(ctx, page)
	if err != nil || status != models.StatusSuccess {
		if err != nil {
			logger.Warn("vendor extraction failed", "error", err)
		}
		result.Status = status
		return result
	}

	// Stage 5: vendor processing.
	schedule := p.scheduler.Process(ctx, buttons)
	result.VendorAttempts = schedule.Attempts
	result.VendorSuccesses = schedule.Successes

	// A zero-attempt run can only happen before this stage; the minimum
	// button gate guarantees Attempts > 0 here.
	if result.SuccessRate() < p.cfg.MinSuccessRate {
		logger.Warn("vendor success rate below threshold",
			"rate", result.SuccessRate(), "minimum", p.cfg.MinSuccessRate)
		for _, offer := range schedule.Offers {
			result.Exceptions = append(result.Exceptions, models.RejectedOffer{
				Offer:  offer,
				Reason: ReasonLowSuccessRate,
			})
		}
		result.Status = models.StatusLowVendorSuccessRate
		return result
	}

	// Stage 6: post-hoc validation of displayed names.
	accepted, rejected := p.results.Validate(result.Query, schedule.Offers)
	result.Offers = accepted
	result.Exceptions = rejected

	if len(accepted) == 0 {
		result.Status = models.StatusValidationFailed
		return result
	}

	result.Status = models.StatusSuccess
	result.ComputeStats(referencePrice)
	logger.Info("product scraped",
		"offers", len(accepted),
		"exceptions", len(rejected),
		"success_rate", result.SuccessRate())

	return result
}
