package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pricescout/zap-scraper/internal/config"
	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/nomenclature"
	"github.com/pricescout/zap-scraper/internal/parser"
	"github.com/pricescout/zap-scraper/internal/ratelimit"
)

// platformVendor is the vendor identity behind buy-directly buttons: the
// comparison platform itself sells those.
const platformVendor = "ZAP"

// ScheduleResult aggregates a vendor-processing pass. Attempts counts one
// per button regardless of retries; offers preserve button discovery order
// with recursive sub-offers spliced in at the position of their trigger.
type ScheduleResult struct {
	Offers    []models.VendorOffer
	Attempts  int
	Successes int
}

// Scheduler executes per-vendor extraction over a bounded pool of navigation
// contexts. Each vendor gets a fixed timeout and one retry after a short
// backoff; a vendor failing both attempts is recorded skipped and never
// aborts its siblings or the product run.
type Scheduler struct {
	browser Browser
	pages   *parser.PageParser
	limiter *ratelimit.AdaptiveRateLimiter
	logger  *slog.Logger
	cfg     config.ScraperConfig
}

func NewScheduler(browser Browser, pages *parser.PageParser, cfg config.ScraperConfig) *Scheduler {
	return &Scheduler{
		browser: browser,
		pages:   pages,
		limiter: ratelimit.NewAdaptiveRateLimiter(cfg.RateLimitMin, cfg.RateLimitMax),
		logger:  slog.Default().With("component", "vendor_scheduler"),
		cfg:     cfg,
	}
}

// Process runs all buttons through the pool and collects their offers.
func (s *Scheduler) Process(ctx context.Context, buttons []models.VendorButton) ScheduleResult {
	if len(buttons) == 0 {
		return ScheduleResult{}
	}

	slots := make(chan struct{}, s.cfg.PoolWidth)
	offersByButton := make([][]models.VendorOffer, len(buttons))
	succeeded := make([]bool, len(buttons))

	var wg sync.WaitGroup
	for i, button := range buttons {
		wg.Add(1)
		go func(idx int, btn models.VendorButton) {
			defer wg.Done()

			slots <- struct{}{}
			defer func() { <-slots }()

			offers, err := s.processWithRetry(ctx, btn)
			if err != nil || len(offers) == 0 {
				s.limiter.RecordError()
				s.logger.Warn("vendor skipped",
					"type", btn.Type, "href", btn.AnchorRef, "error", err)
				return
			}

			s.limiter.RecordSuccess()
			offersByButton[idx] = offers
			succeeded[idx] = true
		}(i, button)
	}
	wg.Wait()

	result := ScheduleResult{Attempts: len(buttons)}
	for i, offers := range offersByButton {
		if succeeded[i] {
			result.Successes++
		}
		result.Offers = append(result.Offers, offers...)
	}

	s.logger.Info("vendor processing complete",
		"attempts", result.Attempts,
		"successes", result.Successes,
		"offers", len(result.Offers))

	return result
}

// processWithRetry gives a vendor exactly one retry after a fixed backoff.
// The retry allowance is per vendor; there is no shared budget.
func (s *Scheduler) processWithRetry(ctx context.Context, button models.VendorButton) ([]models.VendorOffer, error) {
	offers, err := s.processButton(ctx, button)
	if err == nil {
		return offers, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.logger.Info("retrying vendor after backoff",
		"type", button.Type, "backoff", s.cfg.RetryBackoff, "error", err)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.cfg.RetryBackoff):
	}

	return s.processButton(ctx, button)
}

// processButton runs a single attempt under the per-vendor timeout. The
// timeout cancels only this vendor's navigation.
func (s *Scheduler) processButton(ctx context.Context, button models.VendorButton) ([]models.VendorOffer, error) {
	vctx, cancel := context.WithTimeout(ctx, s.cfg.VendorTimeout)
	defer cancel()

	if err := s.limiter.Wait(vctx); err != nil {
		return nil, err
	}

	page, err := s.browser.NewPage(vctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create navigation context: %w", err)
	}
	defer page.Close()

	if button.Type == models.ButtonRecursiveCompare {
		return s.processComparePage(vctx, page, button)
	}

	offer, err := s.followOffer(vctx, page, button)
	if err != nil {
		return nil, err
	}
	return []models.VendorOffer{*offer}, nil
}

// followOffer activates a direct or external button and records the final
// destination as the offer URL.
func (s *Scheduler) followOffer(ctx context.Context, page Page, button models.VendorButton) (*models.VendorOffer, error) {
	if button.AnchorRef == "" {
		return nil, fmt.Errorf("button has no anchor")
	}

	if err := page.Navigate(ctx, absoluteURL(s.cfg.BaseURL, button.AnchorRef)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVendorTimeout, err)
	}

	offer := &models.VendorOffer{
		Price:                button.ListingPrice,
		URL:                  page.URL(),
		ButtonType:           button.Type,
		DisplayedProductName: button.DisplayedName,
		VendorName:           platformVendor,
	}

	if button.Type == models.ButtonExternal {
		if vendor := parser.VendorNameFromURL(page.URL()); vendor != "" {
			offer.VendorName = vendor
		}

		// External vendor pages show their own rendition of the product
		// name; the post-hoc validator scores that rendition.
		if html, err := page.Content(); err == nil {
			if name := s.pages.ParseVendorProductName(html); name != "" {
				offer.DisplayedProductName = name
			}
			if offer.Price == 0 {
				offer.Price = nomenclature.ExtractPrice(html)
			}
		}
	}

	return offer, nil
}

// processComparePage handles a nested comparison listing. Only direct and
// external buttons are followed from it; the site guarantees a nested page
// never contains another compare button, so recursion is depth one by
// contract. The whole sub-page completes inside the parent button's pool
// slot because it reuses the same navigation context.
func (s *Scheduler) processComparePage(ctx context.Context, page Page, button models.VendorButton) ([]models.VendorOffer, error) {
	if err := page.Navigate(ctx, absoluteURL(s.cfg.BaseURL, button.AnchorRef)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVendorTimeout, err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read comparison page: %w", err)
	}

	rows, err := s.pages.ParseListingRows(html)
	if err != nil {
		return nil, err
	}

	var offers []models.VendorOffer
	for _, row := range rows {
		subType := ClassifyButton(row.ButtonLabel)
		if subType == models.ButtonRecursiveCompare {
			continue
		}

		subButton := models.VendorButton{
			Type:          subType,
			Label:         row.ButtonLabel,
			ListingPrice:  row.Price,
			DisplayedName: row.DisplayedName,
			AnchorRef:     row.ButtonHref,
		}

		offer, err := s.followOffer(ctx, page, subButton)
		if err != nil {
			s.logger.Warn("sub-listing skipped", "href", row.ButtonHref, "error", err)
			continue
		}
		offers = append(offers, *offer)
	}

	if len(offers) == 0 {
		return nil, fmt.Errorf("comparison page yielded no offers")
	}
	return offers, nil
}
