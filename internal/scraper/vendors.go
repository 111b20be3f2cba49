package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/parser"
)

// VendorExtractor enumerates the listing rows of a resolved product page and
// classifies each row's action control by its visible label text.
type VendorExtractor struct {
	pages      *parser.PageParser
	logger     *slog.Logger
	minButtons int
}

func NewVendorExtractor(pages *parser.PageParser, minButtons int) *VendorExtractor {
	return &VendorExtractor{
		pages:      pages,
		logger:     slog.Default().With("component", "vendor_extractor"),
		minButtons: minButtons,
	}
}

// Extract parses the current page into classified vendor buttons. The
// returned status is StatusSuccess, StatusNoListings, or
// StatusInsufficientVendorButtons.
func (e *VendorExtractor) Extract(ctx context.Context, page Page) ([]models.VendorButton, models.Status, error) {
	html, err := page.Content()
	if err != nil {
		return nil, models.StatusNavigationFailed, fmt.Errorf("failed to read product page: %w", err)
	}

	rows, err := e.pages.ParseListingRows(html)
	if err != nil {
		return nil, models.StatusNoListings, err
	}
	if len(rows) == 0 {
		return nil, models.StatusNoListings, nil
	}

	buttons := make([]models.VendorButton, 0, len(rows))
	for _, row := range rows {
		buttons = append(buttons, models.VendorButton{
			Type:          ClassifyButton(row.ButtonLabel),
			Label:         row.ButtonLabel,
			ListingPrice:  row.Price,
			DisplayedName: row.DisplayedName,
			AnchorRef:     row.ButtonHref,
		})
	}

	if expected := e.pages.ExpectedVendorCount(html); expected > 0 && expected > len(buttons) {
		e.logger.Warn("extracted fewer buttons than the page advertises",
			"expected", expected, "found", len(buttons))
	}

	if len(buttons) < e.minButtons {
		e.logger.Info("insufficient vendor buttons",
			"found", len(buttons), "minimum", e.minButtons)
		return buttons, models.StatusInsufficientVendorButtons, nil
	}

	e.logger.Info("extracted vendor buttons", "count", len(buttons))
	return buttons, models.StatusSuccess, nil
}

// ClassifyButton maps a control's visible label to its button type. The
// compare-prices label is checked first; some rows append it to longer
// captions.
func ClassifyButton(label string) models.ButtonType {
	switch {
	case strings.Contains(label, parser.LabelComparePrices):
		return models.ButtonRecursiveCompare
	case strings.Contains(label, parser.LabelBuyNow):
		return models.ButtonDirect
	default:
		return models.ButtonExternal
	}
}
