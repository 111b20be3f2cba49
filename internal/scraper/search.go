package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pricescout/zap-scraper/internal/config"
	"github.com/pricescout/zap-scraper/internal/match"
	"github.com/pricescout/zap-scraper/internal/models"
	"github.com/pricescout/zap-scraper/internal/parser"
)

const (
	searchBoxSelector  = "input[name='keyword'], #acSearch, input[type='search']"
	suggestionSelector = ".acSearch-row-container"
)

// SearchOutcome is what a search run hands to the pipeline: either a
// pre-resolved selection or a candidate list for scoring. Both empty means
// the search produced nothing usable.
type SearchOutcome struct {
	Selected   *models.SelectedProduct
	Candidates []models.Candidate
}

// SearchEngine drives the two-path search against the comparison site.
// Strategy A types the hyphen-joined query into the incremental search box;
// Strategy B falls back to a literal keyword search with a stricter
// acceptance rule.
type SearchEngine struct {
	pages     *parser.PageParser
	validator *match.Validator
	logger    *slog.Logger
	cfg       config.ScraperConfig
}

func NewSearchEngine(pages *parser.PageParser, validator *match.Validator, cfg config.ScraperConfig) *SearchEngine {
	return &SearchEngine{
		pages:     pages,
		validator: validator,
		logger:    slog.Default().With("component", "search"),
		cfg:       cfg,
	}
}

// Run executes Strategy A and, when it yields nothing, Strategy B.
func (s *SearchEngine) Run(ctx context.Context, page Page, query models.ProductQuery) (*SearchOutcome, error) {
	outcome, err := s.strategyA(ctx, page, query)
	if err != nil {
		s.logger.Warn("dropdown strategy failed", "product", query.RawName, "error", err)
	}
	if outcome != nil && (outcome.Selected != nil || len(outcome.Candidates) > 0) {
		return outcome, nil
	}

	s.logger.Info("falling back to literal search", "product", query.RawName)
	return s.strategyB(ctx, page, query)
}

// strategyA submits the hyphen-joined query to the incremental-suggestion
// search box. Exactly one qualifying suggestion that lands on a single-model
// page short-circuits candidate scoring entirely.
func (s *SearchEngine) strategyA(ctx context.Context, page Page, query models.ProductQuery) (*SearchOutcome, error) {
	if err := page.Navigate(ctx, s.cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to open site: %w", err)
	}

	hyphenated := strings.ReplaceAll(strings.TrimSpace(query.RawName), " ", "-")
	if err := page.Fill(ctx, searchBoxSelector, hyphenated); err != nil {
		return nil, ErrNoSearchBox
	}

	if err := page.WaitForSelector(ctx, suggestionSelector, s.cfg.SuggestionTimeout); err != nil {
		return nil, ErrNoSuggestions
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestions: %w", err)
	}

	suggestions, err := s.pages.ParseSuggestions(html)
	if err != nil {
		return nil, err
	}

	qualifying := s.filterSuggestions(suggestions)
	s.logger.Info("dropdown suggestions",
		"product", query.RawName,
		"total", len(suggestions),
		"qualifying", len(qualifying))

	if len(qualifying) == 0 {
		return nil, nil
	}

	target := qualifying[0]
	if err := page.Navigate(ctx, absoluteURL(s.cfg.BaseURL, target.Href)); err != nil {
		return nil, fmt.Errorf("failed to follow suggestion: %w", err)
	}

	if len(qualifying) == 1 && isModelPage(page.URL()) {
		// Direct navigation fast path: a single qualifying suggestion
		// resolved straight to the product page.
		s.logger.Info("direct navigation resolved product",
			"product", query.RawName, "url", page.URL())
		return &SearchOutcome{Selected: &models.SelectedProduct{
			CandidateID: modelIDFromURL(page.URL()),
			Name:        target.Text,
			URL:         page.URL(),
			Score:       s.validator.Score(query, target.Text),
		}}, nil
	}

	listingHTML, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read listing page: %w", err)
	}

	candidates, err := s.pages.ParseCandidates(listingHTML, models.SourceDropdown)
	if err != nil {
		return nil, err
	}
	return &SearchOutcome{Candidates: candidates}, nil
}

// strategyB submits the space-joined query as a literal keyword search. It
// is stricter than Strategy A's listing branch: only a best candidate at or
// above the acceptance threshold is taken, to keep an ambiguous query from
// matching across manufacturers.
func (s *SearchEngine) strategyB(ctx context.Context, page Page, query models.ProductQuery) (*SearchOutcome, error) {
	searchURL := fmt.Sprintf("%s/search.aspx?keyword=%s",
		strings.TrimSuffix(s.cfg.BaseURL, "/"),
		url.QueryEscape(strings.TrimSpace(query.RawName)))

	if err := page.Navigate(ctx, searchURL); err != nil {
		return nil, fmt.Errorf("literal search navigation failed: %w", err)
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	candidates, err := s.pages.ParseCandidates(html, models.SourceSearchResults)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &SearchOutcome{}, nil
	}

	selected, status := s.validator.SelectBest(query, candidates)
	if status != models.StatusSuccess {
		s.logger.Info("literal search rejected all candidates",
			"product", query.RawName, "status", status, "candidates", len(candidates))
		return &SearchOutcome{}, nil
	}

	return &SearchOutcome{Selected: selected}, nil
}

// filterSuggestions keeps suggestions matching the domain keyword allowlist,
// excluding unrelated product categories that share model numbers.
func (s *SearchEngine) filterSuggestions(suggestions []parser.Suggestion) []parser.Suggestion {
	var qualifying []parser.Suggestion
	for _, suggestion := range suggestions {
		upper := strings.ToUpper(suggestion.Text)
		for _, keyword := range s.cfg.SearchKeywords {
			if strings.Contains(upper, strings.ToUpper(keyword)) {
				qualifying = append(qualifying, suggestion)
				break
			}
		}
	}
	return qualifying
}

// isModelPage distinguishes a single-product page from a multi-result
// listing. model.aspx is one product; models.aspx is a listing.
func isModelPage(pageURL string) bool {
	return strings.Contains(pageURL, "model.aspx")
}

func modelIDFromURL(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	if id := parsed.Query().Get("modelid"); id != "" {
		return id
	}
	return pageURL
}
