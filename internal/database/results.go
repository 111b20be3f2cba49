package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pricescout/zap-scraper/internal/models"
)

// StoredResult is a scrape run as persisted. Offers, exceptions, the parsed
// query, selection and stats are stored as JSON documents; the columns that
// downstream queries filter on are first class.
type StoredResult struct {
	ID              string          `db:"id"`
	ProductName     string          `db:"product_name"`
	Status          models.Status   `db:"status"`
	Query           json.RawMessage `db:"query"`
	Selected        json.RawMessage `db:"selected"`
	Offers          json.RawMessage `db:"offers"`
	Exceptions      json.RawMessage `db:"exceptions"`
	Stats           json.RawMessage `db:"stats"`
	OfferCount      int             `db:"offer_count"`
	VendorAttempts  int             `db:"vendor_attempts"`
	VendorSuccesses int             `db:"vendor_successes"`
	ScrapedAt       time.Time       `db:"scraped_at"`
	CreatedAt       time.Time       `db:"created_at"`
}

// ResultRepository persists scrape results.
type ResultRepository struct {
	db *DB
}

func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Save writes the result in its own transaction. Callers that also publish
// an event should use SaveWithTx inside a shared transaction instead.
func (r *ResultRepository) Save(ctx context.Context, result *models.ScrapeResult) error {
	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		return r.SaveWithTx(ctx, tx, result)
	})
}

// SaveWithTx writes the result within the caller's transaction.
func (r *ResultRepository) SaveWithTx(ctx context.Context, tx pgx.Tx, result *models.ScrapeResult) error {
	stored, err := marshalResult(result)
	if err != nil {
		return err
	}

	query := `
			INSERT INTO scrape_results (
				id, product_name, status, query, selected,
				offers, exceptions, stats, offer_count,
				vendor_attempts, vendor_successes, scraped_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
			)
			ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				selected = EXCLUDED.selected,
				offers = EXCLUDED.offers,
				exceptions = EXCLUDED.exceptions,
				stats = EXCLUDED.stats,
				offer_count = EXCLUDED.offer_count,
				vendor_attempts = EXCLUDED.vendor_attempts,
				vendor_successes = EXCLUDED.vendor_successes,
				scraped_at = EXCLUDED.scraped_at`

	if _, err := tx.Exec(ctx, query,
		stored.ID, stored.ProductName, stored.Status, stored.Query, stored.Selected,
		stored.Offers, stored.Exceptions, stored.Stats, stored.OfferCount,
		stored.VendorAttempts, stored.VendorSuccesses, stored.ScrapedAt,
	); err != nil {
		return fmt.Errorf("failed to insert scrape result: %w", err)
	}

	return nil
}

// Get retrieves one result by ID. Returns nil without error when absent.
func (r *ResultRepository) Get(ctx context.Context, id string) (*StoredResult, error) {
	query := `
		SELECT
			id, product_name, status, query, selected,
			offers, exceptions, stats, offer_count,
			vendor_attempts, vendor_successes, scraped_at, created_at
		FROM scrape_results
		WHERE id = $1`

	stored := &StoredResult{}
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&stored.ID, &stored.ProductName, &stored.Status, &stored.Query, &stored.Selected,
		&stored.Offers, &stored.Exceptions, &stored.Stats, &stored.OfferCount,
		&stored.VendorAttempts, &stored.VendorSuccesses, &stored.ScrapedAt, &stored.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scrape result: %w", err)
	}

	return stored, nil
}

// ListRecent returns the newest results first.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]*StoredResult, error) {
	query := `
		SELECT
			id, product_name, status, query, selected,
			offers, exceptions, stats, offer_count,
			vendor_attempts, vendor_successes, scraped_at, created_at
		FROM scrape_results
		ORDER BY scraped_at DESC
		LIMIT $1`

	rows, err := r.db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape results: %w", err)
	}
	defer rows.Close()

	var results []*StoredResult
	for rows.Next() {
		stored := &StoredResult{}
		err := rows.Scan(
			&stored.ID, &stored.ProductName, &stored.Status, &stored.Query, &stored.Selected,
			&stored.Offers, &stored.Exceptions, &stored.Stats, &stored.OfferCount,
			&stored.VendorAttempts, &stored.VendorSuccesses, &stored.ScrapedAt, &stored.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scrape result: %w", err)
		}
		results = append(results, stored)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// CountByStatus returns how many results terminated in each status.
func (r *ResultRepository) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM scrape_results
		GROUP BY status`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count scrape results: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status models.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}

func marshalResult(result *models.ScrapeResult) (*StoredResult, error) {
	stored := &StoredResult{
		ID:              result.ID,
		ProductName:     result.Query.RawName,
		Status:          result.Status,
		OfferCount:      len(result.Offers),
		VendorAttempts:  result.VendorAttempts,
		VendorSuccesses: result.VendorSuccesses,
		ScrapedAt:       result.ScrapedAt,
	}

	var err error
	if stored.Query, err = json.Marshal(result.Query); err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	if result.Selected != nil {
		if stored.Selected, err = json.Marshal(result.Selected); err != nil {
			return nil, fmt.Errorf("failed to marshal selection: %w", err)
		}
	}
	if stored.Offers, err = json.Marshal(result.Offers); err != nil {
		return nil, fmt.Errorf("failed to marshal offers: %w", err)
	}
	if stored.Exceptions, err = json.Marshal(result.Exceptions); err != nil {
		return nil, fmt.Errorf("failed to marshal exceptions: %w", err)
	}
	if result.Stats != nil {
		if stored.Stats, err = json.Marshal(result.Stats); err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}
	}

	return stored, nil
}
