package api

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pricescout/zap-scraper/internal/database"
	"github.com/pricescout/zap-scraper/internal/events"
	"github.com/pricescout/zap-scraper/internal/models"
)

// PostgresSink persists a result and its SCRAPE_COMPLETED outbox event in a
// single transaction.
type PostgresSink struct {
	db        *database.DB
	results   *database.ResultRepository
	publisher *events.Publisher
}

func NewPostgresSink(db *database.DB, results *database.ResultRepository, publisher *events.Publisher) *PostgresSink {
	return &PostgresSink{
		db:        db,
		results:   results,
		publisher: publisher,
	}
}

func (s *PostgresSink) Persist(ctx context.Context, result *models.ScrapeResult) error {
	return s.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := s.results.SaveWithTx(ctx, tx, result); err != nil {
			return err
		}
		return s.publisher.PublishScrapeCompletedTx(ctx, tx, events.PayloadFromResult(result))
	})
}
