package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pricescout/zap-scraper/internal/database"
	"github.com/pricescout/zap-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeScrapeCompleted is published after every finished product run,
	// successful or not.
	EventTypeScrapeCompleted EventType = "SCRAPE_COMPLETED"
)

// ScrapeCompletedPayload is the payload for SCRAPE_COMPLETED events.
type ScrapeCompletedPayload struct {
	EventID     string             `json:"event_id"`
	EventType   string             `json:"event_type"`
	Timestamp   time.Time          `json:"timestamp"`
	ResultID    string             `json:"result_id"`
	ProductName string             `json:"product_name"`
	Status      models.Status      `json:"status"`
	OfferCount  int                `json:"offer_count"`
	SuccessRate float64            `json:"success_rate"`
	Stats       *models.OfferStats `json:"stats,omitempty"`
	Source      string             `json:"source"`
}

// PayloadFromResult builds the event payload for a finished run.
func PayloadFromResult(result *models.ScrapeResult) *ScrapeCompletedPayload {
	return &ScrapeCompletedPayload{
		ResultID:    result.ID,
		ProductName: result.Query.RawName,
		Status:      result.Status,
		OfferCount:  len(result.Offers),
		SuccessRate: result.SuccessRate(),
		Stats:       result.Stats,
	}
}

// Publisher handles event publishing using the transactional outbox pattern.
type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	logger *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishScrapeCompleted writes a SCRAPE_COMPLETED event through the outbox
// in its own transaction.
func (p *Publisher) PublishScrapeCompleted(ctx context.Context, payload *ScrapeCompletedPayload) error {
	err := p.db.Transaction(ctx, func(tx pgx.Tx) error {
		return p.PublishScrapeCompletedTx(ctx, tx, payload)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishScrapeCompletedTx writes the event within the caller's transaction,
// so the result row and its event commit or roll back together.
func (p *Publisher) PublishScrapeCompletedTx(ctx context.Context, tx pgx.Tx, payload *ScrapeCompletedPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeScrapeCompleted)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "scraper"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "scrape_result",
		AggregateID:   payload.ResultID,
		EventType:     string(EventTypeScrapeCompleted),
		Payload:       data,
	}

	if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"result_id", payload.ResultID,
		"outbox_id", outboxEvent.ID,
	)

	return nil
}
