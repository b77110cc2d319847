package repository

import (
	"context"

	"github.com/spec-kit/support-agent/internal/domain"
)

// ClassificationRepository encapsulates classification persistence.
// A ticket carries at most one classification, enforced by the unique
// constraint on ticket_id.
type ClassificationRepository interface {
	Create(ctx context.Context, classification *domain.Classification) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Classification, error)
}

type classificationRepository struct {
	db Querier
}

// NewClassificationRepository instantiates repository.
func NewClassificationRepository(db Querier) ClassificationRepository {
	return &classificationRepository{db: db}
}

func (r *classificationRepository) Create(ctx context.Context, classification *domain.Classification) error {
	const query = `
        INSERT INTO classifications (ticket_id, category, sentiment, urgency, confidence, reasoning)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		classification.TicketID,
		classification.Category,
		classification.Sentiment,
		classification.Urgency,
		classification.Confidence,
		classification.Reasoning,
	).Scan(&classification.ID, &classification.CreatedAt)
}

func (r *classificationRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Classification, error) {
	const query = `
        SELECT id, ticket_id, category, sentiment, urgency, confidence, reasoning, created_at
        FROM classifications WHERE ticket_id=$1`

	var classification domain.Classification
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&classification.ID,
		&classification.TicketID,
		&classification.Category,
		&classification.Sentiment,
		&classification.Urgency,
		&classification.Confidence,
		&classification.Reasoning,
		&classification.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &classification, nil
}
