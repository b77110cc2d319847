package repository

import (
	"context"

	"github.com/spec-kit/support-agent/internal/domain"
)

// MessageRepository encapsulates message persistence. The unique index on
// provider_message_id backs the dedup ledger.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ExistsByProviderID(ctx context.Context, providerID string) (bool, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
}

type messageRepository struct {
	db Querier
}

// NewMessageRepository instantiates repository.
func NewMessageRepository(db Querier) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, sender_kind, sender_email, body, provider_message_id, embedding, timestamp)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		msg.TicketID,
		msg.SenderKind,
		msg.SenderEmail,
		msg.Body,
		msg.ProviderMessageID,
		msg.Embedding,
		msg.Timestamp,
	).Scan(&msg.ID)
}

func (r *messageRepository) ExistsByProviderID(ctx context.Context, providerID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM messages WHERE provider_message_id=$1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, providerID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	const query = `
        SELECT id, ticket_id, sender_kind, sender_email, body, provider_message_id, embedding, timestamp
        FROM messages WHERE ticket_id=$1
        ORDER BY timestamp ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderKind,
			&msg.SenderEmail,
			&msg.Body,
			&msg.ProviderMessageID,
			&msg.Embedding,
			&msg.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
