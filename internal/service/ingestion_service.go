package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-agent/internal/agent"
	"github.com/spec-kit/support-agent/internal/domain"
	"github.com/spec-kit/support-agent/internal/events"
	"github.com/spec-kit/support-agent/internal/mail"
	"github.com/spec-kit/support-agent/internal/repository"
)

// Ingest outcome statuses reported back on the webhook response.
const (
	StatusProcessed        = "processed"
	StatusError            = "error"
	StatusSkipped          = "skipped"
	StatusSkippedOld       = "skipped_old"
	StatusIgnoredSelf      = "ignored_self"
	StatusIgnoredDuplicate = "ignored_duplicate"
)

// Outcome is the terminal result of one push delivery.
type Outcome struct {
	Status   string
	TicketID string
}

// MailClient fetches the inbound message behind a history cursor.
type MailClient interface {
	FetchMessage(ctx context.Context, historyID string) (*mail.InboundMessage, error)
}

// ReplySender delivers the agent's suggested reply to the customer.
type ReplySender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Analyzer runs the reasoning loop over one email.
type Analyzer interface {
	Analyze(ctx context.Context, subject, body string) *agent.Result
}

// DedupLedger is the advisory fast path over the provider message id.
type DedupLedger interface {
	IsDuplicate(ctx context.Context, providerID string) (bool, error)
	MarkSeen(ctx context.Context, providerID string)
}

// IngestionService drives one push notification end to end: fetch,
// filter, persist atomically, then classify and reply.
type IngestionService struct {
	store      repository.Store
	resolver   *IdentityResolver
	ledger     DedupLedger
	mailClient MailClient
	analyzer   Analyzer
	sender     ReplySender
	dispatcher events.Dispatcher
	// selfAddress is the service's own outbound address; mail from it
	// is dropped to break reply loops.
	selfAddress string
	// startedAt bounds staleness: history replays older than process
	// start are not re-ingested.
	startedAt time.Time
	logger    *zap.Logger
}

// IngestionDependencies bundles collaborators for the ingestion service.
type IngestionDependencies struct {
	Store       repository.Store
	Resolver    *IdentityResolver
	Ledger      DedupLedger
	MailClient  MailClient
	Analyzer    Analyzer
	Sender      ReplySender
	Dispatcher  events.Dispatcher
	SelfAddress string
	StartedAt   time.Time
	Logger      *zap.Logger
}

// NewIngestionService constructs the service.
func NewIngestionService(deps IngestionDependencies) *IngestionService {
	return &IngestionService{
		store:       deps.Store,
		resolver:    deps.Resolver,
		ledger:      deps.Ledger,
		mailClient:  deps.MailClient,
		analyzer:    deps.Analyzer,
		sender:      deps.Sender,
		dispatcher:  deps.Dispatcher,
		selfAddress: strings.ToLower(strings.TrimSpace(deps.SelfAddress)),
		startedAt:   deps.StartedAt,
		logger:      deps.Logger,
	}
}

// Process handles one history cursor. It always returns a terminal
// Outcome; errors that should not trigger a push redelivery are
// absorbed into non-processed statuses.
func (s *IngestionService) Process(ctx context.Context, historyID string) Outcome {
	log := s.logger.With(zap.String("history_id", historyID))

	msg, err := s.mailClient.FetchMessage(ctx, historyID)
	if err != nil {
		log.Error("mail fetch failed", zap.Error(err))
		return Outcome{Status: StatusError}
	}
	if msg == nil {
		log.Info("no message behind history cursor")
		return Outcome{Status: StatusSkipped}
	}

	log = log.With(zap.String("provider_message_id", msg.ID))

	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(s.startedAt) {
		log.Info("stale message, skipping",
			zap.Time("message_ts", msg.Timestamp), zap.Time("started_at", s.startedAt))
		return Outcome{Status: StatusSkippedOld}
	}

	if s.isSelfOriginated(msg.Sender) {
		log.Info("self-originated message, ignoring")
		return Outcome{Status: StatusIgnoredSelf}
	}

	if dup, err := s.ledger.IsDuplicate(ctx, msg.ID); err == nil && dup {
		log.Info("duplicate delivery, ignoring")
		return Outcome{Status: StatusIgnoredDuplicate}
	}

	ticket, customer, err := s.persistInbound(ctx, msg)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			log.Info("duplicate message detected on insert, ignoring")
			s.ledger.MarkSeen(ctx, msg.ID)
			return Outcome{Status: StatusIgnoredDuplicate}
		}
		log.Error("inbound persist failed", zap.Error(err))
		return Outcome{Status: StatusError}
	}

	s.ledger.MarkSeen(ctx, msg.ID)

	log = log.With(zap.String("ticket_id", ticket.ID))
	log.Info("ticket ingested", zap.String("customer_email", customer.Email))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketIngested,
		TicketID: ticket.ID,
		Payload: events.TicketIngestedPayload{
			TenantID:      ticket.TenantID,
			CustomerID:    customer.ID,
			CustomerEmail: customer.Email,
			Subject:       ticket.Subject,
		},
	})

	s.classifyAndReply(ctx, ticket, customer, msg, log)

	return Outcome{Status: StatusProcessed, TicketID: ticket.ID}
}

// persistInbound writes tenant, customer, ticket and message in one
// transaction so a crash never leaves a ticket without its message.
func (s *IngestionService) persistInbound(ctx context.Context, msg *mail.InboundMessage) (*domain.Ticket, *domain.Customer, error) {
	var (
		ticket   *domain.Ticket
		customer *domain.Customer
	)

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		tenant, err := s.resolver.ResolveTenant(ctx, tx.Tenants(), msg.Receiver)
		if err != nil {
			return err
		}

		customer, err = s.resolver.ResolveCustomer(ctx, tx.Customers(), msg.Sender)
		if err != nil {
			return err
		}

		ticket = &domain.Ticket{
			ExternalKey: generateTicketKey(),
			CustomerID:  customer.ID,
			TenantID:    tenant.ID,
			Subject:     msg.Subject,
			Status:      domain.TicketStatusOpen,
			Priority:    domain.TicketPriorityMedium,
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}

		message := &domain.Message{
			TicketID:          ticket.ID,
			SenderKind:        domain.SenderKindCustomer,
			SenderEmail:       customer.Email,
			Body:              msg.Body,
			ProviderMessageID: msg.ID,
			Timestamp:         msg.Timestamp,
		}
		return tx.Messages().Create(ctx, message)
	})
	if err != nil {
		return nil, nil, err
	}
	return ticket, customer, nil
}

// classifyAndReply runs the post-commit phase. Failures here are logged
// and never roll back the ingested ticket.
func (s *IngestionService) classifyAndReply(ctx context.Context, ticket *domain.Ticket, customer *domain.Customer, msg *mail.InboundMessage, log *zap.Logger) {
	result := s.analyzer.Analyze(ctx, ticket.Subject, msg.Body)

	classification := &domain.Classification{
		TicketID:   ticket.ID,
		Category:   result.Category,
		Sentiment:  result.Sentiment,
		Urgency:    result.Urgency,
		Confidence: result.Confidence,
		Reasoning:  result.Reasoning,
	}
	if err := s.store.Classifications().Create(ctx, classification); err != nil {
		if repository.IsUniqueViolation(err) {
			log.Warn("classification already exists, keeping existing")
		} else {
			log.Error("classification persist failed", zap.Error(err))
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClassified,
		TicketID: ticket.ID,
		Payload: events.TicketClassifiedPayload{
			Category:   result.Category,
			Sentiment:  result.Sentiment,
			Urgency:    result.Urgency,
			Confidence: result.Confidence,
			Degraded:   result.Degraded,
		},
	})

	replySubject := normalizeReplySubject(ticket.Subject)
	sendErr := s.sender.Send(ctx, customer.Email, replySubject, result.SuggestedReply)
	if sendErr != nil {
		log.Error("reply send failed", zap.Error(sendErr))
	} else {
		log.Info("reply sent", zap.String("to", customer.Email))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventReplySent,
		TicketID: ticket.ID,
		Payload: events.ReplySentPayload{
			To:       customer.Email,
			Subject:  replySubject,
			Priority: ticket.Priority,
			Failed:   sendErr != nil,
		},
	})
}

func (s *IngestionService) isSelfOriginated(sender string) bool {
	if s.selfAddress == "" {
		return false
	}
	return normalizeAddress(sender) == s.selfAddress
}

func (s *IngestionService) publishEvent(ctx context.Context, evt events.Event) {
	if s.dispatcher == nil {
		return
	}
	evt.ID = uuid.NewString()
	evt.Timestamp = time.Now().UTC()
	s.dispatcher.Publish(ctx, evt)
}

// normalizeReplySubject strips any stack of reply prefixes and prepends
// exactly one, so replies to replies never accumulate "Re: Re:" chains.
func normalizeReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	for strings.HasPrefix(strings.ToLower(trimmed), "re:") {
		trimmed = strings.TrimSpace(trimmed[len("re:"):])
	}
	if trimmed == "" {
		return "Re: your support request"
	}
	return "Re: " + trimmed
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
