package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"marketplace-escrow-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enqueue writes an outbox event in the current transaction. The event
// carries the journal entries posted since the previous Enqueue, so it is
// only visible to the relay once those postings are committed.
func (t *sqlTx) Enqueue(ctx context.Context, eventType, aggregateId string, attributes map[string]string) error {
	event := models.OutboxEvent{
		Id:          uuid.New().String(),
		EventType:   eventType,
		AggregateId: aggregateId,
		Attributes:  attributes,
		Postings:    t.pending,
		CreatedAt:   t.nowFn(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode outbox event: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, queryInsertOutboxEvent,
		event.Id, event.EventType, event.AggregateId, string(payload), event.CreatedAt); err != nil {
		return fmt.Errorf("failed to enqueue outbox event: %w", err)
	}

	t.pending = nil
	return nil
}

func (s *Service) FetchPendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	rows, err := s.db.QueryContext(ctx, queryFetchPendingEvents, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var events []models.OutboxEvent
	for rows.Next() {
		var id, payload, lastError string
		var attempts int
		if err := rows.Scan(&id, &payload, &attempts, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}

		var event models.OutboxEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to decode outbox event %s: %w", id, err)
		}
		event.Attempts = attempts
		event.LastError = lastError
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox rows: %w", err)
	}
	return events, nil
}

func (s *Service) MarkEventDelivered(ctx context.Context, eventId string) error {
	if _, err := s.db.ExecContext(ctx, queryMarkEventDelivered, s.nowFn(), eventId); err != nil {
		return fmt.Errorf("failed to mark event delivered: %w", err)
	}
	return nil
}

// MarkEventFailed records a failed delivery. After maxAttempts failures the
// event is parked as failed and no longer fetched.
func (s *Service) MarkEventFailed(ctx context.Context, eventId, reason string, maxAttempts int) error {
	if _, err := s.db.ExecContext(ctx, queryMarkEventFailed, reason, maxAttempts, eventId); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

func (s *Service) PurgeDeliveredEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryPurgeDeliveredEvents, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge outbox: %w", err)
	}
	return result.RowsAffected()
}
