package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/curaplan/clinicops/libs/db"
	otelx "github.com/curaplan/clinicops/libs/otel"
	"github.com/jackc/pgx/v5"
)

// OutboxRepository persists audit events to the audit_outbox table,
// from which the publisher ships them to Kafka. Trace context is
// carried alongside so downstream consumers join the originating trace.
type OutboxRepository struct {
	pool *db.Pool
}

func NewOutboxRepository(pool *db.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Insert(ctx context.Context, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_outbox (aggregate_type, aggregate_id, tenant_id, event_type, payload, traceparent, tracestate)
		VALUES ('appointment', $1, $2, $3, $4, $5, $6)
	`, evt.AppointmentID, evt.TenantID, evt.EventType, evt.Payload, traceparent, tracestate)
	return err
}

type Record struct {
	ID            int64
	EventID       string
	AppointmentID string
	TenantID      string
	EventType     string
	Payload       []byte
	Traceparent   string
	Tracestate    string
	CreatedAt     time.Time
}

func (r *OutboxRepository) FetchUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id, aggregate_id, tenant_id, event_type, payload, traceparent, tracestate, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rcd Record
		if err := rows.Scan(&rcd.ID, &rcd.EventID, &rcd.AppointmentID, &rcd.TenantID, &rcd.EventType, &rcd.Payload, &rcd.Traceparent, &rcd.Tracestate, &rcd.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rcd)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE audit_outbox
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

// OutboxSink writes events through the repository. Insert failures are
// logged and dropped; auditing never fails the triggering write.
type OutboxSink struct {
	repo   *OutboxRepository
	logger *slog.Logger
}

func NewOutboxSink(repo *OutboxRepository, logger *slog.Logger) *OutboxSink {
	return &OutboxSink{repo: repo, logger: logger}
}

func (s *OutboxSink) Record(ctx context.Context, evt Event) {
	if err := s.repo.Insert(ctx, evt); err != nil {
		s.logger.Error("audit event dropped", "event_type", evt.EventType, "appointment_id", evt.AppointmentID, "err", err)
	}
}
