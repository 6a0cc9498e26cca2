// Package journal records the append-only history of borrow records. Entries
// are written inside the caller's transaction, so a state change and its
// journal entry commit or roll back together.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bookledger/internal/storage"
)

const table = "borrow_events"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrConcurrencyConflict is returned when another writer appended the
	// same version first.
	ErrConcurrencyConflict = errors.New("concurrency conflict: version already exists")
	ErrEmptyAggregateID    = errors.New("aggregate id is required")
)

// Entry is one recorded event.
type Entry struct {
	ID          int64               `json:"id"`
	AggregateID string              `json:"aggregate_id"`
	EventType   string              `json:"event_type"`
	EventData   jsoniter.RawMessage `json:"event_data"`
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Decode unmarshals the entry payload into v.
func (e Entry) Decode(v interface{}) error {
	return json.Unmarshal(e.EventData, v)
}

type row struct {
	ID          int64     `db:"id"`
	AggregateID string    `db:"aggregate_id"`
	EventType   string    `db:"event_type"`
	EventData   string    `db:"event_data"`
	Version     int       `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
}

// Journal appends and loads entries.
type Journal struct {
	dialect goqu.DialectWrapper
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates a journal that renders SQL for db's dialect.
func New(db *storage.DB) *Journal {
	return &Journal{
		dialect: db.Dialect(),
		tracer:  otel.Tracer("bookledger/journal"),
		now:     time.Now,
	}
}

// Append stores payload as the next version for aggregateID and returns that
// version. q should be the transaction that made the recorded change.
func (j *Journal) Append(ctx context.Context, q storage.Querier, aggregateID, eventType string, payload interface{}) (int, error) {
	ctx, span := j.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID),
			attribute.String("event.type", eventType),
		),
	)
	defer span.End()

	if aggregateID == "" {
		return 0, ErrEmptyAggregateID
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	var current int
	err = storage.Get(ctx, q, &current, j.dialect.From(table).
		Select(goqu.COALESCE(goqu.MAX("version"), 0)).
		Where(goqu.C("aggregate_id").Eq(aggregateID)))
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to query current version: %w", err)
	}

	version := current + 1
	_, err = storage.Exec(ctx, q, j.dialect.Insert(table).Rows(goqu.Record{
		"aggregate_id": aggregateID,
		"event_type":   eventType,
		"event_data":   string(data),
		"version":      version,
		"created_at":   j.now().UTC(),
	}))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return 0, ErrConcurrencyConflict
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return 0, fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}

	span.SetAttributes(attribute.Int("event.version", version))
	return version, nil
}

// Load returns every entry for aggregateID in version order.
func (j *Journal) Load(ctx context.Context, q storage.Querier, aggregateID string) ([]Entry, error) {
	ctx, span := j.tracer.Start(ctx, "journal.load",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID)),
	)
	defer span.End()

	var rows []row
	err := storage.Select(ctx, q, &rows, j.dialect.From(table).
		Select("id", "aggregate_id", "event_type", "event_data", "version", "created_at").
		Where(goqu.C("aggregate_id").Eq(aggregateID)).
		Order(goqu.C("version").Asc()))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to load events: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{
			ID:          r.ID,
			AggregateID: r.AggregateID,
			EventType:   r.EventType,
			EventData:   jsoniter.RawMessage(r.EventData),
			Version:     r.Version,
			CreatedAt:   r.CreatedAt,
		})
	}

	span.SetAttributes(attribute.Int("event.count", len(entries)))
	return entries, nil
}
