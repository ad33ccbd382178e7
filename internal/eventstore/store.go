// Package eventstore persists domain events in an append-only log with
// per-aggregate sequence numbers. All mutual exclusion for a given aggregate
// is delegated to the unique constraint on (aggregate_id, sequence_number);
// the store holds no in-process locks.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAlreadyExists is returned when a forced-first append loses a race
	// for sequence number 1: a concurrent create already won.
	ErrAlreadyExists = errors.New("aggregate already exists")

	// ErrConcurrencyConflict is returned when a non-first append loses a
	// sequence race. Callers decide whether to re-read or fail.
	ErrConcurrencyConflict = errors.New("concurrent append conflict")
)

const uniqueViolation = "23505"

// Event is a persisted domain event. Once stored it is never mutated.
type Event struct {
	ID             uuid.UUID
	Name           string
	Payload        []byte
	AggregateID    uuid.UUID
	AggregateName  string
	SequenceNumber int64
	Timestamp      time.Time
	GlobalPosition int64
}

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Append persists one event, allocating the next sequence number for its
// aggregate inside the insert transaction. When mustBeFirst is set the event
// is forced to sequence 1 regardless of prior history, so a duplicate create
// surfaces as ErrAlreadyExists instead of silently extending the stream.
func (s *Store) Append(ctx context.Context, ev Event, mustBeFirst bool) (*Event, error) {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	err := db.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		seq := int64(1)
		if !mustBeFirst {
			err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM ledger_events WHERE aggregate_id = $1`,
				ev.AggregateID).Scan(&seq)
			if err != nil {
				return fmt.Errorf("allocate sequence number: %w", err)
			}
		}
		ev.SequenceNumber = seq

		err := tx.QueryRow(ctx, `
			INSERT INTO ledger_events (id, name, payload, aggregate_id, aggregate_name, sequence_number, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING global_position
		`, ev.ID, ev.Name, ev.Payload, ev.AggregateID, ev.AggregateName, ev.SequenceNumber, ev.Timestamp).
			Scan(&ev.GlobalPosition)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				if seq == 1 {
					return ErrAlreadyExists
				}
				return fmt.Errorf("%w: aggregate %s sequence %d", ErrConcurrencyConflict, ev.AggregateID, seq)
			}
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// FindByAggregateID returns all events for the given aggregates in
// sequence-number order per aggregate.
func (s *Store) FindByAggregateID(ctx context.Context, ids ...uuid.UUID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, payload, aggregate_id, aggregate_name, sequence_number, occurred_at, global_position
		FROM ledger_events
		WHERE aggregate_id = ANY($1)
		ORDER BY aggregate_id, sequence_number
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("find events by aggregate: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// FindByName returns all events with the given names in global append order.
// Projections replay from this stream.
func (s *Store) FindByName(ctx context.Context, names ...string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, payload, aggregate_id, aggregate_name, sequence_number, occurred_at, global_position
		FROM ledger_events
		WHERE name = ANY($1)
		ORDER BY global_position
	`, names)
	if err != nil {
		return nil, fmt.Errorf("find events by name: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.Payload, &ev.AggregateID,
			&ev.AggregateName, &ev.SequenceNumber, &ev.Timestamp, &ev.GlobalPosition); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
