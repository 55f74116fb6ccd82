package history

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/linnemanlabs/medic/internal/history")

//go:embed schema.sql
var schema string

// PgStore persists history entries in PostgreSQL.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore applies the schema on the given pool and returns a ready store.
func NewPgStore(ctx context.Context, pool *pgxpool.Pool) (*PgStore, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PgStore{pool: pool}, nil
}

const historyColumns = `incident_id, service, severity, symptom, created_at, completed_at,
	resolution, signals, diagnosis, conversation`

// Save upserts the entry keyed by incident id.
func (s *PgStore) Save(ctx context.Context, e *Entry) error {
	ctx, span := tracer.Start(ctx, "history.Save", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	signalsJSON, err := json.Marshal(e.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	var diagnosisJSON []byte
	if e.Diagnosis != nil {
		diagnosisJSON, err = json.Marshal(e.Diagnosis)
		if err != nil {
			return fmt.Errorf("marshal diagnosis: %w", err)
		}
	}
	conversationJSON, err := json.Marshal(e.Conversation)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	query := `INSERT INTO incident_history (` + historyColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (incident_id) DO UPDATE SET
		service      = EXCLUDED.service,
		severity     = EXCLUDED.severity,
		symptom      = EXCLUDED.symptom,
		completed_at = EXCLUDED.completed_at,
		resolution   = EXCLUDED.resolution,
		signals      = EXCLUDED.signals,
		diagnosis    = EXCLUDED.diagnosis,
		conversation = EXCLUDED.conversation`

	_, err = s.pool.Exec(ctx, query,
		e.IncidentID, e.Service, e.Severity, e.Symptom, e.CreatedAt, e.CompletedAt,
		e.Resolution, signalsJSON, diagnosisJSON, conversationJSON,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert history entry: %w", err)
	}
	return nil
}

// ListRecent returns up to limit entries, most recently completed first.
func (s *PgStore) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return s.list(ctx, "history.ListRecent",
		`SELECT `+historyColumns+` FROM incident_history ORDER BY completed_at DESC LIMIT $1`,
		limit)
}

// ListByService returns up to limit entries for one service, most recent first.
func (s *PgStore) ListByService(ctx context.Context, service string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultServiceLimit
	}
	return s.list(ctx, "history.ListByService",
		`SELECT `+historyColumns+` FROM incident_history
		 WHERE service = $1 ORDER BY completed_at DESC LIMIT $2`,
		service, limit)
}

// Search matches the lowercased query against service, symptom and severity.
func (s *PgStore) Search(ctx context.Context, query string) ([]*Entry, error) {
	pattern := "%" + query + "%"
	return s.list(ctx, "history.Search",
		`SELECT `+historyColumns+` FROM incident_history
		 WHERE service || ' ' || symptom || ' ' || severity ILIKE $1
		 ORDER BY completed_at DESC`,
		pattern)
}

func (s *PgStore) list(ctx context.Context, span string, query string, args ...any) ([]*Entry, error) {
	ctx, sp := tracer.Start(ctx, span, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer sp.End()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		sp.RecordError(err)
		sp.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e                Entry
		signalsJSON      []byte
		diagnosisJSON    []byte
		conversationJSON []byte
	)

	err := row.Scan(&e.IncidentID, &e.Service, &e.Severity, &e.Symptom,
		&e.CreatedAt, &e.CompletedAt, &e.Resolution,
		&signalsJSON, &diagnosisJSON, &conversationJSON)
	if err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}

	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &e.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}
	if len(diagnosisJSON) > 0 {
		if err := json.Unmarshal(diagnosisJSON, &e.Diagnosis); err != nil {
			return nil, fmt.Errorf("unmarshal diagnosis: %w", err)
		}
	}
	if len(conversationJSON) > 0 {
		if err := json.Unmarshal(conversationJSON, &e.Conversation); err != nil {
			return nil, fmt.Errorf("unmarshal conversation: %w", err)
		}
	}
	return &e, nil
}
