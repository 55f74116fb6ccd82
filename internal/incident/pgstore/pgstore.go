// Package pgstore provides a PostgreSQL implementation of incident.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/medic/internal/incident"
)

var tracer = otel.Tracer("github.com/linnemanlabs/medic/internal/incident/pgstore")

//go:embed schema.sql
var schema string

// Store persists incidents in PostgreSQL. The whole aggregate is written per
// Put; signals, conversation, open questions and diagnosis ride in JSONB so
// older rows missing newer fields read back cleanly.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Get retrieves an incident by ID.
func (s *Store) Get(ctx context.Context, id string) (*incident.Incident, bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Get", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	row := s.pool.QueryRow(ctx,
		`SELECT id, stage, signals, conversation, open_questions, diagnosis, created_at, updated_at
		 FROM incidents WHERE id = $1`, id)

	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	return inc, true, nil
}

// Put upserts the incident row.
func (s *Store) Put(ctx context.Context, inc *incident.Incident) error {
	ctx, span := tracer.Start(ctx, "pgstore.Put", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	signalsJSON, err := json.Marshal(inc.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	conversationJSON, err := json.Marshal(inc.Conversation)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	questionsJSON, err := json.Marshal(inc.OpenQuestions)
	if err != nil {
		return fmt.Errorf("marshal open questions: %w", err)
	}
	var diagnosisJSON []byte
	if inc.Diagnosis != nil {
		diagnosisJSON, err = json.Marshal(inc.Diagnosis)
		if err != nil {
			return fmt.Errorf("marshal diagnosis: %w", err)
		}
	}

	query := `INSERT INTO incidents (
		id, stage, signals, conversation, open_questions, diagnosis, created_at, updated_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (id) DO UPDATE SET
		stage          = EXCLUDED.stage,
		signals        = EXCLUDED.signals,
		conversation   = EXCLUDED.conversation,
		open_questions = EXCLUDED.open_questions,
		diagnosis      = EXCLUDED.diagnosis,
		updated_at     = EXCLUDED.updated_at`

	_, err = s.pool.Exec(ctx, query,
		inc.ID, string(inc.Stage), signalsJSON, conversationJSON, questionsJSON,
		diagnosisJSON, inc.CreatedAt, inc.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert incident: %w", err)
	}
	return nil
}

// scanIncident scans one row into an Incident. Null JSONB columns decode to
// their zero values so rows written by older builds still load.
func scanIncident(row pgx.Row) (*incident.Incident, error) {
	var (
		inc              incident.Incident
		stage            string
		signalsJSON      []byte
		conversationJSON []byte
		questionsJSON    []byte
		diagnosisJSON    []byte
	)

	err := row.Scan(&inc.ID, &stage, &signalsJSON, &conversationJSON, &questionsJSON,
		&diagnosisJSON, &inc.CreatedAt, &inc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	inc.Stage = incident.Stage(stage)
	if len(signalsJSON) > 0 {
		if err := json.Unmarshal(signalsJSON, &inc.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}
	if inc.Signals == nil {
		inc.Signals = incident.Signals{}
	}
	if len(conversationJSON) > 0 {
		if err := json.Unmarshal(conversationJSON, &inc.Conversation); err != nil {
			return nil, fmt.Errorf("unmarshal conversation: %w", err)
		}
	}
	if len(questionsJSON) > 0 {
		if err := json.Unmarshal(questionsJSON, &inc.OpenQuestions); err != nil {
			return nil, fmt.Errorf("unmarshal open questions: %w", err)
		}
	}
	if len(diagnosisJSON) > 0 {
		if err := json.Unmarshal(diagnosisJSON, &inc.Diagnosis); err != nil {
			return nil, fmt.Errorf("unmarshal diagnosis: %w", err)
		}
	}
	return &inc, nil
}
