package vector

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/linnemanlabs/medic/internal/vector")

//go:embed schema.sql
var schema string

// PgIndex persists embeddings in PostgreSQL. Similarity is computed in
// process over all stored rows; only diagnosed incidents are indexed, so the
// scan stays small.
type PgIndex struct {
	pool *pgxpool.Pool
}

// NewPgIndex applies the schema on the given pool and returns a ready index.
func NewPgIndex(ctx context.Context, pool *pgxpool.Pool) (*PgIndex, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PgIndex{pool: pool}, nil
}

// Upsert stores the vector and metadata under id.
func (x *PgIndex) Upsert(ctx context.Context, id string, vec []float32, md Metadata) error {
	ctx, span := tracer.Start(ctx, "vector.Upsert", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}

	_, err = x.pool.Exec(ctx,
		`INSERT INTO incident_vectors (id, embedding, service, severity, symptom, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (id) DO UPDATE SET
			embedding  = EXCLUDED.embedding,
			service    = EXCLUDED.service,
			severity   = EXCLUDED.severity,
			symptom    = EXCLUDED.symptom,
			created_at = EXCLUDED.created_at`,
		id, vecJSON, md.Service, md.Severity, md.Symptom, md.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// Query loads all rows and returns the topK by cosine similarity, best first.
func (x *PgIndex) Query(ctx context.Context, vec []float32, topK int) ([]Match, error) {
	ctx, span := tracer.Start(ctx, "vector.Query", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := x.pool.Query(ctx,
		`SELECT id, embedding, service, severity, symptom, created_at FROM incident_vectors`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id      string
			vecJSON []byte
			md      Metadata
		)
		if err := rows.Scan(&id, &vecJSON, &md.Service, &md.Severity, &md.Symptom, &md.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		var stored []float32
		if err := json.Unmarshal(vecJSON, &stored); err != nil {
			return nil, fmt.Errorf("unmarshal vector %s: %w", id, err)
		}
		matches = append(matches, Match{ID: id, Score: cosine(vec, stored), Metadata: md})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}
