package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/medic/internal/incident"
	"github.com/linnemanlabs/medic/internal/incident/pgstore"
	"github.com/linnemanlabs/medic/internal/postgres"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("MEDIC_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("MEDIC_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	inc := incident.New("test-put-get-001", now)
	inc.Signals = incident.Signals{
		incident.SignalService: "payments",
		incident.SignalSymptom: "500s",
	}
	inc.OpenQuestions = []string{"which region?"}
	inc.Conversation = append(inc.Conversation, incident.Turn{
		Role: incident.RoleUser, Content: "payments is down", Timestamp: now,
	})

	if err := s.Put(ctx, inc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, inc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}
	if got.Stage != incident.StageIntake {
		t.Errorf("Stage = %q, want INTAKE", got.Stage)
	}
	if got.Signals[incident.SignalService] != "payments" {
		t.Errorf("Signals = %v", got.Signals)
	}
	if len(got.Conversation) != 2 {
		t.Errorf("Conversation = %d turns, want 2", len(got.Conversation))
	}
	if len(got.OpenQuestions) != 1 {
		t.Errorf("OpenQuestions = %v", got.OpenQuestions)
	}
	if got.Diagnosis != nil {
		t.Errorf("Diagnosis = %+v, want nil", got.Diagnosis)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "no-such-incident")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for missing incident")
	}
}

func TestPutUpsertsDiagnosis(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	inc := incident.New("test-upsert-001", now)
	if err := s.Put(ctx, inc); err != nil {
		t.Fatalf("initial Put: %v", err)
	}

	inc.Stage = incident.StageRecommend
	inc.OpenQuestions = nil
	inc.Diagnosis = &incident.Diagnosis{
		Severity: incident.SeverityHigh,
		Hypotheses: []incident.Hypothesis{{
			Description: "bad deploy",
			Confidence:  incident.ConfidenceHigh,
			Reasoning:   "timing lines up",
		}},
		NextSteps: incident.NextSteps{
			Immediate: []string{"roll back"},
			Deeper:    []string{"audit the pipeline"},
		},
		WhatToMonitor: []string{"error rate"},
	}
	inc.UpdatedAt = now.Add(time.Minute)

	if err := s.Put(ctx, inc); err != nil {
		t.Fatalf("upsert Put: %v", err)
	}

	got, ok, err := s.Get(ctx, inc.ID)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Stage != incident.StageRecommend {
		t.Errorf("Stage = %q, want RECOMMEND", got.Stage)
	}
	if got.Diagnosis == nil || got.Diagnosis.Severity != incident.SeverityHigh {
		t.Fatalf("Diagnosis = %+v", got.Diagnosis)
	}
	if got.Diagnosis.Hypotheses[0].Description != "bad deploy" {
		t.Errorf("Hypothesis = %+v", got.Diagnosis.Hypotheses[0])
	}
	if len(got.OpenQuestions) != 0 {
		t.Errorf("OpenQuestions = %v, want cleared", got.OpenQuestions)
	}
}
