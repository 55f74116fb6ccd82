package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/medic/internal/incident"
)

func diagnosedIncident(severity incident.Severity) *incident.Incident {
	inc := incident.New("01JN123", time.Date(2026, 2, 26, 14, 0, 0, 0, time.UTC))
	inc.UpdatedAt = time.Date(2026, 2, 26, 14, 23, 0, 0, time.UTC)
	inc.Stage = incident.StageRecommend
	inc.Signals = incident.Signals{
		incident.SignalService: "payments",
		incident.SignalSymptom: "checkout 500s",
	}
	inc.Diagnosis = &incident.Diagnosis{
		Severity: severity,
		Hypotheses: []incident.Hypothesis{
			{Description: "connection pool exhausted", Confidence: incident.ConfidenceHigh, Reasoning: "timeouts line up with pool saturation"},
		},
	}
	return inc
}

func TestNotifyIncident_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	if err := n.NotifyIncident(context.Background(), diagnosedIncident(incident.SeverityCritical)); err != nil {
		t.Fatalf("NotifyIncident: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, hypothesis, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "CRITICAL") {
		t.Errorf("header text = %q, want to contain CRITICAL", headerText)
	}
	if !strings.Contains(headerText, "\U0001f534") {
		t.Errorf("header should contain red circle for critical severity")
	}

	hypothesis := blocks[4].(map[string]any)
	text := hypothesis["text"].(map[string]any)["text"].(string)
	if !strings.Contains(text, "connection pool exhausted") {
		t.Errorf("hypothesis text = %q, want top hypothesis", text)
	}
}

func TestNotifyIncident_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.NotifyIncident(context.Background(), diagnosedIncident(incident.SeverityHigh)); err != nil {
		t.Fatalf("NotifyIncident with empty URL should be no-op, got: %v", err)
	}
}

func TestNotifyIncident_RequiresDiagnosis(t *testing.T) {
	t.Parallel()

	n := New("http://localhost:1")
	inc := incident.New("01JN456", time.Now())
	if err := n.NotifyIncident(context.Background(), inc); err == nil {
		t.Fatal("expected error for incident without diagnosis")
	}
}

func TestNotifyIncident_TruncatesLongHypothesis(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inc := diagnosedIncident(incident.SeverityHigh)
	inc.Diagnosis.Hypotheses[0].Reasoning = strings.Repeat("x", 4000)

	n := New(srv.URL)
	if err := n.NotifyIncident(context.Background(), inc); err != nil {
		t.Fatalf("NotifyIncident: %v", err)
	}

	blocks := got["blocks"].([]any)
	section := blocks[4].(map[string]any)
	text := section["text"].(map[string]any)["text"].(string)

	if len(text) > maxHypothesisLen+len("*Likely Root Cause*\n\n") {
		t.Errorf("hypothesis text length = %d, expected <= %d", len(text), maxHypothesisLen+len("*Likely Root Cause*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated hypothesis to end with ...")
	}
}

func TestNotifyIncident_UnknownSignalsDefault(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	inc := diagnosedIncident(incident.SeverityHigh)
	inc.Signals = incident.Signals{}

	n := New(srv.URL)
	if err := n.NotifyIncident(context.Background(), inc); err != nil {
		t.Fatalf("NotifyIncident: %v", err)
	}

	fields := got["blocks"].([]any)[2].(map[string]any)["fields"].([]any)
	serviceField := fields[0].(map[string]any)["text"].(string)
	if !strings.Contains(serviceField, "unknown") {
		t.Errorf("service field = %q, want unknown placeholder", serviceField)
	}
}

func TestSeverityEmoji(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		severity incident.Severity
		want     string
	}{
		{"critical", incident.SeverityCritical, "\U0001f534"},
		{"high", incident.SeverityHigh, "\U0001f7e0"},
		{"medium", incident.SeverityMedium, "\U0001f7e1"},
		{"low", incident.SeverityLow, "\U0001f7e2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := severityEmoji(tt.severity); got != tt.want {
				t.Errorf("severityEmoji(%q) = %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func FuzzSlackBuild(f *testing.F) {
	f.Add("payments", "checkout 500s", "pool exhausted", "timeouts line up")
	f.Add("", "", "", "")
	f.Add("<@U123> mention", "*bold* _italic_", "~strike~", "```code```")
	f.Add("svc\x00\x01", "sym\nline", "desc\ttab", strings.Repeat("x", 10000))

	f.Fuzz(func(t *testing.T, service, symptom, description, reasoning string) {
		inc := incident.New("fuzz-id", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
		inc.Signals = incident.Signals{
			incident.SignalService: service,
			incident.SignalSymptom: symptom,
		}
		inc.Diagnosis = &incident.Diagnosis{
			Severity: incident.SeverityHigh,
			Hypotheses: []incident.Hypothesis{
				{Description: description, Confidence: incident.ConfidenceLow, Reasoning: reasoning},
			},
		}

		// Must not panic
		msg := buildMessage(inc)

		// Must produce valid JSON
		data, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("buildMessage produced non-marshalable output: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("buildMessage JSON does not round-trip: %v", err)
		}

		blocks, ok := decoded["blocks"].([]any)
		if !ok {
			t.Fatal("expected blocks array")
		}
		if len(blocks) != 7 {
			t.Fatalf("blocks count = %d, want 7", len(blocks))
		}
	})
}

func TestNotifyIncident_NonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.NotifyIncident(context.Background(), diagnosedIncident(incident.SeverityHigh))
	if err == nil {
		t.Fatal("expected error on non-OK status")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error = %q, want to contain status code 500", err.Error())
	}
}
