package incident

import (
	"reflect"
	"testing"
)

func TestParseIntake_ValidPayload(t *testing.T) {
	t.Parallel()

	raw := `Here is my analysis:
{
  "questions": ["Which region?", "When did it start?"],
  "inferredSignals": {"service": "payments", "recentDeploy": "yes"},
  "shortHypothesis": "likely a bad deploy"
}
Hope that helps.`

	p, reason := ParseIntake(raw)
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if len(p.Questions) != 2 {
		t.Errorf("questions = %d, want 2", len(p.Questions))
	}
	if p.InferredSignals["service"] != "payments" {
		t.Errorf("service = %q, want payments", p.InferredSignals["service"])
	}
	if p.ShortHypothesis != "likely a bad deploy" {
		t.Errorf("hypothesis = %q", p.ShortHypothesis)
	}
}

func TestParseIntake_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"no json at all", "I cannot answer in the requested format."},
		{"unbalanced block", `{"questions": ["q1"`},
		{"shape mismatch", `{"questions": "not-an-array"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, reason := ParseIntake(tt.raw)
			if reason == "" {
				t.Fatal("expected a fallback reason")
			}
			if len(p.Questions) != 1 {
				t.Fatalf("fallback questions = %d, want 1", len(p.Questions))
			}
			if len(p.InferredSignals) != 0 {
				t.Errorf("fallback signals = %v, want empty", p.InferredSignals)
			}
			if p.ShortHypothesis != "" {
				t.Errorf("fallback hypothesis = %q, want empty", p.ShortHypothesis)
			}
		})
	}
}

func TestParseDiagnosis_ValidPayload(t *testing.T) {
	t.Parallel()

	raw := `{
  "severity": "high",
  "hypotheses": [
    {"description": "connection pool exhaustion", "confidence": "high", "reasoning": "timeouts correlate with traffic"}
  ],
  "nextSteps": {"immediate": ["scale the pool"], "deeper": ["audit slow queries"]},
  "whatToMonitor": ["pool saturation"]
}`

	d, reason := ParseDiagnosis(raw, DefaultFallbackSeverity)
	if reason != "" {
		t.Fatalf("reason = %q, want empty", reason)
	}
	if d.Severity != SeverityHigh {
		t.Errorf("severity = %q, want HIGH (case normalized)", d.Severity)
	}
	if d.Hypotheses[0].Confidence != ConfidenceHigh {
		t.Errorf("confidence = %q, want HIGH (case normalized)", d.Hypotheses[0].Confidence)
	}
	if d.NextSteps.Immediate[0] != "scale the pool" {
		t.Errorf("immediate = %v", d.NextSteps.Immediate)
	}
}

func TestParseDiagnosis_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "sorry, I had trouble with that"},
		{"invalid severity", `{"severity":"URGENT","hypotheses":[{"description":"x","confidence":"LOW","reasoning":"y"}]}`},
		{"no hypotheses", `{"severity":"HIGH","hypotheses":[]}`},
		{"invalid confidence", `{"severity":"HIGH","hypotheses":[{"description":"x","confidence":"MAYBE","reasoning":"y"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d, reason := ParseDiagnosis(tt.raw, DefaultFallbackSeverity)
			if reason == "" {
				t.Fatal("expected a fallback reason")
			}
			if d.Severity != SeverityMedium {
				t.Errorf("fallback severity = %q, want MEDIUM", d.Severity)
			}
			if len(d.Hypotheses) != 1 {
				t.Fatalf("fallback hypotheses = %d, want 1", len(d.Hypotheses))
			}
			if d.Hypotheses[0].Confidence != ConfidenceLow {
				t.Errorf("fallback confidence = %q, want LOW", d.Hypotheses[0].Confidence)
			}
			if len(d.NextSteps.Immediate) != 1 || len(d.NextSteps.Deeper) != 1 {
				t.Errorf("fallback next steps = %+v", d.NextSteps)
			}
			if len(d.WhatToMonitor) != 3 {
				t.Errorf("fallback monitor = %d entries, want 3", len(d.WhatToMonitor))
			}
		})
	}
}

func TestParseDiagnosis_ConfigurableFallbackSeverity(t *testing.T) {
	t.Parallel()

	d, reason := ParseDiagnosis("garbage", SeverityLow)
	if reason == "" {
		t.Fatal("expected a fallback reason")
	}
	if d.Severity != SeverityLow {
		t.Errorf("severity = %q, want LOW", d.Severity)
	}

	// an invalid override falls back to the default
	d, _ = ParseDiagnosis("garbage", Severity("BOGUS"))
	if d.Severity != DefaultFallbackSeverity {
		t.Errorf("severity = %q, want %q", d.Severity, DefaultFallbackSeverity)
	}
}

func TestExtractJSONBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"embedded in prose", `sure: {"a":1} done`, `{"a":1}`, true},
		{"nested objects", `{"a":{"b":{"c":1}}}`, `{"a":{"b":{"c":1}}}`, true},
		{"braces inside strings", `{"a":"}{","b":2}`, `{"a":"}{","b":2}`, true},
		{"escaped quotes", `{"a":"say \"}\" loudly"}`, `{"a":"say \"}\" loudly"}`, true},
		{"first of two blocks", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"no block", "nothing here", "", false},
		{"never closed", `{"a":1`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := extractJSONBlock(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("block = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDiagnosisFallback_Shape(t *testing.T) {
	t.Parallel()

	want := Diagnosis{
		Severity: SeverityMedium,
		Hypotheses: []Hypothesis{{
			Description: "Unable to determine root cause",
			Confidence:  ConfidenceLow,
			Reasoning:   "Insufficient information provided",
		}},
		NextSteps: NextSteps{
			Immediate: []string{"Gather more information about the incident"},
			Deeper:    []string{"Review recent changes and logs"},
		},
		WhatToMonitor: []string{"Error rates", "Response times", "Traffic patterns"},
	}

	if got := diagnosisFallback(SeverityMedium); !reflect.DeepEqual(got, want) {
		t.Errorf("fallback = %+v, want %+v", got, want)
	}
}
