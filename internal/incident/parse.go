package incident

import (
	"encoding/json"
	"strings"
)

// IntakePayload is the structured shape expected from an intake turn.
type IntakePayload struct {
	Questions       []string          `json:"questions"`
	InferredSignals map[string]string `json:"inferredSignals"`
	ShortHypothesis string            `json:"shortHypothesis"`
}

// DefaultFallbackSeverity is substituted when a diagnosis cannot be decoded.
// It is deliberately a constructor-time knob, not policy: MEDIUM keeps the
// assistant from crying wolf while still prompting a human look.
const DefaultFallbackSeverity = SeverityMedium

// ParseIntake extracts the intake payload from raw model text. The returned
// reason is empty when the payload came from the model; otherwise it names
// why the fixed fallback was substituted, and callers must treat the payload
// as a guess (log it, count it) rather than validated model output.
func ParseIntake(raw string) (IntakePayload, string) {
	block, ok := extractJSONBlock(raw)
	if !ok {
		return intakeFallback(), "no json block"
	}

	var p IntakePayload
	if err := json.Unmarshal([]byte(block), &p); err != nil {
		return intakeFallback(), "decode: " + err.Error()
	}
	return p, ""
}

// ParseDiagnosis extracts a diagnosis from raw model text. Same tagged-result
// contract as ParseIntake: a non-empty reason means the conservative fallback
// (built around fallbackSeverity) was substituted.
func ParseDiagnosis(raw string, fallbackSeverity Severity) (Diagnosis, string) {
	block, ok := extractJSONBlock(raw)
	if !ok {
		return diagnosisFallback(fallbackSeverity), "no json block"
	}

	var d Diagnosis
	if err := json.Unmarshal([]byte(block), &d); err != nil {
		return diagnosisFallback(fallbackSeverity), "decode: " + err.Error()
	}

	d.Severity = Severity(strings.ToUpper(string(d.Severity)))
	if !d.Severity.Valid() {
		return diagnosisFallback(fallbackSeverity), "invalid severity"
	}
	if len(d.Hypotheses) == 0 {
		return diagnosisFallback(fallbackSeverity), "no hypotheses"
	}
	for i := range d.Hypotheses {
		d.Hypotheses[i].Confidence = Confidence(strings.ToUpper(string(d.Hypotheses[i].Confidence)))
		if !d.Hypotheses[i].Confidence.Valid() {
			return diagnosisFallback(fallbackSeverity), "invalid confidence"
		}
	}
	return d, ""
}

func intakeFallback() IntakePayload {
	return IntakePayload{
		Questions:       []string{"Could you provide more details about the issue?"},
		InferredSignals: map[string]string{},
		ShortHypothesis: "",
	}
}

func diagnosisFallback(severity Severity) Diagnosis {
	if !severity.Valid() {
		severity = DefaultFallbackSeverity
	}
	return Diagnosis{
		Severity: severity,
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
}

// extractJSONBlock returns the first balanced {...} block in text. Brace
// counting skips string literals and escapes so payloads containing braces
// inside values are handled.
func extractJSONBlock(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// string bytes are opaque
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
