package incident

import (
	"fmt"
	"strings"
	"time"
)

// Stage tracks where an incident is in the triage workflow. Transitions are
// strictly linear: INTAKE -> DIAGNOSE -> RECOMMEND, with no regression edges.
type Stage string

const (
	// StageIntake means the assistant is still gathering signals.
	StageIntake Stage = "INTAKE"

	// StageDiagnose means enough context exists and a diagnosis is being produced.
	StageDiagnose Stage = "DIAGNOSE"

	// StageRecommend means a diagnosis has been delivered. Terminal.
	StageRecommend Stage = "RECOMMEND"
)

// Order gives stages a total order so callers can assert monotonic progress.
func (s Stage) Order() int {
	switch s {
	case StageIntake:
		return 0
	case StageDiagnose:
		return 1
	case StageRecommend:
		return 2
	}
	return -1
}

// Severity classifies the overall impact of an incident.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Confidence grades how strongly a hypothesis is supported.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Valid reports whether c is one of the known confidence levels.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message in the incident conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"ts"`
}

// Hypothesis is one candidate root cause with its supporting reasoning.
type Hypothesis struct {
	Description string     `json:"description"`
	Confidence  Confidence `json:"confidence"`
	Reasoning   string     `json:"reasoning"`
}

// NextSteps splits recommended actions into what to do right now and what
// to dig into afterwards.
type NextSteps struct {
	Immediate []string `json:"immediate"`
	Deeper    []string `json:"deeper"`
}

// Diagnosis is the final structured triage output, produced at most once per
// incident, exactly when the incident enters RECOMMEND.
type Diagnosis struct {
	Severity      Severity     `json:"severity"`
	Hypotheses    []Hypothesis `json:"hypotheses"`
	NextSteps     NextSteps    `json:"nextSteps"`
	WhatToMonitor []string     `json:"whatToMonitor"`
}

// Report renders the diagnosis as the markdown block shown to the operator.
func (d *Diagnosis) Report() string {
	var b strings.Builder

	b.WriteString("## Incident Diagnosis\n\n")
	fmt.Fprintf(&b, "**Severity**: %s\n\n", d.Severity)

	b.WriteString("### Likely Root Causes:\n")
	for i, h := range d.Hypotheses {
		fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, h.Confidence, h.Description)
		fmt.Fprintf(&b, "   _%s_\n\n", h.Reasoning)
	}

	b.WriteString("### Immediate Actions:\n")
	for i, step := range d.NextSteps.Immediate {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	b.WriteString("\n### Deeper Investigation:\n")
	for i, step := range d.NextSteps.Deeper {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	b.WriteString("\n### Monitor These Metrics:\n")
	for _, metric := range d.WhatToMonitor {
		fmt.Fprintf(&b, "- %s\n", metric)
	}

	return b.String()
}

// Incident is the aggregate root for one triage conversation.
type Incident struct {
	ID            string     `json:"incidentId"`
	Stage         Stage      `json:"stage"`
	Signals       Signals    `json:"signals"`
	Conversation  []Turn     `json:"conversation"`
	OpenQuestions []string   `json:"openQuestions"`
	Diagnosis     *Diagnosis `json:"diagnosis,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Greeting is the seeded assistant message on every new incident.
const Greeting = "I'm your incident triage assistant. I'll help you quickly assess " +
	"and diagnose this incident. Let's start by understanding what's happening. " +
	"Can you describe the issue you're seeing?"

// New creates an incident in INTAKE with the greeting already in the
// conversation.
func New(id string, now time.Time) *Incident {
	return &Incident{
		ID:      id,
		Stage:   StageIntake,
		Signals: Signals{},
		Conversation: []Turn{
			{Role: RoleAssistant, Content: Greeting, Timestamp: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UserTurns counts how many messages the operator has sent so far.
func (inc *Incident) UserTurns() int {
	n := 0
	for _, t := range inc.Conversation {
		if t.Role == RoleUser {
			n++
		}
	}
	return n
}

// Clone returns a deep copy, so stores can hand out snapshots without
// sharing mutable slices or maps with the engine.
func (inc *Incident) Clone() *Incident {
	cp := *inc
	cp.Signals = make(Signals, len(inc.Signals))
	for k, v := range inc.Signals {
		cp.Signals[k] = v
	}
	cp.Conversation = append([]Turn(nil), inc.Conversation...)
	cp.OpenQuestions = append([]string(nil), inc.OpenQuestions...)
	if inc.Diagnosis != nil {
		d := *inc.Diagnosis
		d.Hypotheses = append([]Hypothesis(nil), inc.Diagnosis.Hypotheses...)
		d.NextSteps.Immediate = append([]string(nil), inc.Diagnosis.NextSteps.Immediate...)
		d.NextSteps.Deeper = append([]string(nil), inc.Diagnosis.NextSteps.Deeper...)
		d.WhatToMonitor = append([]string(nil), inc.Diagnosis.WhatToMonitor...)
		cp.Diagnosis = &d
	}
	return &cp
}
