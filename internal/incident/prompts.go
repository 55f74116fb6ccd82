package incident

import (
	"fmt"
	"sort"
	"strings"
)

// intakeContextTurns bounds how much conversation the intake prompt carries.
// Diagnosis prompts always get the full history.
const intakeContextTurns = 6

// BuildIntakePrompt renders the instruction for an INTAKE turn. Deterministic
// in the incident snapshot and latest user text; timestamps are not rendered.
func BuildIntakePrompt(inc *Incident, userText string) string {
	var b strings.Builder

	b.WriteString("You are an expert incident triage assistant. Your goal is to gather high-signal context about a production incident.\n\n")

	b.WriteString("Current signals collected:\n")
	b.WriteString(formatSignals(inc.Signals))
	b.WriteString("\n\nRecent conversation:\n")
	b.WriteString(formatConversation(tailTurns(inc.Conversation, intakeContextTurns)))

	fmt.Fprintf(&b, "\n\nUser's latest message: %q\n\n", userText)

	b.WriteString(`Your task:
1. Extract any new structured signals from the user's message (` + strings.Join(SignalKeys, ", ") + `)
2. Generate 2-4 high-signal clarifying questions to fill gaps (avoid redundant questions)
3. Provide a short hypothesis if possible

Respond ONLY with valid JSON in this exact format:
{
  "questions": ["question 1", "question 2"],
  "inferredSignals": {
    "service": "value if mentioned",
    "symptom": "value if mentioned"
  },
  "shortHypothesis": "brief hypothesis or empty string"
}

Keep questions focused on: affected services, symptoms, scope, recent changes, and error patterns.`)

	return b.String()
}

// BuildDiagnosisPrompt renders the instruction for the diagnosis step, with
// the full conversation so the model sees everything the operator said.
func BuildDiagnosisPrompt(inc *Incident) string {
	var b strings.Builder

	b.WriteString("You are an expert SRE performing incident diagnosis. Analyze the following incident data and provide structured triage output.\n\n")

	b.WriteString("Collected signals:\n")
	b.WriteString(formatSignals(inc.Signals))
	b.WriteString("\n\nFull conversation context:\n")
	b.WriteString(formatConversation(inc.Conversation))

	b.WriteString(`

Your task:
1. Assess severity (CRITICAL, HIGH, MEDIUM, LOW)
2. Generate 2-4 ranked hypotheses with confidence levels
3. Provide immediate and deeper investigation steps
4. Recommend key metrics to monitor

Respond ONLY with valid JSON in this exact format:
{
  "severity": "HIGH",
  "hypotheses": [
    {
      "description": "Most likely root cause",
      "confidence": "HIGH",
      "reasoning": "Why this is likely"
    }
  ],
  "nextSteps": {
    "immediate": ["Action to take right now", "Another immediate action"],
    "deeper": ["Investigation step 1", "Investigation step 2"]
  },
  "whatToMonitor": ["Metric 1", "Metric 2", "Metric 3"]
}

Be specific and actionable. Focus on practical steps the engineer can take immediately.`)

	return b.String()
}

func formatSignals(s Signals) string {
	if len(s) == 0 {
		return "No signals collected yet"
	}

	// sorted for prompt determinism
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, s[k]))
	}
	return strings.Join(lines, "\n")
}

func formatConversation(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, strings.ToUpper(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n\n")
}

func tailTurns(turns []Turn, n int) []Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
