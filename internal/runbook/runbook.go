// Package runbook holds the builtin incident templates and the heuristic
// that matches collected signals to one of them.
package runbook

import (
	"strings"

	"github.com/linnemanlabs/medic/internal/incident"
)

// Template describes a known incident class with the questions worth asking
// and the causes worth ruling out first.
type Template struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	SuggestedQuestions []string `json:"suggestedQuestions"`
	CommonCauses       []string `json:"commonCauses"`
	RunbookURL         string   `json:"runbookUrl"`
}

var builtin = []Template{
	{
		ID:          "database-timeout",
		Name:        "Database Connection Timeout",
		Description: "Issues related to database connectivity and timeouts",
		SuggestedQuestions: []string{
			"What is the database CPU and memory usage?",
			"Have there been recent schema changes or migrations?",
			"Are connection pools properly configured?",
			"Is this affecting all database queries or specific ones?",
		},
		CommonCauses: []string{
			"Connection pool exhaustion",
			"Slow queries causing locks",
			"Database server resource constraints",
			"Network connectivity issues",
		},
		RunbookURL: "https://runbooks.example.com/database-timeout",
	},
	{
		ID:          "deployment-failure",
		Name:        "Post-Deployment Issues",
		Description: "Problems occurring after a recent deployment",
		SuggestedQuestions: []string{
			"What changed in this deployment?",
			"Was there a previous deployment that worked?",
			"Are error rates elevated compared to before deployment?",
			"Can the deployment be rolled back quickly?",
		},
		CommonCauses: []string{
			"Configuration errors",
			"Incompatible dependencies",
			"Database migration issues",
			"Breaking API changes",
		},
		RunbookURL: "https://runbooks.example.com/deployment-rollback",
	},
	{
		ID:          "api-degradation",
		Name:        "API Performance Degradation",
		Description: "Slow response times or timeouts in API services",
		SuggestedQuestions: []string{
			"What is the P99 latency?",
			"Are there specific endpoints that are slow?",
			"Is there elevated traffic or unusual patterns?",
			"Are downstream dependencies responding slowly?",
		},
		CommonCauses: []string{
			"N+1 query problems",
			"Inefficient algorithms",
			"Third-party API slowness",
			"Resource contention",
		},
		RunbookURL: "https://runbooks.example.com/api-performance",
	},
	{
		ID:          "authentication-failure",
		Name:        "Authentication/Authorization Failures",
		Description: "Users unable to log in or access resources",
		SuggestedQuestions: []string{
			"Are all users affected or specific user segments?",
			"What authentication errors are being logged?",
			"Have there been changes to identity provider configuration?",
			"Are tokens expiring unexpectedly?",
		},
		CommonCauses: []string{
			"Token/session expiration issues",
			"Identity provider outage",
			"Certificate expiration",
			"Misconfigured permissions",
		},
		RunbookURL: "https://runbooks.example.com/auth-issues",
	},
}

// All returns the builtin templates. Callers must not mutate the result.
func All() []Template {
	return builtin
}

// Get returns the template with the given id.
func Get(id string) (Template, bool) {
	for _, t := range builtin {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Match picks the template most likely to apply to the collected signals.
// Rules are checked in order of specificity, database issues before the
// generic latency bucket since "timeout" appears in both.
func Match(signals incident.Signals) (Template, bool) {
	symptom := strings.ToLower(signals[incident.SignalSymptom])
	primaryErr := strings.ToLower(signals[incident.SignalPrimaryError])

	switch {
	case strings.Contains(symptom, "database") ||
		strings.Contains(symptom, "timeout") ||
		strings.Contains(primaryErr, "connection"):
		return Get("database-timeout")

	case signals[incident.SignalRecentDeploy] == "yes" ||
		strings.Contains(symptom, "deploy"):
		return Get("deployment-failure")

	case strings.Contains(symptom, "slow") ||
		strings.Contains(symptom, "latency"):
		return Get("api-degradation")

	case strings.Contains(symptom, "auth") ||
		strings.Contains(symptom, "login") ||
		strings.Contains(symptom, "permission"):
		return Get("authentication-failure")
	}
	return Template{}, false
}

// SuggestQuestions returns the matched template's questions, or nil when no
// template applies.
func SuggestQuestions(signals incident.Signals) []string {
	t, ok := Match(signals)
	if !ok {
		return nil
	}
	return t.SuggestedQuestions
}
