// Package report renders completed incidents as markdown documents and
// persists them for later export.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/medic/internal/incident"
)

// Render produces the full markdown report for a diagnosed incident.
// It returns an error when the incident has no diagnosis yet.
func Render(inc *incident.Incident) (string, error) {
	if inc.Diagnosis == nil {
		return "", fmt.Errorf("incident %s has no diagnosis", inc.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Incident Report: %s\n\n", inc.ID)
	fmt.Fprintf(&b, "**Created**: %s\n", inc.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Stage**: %s\n\n", inc.Stage)

	b.WriteString("## Collected Signals\n\n")
	keys := make([]string, 0, len(inc.Signals))
	for k := range inc.Signals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- **%s**: %s\n", k, inc.Signals[k])
	}

	b.WriteString("\n")
	b.WriteString(inc.Diagnosis.Report())

	b.WriteString("\n## Conversation Transcript\n\n")
	for _, t := range inc.Conversation {
		fmt.Fprintf(&b, "**%s** (%s):\n%s\n\n",
			t.Role, t.Timestamp.UTC().Format(time.RFC3339), t.Content)
	}

	return b.String(), nil
}
