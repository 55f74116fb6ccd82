package history

import "time"

// Stats summarizes a set of history entries for the operations dashboard.
type Stats struct {
	TotalIncidents int            `json:"totalIncidents"`
	BySeverity     map[string]int `json:"bySeverity"`
	ByService      map[string]int `json:"byService"`
	MeanTimeToDiag float64        `json:"meanTimeToDiagnosisSeconds"`
}

// Summarize computes aggregate stats over entries.
func Summarize(entries []*Entry) Stats {
	st := Stats{
		TotalIncidents: len(entries),
		BySeverity:     make(map[string]int),
		ByService:      make(map[string]int),
	}

	var total time.Duration
	var timed int
	for _, e := range entries {
		st.BySeverity[e.Severity]++
		st.ByService[e.Service]++
		if !e.CreatedAt.IsZero() && e.CompletedAt.After(e.CreatedAt) {
			total += e.CompletedAt.Sub(e.CreatedAt)
			timed++
		}
	}
	if timed > 0 {
		st.MeanTimeToDiag = (total / time.Duration(timed)).Seconds()
	}
	return st
}
