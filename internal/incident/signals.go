package incident

// Signals maps evidence keys to the values extracted from conversation.
// Only keys from the fixed vocabulary below are ever stored.
type Signals map[string]string

// The fixed evidence vocabulary. Values are free-form strings except where
// the prompt constrains them (scope, recentDeploy, trafficSpike, environment).
const (
	SignalService      = "service"
	SignalSymptom      = "symptom"
	SignalScope        = "scope"
	SignalRecentDeploy = "recentDeploy"
	SignalTrafficSpike = "trafficSpike"
	SignalPrimaryError = "primaryError"
	SignalDependencies = "dependencies"
	SignalEnvironment  = "environment"
)

// SignalKeys lists the vocabulary in its canonical order, for prompts and docs.
var SignalKeys = []string{
	SignalService,
	SignalSymptom,
	SignalScope,
	SignalRecentDeploy,
	SignalTrafficSpike,
	SignalPrimaryError,
	SignalDependencies,
	SignalEnvironment,
}

var knownSignal = func() map[string]struct{} {
	m := make(map[string]struct{}, len(SignalKeys))
	for _, k := range SignalKeys {
		m[k] = struct{}{}
	}
	return m
}()

// KnownSignalKey reports whether k belongs to the fixed vocabulary.
func KnownSignalKey(k string) bool {
	_, ok := knownSignal[k]
	return ok
}

// MergeSignals folds inferred values into existing and returns the merged
// set. Last write wins per key; empty values and unknown keys are dropped
// silently; existing keys are never removed. Merging the same inferred set
// twice yields the same result as merging it once.
func MergeSignals(existing, inferred Signals) Signals {
	merged := make(Signals, len(existing)+len(inferred))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range inferred {
		if v == "" || !KnownSignalKey(k) {
			continue
		}
		merged[k] = v
	}
	return merged
}

// HasMinimum reports whether the two signals required before a diagnosis
// makes sense (service and symptom) are both present.
func (s Signals) HasMinimum() bool {
	return s[SignalService] != "" && s[SignalSymptom] != ""
}
