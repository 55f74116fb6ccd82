package incident

// Policy decides, after each intake turn, whether the incident has enough
// context to move to diagnosis. Deliberately permissive: any one trigger is
// enough, trading diagnostic completeness for bounded conversation length.
type Policy struct {
	// MinSignalKeys forces diagnosis once this many distinct signals exist.
	MinSignalKeys int

	// MaxUserTurns forces diagnosis once the operator has sent this many
	// messages, whatever the signal coverage looks like.
	MaxUserTurns int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{MinSignalKeys: 4, MaxUserTurns: 3}
}

// ShouldDiagnose evaluates the transition from INTAKE to DIAGNOSE. Advances
// when any of:
//  1. the minimum signals (service + symptom) are present and this turn
//     produced no clarifying questions,
//  2. signal coverage reached MinSignalKeys distinct keys,
//  3. the operator has sent MaxUserTurns or more messages.
//
// Triggers 2 and 3 can fire while clarifying questions are still pending,
// which discards those questions.
// TODO: product review whether pending questions should veto triggers 2/3.
func (p Policy) ShouldDiagnose(signals Signals, openQuestions, userTurns int) bool {
	if signals.HasMinimum() && openQuestions == 0 {
		return true
	}
	if len(signals) >= p.MinSignalKeys {
		return true
	}
	return userTurns >= p.MaxUserTurns
}
