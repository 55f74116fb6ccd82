package incident

import "testing"

func TestShouldDiagnose(t *testing.T) {
	t.Parallel()

	minimum := Signals{SignalService: "payments", SignalSymptom: "500s"}
	broad := Signals{
		SignalService:      "payments",
		SignalSymptom:      "500s",
		SignalScope:        "all users",
		SignalPrimaryError: "context deadline exceeded",
	}

	tests := []struct {
		name          string
		signals       Signals
		openQuestions int
		userTurns     int
		want          bool
	}{
		{"minimum signals, no questions", minimum, 0, 1, true},
		{"minimum signals, questions pending", minimum, 2, 1, false},
		{"no questions but missing minimum", Signals{SignalService: "payments"}, 0, 1, false},
		{"four signals despite questions", broad, 3, 1, true},
		{"third user turn forces it", Signals{}, 4, 3, true},
		{"second turn, sparse signals", Signals{SignalService: "payments"}, 2, 2, false},
		{"turn count past the limit", Signals{}, 1, 7, true},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := p.ShouldDiagnose(tt.signals, tt.openQuestions, tt.userTurns)
			if got != tt.want {
				t.Errorf("ShouldDiagnose() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldDiagnose_CustomThresholds(t *testing.T) {
	t.Parallel()

	p := Policy{MinSignalKeys: 2, MaxUserTurns: 5}

	two := Signals{SignalService: "api", SignalScope: "one region"}
	if !p.ShouldDiagnose(two, 3, 1) {
		t.Error("two signals should trigger with MinSignalKeys=2")
	}
	if p.ShouldDiagnose(Signals{}, 1, 4) {
		t.Error("four turns must not trigger with MaxUserTurns=5")
	}
}
