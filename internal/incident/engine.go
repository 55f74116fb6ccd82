package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/medic/internal/llm"
)

const (
	// turnTemperature keeps extraction and diagnosis output fairly
	// deterministic while leaving room for phrasing.
	turnTemperature = 0.3

	intakeMaxTokens    = 1024
	diagnosisMaxTokens = 2048
)

// Canned assistant messages. These are conversation content, so changing them
// changes what operators see mid-incident.
const (
	// closingMessage answers any turn after the diagnosis has been delivered.
	closingMessage = "Incident triage complete. You can review the recommendations above."

	// intakeRetryMessage stands in for a clarifying response when the model
	// gateway is unreachable during INTAKE.
	intakeRetryMessage = "Could you provide more details about:\n" +
		"1. What service or component is affected?\n" +
		"2. What symptoms are you observing?\n" +
		"3. Is this affecting all users or a specific region?"

	// turnErrorMessage answers a turn the engine could not complete. The
	// stage holds and the operator can simply retry.
	turnErrorMessage = "I encountered an error processing your message. " +
		"Please try again or rephrase your input."
)

// EngineHooks are optional observation points the engine fires as it works.
// Nil funcs are skipped.
type EngineHooks struct {
	OnLLMCall       func(inputTokens, outputTokens int, duration float64)
	OnParseFallback func(kind, reason string)
	OnGatewayError  func(stage Stage)
	OnTransition    func(from, to Stage)
	OnDiagnosis     func(severity Severity)
	OnTurn          func(stage Stage, duration float64)
}

// TurnResult is what the engine hands back for one processed user turn.
type TurnResult struct {
	Stage         Stage      `json:"stage"`
	Response      string     `json:"response"`
	Signals       Signals    `json:"signals"`
	OpenQuestions []string   `json:"openQuestions"`
	Diagnosis     *Diagnosis `json:"diagnosis,omitempty"`
}

// Engine owns the per-turn workflow for a single incident. It assumes the
// caller serializes turns per incident id; within that contract it needs no
// locking of its own.
type Engine struct {
	provider         llm.Provider
	store            Store
	dispatcher       *Dispatcher
	policy           Policy
	fallbackSeverity Severity
	hooks            EngineHooks
	logger           log.Logger
}

// NewEngine creates a workflow engine with the given collaborators. The
// diagnosis fallback severity defaults to DefaultFallbackSeverity; override
// with SetFallbackSeverity.
func NewEngine(provider llm.Provider, store Store, dispatcher *Dispatcher, policy Policy, hooks EngineHooks, logger log.Logger) *Engine {
	return &Engine{
		provider:         provider,
		store:            store,
		dispatcher:       dispatcher,
		policy:           policy,
		fallbackSeverity: DefaultFallbackSeverity,
		hooks:            hooks,
		logger:           logger,
	}
}

// SetFallbackSeverity overrides the severity used when a diagnosis cannot be
// decoded. Invalid values are ignored.
func (e *Engine) SetFallbackSeverity(s Severity) {
	if s.Valid() {
		e.fallbackSeverity = s
	}
}

// ProcessTurn runs one user message through the state machine, mutating inc
// in place and persisting the result. The returned error is only ever a
// storage failure; gateway and parse trouble degrade into canned assistant
// messages instead.
func (e *Engine) ProcessTurn(ctx context.Context, inc *Incident, userText string) (*TurnResult, error) {
	start := time.Now()
	stage := inc.Stage
	L := e.logger.With("incident_id", inc.ID, "stage", string(stage))

	inc.Conversation = append(inc.Conversation, Turn{
		Role:      RoleUser,
		Content:   userText,
		Timestamp: time.Now(),
	})

	var (
		response string
		err      error
	)
	switch stage {
	case StageIntake:
		response, err = e.intakeTurn(ctx, L, inc, userText)
	case StageDiagnose:
		response = e.diagnoseTurn(ctx, L, inc)
	case StageRecommend:
		response = closingMessage
	default:
		// unreachable unless storage hands back a corrupt record
		return nil, fmt.Errorf("incident %s: unknown stage %q", inc.ID, inc.Stage)
	}
	if err != nil {
		return nil, err
	}

	inc.Conversation = append(inc.Conversation, Turn{
		Role:      RoleAssistant,
		Content:   response,
		Timestamp: time.Now(),
	})
	inc.UpdatedAt = time.Now()

	if err := e.store.Put(ctx, inc); err != nil {
		return nil, fmt.Errorf("persist incident %s: %w", inc.ID, err)
	}

	if e.hooks.OnTurn != nil {
		e.hooks.OnTurn(stage, time.Since(start).Seconds())
	}
	L.Info(ctx, "turn processed",
		"final_stage", string(inc.Stage),
		"signals", len(inc.Signals),
		"open_questions", len(inc.OpenQuestions),
	)

	return &TurnResult{
		Stage:         inc.Stage,
		Response:      response,
		Signals:       inc.Signals,
		OpenQuestions: inc.OpenQuestions,
		Diagnosis:     inc.Diagnosis,
	}, nil
}

// intakeTurn extracts signals and clarifying questions from the latest
// message, then either holds in INTAKE or advances into diagnosis. The only
// error it returns is a storage failure on the transition checkpoint.
func (e *Engine) intakeTurn(ctx context.Context, L log.Logger, inc *Incident, userText string) (string, error) {
	resp, err := e.generate(ctx, BuildIntakePrompt(inc, userText), intakeMaxTokens)
	if err != nil {
		// Gateway failure: hold the stage, leave signals and questions
		// untouched, and ask the operator to elaborate.
		L.Error(ctx, err, "intake gateway call failed")
		if e.hooks.OnGatewayError != nil {
			e.hooks.OnGatewayError(StageIntake)
		}
		return intakeRetryMessage, nil
	}

	payload, reason := ParseIntake(resp.Text)
	if reason != "" {
		L.Warn(ctx, "intake parse fallback", "reason", reason)
		if e.hooks.OnParseFallback != nil {
			e.hooks.OnParseFallback("intake", reason)
		}
	}

	inc.Signals = MergeSignals(inc.Signals, payload.InferredSignals)
	inc.OpenQuestions = payload.Questions

	advance := e.policy.ShouldDiagnose(inc.Signals, len(inc.OpenQuestions), inc.UserTurns())
	if !advance && len(inc.OpenQuestions) == 0 {
		// Nothing left to ask; holding in INTAKE would stall the
		// conversation with no way forward.
		advance = true
	}

	if advance {
		inc.Stage = StageDiagnose
		inc.OpenQuestions = nil
		if e.hooks.OnTransition != nil {
			e.hooks.OnTransition(StageIntake, StageDiagnose)
		}
		// Checkpoint so a crash during diagnosis resumes from DIAGNOSE
		// rather than replaying intake.
		if err := e.store.Put(ctx, inc); err != nil {
			return "", fmt.Errorf("persist incident %s at diagnose checkpoint: %w", inc.ID, err)
		}
		return e.diagnoseTurn(ctx, L, inc), nil
	}

	var b strings.Builder
	if payload.ShortHypothesis != "" {
		fmt.Fprintf(&b, "Working hypothesis: %s\n\n", payload.ShortHypothesis)
	}
	b.WriteString("To better understand the situation:\n")
	for i, q := range inc.OpenQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return b.String(), nil
}

// diagnoseTurn produces the diagnosis, advances to RECOMMEND, and fires the
// side-effect dispatch exactly once. On gateway failure the stage holds at
// DIAGNOSE and the operator gets a retry message.
func (e *Engine) diagnoseTurn(ctx context.Context, L log.Logger, inc *Incident) string {
	if inc.Diagnosis != nil {
		// Duplicate delivery after the transition already happened. Serve
		// the existing diagnosis, never re-dispatch.
		inc.Stage = StageRecommend
		return inc.Diagnosis.Report()
	}

	resp, err := e.generate(ctx, BuildDiagnosisPrompt(inc), diagnosisMaxTokens)
	if err != nil {
		L.Error(ctx, err, "diagnosis gateway call failed")
		if e.hooks.OnGatewayError != nil {
			e.hooks.OnGatewayError(StageDiagnose)
		}
		return turnErrorMessage
	}

	d, reason := ParseDiagnosis(resp.Text, e.fallbackSeverity)
	if reason != "" {
		L.Warn(ctx, "diagnosis parse fallback", "reason", reason)
		if e.hooks.OnParseFallback != nil {
			e.hooks.OnParseFallback("diagnosis", reason)
		}
	}

	inc.Diagnosis = &d
	inc.Stage = StageRecommend
	inc.OpenQuestions = nil
	if e.hooks.OnTransition != nil {
		e.hooks.OnTransition(StageDiagnose, StageRecommend)
	}
	if e.hooks.OnDiagnosis != nil {
		e.hooks.OnDiagnosis(d.Severity)
	}

	e.dispatcher.Dispatch(ctx, inc)

	L.Info(ctx, "diagnosis produced",
		"severity", string(d.Severity),
		"hypotheses", len(d.Hypotheses),
	)
	return d.Report()
}

func (e *Engine) generate(ctx context.Context, prompt string, maxTokens int) (*llm.GenerateResponse, error) {
	start := time.Now()
	resp, err := e.provider.Generate(ctx, &llm.GenerateRequest{
		Prompt:      prompt,
		Temperature: turnTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}
	if e.hooks.OnLLMCall != nil {
		e.hooks.OnLLMCall(resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(start).Seconds())
	}
	return resp, nil
}
