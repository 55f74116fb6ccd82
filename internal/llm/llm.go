// Package llm defines the model gateway contract consumed by the triage
// engine. Backends live in subpackages.
package llm

import "context"

// GenerateRequest is a single prompt/completion exchange. The engine never
// needs multi-message or tool-use conversations; stage context is baked into
// the prompt text.
type GenerateRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// GenerateResponse carries the raw model text plus usage accounting.
type GenerateResponse struct {
	Text  string
	Usage Usage
}

// Provider is the interface for any LLM backend.
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GatewayError marks a failure to reach the model backend or to read a
// usable transport response from it (timeout, connection failure, non-2xx,
// undecodable envelope). The engine recovers from these locally and never
// surfaces them to the operator.
type GatewayError struct {
	Err error
}

func (e *GatewayError) Error() string { return "llm gateway: " + e.Err.Error() }

func (e *GatewayError) Unwrap() error { return e.Err }
