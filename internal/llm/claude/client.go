// Package claude implements llm.Provider on the Claude messages API.
package claude

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/medic/internal/llm"
)

const defaultTimeout = 60 * time.Second

// Client is an llm.Provider backed by the Claude API. The triage engine only
// needs single prompt/completion exchanges; all stage context travels inside
// the prompt text.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a Claude client for the given API key and model. A non-positive
// timeout falls back to the default. The timeout bounds the whole HTTP
// exchange so a stuck gateway cannot hold a triage turn open indefinitely.
func New(apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(&http.Client{Timeout: timeout}),
		),
		model: model,
	}
}

// Generate sends the prompt as a single user message and returns the
// concatenated text blocks of the reply. Every transport-level failure is
// wrapped in *llm.GatewayError so callers can take their fallback path
// without inspecting provider internals.
func (c *Client) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &llm.GatewayError{Err: fmt.Errorf("claude messages: %w", err)}
	}

	return &llm.GenerateResponse{
		Text: textContent(resp),
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}, nil
}

// textContent joins the text blocks of a message, ignoring any other block
// types.
func textContent(msg *anthropic.Message) string {
	var parts []string
	for i := range msg.Content {
		if msg.Content[i].Type == "text" {
			parts = append(parts, msg.Content[i].Text)
		}
	}
	return strings.Join(parts, "")
}
