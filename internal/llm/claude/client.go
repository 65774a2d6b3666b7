// Package claude implements the external AI enrichment contract on the
// Claude API: complaint summarization for the analysis worker and the
// free-text insight query used by the chat endpoint.
package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/redress/internal/complaint"
)

// ErrAuthQuota marks an authentication or quota rejection from the API.
// Callers surface it distinctly from transient unavailability.
var ErrAuthQuota = xerrors.New("claude: authentication or quota failure")

const responseTokens = 1024

// Client talks to the Claude API.
type Client struct {
	client anthropic.Client
	model  string
}

// New creates a new Claude client with the given API key and model name.
func New(apiKey, model string) *Client {
	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

const summarizeSystem = `You review citizen grievances for a municipal complaint system.
Given a complaint, reply with ONLY a JSON object:
{
  "summary": "one-sentence summary of the complaint",
  "is_legitimate": true or false (false for spam, tests, or gibberish),
  "improvement_hint": "optional: what detail the submitter should add, or empty"
}`

// Summarize asks the model for a summary and legitimacy verdict. The reply
// is parsed leniently: markdown code fences are stripped and the first
// balanced JSON object is extracted.
func (c *Client) Summarize(ctx context.Context, title, description string) (*complaint.Summary, error) {
	prompt := fmt.Sprintf("Title: %s\nDescription: %s", title, description)

	text, err := c.send(ctx, summarizeSystem, prompt)
	if err != nil {
		return nil, err
	}

	raw, ok := ExtractJSON(text)
	if !ok {
		return nil, fmt.Errorf("claude: no JSON object in reply %q", truncateForLog(text))
	}

	var sum complaint.Summary
	if err := json.Unmarshal([]byte(raw), &sum); err != nil {
		return nil, fmt.Errorf("claude: decode summary reply: %w", err)
	}
	if sum.Summary == "" {
		return nil, fmt.Errorf("claude: reply missing summary field")
	}
	return &sum, nil
}

const chatSystem = `You are an assistant for a municipal complaint system.
Answer the operator's question about complaints. When complaint context is
provided, ground your answer in it. Be concise and operational.`

// Chat answers a free-text operator query, optionally grounded in a
// complaint document serialized as JSON.
func (c *Client) Chat(ctx context.Context, query, contextJSON string) (string, error) {
	prompt := query
	if contextJSON != "" {
		prompt = fmt.Sprintf("Complaint context:\n%s\n\nQuestion: %s", contextJSON, query)
	}
	return c.send(ctx, chatSystem, prompt)
}

func (c *Client) send(ctx context.Context, system, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: responseTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) && (apierr.StatusCode == 401 || apierr.StatusCode == 403 || apierr.StatusCode == 429) {
			return "", fmt.Errorf("%w: %v", ErrAuthQuota, err)
		}
		return "", fmt.Errorf("claude api: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude: reply contained no text block")
}

func truncateForLog(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
