// Package llm wraps the Gemini API behind a small text and JSON
// generation surface.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	genai "google.golang.org/genai"
)

// ErrEmptyResponse is returned when the model produces no usable candidate.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Client is a thin wrapper around the official genai client.
type Client struct {
	cli   *genai.Client
	model string
}

// NewClient creates a Gemini-backed client for the given model.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Client{cli: cli, model: model}, nil
}

// Generate sends a prompt and returns the model's text output.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return extractText(resp)
}

// GenerateJSON sends a prompt with application/json response forcing and
// unmarshals the result into out.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out any) error {
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}
	txt, err := extractText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(txt), out); err != nil {
		return fmt.Errorf("failed to decode model JSON: %w", err)
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	txt := cand.Content.Parts[0].Text
	if txt == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}
