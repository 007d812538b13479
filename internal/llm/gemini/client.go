// Package gemini implements the sentiment and vision collaborators on the
// Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/linnemanlabs/bloomwatch/internal/llm"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client implements llm.Analyzer using the Gemini SDK.
type Client struct {
	client  *genai.Client
	model   string
	limiter *llm.Limiter
}

// New creates a Gemini client. Close releases its connection.
func New(ctx context.Context, apiKey, model string, limiter *llm.Limiter, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: model, limiter: limiter}, nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// AnalyzeSentiment sends the journal history with the sentiment prompt in
// JSON response mode.
func (c *Client) AnalyzeSentiment(ctx context.Context, history []signal.JournalEntry) (*signal.SentimentPulse, error) {
	if len(history) == 0 {
		return nil, llm.ErrEmptyHistory
	}
	model := c.jsonModel(llm.SentimentPrompt)
	text, err := c.generate(ctx, model, genai.Text(llm.FormatHistory(history)))
	if err != nil {
		return nil, err
	}
	return llm.ParseSentiment(text)
}

// AnalyzeImage sends the photo inline with the nurse prompt.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*signal.VisionLog, error) {
	if len(image) == 0 {
		return nil, llm.ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	model := c.jsonModel(llm.NursePrompt)
	model.SetTemperature(llm.VisionTemperature)
	text, err := c.generate(ctx, model, genai.Blob{MIMEType: mimeType, Data: image})
	if err != nil {
		return nil, err
	}
	return llm.ParseVision(text)
}

func (c *Client) jsonModel(system string) *genai.GenerativeModel {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	model.ResponseMIMEType = "application/json"
	model.SetMaxOutputTokens(llm.DefaultMaxTokens)
	return model
}

func (c *Client) generate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gemini: rate limit wait: %w", err)
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classify(err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty content (finish reason %v)", cand.FinishReason)
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// classify maps quota exhaustion onto llm.ErrQuotaExceeded.
func classify(err error) error {
	var gerr *googleapi.Error
	if (errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests) ||
		strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("gemini: %w: %w", llm.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("gemini: generate: %w", err)
}
