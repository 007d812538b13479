// Package claude implements the sentiment and vision collaborators on the
// Anthropic Messages API.
package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/linnemanlabs/bloomwatch/internal/llm"
	"github.com/linnemanlabs/bloomwatch/internal/signal"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// Client implements llm.Analyzer using the Anthropic SDK.
type Client struct {
	client  anthropic.Client
	model   string
	limiter *llm.Limiter
}

// New creates a Claude client. Extra request options (base URL, HTTP
// client) are passed through to the SDK.
func New(apiKey, model string, limiter *llm.Limiter, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	return &Client{
		client:  anthropic.NewClient(append(base, opts...)...),
		model:   model,
		limiter: limiter,
	}
}

// AnalyzeSentiment sends the journal history with the sentiment prompt.
func (c *Client) AnalyzeSentiment(ctx context.Context, history []signal.JournalEntry) (*signal.SentimentPulse, error) {
	if len(history) == 0 {
		return nil, llm.ErrEmptyHistory
	}
	text, err := c.send(ctx, anthropic.MessageNewParams{
		System: []anthropic.TextBlockParam{{Text: llm.SentimentPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(llm.FormatHistory(history))),
		},
	})
	if err != nil {
		return nil, err
	}
	return llm.ParseSentiment(text)
}

// AnalyzeImage sends the photo with the nurse prompt.
func (c *Client) AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*signal.VisionLog, error) {
	if len(image) == 0 {
		return nil, llm.ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	text, err := c.send(ctx, anthropic.MessageNewParams{
		System:      []anthropic.TextBlockParam{{Text: llm.NursePrompt}},
		Temperature: anthropic.Float(llm.VisionTemperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(llm.VisionUserText),
			),
		},
	})
	if err != nil {
		return nil, err
	}
	return llm.ParseVision(text)
}

func (c *Client) send(ctx context.Context, params anthropic.MessageNewParams) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("claude: rate limit wait: %w", err)
	}

	params.Model = anthropic.Model(c.model)
	params.MaxTokens = llm.DefaultMaxTokens

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// classify maps rate and overload responses onto llm.ErrQuotaExceeded.
func classify(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode == 529) {
		return fmt.Errorf("claude: %w: %w", llm.ErrQuotaExceeded, err)
	}
	return fmt.Errorf("claude: messages: %w", err)
}
