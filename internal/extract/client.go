// Package extract calls an OpenAI-compatible chat-completions API to turn
// pasted dashboard text (or screenshots) into a structured portfolio Record.
//
// Models are tried strictly in order: first parseable answer wins, any
// failure moves on to the next model, and a fully exhausted list yields nil
// rather than an error so a bad extraction never aborts the user's session.
package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const extractionPrompt = `You are a data extraction engine for liquidity-provider dashboards.
Extract the portfolio state from the user's input and answer with ONE JSON object, nothing else.

Schema (use null for anything not present in the input, never invent numbers):
{
  "balance": number|null,          // total portfolio balance in USD
  "total_points": number|null,
  "point_delta": number|null,      // points gained today/most recently
  "rank": string|null,
  "total_fees": number|null,
  "fees_today": number|null,
  "pending_yield": number|null,    // unclaimed yield/rewards in USD
  "account_number": number|null,   // if the input names an account, e.g. "Akun 3" or "Account 3"
  "account_name": string|null,
  "positions": [
    {
      "pair": string,              // e.g. "SOL/USDC"
      "size": number|null,         // position value in USD
      "rate": number|null,         // annual rate as percent, e.g. 12.5
      "price_range": string|null,
      "current_price": number|null,
      "status": string|null,
      "in_range": boolean,
      "unclaimed": number|null
    }
  ]
}`

// Client is the sequential-fallback extraction adapter. It is stateless and
// safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	textModels   []string
	visionModels []string
	cascadeMax   time.Duration
	httpClient   *http.Client
}

// NewClient creates an extraction client. The model slices define the
// fallback order for text and image input respectively.
func NewClient(baseURL, apiKey string, textModels, visionModels []string, perCall, cascadeMax time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		textModels:   textModels,
		visionModels: visionModels,
		cascadeMax:   cascadeMax,
		httpClient:   &http.Client{Timeout: perCall},
	}
}

// Chat-completions wire types.

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractFromText runs the text-model cascade over pasted dashboard text.
// Returns nil when every model fails; it never returns an error.
func (c *Client) ExtractFromText(ctx context.Context, text string) *Record {
	messages := []chatMessage{
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: text},
	}
	return c.cascade(ctx, c.textModels, messages)
}

// ExtractFromImage runs the vision-model cascade over a screenshot.
func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mime string) *Record {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))
	messages := []chatMessage{
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: "Extract the portfolio data from this dashboard screenshot."},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	}
	return c.cascade(ctx, c.visionModels, messages)
}

// cascade tries each model in order and returns the first parsed result.
// The whole chain shares one deadline so a run of slow failures stays bounded.
func (c *Client) cascade(ctx context.Context, models []string, messages []chatMessage) *Record {
	ctx, cancel := context.WithTimeout(ctx, c.cascadeMax)
	defer cancel()

	for _, model := range models {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Extraction cascade deadline hit")
			return nil
		}

		rec, err := c.callModel(ctx, model, messages)
		if err != nil {
			log.Warn().Err(err).Str("model", model).Msg("Extraction model failed, trying next")
			continue
		}

		log.Info().Str("model", model).Msg("Extraction succeeded")
		return rec
	}

	log.Warn().Int("models", len(models)).Msg("All extraction models exhausted")
	return nil
}

func (c *Client) callModel(ctx context.Context, model string, messages []chatMessage) (*Record, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return parseRecord(parsed.Choices[0].Message.Content)
}

// parseRecord decodes the model's answer into a Record, tolerating markdown
// code fences around the JSON.
func parseRecord(content string) (*Record, error) {
	content = stripFences(content)

	var rec Record
	if err := json.Unmarshal([]byte(content), &rec); err != nil {
		return nil, fmt.Errorf("parse extraction JSON: %w", err)
	}
	return &rec, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
