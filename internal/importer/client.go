// Package importer turns uploaded recipe material (photos, PDFs,
// spreadsheets, pasted text) into reconciled recipes: an OpenAI extraction
// client, upload-to-text derivation, and the assembly step that matches
// extracted lines against the inventory.
package importer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel       = "gpt-4.1-mini"
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultTemperature = 0.2
	defaultTimeout     = 90 * time.Second
)

// Config describes how the OpenAI client should be initialised.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client offers a thin wrapper around the OpenAI Chat Completions API.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	httpClient  *http.Client
}

// Input describes the source material provided by the user for one import.
type Input struct {
	NameHint   string
	RawText    string
	Base64File string
	FileName   string
	FileType   string
}

// Extraction captures the parsed recipe returned by the AI service.
type Extraction struct {
	RecipeName  string                `json:"recipe_name"`
	Notes       string                `json:"notes"`
	Ingredients []ExtractedIngredient `json:"ingredients"`
}

// ExtractedIngredient represents one ingredient entry from the AI response.
type ExtractedIngredient struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitUnclear bool    `json:"unit_unclear"`
	Notes       string  `json:"notes"`
}

// NewClient builds a Client that can extract recipes from source material.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("importer: api key must not be empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	temp := cfg.Temperature
	if temp <= 0 {
		temp = defaultTemperature
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		apiKey:      apiKey,
		model:       model,
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temp,
		httpClient:  httpClient,
	}, nil
}

// ExtractRecipe asks the AI model to parse the provided material into a
// structured recipe.
func (c *Client) ExtractRecipe(ctx context.Context, input Input) (Extraction, error) {
	trimmedText := strings.TrimSpace(input.RawText)
	if trimmedText == "" && strings.TrimSpace(input.Base64File) == "" {
		return Extraction{}, errors.New("importer: recipe import requires text or file content")
	}

	if input.Base64File != "" {
		if _, err := base64.StdEncoding.DecodeString(input.Base64File); err != nil {
			return Extraction{}, fmt.Errorf("importer: invalid base64 payload: %w", err)
		}
	}

	systemPrompt := `You are an assistant who converts kitchen recipe references into precise JSON.
- Always OCR any provided base64 file content before analysing the recipe data.
- If both text and files are provided, treat the text as authoritative while using the file for clarification.
- Extract the recipe name, optional preparation notes, and every ingredient mentioned.
- Keep quantities and units exactly as written in the source. Never convert or invent quantities.
- Set unit_unclear to true when the unit is missing, smudged, or ambiguous, and put your best reading in unit anyway.
- Respond with strictly valid JSON using this schema:
{
  "recipe_name": string,
  "notes": string,
  "ingredients": [
    {
      "name": string,
      "quantity": number,
      "unit": string,
      "unit_unclear": boolean,
      "notes": string
    }
  ]
}
- Never include explanations, markdown, or commentary outside of the JSON payload.`

	var builder strings.Builder
	if hint := strings.TrimSpace(input.NameHint); hint != "" {
		builder.WriteString("Recipe hint: ")
		builder.WriteString(hint)
		builder.WriteString("\n\n")
	}
	if trimmedText != "" {
		builder.WriteString("Recipe text:\n")
		builder.WriteString(trimmedText)
		builder.WriteString("\n\n")
	}
	if strings.TrimSpace(input.Base64File) != "" {
		builder.WriteString("Base64 file metadata: ")
		if input.FileName != "" {
			builder.WriteString(fmt.Sprintf("name=%s ", input.FileName))
		}
		if input.FileType != "" {
			builder.WriteString(fmt.Sprintf("type=%s ", input.FileType))
		}
		builder.WriteString("\n")
		builder.WriteString(input.Base64File)
	}

	payload := map[string]any{
		"model":       c.model,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": builder.String(),
			},
		},
	}

	content, err := c.performChatCompletion(ctx, payload)
	if err != nil {
		return Extraction{}, err
	}

	var result Extraction
	if err := json.NewDecoder(strings.NewReader(content)).Decode(&result); err != nil {
		return Extraction{}, fmt.Errorf("importer: parse recipe payload: %w", err)
	}

	return result, nil
}

func (c *Client) performChatCompletion(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("importer: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("importer: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("importer: call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("importer: openai returned status %s", resp.Status)
	}

	var responseData struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&responseData); err != nil {
		return "", fmt.Errorf("importer: decode response: %w", err)
	}

	if len(responseData.Choices) == 0 {
		return "", errors.New("importer: openai returned no choices")
	}

	content := strings.TrimSpace(responseData.Choices[0].Message.Content)
	content = strings.Trim(content, "`")
	return strings.TrimSpace(content), nil
}
