package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

// GeminiClient calls the generative language API. Text, search and image
// calls use separate http.Clients because their timeouts differ by an order
// of magnitude.
type GeminiClient struct {
	apiKey       string
	baseURL      string
	textClient   *http.Client
	searchClient *http.Client
	imageClient  *http.Client
}

func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		apiKey:       apiKey,
		baseURL:      "https://generativelanguage.googleapis.com/v1beta",
		textClient:   &http.Client{Timeout: config.TextRequestTimeout},
		searchClient: &http.Client{Timeout: config.SearchRequestTimeout},
		imageClient:  &http.Client{Timeout: config.ImageRequestTimeout},
	}
}

// TextResult is a text answer plus up to five grounding sources when the
// search tool was enabled.
type TextResult struct {
	Text    string
	Sources []string
}

type systemInstruction struct {
	Parts []domain.Part `json:"parts"`
}

type thinkingConfig struct {
	ThinkingLevel string `json:"thinkingLevel"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type generationConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	TopK               *int            `json:"topK,omitempty"`
	TopP               *float64        `json:"topP,omitempty"`
	MaxOutputTokens    *int            `json:"maxOutputTokens,omitempty"`
	ThinkingConfig     *thinkingConfig `json:"thinkingConfig,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig    `json:"imageConfig,omitempty"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type searchTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type generateRequest struct {
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
	Contents          []domain.Content   `json:"contents"`
	Tools             []searchTool       `json:"tools,omitempty"`
	GenerationConfig  generationConfig   `json:"generationConfig"`
	SafetySettings    []safetySetting    `json:"safetySettings"`
}

// responsePart tolerates both spellings of the inline data key; the API has
// emitted each at different times.
type responsePart struct {
	Text            string             `json:"text"`
	InlineData      *domain.InlineData `json:"inlineData"`
	InlineDataSnake *domain.InlineData `json:"inline_data"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []responsePart `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					Title string `json:"title"`
					URI   string `json:"uri"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

func defaultSafetySettings() []safetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]safetySetting, len(categories))
	for i, c := range categories {
		settings[i] = safetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"}
	}
	return settings
}

func textGenerationConfig(model string) generationConfig {
	temp := config.GenTemperature
	topK := config.GenTopK
	topP := config.GenTopP
	maxTokens := config.GenMaxOutputTokens

	gc := generationConfig{
		Temperature:     &temp,
		TopK:            &topK,
		TopP:            &topP,
		MaxOutputTokens: &maxTokens,
	}
	if config.SupportsThinking(model) {
		gc.ThinkingConfig = &thinkingConfig{ThinkingLevel: config.ThinkingLevel(model)}
	}
	return gc
}

// GenerateText runs a plain text generation over the given history.
func (c *GeminiClient) GenerateText(ctx context.Context, history []domain.Content, model, system string) (string, error) {
	req := generateRequest{
		SystemInstruction: &systemInstruction{Parts: []domain.Part{{Text: system}}},
		Contents:          history,
		GenerationConfig:  textGenerationConfig(model),
		SafetySettings:    defaultSafetySettings(),
	}

	resp, err := c.do(ctx, c.textClient, model, req)
	if err != nil {
		return "", err
	}

	text, _ := collectText(resp)
	if text == "" {
		return "", domain.ErrNoCandidates
	}
	return text, nil
}

// GenerateTextWithSearch runs a generation with the web search tool enabled
// and extracts grounding sources from the response.
func (c *GeminiClient) GenerateTextWithSearch(ctx context.Context, contents []domain.Content, model, system string) (*TextResult, error) {
	req := generateRequest{
		SystemInstruction: &systemInstruction{Parts: []domain.Part{{Text: system}}},
		Contents:          contents,
		Tools:             []searchTool{{}},
		GenerationConfig:  textGenerationConfig(model),
		SafetySettings:    defaultSafetySettings(),
	}

	resp, err := c.do(ctx, c.searchClient, model, req)
	if err != nil {
		return nil, err
	}

	text, sources := collectText(resp)
	if text == "" {
		return nil, domain.ErrNoCandidates
	}
	return &TextResult{Text: text, Sources: sources}, nil
}

// GenerateImage produces image bytes for a prompt, optionally conditioned on
// a reference image. The resolution parameter is only honored by the pro
// image model; the base model is pinned to its lowest resolution.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt, model, aspectRatio, resolution, system string, reference *domain.InlineData) ([]byte, error) {
	parts := []domain.Part{{Text: prompt}}
	if reference != nil {
		parts = append(parts, domain.Part{InlineData: reference})
	}

	ic := &imageConfig{AspectRatio: aspectRatio}
	if model == config.ModelImagePro {
		ic.ImageSize = resolution
	}

	req := generateRequest{
		SystemInstruction: &systemInstruction{Parts: []domain.Part{{Text: system}}},
		Contents:          []domain.Content{{Role: domain.RoleUser, Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        ic,
		},
		SafetySettings: defaultSafetySettings(),
	}

	resp, err := c.do(ctx, c.imageClient, model, req)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			inline := part.InlineData
			if inline == nil {
				inline = part.InlineDataSnake
			}
			if inline == nil || inline.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(inline.Data)
			if err != nil {
				return nil, fmt.Errorf("decode image data: %w", err)
			}
			return data, nil
		}
	}
	return nil, domain.ErrNoImageData
}

func (c *GeminiClient) do(ctx context.Context, client *http.Client, model string, body generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, config.APIModel(model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation API error (HTTP %d): %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var genResp generateResponse
	if err := json.Unmarshal(raw, &genResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &genResp, nil
}

// collectText concatenates every text part of the first candidate in order.
// Deep-reasoning and tool-using responses split one logical answer across
// several parts, so taking only the first would drop content.
func collectText(resp *generateResponse) (string, []string) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	cand := resp.Candidates[0]

	var buf bytes.Buffer
	for _, part := range cand.Content.Parts {
		buf.WriteString(part.Text)
	}

	var sources []string
	if gm := cand.GroundingMetadata; gm != nil {
		for _, chunk := range gm.GroundingChunks {
			if len(sources) >= 5 {
				break
			}
			if chunk.Web == nil {
				continue
			}
			if chunk.Web.Title != "" {
				sources = append(sources, chunk.Web.Title)
			} else if chunk.Web.URI != "" {
				sources = append(sources, chunk.Web.URI)
			}
		}
	}
	return buf.String(), sources
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
