package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
)

func testGeminiClient(baseURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:       "test-key",
		baseURL:      baseURL,
		textClient:   http.DefaultClient,
		searchClient: http.DefaultClient,
		imageClient:  http.DefaultClient,
	}
}

func textResponse(parts ...string) string {
	type part struct {
		Text string `json:"text"`
	}
	var ps []part
	for _, p := range parts {
		ps = append(ps, part{Text: p})
	}
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": ps}},
		},
	})
	return string(body)
}

func TestGenerateTextConcatenatesParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("first half, ", "second half"))
	}))
	defer srv.Close()

	text, err := testGeminiClient(srv.URL).GenerateText(context.Background(),
		[]domain.Content{domain.TextContent(domain.RoleUser, "hi")}, config.ModelFlash, "sys")
	require.NoError(t, err)
	assert.Equal(t, "first half, second half", text)
}

func TestGenerateTextNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))
	defer srv.Close()

	_, err := testGeminiClient(srv.URL).GenerateText(context.Background(),
		[]domain.Content{domain.TextContent(domain.RoleUser, "hi")}, config.ModelFlash, "sys")
	assert.ErrorIs(t, err, domain.ErrNoCandidates)
}

func TestGenerateTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testGeminiClient(srv.URL).GenerateText(context.Background(),
		[]domain.Content{domain.TextContent(domain.RoleUser, "hi")}, config.ModelFlash, "sys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGenerateTextRequestShape(t *testing.T) {
	var captured map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, textResponse("ok"))
	}))
	defer srv.Close()

	// The thinking alias calls the flash endpoint with a deep thinking level.
	_, err := testGeminiClient(srv.URL).GenerateText(context.Background(),
		[]domain.Content{domain.TextContent(domain.RoleUser, "hi")}, config.ModelFlashThinking, "sys prompt")
	require.NoError(t, err)

	assert.Equal(t, "/models/"+config.ModelFlash+":generateContent", path)

	gc := captured["generationConfig"].(map[string]any)
	assert.Equal(t, 0.7, gc["temperature"])
	assert.Equal(t, float64(40), gc["topK"])
	assert.Equal(t, 0.95, gc["topP"])
	assert.Equal(t, float64(65536), gc["maxOutputTokens"])
	tc := gc["thinkingConfig"].(map[string]any)
	assert.Equal(t, config.ThinkingHigh, tc["thinkingLevel"])

	si := captured["systemInstruction"].(map[string]any)
	parts := si["parts"].([]any)
	assert.Equal(t, "sys prompt", parts[0].(map[string]any)["text"])

	settings := captured["safetySettings"].([]any)
	assert.Len(t, settings, 4)
	assert.Equal(t, "BLOCK_MEDIUM_AND_ABOVE", settings[0].(map[string]any)["threshold"])

	_, hasTools := captured["tools"]
	assert.False(t, hasTools)
}

func TestGenerateTextWithSearchExtractsSources(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"answer"}]},
			"groundingMetadata":{"groundingChunks":[
				{"web":{"title":"Site One","uri":"https://one.example"}},
				{"web":{"title":"","uri":"https://two.example"}},
				{"web":null},
				{"web":{"title":"Three"}},
				{"web":{"title":"Four"}},
				{"web":{"title":"Five"}},
				{"web":{"title":"Six"}}
			]}}]}`)
	}))
	defer srv.Close()

	result, err := testGeminiClient(srv.URL).GenerateTextWithSearch(context.Background(),
		[]domain.Content{domain.TextContent(domain.RoleUser, "query")}, config.ModelFlash, "sys")
	require.NoError(t, err)

	assert.Equal(t, "answer", result.Text)
	// Title preferred, uri as fallback, capped at five, nil chunks skipped.
	assert.Equal(t, []string{"Site One", "https://two.example", "Three", "Four", "Five"}, result.Sources)

	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	_, ok := tools[0].(map[string]any)["google_search"]
	assert.True(t, ok)
}

func TestGenerateImage(t *testing.T) {
	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[
			{"text":"here is your image"},
			{"inlineData":{"mime_type":"image/png","data":"%s"}}
		]}}]}`, base64.StdEncoding.EncodeToString(imageBytes))
	}))
	defer srv.Close()

	data, err := testGeminiClient(srv.URL).GenerateImage(context.Background(),
		"a cat", config.ModelImagePro, "16:9", config.Resolution4K, "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, imageBytes, data)

	gc := captured["generationConfig"].(map[string]any)
	assert.Equal(t, []any{"TEXT", "IMAGE"}, gc["responseModalities"])
	ic := gc["imageConfig"].(map[string]any)
	assert.Equal(t, "16:9", ic["aspectRatio"])
	assert.Equal(t, config.Resolution4K, ic["imageSize"])
	_, hasThinking := gc["thinkingConfig"]
	assert.False(t, hasThinking)
}

func TestGenerateImageBaseModelPinnedTo1K(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inline_data":{"mime_type":"image/png","data":"%s"}}]}}]}`,
			base64.StdEncoding.EncodeToString([]byte("img")))
	}))
	defer srv.Close()

	// Snake-case inline_data is also accepted.
	data, err := testGeminiClient(srv.URL).GenerateImage(context.Background(),
		"a dog", config.ModelImage, "1:1", config.Resolution4K, "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), data)

	ic := captured["generationConfig"].(map[string]any)["imageConfig"].(map[string]any)
	_, hasSize := ic["imageSize"]
	assert.False(t, hasSize, "base model must not request a resolution")
}

func TestGenerateImageWithReference(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprintf(w, `{"candidates":[{"content":{"parts":[{"inlineData":{"mime_type":"image/png","data":"%s"}}]}}]}`,
			base64.StdEncoding.EncodeToString([]byte("out")))
	}))
	defer srv.Close()

	ref := &domain.InlineData{MimeType: "image/jpeg", Data: base64.StdEncoding.EncodeToString([]byte("src"))}
	_, err := testGeminiClient(srv.URL).GenerateImage(context.Background(),
		"repaint it", config.ModelImage, "1:1", config.Resolution1K, "sys", ref)
	require.NoError(t, err)

	contents := captured["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mime_type"])
}

func TestGenerateImageNoImageData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, textResponse("sorry, I cannot draw that"))
	}))
	defer srv.Close()

	_, err := testGeminiClient(srv.URL).GenerateImage(context.Background(),
		"a cat", config.ModelImage, "1:1", config.Resolution1K, "sys", nil)
	assert.ErrorIs(t, err, domain.ErrNoImageData)
}
