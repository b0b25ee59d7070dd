package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"wyckoff_watcher/internal/models"
)

// Gemini is the primary engine, invoked over the generativelanguage REST
// API with a JSON response mime type.
type Gemini struct {
	apiKey string
	model  string
	url    string
	http   *http.Client
}

// NewGemini reads GEMINI_API_KEY and GEMINI_MODEL from the environment.
func NewGemini() *Gemini {
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{
		apiKey: os.Getenv("GEMINI_API_KEY"),
		model:  model,
		url:    fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", model),
		http:   &http.Client{},
	}
}

func (g *Gemini) Name() string {
	return g.model
}

// Configured reports whether an API key is present.
func (g *Gemini) Configured() bool {
	return g.apiKey != ""
}

func (g *Gemini) Analyze(ctx context.Context, req models.AnalysisRequest) (*Reply, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini engine not configured")
	}

	payload := map[string]interface{}{
		"system_instruction": map[string]interface{}{
			"parts": map[string]interface{}{
				"text": systemInstruction,
			},
		},
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": buildPrompt(req)},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"response_mime_type": "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(detail))
	}

	// candidates[0].content.parts[0].text holds the model's JSON string.
	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("gemini response decode: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformed)
	}

	return parseReply(result.Candidates[0].Content.Parts[0].Text)
}

// parseReply validates the shape contract shared by both engines.
func parseReply(text string) (*Reply, error) {
	var reply Reply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if reply.Narrative == "" {
		return nil, fmt.Errorf("%w: empty narrative", ErrMalformed)
	}
	return &reply, nil
}
