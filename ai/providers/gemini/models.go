package gemini

import (
	"os"
	"strings"
)

// DefaultModel matches the assistant's original configuration
const DefaultModel = "gemini-2.5-flash"

var modelAliases = map[string]string{
	"default": DefaultModel,
	"fast":    "gemini-2.5-flash-lite",
	"smart":   "gemini-2.5-pro",
}

// resolveModel maps an alias to a model id. STOREFRONT_GEMINI_MODEL_<ALIAS>
// overrides the built-in mapping; unknown names pass through.
func resolveModel(model string) string {
	if model == "" {
		model = "default"
	}
	if override := os.Getenv("STOREFRONT_GEMINI_MODEL_" + strings.ToUpper(model)); override != "" {
		return override
	}
	if actual, ok := modelAliases[model]; ok {
		return actual
	}
	return model
}

// GeminiRequest represents the native GenerateContent request body
type GeminiRequest struct {
	Contents          []Content          `json:"contents"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
	SystemInstruction *SystemInstruction `json:"systemInstruction,omitempty"`
}

// Content represents a content block in the request
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part represents a part of content
type Part struct {
	Text string `json:"text"`
}

// SystemInstruction represents system instructions
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// GenerationConfig represents generation configuration
type GenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse is a full response, or one SSE event of a streamed one
type GeminiResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

// Candidate represents a response candidate
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

// UsageMetadata represents token usage information
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// ErrorResponse represents an error from the Gemini API
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (r *GeminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r *GeminiResponse) finishReason() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].FinishReason
}
