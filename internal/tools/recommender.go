package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Recommendation pairs a catalog tool id with the model's reason for it.
type Recommendation struct {
	ToolID string `json:"toolId"`
	Reason string `json:"reason"`
}

// Recommender produces ranked tool suggestions for a project summary.
type Recommender interface {
	Recommend(ctx context.Context, projectSummary string) ([]Recommendation, error)
}

// GenAIRecommender asks a Gemini text model to pick tools from the catalog.
type GenAIRecommender struct {
	client  *genai.Client
	catalog *Catalog
	model   string
	timeout time.Duration
}

const (
	recommenderCandidatePool = 50
	maxRecommendations       = 5
)

func NewGenAIRecommender(ctx context.Context, apiKey, model string, catalog *Catalog) (*GenAIRecommender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("recommender: missing API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("recommender client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GenAIRecommender{
		client:  client,
		catalog: catalog,
		model:   model,
		timeout: 5 * time.Second,
	}, nil
}

func (r *GenAIRecommender) Recommend(ctx context.Context, projectSummary string) ([]Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"You are an expert developer tool recommender. Given this project: %s\n"+
			"Recommend 3-5 tools from: %s\n"+
			`Return a JSON array: [{"toolId": "...", "reason": "..."}]`,
		projectSummary,
		strings.Join(r.catalog.IDs(recommenderCandidatePool), ", "),
	)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	var sb strings.Builder
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}

	recs, err := parseRecommendations(sb.String())
	if err != nil {
		return nil, err
	}
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs, nil
}

// parseRecommendations tolerates markdown-fenced JSON, which text models emit
// even when asked not to.
func parseRecommendations(text string) ([]Recommendation, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, nil
	}
	var recs []Recommendation
	if err := json.Unmarshal([]byte(text), &recs); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}
	return recs, nil
}
