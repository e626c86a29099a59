package backend

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

// VertexBackend answers locally with Gemini instead of the remote RAG service.
// It follows the same protocol: a question with no mention against an agent with
// several sources comes back with a suggested source to confirm.
type VertexBackend struct {
	client    *genai.Client
	modelName string
	sources   domain.SourceStore
}

// NewVertexBackend creates an AnswerBackend based on Vertex AI (Gemini).
func NewVertexBackend(ctx context.Context, projectID, location, modelName string, sources domain.SourceStore) (*VertexBackend, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("vertex backend needs a project and a location")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexBackend{
		client:    client,
		modelName: modelName,
		sources:   sources,
	}, nil
}

func (v *VertexBackend) Ask(ctx context.Context, req domain.AskRequest) (*domain.AnswerResponse, error) {
	sources, err := v.agentSources(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	if req.Nickname == "" && len(sources) > 1 {
		reply, err := v.generate(ctx, suggestSystemPrompt, BuildSuggestPrompt(req.Query, sources), 0)
		if err != nil {
			return nil, err
		}
		if label := matchLabel(reply, sources); label != "" {
			ok := true
			return &domain.AnswerResponse{ChosenNickname: label, Success: &ok}, nil
		}
	}

	return v.answer(ctx, req.Query, sourcesFor(req.Nickname, sources))
}

func (v *VertexBackend) ConfirmSource(ctx context.Context, req domain.ConfirmRequest) (*domain.AnswerResponse, error) {
	sources, err := v.agentSources(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}
	return v.answer(ctx, req.Query, sourcesFor(req.SourceSuggestion, sources))
}

func (v *VertexBackend) answer(ctx context.Context, query string, sources []domain.Source) (*domain.AnswerResponse, error) {
	text, err := v.generate(ctx, answerSystemPrompt, BuildAnswerPrompt(query, sources), 0.3)
	if err != nil {
		return nil, err
	}
	ok := true
	return &domain.AnswerResponse{Answer: text, Success: &ok}, nil
}

func (v *VertexBackend) agentSources(ctx context.Context, agentID domain.AgentID) ([]domain.Source, error) {
	if v.sources == nil || agentID == "" {
		return nil, nil
	}
	sources, err := v.sources.ListSources(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	return sources, nil
}

func (v *VertexBackend) generate(ctx context.Context, system, user string, temperature float32) (string, error) {
	topP := float32(0.9)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temperature,
		TopP:              &topP,
		MaxOutputTokens:   4096,
	}

	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}
	return text, nil
}
