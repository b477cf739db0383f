package connector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/anuj67851/graph-rag-metadata/helper"
	"github.com/anuj67851/graph-rag-metadata/model"
	"github.com/anuj67851/graph-rag-metadata/prompts"
)

var numberedListPrefix = regexp.MustCompile(`^\d+[\.\)]\s*`)

// OpenAILLM talks to an OpenAI compatible chat completion API. Separate
// models handle answer generation, query expansion, graph extraction and
// embeddings so cheaper models can serve the high-volume calls.
type OpenAILLM struct {
	client          *openai.Client
	prompts         *prompts.Config
	schema          *prompts.Schema
	responseModel   string
	expansionModel  string
	extractionModel string
	embeddingModel  string
	logger          *slog.Logger
}

// NewOpenAILLM creates the client. An empty base URL targets the OpenAI API,
// anything else an OpenAI compatible endpoint.
func NewOpenAILLM(config *helper.Configuration, promptsConfig *prompts.Config, schema *prompts.Schema, logger *slog.Logger) *OpenAILLM {
	clientConfig := openai.DefaultConfig(config.OpenAIAPIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}

	return &OpenAILLM{
		client:          openai.NewClientWithConfig(clientConfig),
		prompts:         promptsConfig,
		schema:          schema,
		responseModel:   config.ResponseModel,
		expansionModel:  config.ExpansionModel,
		extractionModel: config.ExtractionModel,
		embeddingModel:  config.EmbeddingModel,
		logger:          logger,
	}
}

// Generate produces the final answer for a query from the combined chunk and
// graph context.
func (l *OpenAILLM) Generate(ctx context.Context, query string, combinedContext string) (string, error) {
	template, err := l.prompts.UserPrompt(prompts.PromptGenerateResponseFromContext)
	if err != nil {
		return "", helper.NewError("generation prompt", err)
	}

	userMessage := prompts.Render(template, map[string]string{
		"user_query":       query,
		"combined_context": combinedContext,
	})
	systemMessage := l.prompts.SystemMessage(prompts.SystemGraphRAGAssistant, "You are a helpful assistant.")

	return l.chat(ctx, l.responseModel, systemMessage, userMessage, false)
}

// ExpandQuery asks for up to count alternative phrasings of the query, given
// preliminary retrieval context. The response is expected as a numbered
// list, one phrasing per line.
func (l *OpenAILLM) ExpandQuery(ctx context.Context, query string, retrievalContext string, count int) ([]string, error) {
	template, err := l.prompts.UserPrompt(prompts.PromptExpandQuery)
	if err != nil {
		return nil, helper.NewError("expansion prompt", err)
	}

	userMessage := prompts.Render(template, map[string]string{
		"user_query": query,
		"context":    retrievalContext,
		"count":      strconv.Itoa(count),
	})
	systemMessage := l.prompts.SystemMessage(prompts.SystemQueryExpansion, "You rephrase search queries.")

	response, err := l.chat(ctx, l.expansionModel, systemMessage, userMessage, false)
	if err != nil {
		return nil, err
	}

	return parseQueryList(response, count), nil
}

// ExtractGraph extracts entities and relationships from a text chunk using
// JSON mode, guided by the configured schema hint.
func (l *OpenAILLM) ExtractGraph(ctx context.Context, text string) (*model.ExtractionResult, error) {
	template, err := l.prompts.UserPrompt(prompts.PromptExtractEntitiesRelationships)
	if err != nil {
		return nil, helper.NewError("extraction prompt", err)
	}

	userMessage := prompts.Render(template, map[string]string{
		"text_chunk":  text,
		"schema_hint": l.schema.Hint(),
	})
	systemMessage := l.prompts.SystemMessage(prompts.SystemJSONExpert, "Output valid JSON.")

	response, err := l.chat(ctx, l.extractionModel, systemMessage, userMessage, true)
	if err != nil {
		return nil, err
	}

	result := &model.ExtractionResult{}
	err = json.Unmarshal([]byte(stripJSONFences(response)), result)
	if err != nil {
		return nil, helper.NewError("extraction response", err)
	}
	return result, nil
}

// Embed returns the embedding vector for a text. Newlines are flattened
// first, an empty text is an error.
func (l *OpenAILLM) Embed(ctx context.Context, text string) ([]float32, error) {
	flattened := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if flattened == "" {
		return nil, errors.New("cannot embed empty text")
	}

	response, err := l.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{flattened},
		Model: openai.EmbeddingModel(l.embeddingModel),
	})
	if err != nil {
		return nil, helper.NewError("embedding request", err)
	}
	if len(response.Data) == 0 {
		return nil, errors.New("embedding response contained no data")
	}
	return response.Data[0].Embedding, nil
}

func (l *OpenAILLM) chat(ctx context.Context, chatModel string, systemMessage string, userMessage string, jsonMode bool) (string, error) {
	request := openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}
	if jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	response, err := l.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", helper.NewError("chat completion", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

// parseQueryList extracts up to count phrasings from a numbered or bulleted
// list response, one per line.
func parseQueryList(response string, count int) []string {
	queries := make([]string, 0, count)
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		line = numberedListPrefix.ReplaceAllString(line, "")
		line = strings.TrimPrefix(line, "- ")
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) >= count {
			break
		}
	}
	return queries
}

// stripJSONFences removes a markdown code fence around a JSON payload, which
// some models emit even in JSON mode.
func stripJSONFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
