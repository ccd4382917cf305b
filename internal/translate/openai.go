package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultTranslationModel = "gpt-4o-mini"

// OpenAIClient translates text through an OpenAI chat model.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI translation client.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		model = defaultTranslationModel
	}

	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Translate translates text between two language codes.
func (c *OpenAIClient) Translate(ctx context.Context, text, sourceCode, targetCode string) (*Result, error) {
	system := fmt.Sprintf(
		"You are a translation engine for live phone calls. Translate the user's text from %s to %s. Reply with the translation only, no commentary.",
		sourceCode, targetCode,
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("translation returned no choices")
	}

	return &Result{
		TranslatedText:     strings.TrimSpace(resp.Choices[0].Message.Content),
		SourceLanguageCode: sourceCode,
		TargetLanguageCode: targetCode,
	}, nil
}
