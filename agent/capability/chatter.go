package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
	promptx "github.com/Dispatch-AI-com/AI/agent/prompt"
	statex "github.com/Dispatch-AI-com/AI/agent/state"
)

const chatHistoryWindow = 6

// Chatter generates free-form conversational replies through the raw
// OpenAI SDK client. Used by the chatbot strategy; it never extracts
// structured data.
type Chatter struct {
	client       *openaisdk.Client
	model        string
	temperature  float64
	maxTokens    int64
	systemPrompt string
}

var _ contractx.Chatter = (*Chatter)(nil)

func NewChatter(client *openaisdk.Client, model string, temperature float64) (*Chatter, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("chat model is required")
	}

	return &Chatter{
		client:       client,
		model:        model,
		temperature:  temperature,
		maxTokens:    200,
		systemPrompt: promptx.LoadPromptSet().Chatbot,
	}, nil
}

func (c *Chatter) Reply(ctx context.Context, req contractx.ChatRequest) (string, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return "", fmt.Errorf("%w: utterance is required", contractx.ErrValidation)
	}

	messages := []openaisdk.ChatCompletionMessageParamUnion{
		openaisdk.SystemMessage(c.buildSystemPrompt(req)),
	}

	history := req.History
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		switch turn.Speaker {
		case statex.SpeakerCustomer:
			messages = append(messages, openaisdk.UserMessage(text))
		case statex.SpeakerAgent:
			messages = append(messages, openaisdk.AssistantMessage(text))
		}
	}
	messages = append(messages, openaisdk.UserMessage(req.Utterance))

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(c.model),
		Messages:    messages,
		Temperature: openaisdk.Float(c.temperature),
		MaxTokens:   openaisdk.Int(c.maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty chat completion", contractx.ErrSchemaViolation)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty chat message", contractx.ErrSchemaViolation)
	}
	return content, nil
}

func (c *Chatter) buildSystemPrompt(req contractx.ChatRequest) string {
	var b strings.Builder
	b.WriteString(c.systemPrompt)
	if name := strings.TrimSpace(req.CompanyName); name != "" {
		b.WriteString("\n\nYou are answering on behalf of ")
		b.WriteString(name)
		b.WriteString(".")
	}
	if req.Intent != "" {
		b.WriteString("\nThe caller's intent has been classified as: ")
		b.WriteString(string(req.Intent))
		b.WriteString(".")
	}
	return b.String()
}
