// Package llm wraps the hosted chat-completion and transcription APIs behind
// a small interface the orchestrator and speech layers consume. Groq exposes
// an OpenAI-compatible surface, so the OpenAI client is pointed at its base
// URL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a chat message as sent to the completion API. ToolCallID is set
// only on tool-result messages; ToolCalls only on assistant messages that
// requested tool invocations.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Tool describes a function the model may call. Parameters is a JSON-schema
// shaped value serialized by the underlying client.
type Tool struct {
	Name        string
	Description string
	Parameters  any
}

// Reply is the model's turn: either content, or one or more tool calls the
// caller must execute and feed back.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// Client defines the operations required by the dialogue orchestrator and the
// speech-to-text path.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []Tool) (Reply, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// GroqClient calls Groq's OpenAI-compatible API for chat completions and
// Whisper transcription.
type GroqClient struct {
	client       *openai.Client
	chatModel    string
	whisperModel string
}

// Options configures a GroqClient.
type Options struct {
	APIKey       string
	BaseURL      string
	ChatModel    string
	WhisperModel string
}

// NewGroqClient constructs a Groq-backed client.
func NewGroqClient(opts Options) *GroqClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &GroqClient{
		client:       openai.NewClientWithConfig(cfg),
		chatModel:    opts.ChatModel,
		whisperModel: opts.WhisperModel,
	}
}

// Chat sends the message history (plus tool definitions, if any) to the chat
// completion API and returns the assistant's turn.
func (c *GroqClient) Chat(ctx context.Context, messages []Message, tools []Tool) (Reply, error) {
	if c.client == nil {
		return Reply{}, errors.New("groq client not initialized")
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		om := openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		oaMsgs = append(oaMsgs, om)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    oaMsgs,
		Temperature: 0.7,
		MaxTokens:   150,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, err
	}
	if len(resp.Choices) == 0 {
		return Reply{}, nil
	}
	msg := resp.Choices[0].Message
	out := Reply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// Transcribe sends captured audio to the Whisper transcription endpoint and
// returns the recognized text. The filename extension tells the API the
// container format of the audio.
func (c *GroqClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.whisperModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return resp.Text, nil
}
