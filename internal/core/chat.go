package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"reception-voicebot/internal/llm"
	"reception-voicebot/internal/patients"
	"reception-voicebot/pkg"
)

// maxToolRounds bounds the verify-then-respond loop so a misbehaving model
// cannot keep the request open indefinitely.
const maxToolRounds = 3

// Receptionist advances patient-verification conversations. It owns the
// system prompt (built once from the directory snapshot at construction) and
// runs the deterministic verification step whenever the model asks for it.
type Receptionist struct {
	llm       llm.Client
	directory *patients.Directory
	prompt    string
	log       *zap.Logger
}

// NewReceptionist builds the orchestrator. The system prompt captures the
// directory snapshot at this moment and is never refreshed.
func NewReceptionist(client llm.Client, directory *patients.Directory, log *zap.Logger) *Receptionist {
	return &Receptionist{
		llm:       client,
		directory: directory,
		prompt:    SystemPrompt(directory.Snapshot()),
		log:       log,
	}
}

// Advance appends the user's utterance to the transcript, obtains the
// assistant reply, appends it, and returns the updated transcript plus the
// reply text.
//
// An empty transcript is seeded with the system prompt and the canned
// greeting and returned without calling the model; an utterance passed on
// that first turn is discarded, matching the session bootstrap contract.
//
// Model failures never propagate: the error text becomes the assistant reply
// so the conversation continues with a visible error entry.
func (r *Receptionist) Advance(ctx context.Context, transcript pkg.Transcript, utterance string) (pkg.Transcript, string) {
	if len(transcript) == 0 {
		transcript = append(transcript,
			pkg.Message{Role: pkg.RoleSystem, Content: r.prompt},
			pkg.Message{Role: pkg.RoleAssistant, Content: Greeting},
		)
		return transcript, Greeting
	}

	transcript = append(transcript, pkg.Message{Role: pkg.RoleUser, Content: utterance})
	reply := r.complete(ctx, transcript)
	transcript = append(transcript, pkg.Message{Role: pkg.RoleAssistant, Content: reply})
	return transcript, reply
}

// complete runs the model over the transcript, executing verify_patient tool
// calls until the model produces a user-facing reply. Tool round-trips stay
// out of the stored transcript; only system/user/assistant roles persist.
func (r *Receptionist) complete(ctx context.Context, transcript pkg.Transcript) string {
	msgs := make([]llm.Message, 0, len(transcript)+2)
	for _, m := range transcript {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	tools := []llm.Tool{verifyTool()}

	for round := 0; round < maxToolRounds; round++ {
		reply, err := r.llm.Chat(ctx, msgs, tools)
		if err != nil {
			return errorReply(err)
		}
		if len(reply.ToolCalls) == 0 {
			return reply.Content
		}

		msgs = append(msgs, llm.Message{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		})
		for _, tc := range reply.ToolCalls {
			msgs = append(msgs, llm.Message{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: tc.ID,
				Content:    r.runTool(tc),
			})
		}
	}
	r.log.Warn("model never produced a final reply after tool rounds")
	return "Sorry, I cannot find a patient with those details in our system"
}

// verifyArgs mirrors the verify_patient tool's JSON argument schema.
type verifyArgs struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
}

func verifyTool() llm.Tool {
	return llm.Tool{
		Name:        "verify_patient",
		Description: "Check a caller's name, phone number and date of birth against the patient records. Call this exactly once, only after all three fields have been collected.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":          map[string]any{"type": "string", "description": "Patient full name as given by the caller"},
				"phone":         map[string]any{"type": "string", "description": "Phone number as given by the caller"},
				"date_of_birth": map[string]any{"type": "string", "description": "Date of birth in YYYY-MM-DD format"},
			},
			"required": []string{"name", "phone", "date_of_birth"},
		},
	}
}

// runTool executes a verify_patient call against the directory and returns
// the JSON result fed back to the model.
func (r *Receptionist) runTool(tc llm.ToolCall) string {
	if tc.Name != "verify_patient" {
		return `{"error": "unknown function"}`
	}
	var args verifyArgs
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return `{"error": "invalid arguments"}`
	}

	ok, rec := r.directory.Verify(args.Name, args.Phone, args.DateOfBirth)
	r.log.Info("patient verification",
		zap.Bool("verified", ok),
		zap.String("name", args.Name),
	)
	if !ok {
		return `{"verified": false}`
	}
	result, err := json.Marshal(map[string]any{
		"verified":         true,
		"appointment_date": rec.AppointmentDate,
		"appointment_time": rec.AppointmentTime,
	})
	if err != nil {
		return `{"verified": true}`
	}
	return string(result)
}

// errorReply renders a model failure as conversation text. HTTP-level API
// failures keep the "Error: <status> - <body>" shape; everything else becomes
// "Error calling API: <message>".
func errorReply(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Error: %d - %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("Error: %d - %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Sprintf("Error calling API: %s", err)
}
