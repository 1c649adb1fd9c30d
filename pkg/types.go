package pkg

// MessageRole describes who authored a transcript message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is a single entry in a session transcript. Messages are immutable
// once appended.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Transcript is the ordered message history of one conversation session.
// Append-only except for full deletion via session reset. The first message
// of a non-empty transcript is always the system prompt.
type Transcript []Message

// PatientRecord is one entry of the static patient directory. Records are
// loaded once at startup and never mutated.
type PatientRecord struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	DateOfBirth     string `json:"date_of_birth"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// Voice describes one entry of the voice catalog: a provider voice id plus a
// human-readable display name. The catalog is advisory; request payloads carry
// raw provider voice ids.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	VoiceID   string `json:"voice_id"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response       string `json:"response"`
	SessionID      string `json:"session_id"`
	MessageCount   int    `json:"message_count"`
	SpeechEnabled  bool   `json:"speech_enabled"`
	AudioAvailable bool   `json:"audio_available"`
}

// VoiceChatRequest is the body of POST /voice_chat. The utterance itself is
// captured server-side, so there is no message field.
type VoiceChatRequest struct {
	SessionID string `json:"session_id"`
	VoiceID   string `json:"voice_id"`
}

// VoiceChatResponse is returned by POST /voice_chat on a successful capture.
type VoiceChatResponse struct {
	UserInput      string `json:"user_input"`
	Response       string `json:"response"`
	SessionID      string `json:"session_id"`
	MessageCount   int    `json:"message_count"`
	SpeechEnabled  bool   `json:"speech_enabled"`
	AudioAvailable bool   `json:"audio_available"`
}

// SpeakRequest is the body of POST /speak.
type SpeakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

// ResetRequest is the body of POST /reset.
type ResetRequest struct {
	SessionID string `json:"session_id"`
}

// ResetResponse is returned by POST /reset.
type ResetResponse struct {
	Message       string `json:"message"`
	SessionID     string `json:"session_id"`
	SpeechEnabled bool   `json:"speech_enabled"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status          string          `json:"status"`
	ActiveSessions  int             `json:"active_sessions"`
	TotalMessages   int             `json:"total_messages"`
	Features        map[string]bool `json:"features"`
	AvailableVoices int             `json:"available_voices"`
}
