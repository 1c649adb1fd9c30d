package http

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"reception-voicebot/internal/core"
	"reception-voicebot/internal/session"
	"reception-voicebot/internal/speech"
	"reception-voicebot/pkg"
)

//go:embed templates/*.html
var templateFS embed.FS

// Synthesizer converts reply text to MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Listener captures one utterance from the local input device and
// transcribes it.
type Listener interface {
	Listen(ctx context.Context) speech.Result
}

// Server bundles the dependencies required by the HTTP handlers. It
// implements http.Handler so it can be passed to http.ListenAndServe.
type Server struct {
	Sessions  *session.Store
	Chat      *core.Receptionist
	Synth     Synthesizer
	Listener  Listener
	Spool     *speech.Spool
	Templates *template.Template
	Timeout   time.Duration
	Log       *zap.Logger
}

// NewServer constructs a Server with templates parsed from the embedded
// filesystem.
func NewServer(sessions *session.Store, chat *core.Receptionist, synth Synthesizer, listener Listener, spool *speech.Spool, timeout time.Duration, log *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		Sessions:  sessions,
		Chat:      chat,
		Synth:     synth,
		Listener:  listener,
		Spool:     spool,
		Templates: tmpl,
		Timeout:   timeout,
		Log:       log,
	}, nil
}

// ServeHTTP dispatches incoming requests by path and method. Minimal routing
// logic is implemented here to keep dependencies light. Panics become a
// generic JSON 500 with the detail logged server-side only.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.Log.Error("panic in handler", zap.Any("panic", rec), zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
	}()

	switch {
	case r.URL.Path == "/" && r.Method == http.MethodGet:
		s.handleHome(w, r)
	case r.URL.Path == "/voices" && r.Method == http.MethodGet:
		s.handleVoices(w, r)
	case r.URL.Path == "/chat" && r.Method == http.MethodPost:
		s.handleChat(w, r)
	case r.URL.Path == "/voice_chat" && r.Method == http.MethodPost:
		s.handleVoiceChat(w, r)
	case r.URL.Path == "/speak" && r.Method == http.MethodPost:
		s.handleSpeak(w, r)
	case r.URL.Path == "/get_audio" && r.Method == http.MethodGet:
		s.handleGetAudio(w, r)
	case r.URL.Path == "/reset" && r.Method == http.MethodPost:
		s.handleReset(w, r)
	case r.URL.Path == "/status" && r.Method == http.MethodGet:
		s.handleStatus(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if err := s.Templates.ExecuteTemplate(w, "index.html", nil); err != nil {
		s.Log.Error("template render failed", zap.Error(err))
	}
}

func (s *Server) handleVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"voices": speech.Voices})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No JSON data provided"})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No message provided"})
		return
	}
	sessionID := orDefault(req.SessionID)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	reply, count := s.advance(ctx, sessionID, req.Message)
	audioOK := s.synthesizeToSpool(ctx, sessionID, reply, req.VoiceID)

	writeJSON(w, http.StatusOK, pkg.ChatResponse{
		Response:       reply,
		SessionID:      sessionID,
		MessageCount:   count,
		SpeechEnabled:  true,
		AudioAvailable: audioOK,
	})
}

func (s *Server) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	var req pkg.VoiceChatRequest
	// An absent or empty body just means defaults.
	_ = json.NewDecoder(r.Body).Decode(&req)
	sessionID := orDefault(req.SessionID)

	ctx, cancel := s.requestContext(r)
	defer cancel()

	result := s.Listener.Listen(ctx)
	if result.Kind != speech.Recognized {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":          result.Sentence(),
			"session_id":     sessionID,
			"speech_enabled": true,
		})
		return
	}

	reply, count := s.advance(ctx, sessionID, result.Text)
	audioOK := s.synthesizeToSpool(ctx, sessionID, reply, req.VoiceID)

	writeJSON(w, http.StatusOK, pkg.VoiceChatResponse{
		UserInput:      result.Text,
		Response:       reply,
		SessionID:      sessionID,
		MessageCount:   count,
		SpeechEnabled:  true,
		AudioAvailable: audioOK,
	})
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req pkg.SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No JSON data provided"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No text provided"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	audio, err := s.Synth.Synthesize(ctx, req.Text, req.VoiceID)
	if err != nil {
		s.Log.Error("synthesis failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate audio"})
		return
	}
	if _, err := s.Spool.Put("speak", audio); err != nil {
		s.Log.Warn("failed to spool audio", zap.Error(err))
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audio)
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	path, ok := s.Spool.Last()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Audio file not found"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, path)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req pkg.ResetRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	sessionID := orDefault(req.SessionID)

	s.Sessions.Reset(sessionID)

	writeJSON(w, http.StatusOK, pkg.ResetResponse{
		Message:       "Chat history reset successfully",
		SessionID:     sessionID,
		SpeechEnabled: true,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	sessions, messages := s.Sessions.Stats()
	writeJSON(w, http.StatusOK, pkg.StatusResponse{
		Status:         "healthy",
		ActiveSessions: sessions,
		TotalMessages:  messages,
		Features: map[string]bool{
			"text_to_speech":  true,
			"speech_to_text":  true,
			"voice_to_voice":  true,
			"multiple_voices": true,
			"auto_speak":      true,
		},
		AvailableVoices: len(speech.Voices),
	})
}

// advance runs the dialogue orchestrator over the session's transcript under
// the session's lock and reports the reply plus the new message count.
func (s *Server) advance(ctx context.Context, sessionID, utterance string) (reply string, count int) {
	_ = s.Sessions.Update(sessionID, func(t pkg.Transcript) (pkg.Transcript, error) {
		t, reply = s.Chat.Advance(ctx, t, utterance)
		count = len(t)
		return t, nil
	})
	return reply, count
}

// synthesizeToSpool converts the reply to audio as a side effect of the chat
// endpoints. Failures degrade to audio_available=false rather than failing
// the request.
func (s *Server) synthesizeToSpool(ctx context.Context, sessionID, text, voiceID string) bool {
	audio, err := s.Synth.Synthesize(ctx, text, voiceID)
	if err != nil {
		s.Log.Warn("synthesis failed", zap.String("session_id", sessionID), zap.Error(err))
		return false
	}
	if _, err := s.Spool.Put(sessionID, audio); err != nil {
		s.Log.Warn("failed to spool audio", zap.Error(err))
		return false
	}
	return true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.Timeout)
}

func orDefault(sessionID string) string {
	if sessionID == "" {
		return session.DefaultSessionID
	}
	return sessionID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
