package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"reception-voicebot/internal/core"
	"reception-voicebot/internal/llm"
	"reception-voicebot/internal/patients"
	"reception-voicebot/internal/session"
	"reception-voicebot/internal/speech"
	"reception-voicebot/pkg"
)

// scriptedLLM always returns the same reply.
type scriptedLLM struct {
	reply string
	err   error
}

func (f *scriptedLLM) Chat(context.Context, []llm.Message, []llm.Tool) (llm.Reply, error) {
	if f.err != nil {
		return llm.Reply{}, f.err
	}
	return llm.Reply{Content: f.reply}, nil
}

func (f *scriptedLLM) Transcribe(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("not used")
}

type fakeSynth struct {
	audio []byte
	err   error
}

func (f *fakeSynth) Synthesize(context.Context, string, string) ([]byte, error) {
	return f.audio, f.err
}

type fakeListener struct {
	result speech.Result
}

func (f *fakeListener) Listen(context.Context) speech.Result { return f.result }

type serverOptions struct {
	llm      llm.Client
	synth    Synthesizer
	listener Listener
}

func newTestServer(t *testing.T, opts serverOptions) *Server {
	t.Helper()
	log := zaptest.NewLogger(t)

	if opts.llm == nil {
		opts.llm = &scriptedLLM{reply: "Thanks! What is your phone number?"}
	}
	if opts.synth == nil {
		opts.synth = &fakeSynth{audio: []byte("mp3")}
	}
	if opts.listener == nil {
		opts.listener = &fakeListener{result: speech.Result{Kind: speech.Recognized, Text: "hello"}}
	}

	dir := patients.Load("no-such-file.json", log)
	sessions := session.NewStore(30*time.Minute, 64, log)
	t.Cleanup(sessions.Close)
	spool, err := speech.NewSpool(t.TempDir(), 8, log)
	require.NoError(t, err)

	srv, err := NewServer(
		sessions,
		core.NewReceptionist(opts.llm, dir, log),
		opts.synth,
		opts.listener,
		spool,
		5*time.Second,
		log,
	)
	require.NoError(t, err)
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func getPath(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestChatFirstCallGreetsWithoutModel(t *testing.T) {
	// A model error would leak into the reply if the first call consulted it.
	srv := newTestServer(t, serverOptions{llm: &scriptedLLM{err: errors.New("must not be called")}})

	w := postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[pkg.ChatResponse](t, w)
	assert.Equal(t, core.Greeting, resp.Response)
	assert.Equal(t, "default", resp.SessionID)
	assert.GreaterOrEqual(t, resp.MessageCount, 2)
	assert.True(t, resp.SpeechEnabled)
	assert.True(t, resp.AudioAvailable)
}

func TestChatSecondCallUsesModel(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi", SessionID: "s1"})
	w := postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "John Smith", SessionID: "s1"})

	resp := decode[pkg.ChatResponse](t, w)
	assert.Equal(t, "Thanks! What is your phone number?", resp.Response)
	assert.Equal(t, 4, resp.MessageCount)
}

func TestChatMissingMessage(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	w := postJSON(t, srv, "/chat", pkg.ChatRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No message provided", decode[map[string]string](t, w)["error"])
}

func TestChatInvalidBody(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatSynthesisFailureDegrades(t *testing.T) {
	srv := newTestServer(t, serverOptions{synth: &fakeSynth{err: errors.New("tts down")}})

	w := postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[pkg.ChatResponse](t, w)
	assert.False(t, resp.AudioAvailable)
	assert.Equal(t, core.Greeting, resp.Response)
}

func TestConcurrentChatSameSession(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	const calls = 16
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "hello", SessionID: "shared"})
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	// One call seeds (system + greeting, utterance discarded); the other
	// calls append a user/assistant pair each. Nothing lost or duplicated.
	tr := srv.Sessions.Transcript("shared")
	assert.Len(t, tr, 2+2*(calls-1))
	assert.Equal(t, pkg.RoleSystem, tr[0].Role)
}

func TestVoiceChatRecognized(t *testing.T) {
	srv := newTestServer(t, serverOptions{
		listener: &fakeListener{result: speech.Result{Kind: speech.Recognized, Text: "my name is John"}},
	})

	w := postJSON(t, srv, "/voice_chat", pkg.VoiceChatRequest{SessionID: "v1"})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[pkg.VoiceChatResponse](t, w)
	assert.Equal(t, "my name is John", resp.UserInput)
	assert.Equal(t, core.Greeting, resp.Response)
	assert.Equal(t, "v1", resp.SessionID)
}

func TestVoiceChatTimeoutReturnsSentinel(t *testing.T) {
	srv := newTestServer(t, serverOptions{
		listener: &fakeListener{result: speech.Result{Kind: speech.Timeout}},
	})

	w := postJSON(t, srv, "/voice_chat", pkg.VoiceChatRequest{SessionID: "v1"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]any](t, w)
	errText, _ := body["error"].(string)
	assert.Contains(t, errText, "Sorry")
	assert.Contains(t, errText, "didn't hear")

	// The failed capture must not create or grow a session.
	sessions, _ := srv.Sessions.Stats()
	assert.Zero(t, sessions)
}

func TestSpeak(t *testing.T) {
	srv := newTestServer(t, serverOptions{synth: &fakeSynth{audio: []byte("mp3-bytes")}})

	w := postJSON(t, srv, "/speak", pkg.SpeakRequest{Text: "Hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte("mp3-bytes"), w.Body.Bytes())
}

func TestSpeakMissingText(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	w := postJSON(t, srv, "/speak", pkg.SpeakRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No text provided", decode[map[string]string](t, w)["error"])
}

func TestSpeakSynthesisFailure(t *testing.T) {
	srv := newTestServer(t, serverOptions{synth: &fakeSynth{err: errors.New("boom")}})
	w := postJSON(t, srv, "/speak", pkg.SpeakRequest{Text: "Hello"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate audio", decode[map[string]string](t, w)["error"])
}

func TestGetAudio(t *testing.T) {
	srv := newTestServer(t, serverOptions{})

	w := getPath(srv, "/get_audio")
	assert.Equal(t, http.StatusNotFound, w.Code)

	postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi"})

	w = getPath(srv, "/get_audio")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, []byte("mp3"), w.Body.Bytes())
}

func TestResetIsIdempotent(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi", SessionID: "r1"})

	for i := 0; i < 2; i++ {
		w := postJSON(t, srv, "/reset", pkg.ResetRequest{SessionID: "r1"})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[pkg.ResetResponse](t, w)
		assert.Equal(t, "Chat history reset successfully", resp.Message)
		assert.Equal(t, "r1", resp.SessionID)
	}
	assert.Empty(t, srv.Sessions.Transcript("r1"))

	// Reset then chat starts a fresh session from the greeting.
	w := postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi", SessionID: "r1"})
	resp := decode[pkg.ChatResponse](t, w)
	assert.Equal(t, 2, resp.MessageCount)
}

func TestStatus(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi", SessionID: "s1"})
	postJSON(t, srv, "/chat", pkg.ChatRequest{Message: "Hi", SessionID: "s2"})

	w := getPath(srv, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[pkg.StatusResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 2, resp.ActiveSessions)
	assert.Equal(t, 4, resp.TotalMessages)
	assert.True(t, resp.Features["text_to_speech"])
	assert.Equal(t, 8, resp.AvailableVoices)
}

func TestVoicesCatalog(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	w := getPath(srv, "/voices")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Voices map[string]pkg.Voice `json:"voices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Voices, 8)
	assert.Equal(t, "pFZP5JQG7iQjIQuC4Bku", resp.Voices["aria"].ID)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	w := getPath(srv, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", decode[map[string]string](t, w)["error"])
}

func TestHomeRendersPage(t *testing.T) {
	srv := newTestServer(t, serverOptions{})
	w := getPath(srv, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Medical Office Receptionist")
}
