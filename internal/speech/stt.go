package speech

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"reception-voicebot/internal/llm"
)

// ResultKind tags the outcome of a listen-and-transcribe attempt.
type ResultKind int

const (
	// Recognized carries transcribed text in Result.Text.
	Recognized ResultKind = iota
	// Timeout means no speech was captured within the listen window.
	Timeout
	// Unintelligible means audio was captured but produced no usable text.
	Unintelligible
	// ServiceError means capture or the recognition service failed;
	// Result.Err holds the cause.
	ServiceError
	// Busy means another capture already holds the input device.
	Busy
)

// Result is the outcome of Listener.Listen. Callers branch on Kind; the
// legacy sentinel strings exist only at the wire boundary via Sentence.
type Result struct {
	Kind ResultKind
	Text string
	Err  error
}

// Sentence renders the result as the conversational strings the HTTP API has
// always returned. Clients detect failures by substring ("Sorry" plus
// "didn't hear"/"couldn't understand"), so these are load-bearing.
func (r Result) Sentence() string {
	switch r.Kind {
	case Recognized:
		return r.Text
	case Timeout:
		return "Sorry, I didn't hear anything. Please try again."
	case Unintelligible:
		return "Sorry, I couldn't understand what you said. Please try again."
	case Busy:
		return "Sorry, the microphone is busy with another request. Please try again."
	default:
		return "Sorry, there was an error with the speech recognition service: " + r.Err.Error()
	}
}

// Recorder captures one utterance from the local audio input and returns the
// raw WAV bytes. Implementations return an empty slice when nothing was
// heard within the listen window.
type Recorder interface {
	Record(ctx context.Context) ([]byte, error)
}

// CommandRecorder shells out to a capture tool (arecord by default) that
// writes WAV to stdout for a bounded duration.
type CommandRecorder struct {
	Command []string
	Window  time.Duration
}

// Record runs the capture command under a deadline covering the listen
// window. The command's stdout is the captured WAV stream.
func (c *CommandRecorder) Record(ctx context.Context) ([]byte, error) {
	if len(c.Command) == 0 {
		return nil, errors.New("no capture command configured")
	}
	window := c.Window
	if window == 0 {
		window = 15 * time.Second
	}
	// Grace beyond the capture duration so the tool can flush and exit.
	ctx, cancel := context.WithTimeout(ctx, window+2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Listener records from the local input device and transcribes the capture
// with the hosted recognition service. The device is exclusive-access: a
// second Listen while one is in flight is rejected with Busy rather than
// interleaving captures.
type Listener struct {
	recorder    Recorder
	transcriber llm.Client
	log         *zap.Logger

	mu sync.Mutex
}

// NewListener wires a recorder to the transcription client.
func NewListener(recorder Recorder, transcriber llm.Client, log *zap.Logger) *Listener {
	return &Listener{recorder: recorder, transcriber: transcriber, log: log}
}

// minCaptureBytes is a WAV header plus a trivial amount of PCM; captures at
// or below this are silence-only and treated as a listen timeout.
const minCaptureBytes = 1024

// Listen performs one capture-and-transcribe round and reports a tagged
// Result; it never returns an error through a second channel.
func (l *Listener) Listen(ctx context.Context) Result {
	if !l.mu.TryLock() {
		return Result{Kind: Busy}
	}
	defer l.mu.Unlock()

	l.log.Info("listening")
	audio, err := l.recorder.Record(ctx)
	if err != nil {
		return Result{Kind: ServiceError, Err: err}
	}
	if len(audio) <= minCaptureBytes {
		return Result{Kind: Timeout}
	}

	l.log.Info("processing speech", zap.Int("bytes", len(audio)))
	text, err := l.transcriber.Transcribe(ctx, "capture.wav", bytes.NewReader(audio))
	if err != nil {
		return Result{Kind: ServiceError, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{Kind: Unintelligible}
	}
	l.log.Info("recognized", zap.String("text", text))
	return Result{Kind: Recognized, Text: text}
}
