package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Spool stores synthesized audio on disk, one uniquely named file per
// request, and remembers the most recent file for the last-audio endpoint.
// Unique names remove the shared-output-file race: a reader can never observe
// a half-written or wrong-session file, because files are written complete
// before becoming "last". Old files are garbage-collected past a count bound.
type Spool struct {
	dir      string
	maxFiles int
	log      *zap.Logger

	mu    sync.Mutex
	last  string
	files []string // oldest first
}

// NewSpool creates the spool directory if needed. maxFiles bounds how many
// audio files are kept; older files are removed as new ones arrive.
func NewSpool(dir string, maxFiles int, log *zap.Logger) (*Spool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	if maxFiles <= 0 {
		maxFiles = 32
	}
	return &Spool{dir: dir, maxFiles: maxFiles, log: log}, nil
}

// Put writes audio to a fresh file tagged with the session id and returns its
// path. The file becomes the spool's most recent entry.
func (p *Spool) Put(sessionID string, audio []byte) (string, error) {
	name := fmt.Sprintf("%s-%s.mp3", sanitize(sessionID), uuid.NewString())
	path := filepath.Join(p.dir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}

	p.mu.Lock()
	p.last = path
	p.files = append(p.files, path)
	var stale []string
	if n := len(p.files) - p.maxFiles; n > 0 {
		stale = p.files[:n]
		p.files = p.files[n:]
	}
	p.mu.Unlock()

	for _, old := range stale {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			p.log.Warn("failed to remove spooled audio", zap.String("path", old), zap.Error(err))
		}
	}
	return path, nil
}

// Last returns the path of the most recently written audio file, or false
// when nothing has been spooled yet.
func (p *Spool) Last() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == "" {
		return "", false
	}
	return p.last, true
}

// sanitize keeps session-derived file names flat: anything outside
// [A-Za-z0-9_-] becomes "_" so a session id cannot traverse directories.
func sanitize(s string) string {
	if s == "" {
		return "session"
	}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out[i] = c
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
