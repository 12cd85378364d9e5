// Package composer captures one outbound chat message from text, voice
// or file input. It is a small state machine: idle, recording (voice
// capture overwrites the text buffer), file-attached and disabled (a
// send is in flight).
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/preview"
)

// MaxFileSize caps attachments at 20 MB.
const MaxFileSize = 20 << 20

type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateFileAttached State = "file-attached"
	StateDisabled     State = "disabled"
)

// Validation and capture errors, surfaced to the user, never fatal.
var (
	ErrFileTooLarge = errors.New("file too large")
	ErrUnsupported  = errors.New("speech recognition unsupported")
	ErrMicDenied    = errors.New("microphone access denied")
	ErrNoMicrophone = errors.New("no microphone")
	ErrNoSpeech     = errors.New("no speech detected")
)

const (
	msgFileTooLarge = "File size must be less than 20MB"
	msgUnsupported  = "Speech recognition is not supported on this device."
	msgMicDenied    = "Microphone access denied. Please allow microphone access."
	msgNoMicrophone = "No microphone found. Please check your microphone."
	msgNoSpeech     = "No speech detected. Please try again."
)

// Attachment is a staged file. PreviewURL is set for images only and is
// owned by the composer until the attachment is submitted or removed.
type Attachment struct {
	Name       string
	MIMEType   string
	Data       []byte
	PreviewURL string
}

// Outbound is the single message a successful Submit emits.
type Outbound struct {
	Text string
	File *Attachment
}

// TranscriptEvent is one voice-capture update. Text carries the best
// transcript so far (interim results included); Err reports a capture
// failure. The recognizer closes its channel when capture ends.
type TranscriptEvent struct {
	Text string
	Err  error
}

// Recognizer abstracts platform voice-to-text. Start returns an event
// channel or an error (ErrUnsupported, ErrMicDenied, ErrNoMicrophone).
type Recognizer interface {
	Start(ctx context.Context) (<-chan TranscriptEvent, error)
	Stop()
}

type Composer struct {
	mu        sync.Mutex
	text      string
	file      *Attachment
	disabled  bool
	recording bool
	lastErr   string

	recognizer Recognizer
	previews   *preview.Registry
	logger     *zap.Logger
}

func New(recognizer Recognizer, previews *preview.Registry, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if previews == nil {
		previews = preview.NewRegistry()
	}
	return &Composer{recognizer: recognizer, previews: previews, logger: logger}
}

func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.disabled:
		return StateDisabled
	case c.recording:
		return StateRecording
	case c.file != nil:
		return StateFileAttached
	default:
		return StateIdle
	}
}

func (c *Composer) SetText(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = s
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// SetDisabled suppresses submission while a send is in flight.
func (c *Composer) SetDisabled(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = disabled
}

// Err returns the current user-facing validation/capture message, empty
// when there is none.
func (c *Composer) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// AttachFile stages a single attachment. An oversized file is rejected
// and the composer keeps whatever was staged before. Image attachments
// get a preview reference.
func (c *Composer) AttachFile(name, mimeType string, data []byte) error {
	if len(data) > MaxFileSize {
		c.mu.Lock()
		c.lastErr = msgFileTooLarge
		c.mu.Unlock()
		return fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, name, len(data))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePreviewLocked()

	att := &Attachment{Name: name, MIMEType: mimeType, Data: data}
	if strings.HasPrefix(mimeType, "image/") {
		att.PreviewURL = c.previews.Create(name, mimeType, data)
	}
	c.file = att
	c.lastErr = ""
	return nil
}

// RemoveFile discards the staged attachment and its preview.
func (c *Composer) RemoveFile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releasePreviewLocked()
	c.file = nil
}

func (c *Composer) releasePreviewLocked() {
	if c.file != nil && c.file.PreviewURL != "" {
		c.previews.Release(c.file.PreviewURL)
	}
}

// ToggleRecording starts or stops voice capture. While capture runs,
// every transcript event overwrites the text buffer.
func (c *Composer) ToggleRecording(ctx context.Context) {
	c.mu.Lock()
	if c.recording {
		c.recording = false
		c.lastErr = ""
		c.mu.Unlock()
		if c.recognizer != nil {
			c.recognizer.Stop()
		}
		return
	}
	if c.recognizer == nil {
		c.lastErr = msgUnsupported
		c.mu.Unlock()
		return
	}
	c.lastErr = ""
	c.text = ""
	c.mu.Unlock()

	events, err := c.recognizer.Start(ctx)
	if err != nil {
		c.mu.Lock()
		c.lastErr = captureErrMessage(err)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.recording = true
	c.mu.Unlock()

	go c.consumeTranscripts(events)
}

func (c *Composer) consumeTranscripts(events <-chan TranscriptEvent) {
	for ev := range events {
		c.mu.Lock()
		if !c.recording {
			c.mu.Unlock()
			continue
		}
		if ev.Err != nil {
			c.lastErr = captureErrMessage(ev.Err)
			// No speech is a nudge, not a failure; capture keeps going.
			if !errors.Is(ev.Err, ErrNoSpeech) {
				c.recording = false
			}
			c.mu.Unlock()
			continue
		}
		c.text = ev.Text
		c.lastErr = ""
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()
}

func captureErrMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupported):
		return msgUnsupported
	case errors.Is(err, ErrMicDenied):
		return msgMicDenied
	case errors.Is(err, ErrNoMicrophone):
		return msgNoMicrophone
	case errors.Is(err, ErrNoSpeech):
		return msgNoSpeech
	default:
		return fmt.Sprintf("Speech error: %v. Please try again.", err)
	}
}

// Submit emits exactly one outbound message and resets the composer.
// With no trimmed text and no file, or while disabled, it is a no-op.
func (c *Composer) Submit() (Outbound, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disabled {
		return Outbound{}, false
	}
	if strings.TrimSpace(c.text) == "" && c.file == nil {
		return Outbound{}, false
	}

	out := Outbound{Text: c.text, File: c.file}
	if out.File != nil && out.File.PreviewURL != "" {
		// The composer-scoped preview dies with the composer state; the
		// thread controller issues its own for the appended message.
		c.previews.Release(out.File.PreviewURL)
		out.File.PreviewURL = ""
	}
	c.text = ""
	c.file = nil
	c.lastErr = ""
	return out, true
}
