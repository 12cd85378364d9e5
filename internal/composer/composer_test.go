package composer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgs-labs/rgsai/internal/preview"
)

type fakeRecognizer struct {
	events   chan TranscriptEvent
	startErr error
	stopped  bool
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{events: make(chan TranscriptEvent, 8)}
}

func (f *fakeRecognizer) Start(ctx context.Context) (<-chan TranscriptEvent, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.events, nil
}

func (f *fakeRecognizer) Stop() {
	f.stopped = true
	close(f.events)
}

func TestSubmit_EmptyIsNoOp(t *testing.T) {
	c := New(nil, nil, nil)

	_, ok := c.Submit()
	assert.False(t, ok)

	c.SetText("   \n\t ")
	_, ok = c.Submit()
	assert.False(t, ok)
}

func TestSubmit_DisabledSuppressed(t *testing.T) {
	c := New(nil, nil, nil)
	c.SetText("hello")
	c.SetDisabled(true)

	_, ok := c.Submit()
	assert.False(t, ok)
	assert.Equal(t, StateDisabled, c.State())

	c.SetDisabled(false)
	out, ok := c.Submit()
	require.True(t, ok)
	assert.Equal(t, "hello", out.Text)
}

func TestSubmit_EmitsOnceAndClears(t *testing.T) {
	c := New(nil, nil, nil)
	c.SetText("what is this?")
	require.NoError(t, c.AttachFile("cat.png", "image/png", []byte{1, 2}))

	out, ok := c.Submit()
	require.True(t, ok)
	assert.Equal(t, "what is this?", out.Text)
	require.NotNil(t, out.File)
	assert.Equal(t, "cat.png", out.File.Name)

	assert.Equal(t, "", c.Text())
	assert.Equal(t, StateIdle, c.State())
	_, ok = c.Submit()
	assert.False(t, ok)
}

func TestSubmit_FileOnlyHasEmptyText(t *testing.T) {
	c := New(nil, nil, nil)
	require.NoError(t, c.AttachFile("report.pdf", "application/pdf", []byte("%PDF-")))
	assert.Equal(t, StateFileAttached, c.State())

	out, ok := c.Submit()
	require.True(t, ok)
	assert.Equal(t, "", out.Text)
	require.NotNil(t, out.File)
	assert.Equal(t, "report.pdf", out.File.Name)
}

func TestAttachFile_OversizeRejected(t *testing.T) {
	c := New(nil, nil, nil)
	c.SetText("keep me")
	require.NoError(t, c.AttachFile("small.txt", "text/plain", []byte("ok")))

	big := bytes.Repeat([]byte{0}, MaxFileSize+1)
	err := c.AttachFile("huge.bin", "application/octet-stream", big)
	require.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, "File size must be less than 20MB", c.Err())

	// Prior state untouched: text and the earlier attachment survive.
	assert.Equal(t, "keep me", c.Text())
	out, ok := c.Submit()
	require.True(t, ok)
	assert.Equal(t, "small.txt", out.File.Name)
}

func TestAttachFile_ImagePreviewLifecycle(t *testing.T) {
	reg := preview.NewRegistry()
	c := New(nil, reg, nil)

	require.NoError(t, c.AttachFile("cat.png", "image/png", []byte{1}))
	assert.Equal(t, 1, reg.Len())

	// Replacing the attachment releases the old preview.
	require.NoError(t, c.AttachFile("dog.jpg", "image/jpeg", []byte{2}))
	assert.Equal(t, 1, reg.Len())

	c.RemoveFile()
	assert.Equal(t, 0, reg.Len())

	// Submitting also releases the composer-scoped preview.
	require.NoError(t, c.AttachFile("bird.png", "image/png", []byte{3}))
	out, ok := c.Submit()
	require.True(t, ok)
	assert.Equal(t, "", out.File.PreviewURL)
	assert.Equal(t, 0, reg.Len())
}

func TestAttachFile_NonImageGetsNoPreview(t *testing.T) {
	reg := preview.NewRegistry()
	c := New(nil, reg, nil)
	require.NoError(t, c.AttachFile("report.pdf", "application/pdf", []byte{1}))
	assert.Equal(t, 0, reg.Len())
}

func TestRecording_TranscriptOverwritesBuffer(t *testing.T) {
	rec := newFakeRecognizer()
	c := New(rec, nil, nil)
	c.SetText("typed before")

	c.ToggleRecording(context.Background())
	assert.Equal(t, StateRecording, c.State())
	assert.Equal(t, "", c.Text())

	rec.events <- TranscriptEvent{Text: "hel"}
	rec.events <- TranscriptEvent{Text: "hello wor"}
	rec.events <- TranscriptEvent{Text: "hello world"}

	assert.Eventually(t, func() bool { return c.Text() == "hello world" },
		time.Second, 5*time.Millisecond)

	c.ToggleRecording(context.Background())
	assert.True(t, rec.stopped)
	assert.Eventually(t, func() bool { return c.State() == StateIdle },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello world", c.Text())
}

func TestRecording_StartErrorsMapped(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrUnsupported, "Speech recognition is not supported on this device."},
		{ErrMicDenied, "Microphone access denied. Please allow microphone access."},
		{ErrNoMicrophone, "No microphone found. Please check your microphone."},
		{errors.New("backend exploded"), "Speech error: backend exploded. Please try again."},
	}
	for _, tt := range tests {
		rec := newFakeRecognizer()
		rec.startErr = tt.err
		c := New(rec, nil, nil)

		c.ToggleRecording(context.Background())
		assert.Equal(t, tt.want, c.Err())
		assert.NotEqual(t, StateRecording, c.State())
	}
}

func TestRecording_NoSpeechKeepsListening(t *testing.T) {
	rec := newFakeRecognizer()
	c := New(rec, nil, nil)

	c.ToggleRecording(context.Background())
	rec.events <- TranscriptEvent{Err: ErrNoSpeech}

	assert.Eventually(t, func() bool {
		return c.Err() == "No speech detected. Please try again."
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRecording, c.State())

	rec.events <- TranscriptEvent{Text: "finally"}
	assert.Eventually(t, func() bool { return c.Text() == "finally" },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "", c.Err())
}

func TestRecording_NoRecognizer(t *testing.T) {
	c := New(nil, nil, nil)
	c.ToggleRecording(context.Background())
	assert.Equal(t, "Speech recognition is not supported on this device.", c.Err())
	assert.Equal(t, StateIdle, c.State())
}
