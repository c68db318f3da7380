package voice

import (
	"context"
	"errors"
	"testing"

	"farmwise-api-server/internal/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMic struct {
	unsupported error
	released    int
}

func (m *fakeMic) Supported() error { return m.unsupported }
func (m *fakeMic) Release()         { m.released++ }

type fakeTranscriber struct {
	text  string
	err   error
	audio ai.Audio
}

func (f *fakeTranscriber) Transcribe(_ context.Context, a ai.Audio) (string, error) {
	f.audio = a
	return f.text, f.err
}

func TestCaptureHappyPath(t *testing.T) {
	tr := &fakeTranscriber{text: "is it time to harvest"}
	var states []State
	c := NewCapture(tr, 1<<20, func(s State) { states = append(states, s) })
	mic := &fakeMic{}

	require.NoError(t, c.Start(mic, "audio/webm;codecs=opus"))
	assert.Equal(t, Recording, c.State())

	_, err := c.Write([]byte("chunk-1,"))
	require.NoError(t, err)
	_, err = c.Write([]byte("chunk-2"))
	require.NoError(t, err)

	text, err := c.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "is it time to harvest", text)
	assert.Equal(t, "chunk-1,chunk-2", string(tr.audio.Data))
	assert.Equal(t, "recording.webm", tr.audio.Filename)
	assert.Equal(t, 1, mic.released)
	assert.Equal(t, NotRecording, c.State())
	assert.Equal(t, []State{Recording, Transcribing, NotRecording}, states)
}

func TestCaptureUnsupportedNeverRecords(t *testing.T) {
	c := NewCapture(&fakeTranscriber{}, 0, nil)
	err := c.Start(&fakeMic{unsupported: errors.New("no microphone")}, "audio/webm")

	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, NotRecording, c.State())

	noTranscriber := NewCapture(nil, 0, nil)
	assert.ErrorIs(t, noTranscriber.Start(&fakeMic{}, "audio/webm"), ErrUnsupported)
	assert.Equal(t, NotRecording, noTranscriber.State())
}

func TestCaptureReleasesMicOnTranscriptionFailure(t *testing.T) {
	c := NewCapture(&fakeTranscriber{err: errors.New("upstream 500")}, 0, nil)
	mic := &fakeMic{}

	require.NoError(t, c.Start(mic, "audio/wav"))
	_, err := c.Write([]byte("pcm"))
	require.NoError(t, err)

	_, err = c.Stop(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, mic.released)
	assert.Equal(t, NotRecording, c.State())
}

func TestCaptureEmptyRecording(t *testing.T) {
	tr := &fakeTranscriber{text: "unused"}
	c := NewCapture(tr, 0, nil)
	mic := &fakeMic{}

	require.NoError(t, c.Start(mic, "audio/webm"))
	_, err := c.Stop(context.Background())

	assert.ErrorIs(t, err, ErrEmptyRecording)
	assert.Equal(t, 1, mic.released)
	assert.Nil(t, tr.audio.Data)
}

func TestCaptureRejectsOversizedAudio(t *testing.T) {
	c := NewCapture(&fakeTranscriber{}, 4, nil)
	require.NoError(t, c.Start(&fakeMic{}, "audio/webm"))

	_, err := c.Write([]byte("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestCaptureStateGuards(t *testing.T) {
	c := NewCapture(&fakeTranscriber{}, 0, nil)

	_, err := c.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrNotRecording)
	_, err = c.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotRecording)

	mic := &fakeMic{}
	require.NoError(t, c.Start(mic, "audio/webm"))
	assert.ErrorIs(t, c.Start(&fakeMic{}, "audio/webm"), ErrAlreadyRecording)

	c.Abort()
	assert.Equal(t, NotRecording, c.State())
	assert.Equal(t, 1, mic.released)
}
