package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"farmwise-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRejectsSecondMessageWhileSending(t *testing.T) {
	tr := &Transcript{}
	started := make(chan struct{})
	unblock := make(chan struct{})

	slow := func(ctx context.Context, _ []models.ChatMessage, _ models.ChatMessage) (string, error) {
		close(started)
		<-unblock
		return "done", nil
	}

	done := make(chan Exchange)
	go func() {
		ex, err := tr.Send(context.Background(), Outgoing{Text: "first"}, slow, time.Now, nil)
		assert.NoError(t, err)
		done <- ex
	}()

	<-started
	assert.True(t, tr.Sending())
	_, err := tr.Send(context.Background(), Outgoing{Text: "second"}, slow, time.Now, nil)
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(unblock)
	ex := <-done
	assert.Equal(t, "done", ex.Answer.Text)
	assert.False(t, tr.Sending())
	assert.Len(t, tr.Messages(), 2)
}

func TestSendPassesPriorHistory(t *testing.T) {
	tr := &Transcript{}
	var seen [][]models.ChatMessage
	reply := func(_ context.Context, history []models.ChatMessage, _ models.ChatMessage) (string, error) {
		seen = append(seen, history)
		return "ok", nil
	}

	_, err := tr.Send(context.Background(), Outgoing{Text: "a"}, reply, time.Now, nil)
	require.NoError(t, err)
	_, err = tr.Send(context.Background(), Outgoing{Text: "b"}, reply, time.Now, nil)
	require.NoError(t, err)

	assert.Empty(t, seen[0])
	require.Len(t, seen[1], 2)
	assert.Equal(t, "a", seen[1][0].Text)
}

func TestSendWithImageOnly(t *testing.T) {
	tr := &Transcript{}
	photo := []byte("\x89PNG\r\n\x1a\n leaf photo bytes")
	var published []models.ChatMessage
	ex, err := tr.Send(context.Background(), Outgoing{Image: photo},
		func(context.Context, []models.ChatMessage, models.ChatMessage) (string, error) { return "a leaf", nil },
		time.Now, func(m models.ChatMessage) { published = append(published, m) })
	require.NoError(t, err)
	assert.Equal(t, PreviewRef(photo), ex.Question.Image)
	assert.True(t, strings.HasPrefix(ex.Question.Image, "sha256:"))
	assert.Len(t, ex.Question.Image, len("sha256:")+16)
	assert.Equal(t, "a leaf", ex.Answer.Text)

	require.Len(t, published, 2)
	assert.Equal(t, ex.Question.Image, published[0].Image)
	assert.Equal(t, ex.Question.Image, tr.Messages()[0].Image)
}

func TestSendRejectsEmpty(t *testing.T) {
	tr := &Transcript{}
	_, err := tr.Send(context.Background(), Outgoing{Text: "  "}, nil, time.Now, nil)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, tr.Messages())
}
