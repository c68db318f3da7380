package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"farmwise-api-server/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type memoryStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (m *memoryStore) Save(_ context.Context, key, _ string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[key] = data
	return "/uploads/" + key, nil
}

type stubIdentifier struct {
	reply string
	err   error
	got   string
}

func (s *stubIdentifier) IdentifyCrop(_ context.Context, img string) (string, error) {
	s.got = img
	return s.reply, s.err
}

func TestUploadAndIdentifySuccess(t *testing.T) {
	store := &memoryStore{}
	ident := &stubIdentifier{reply: "Paddy (rice), tillering stage"}
	svc := NewService(store, ident, 1<<20)

	res, err := svc.UploadAndIdentify(context.Background(), File{Name: "field.png", Data: pngBytes})
	require.NoError(t, err)

	assert.Contains(t, res.ImageURL, "/uploads/crops/")
	assert.Equal(t, "Paddy (rice), tillering stage", res.Identification)
	assert.Empty(t, res.IdentifyError)
	assert.Equal(t, len(pngBytes), res.FileSize)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngBytes), ident.got)
	assert.Len(t, store.saved, 1)
}

func TestUploadAndIdentifyPartialSuccess(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, &stubIdentifier{err: errors.New("openai: upstream returned 500")}, 1<<20)

	res, err := svc.UploadAndIdentify(context.Background(), File{Name: "field.png", Data: pngBytes})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ImageURL)
	assert.Equal(t, UnidentifiedText, res.Identification)
	assert.Contains(t, res.IdentifyError, "identification failed")
	assert.Error(t, res.IdentifyErr())
	assert.Len(t, store.saved, 1)
}

func TestUploadAndIdentifyStoreFailure(t *testing.T) {
	svc := NewService(&memoryStore{err: errors.New("disk full")}, &stubIdentifier{reply: "rice"}, 1<<20)

	_, err := svc.UploadAndIdentify(context.Background(), File{Name: "field.png", Data: pngBytes})
	assert.EqualError(t, err, "disk full")
}

func TestUploadRejectsBeforeNetwork(t *testing.T) {
	store := &memoryStore{}
	ident := &stubIdentifier{reply: "rice"}
	svc := NewService(store, ident, 8)

	_, err := svc.UploadAndIdentify(context.Background(), File{Name: "notes.txt", Data: []byte("hello")})
	assert.ErrorIs(t, err, storage.ErrNotImage)

	_, err = svc.UploadAndIdentify(context.Background(), File{Name: "big.png", Data: pngBytes})
	assert.ErrorIs(t, err, storage.ErrTooLarge)

	assert.Empty(t, store.saved)
	assert.Empty(t, ident.got)
}

func TestUploadTwiceGivesDistinctURLs(t *testing.T) {
	svc := NewService(&memoryStore{}, nil, 1<<20)

	a, err := svc.Upload(context.Background(), File{Name: "leaf.png", Data: pngBytes})
	require.NoError(t, err)
	b, err := svc.Upload(context.Background(), File{Name: "leaf.png", Data: pngBytes})
	require.NoError(t, err)

	assert.NotEqual(t, a.ImageURL, b.ImageURL)
}
