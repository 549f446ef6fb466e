package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	storage, err := NewS3Storage(context.Background(), t.TempDir(), testS3Config("http://localhost:4566/"))
	require.NoError(t, err)

	assert.Equal(t, "test-bucket", storage.bucket)
	assert.Equal(t, "us-east-1", storage.region)
	assert.Equal(t, "http://localhost:4566", storage.endpoint)
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	storage, err := NewS3Storage(context.Background(), t.TempDir(), testS3Config("http://localhost:4566"))
	require.NoError(t, err)
	ctx := context.Background()

	path, err := storage.CreateTemp(ctx, "seg-*.wav")
	require.NoError(t, err)
	require.NoError(t, storage.CleanupTemp(ctx, []string{path}))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestS3Storage_Publish_MockServer(t *testing.T) {
	var gotPath, gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	storage, err := NewS3Storage(context.Background(), t.TempDir(), testS3Config(server.URL))
	require.NoError(t, err)

	url, err := storage.Publish(context.Background(), "gita/verse-1.mp3", bytes.NewReader([]byte("test content")))
	require.NoError(t, err)

	assert.Equal(t, "/test-bucket/gita/verse-1.mp3", gotPath)
	assert.Equal(t, "audio/mpeg", gotType)
	assert.Equal(t, "test content", gotBody)
	assert.Equal(t, server.URL+"/test-bucket/gita/verse-1.mp3", url)
}

func TestS3Storage_Publish_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	storage, err := NewS3Storage(context.Background(), t.TempDir(), testS3Config(server.URL))
	require.NoError(t, err)

	_, err = storage.Publish(context.Background(), "verse-1.mp3", bytes.NewReader([]byte("x")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verse-1.mp3")
}

func TestS3Storage_ObjectURL(t *testing.T) {
	s := &S3Storage{bucket: "b", region: "eu-west-1"}
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/audio/verse-1.mp3", s.objectURL("audio/verse-1.mp3"))
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/verse-a%20b.mp3", s.objectURL("verse-a b.mp3"))
}
