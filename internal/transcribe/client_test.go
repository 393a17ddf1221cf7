package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcriber/internal/config"
)

func writeAudioFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0_clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mp3 payload"), 0o644))
	return path
}

func newTestClient(endpoint string) *Client {
	return NewClient(config.TranscriptionConfig{
		Endpoint:       endpoint,
		Model:          "whisper-1",
		TimeoutSeconds: 5,
	})
}

func TestTranscribeSuccess(t *testing.T) {
	var gotAuth, gotModel, gotLanguage, gotFilename string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
			return
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		if headers := r.MultipartForm.File["file"]; len(headers) == 1 {
			gotFilename = headers[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "hello world"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Transcribe(context.Background(), Request{
		Path:     writeAudioFixture(t),
		Filename: "clip.mp3",
		Language: "en",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)

	assert.Equal(t, "hello world", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, "en", gotLanguage)
	assert.Equal(t, "clip.mp3", gotFilename)
}

func TestTranscribeClassifiesProviderFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		class  FailureClass
	}{
		{"unauthorized", http.StatusUnauthorized, ClassAuthentication},
		{"forbidden", http.StatusForbidden, ClassAuthentication},
		{"throttled", http.StatusTooManyRequests, ClassRateLimit},
		{"bad audio", http.StatusBadRequest, ClassInvalidRequest},
		{"unsupported media", http.StatusUnsupportedMediaType, ClassInvalidRequest},
		{"provider down", http.StatusInternalServerError, ClassTransient},
		{"bad gateway", http.StatusBadGateway, ClassTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error": {"message": "provider said no"}}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.Transcribe(context.Background(), Request{
				Path:     writeAudioFixture(t),
				Filename: "clip.mp3",
				Language: "en",
				APIKey:   "sk-test",
			})
			require.Error(t, err)

			pe, ok := err.(*ProviderError)
			require.True(t, ok)
			assert.Equal(t, tc.class, pe.Class)
			assert.Equal(t, tc.status, pe.Status)
			assert.Contains(t, pe.Message, "provider said no")
		})
	}
}

func TestTranscribeNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(server.URL)
	_, err := client.Transcribe(context.Background(), Request{
		Path:     writeAudioFixture(t),
		Filename: "clip.mp3",
		Language: "en",
		APIKey:   "sk-secret-value",
	})
	require.Error(t, err)

	pe, ok := err.(*ProviderError)
	require.True(t, ok)
	assert.Equal(t, ClassTransient, pe.Class)
	// The credential must never leak into surfaced errors.
	assert.NotContains(t, err.Error(), "sk-secret-value")
}

func TestTranscribeErrorNeverContainsCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "incorrect API key provided"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Transcribe(context.Background(), Request{
		Path:     writeAudioFixture(t),
		Filename: "clip.mp3",
		Language: "en",
		APIKey:   "sk-super-secret",
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sk-super-secret")
	assert.True(t, IsAuthentication(err))
}

func TestTranscribeMissingFile(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	_, err := client.Transcribe(context.Background(), Request{
		Path:     filepath.Join(t.TempDir(), "gone.mp3"),
		Filename: "gone.mp3",
		Language: "en",
		APIKey:   "sk-test",
	})
	require.Error(t, err)

	pe, ok := err.(*ProviderError)
	require.True(t, ok)
	assert.Equal(t, ClassInvalidRequest, pe.Class)
}
