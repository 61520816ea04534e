package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(url string) *Client {
	return &Client{
		Endpoint:    url,
		APIKey:      "test-key",
		Deployment:  "gpt-4o",
		APIVersion:  "2024-02-01",
		HTTPClient:  &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	}
}

func completionBody(content string) []byte {
	raw, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return raw
}

func TestChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-02-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Write(completionBody("bonjour"))
	}))
	defer srv.Close()

	content, err := testClient(srv.URL).ChatCompletion(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", content)
}

func TestChatCompletionRetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(completionBody("ok"))
	}))
	defer srv.Close()

	content, err := testClient(srv.URL).ChatCompletion(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestChatCompletionGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ChatCompletion(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestChatCompletionDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ChatCompletion(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChatCompletionContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	client.BackoffBase = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ChatCompletion(ctx, "sys", "usr")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChatCompletionSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": {"message": "content filtered"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ChatCompletion(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content filtered")
}

func TestBackoffHonorsRetryAfter(t *testing.T) {
	c := testClient("http://unused")
	c.BackoffBase = time.Second

	assert.Equal(t, time.Second, c.backoff(1, nil))
	assert.Equal(t, 2*time.Second, c.backoff(2, nil))
	assert.Equal(t, 4*time.Second, c.backoff(3, nil))
	assert.Equal(t, 7*time.Second, c.backoff(2, &httpError{status: 429, retryAfter: 7 * time.Second}))
}

func TestEnabled(t *testing.T) {
	assert.True(t, testClient("http://example").Enabled())
	assert.False(t, (&Client{}).Enabled())
}
