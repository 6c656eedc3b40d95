package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalintake/backend/internal/infrastructure/config"
)

func newTestClient(serverURL string, enabled bool) *Client {
	return NewClient(config.OCRConfig{
		Enabled: enabled,
		BaseURL: serverURL,
		Timeout: 2 * time.Second,
	}, nil)
}

func TestClient_Extract(t *testing.T) {
	t.Run("returns trimmed non-empty fields", func(t *testing.T) {
		var captured extractRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/ocr/extract", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			json.NewEncoder(w).Encode(extractResponse{
				Success: true,
				Fields: map[string]string{
					"name":         " 张三 ",
					"plate_number": "京A12345",
					"insurer":      "",
				},
			})
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		fields, err := client.Extract(context.Background(), []byte("image-bytes"), "image/jpeg")

		assert.NoError(t, err)
		assert.Equal(t, map[string]string{
			"name":         "张三",
			"plate_number": "京A12345",
		}, fields)
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("image-bytes")), captured.ImageBase64)
		assert.Equal(t, "image/jpeg", captured.ContentType)
	})

	t.Run("disabled client returns empty map without calling out", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		client := newTestClient(server.URL, false)
		fields, err := client.Extract(context.Background(), []byte("image"), "image/png")

		assert.NoError(t, err)
		assert.Empty(t, fields)
		assert.False(t, called)
		assert.False(t, client.Enabled())
	})

	t.Run("propagates service rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(extractResponse{Success: false, Message: "unreadable image"})
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		_, err := client.Extract(context.Background(), []byte("image"), "image/jpeg")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unreadable image")
	})

	t.Run("propagates transport errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		_, err := client.Extract(context.Background(), []byte("image"), "image/jpeg")

		assert.Error(t, err)
	})
}
