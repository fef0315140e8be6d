package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_Analyze(t *testing.T) {
	t.Run("decodes completion into analysis", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/chat/completions", r.URL.Path)
			require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var req chatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Len(t, req.Messages, 1)
			assert.Contains(t, req.Messages[0].Content, "Arjun")

			resp := map[string]any{
				"choices": []map[string]any{
					{"message": map[string]any{"role": "assistant", "content": sampleReply}},
				},
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(resp)
		}))
		defer srv.Close()

		p := NewOpenAIProvider("sk-test", srv.URL, "gpt-4o-mini")

		analysis, err := p.Analyze(context.Background(), testRecord)
		require.NoError(t, err)
		assert.Equal(t, "Class 4", analysis.StudentProfile.CurrentGradeLevel)
	})

	t.Run("returns error for API failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"message": "invalid key"}}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		p := NewOpenAIProvider("bad-key", srv.URL, "gpt-4o-mini")

		_, err := p.Analyze(context.Background(), testRecord)
		assert.Error(t, err)
	})

	t.Run("returns error for empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"choices": []}`))
		}))
		defer srv.Close()

		p := NewOpenAIProvider("sk-test", srv.URL, "gpt-4o-mini")

		_, err := p.Analyze(context.Background(), testRecord)
		assert.Error(t, err)
	})
}
