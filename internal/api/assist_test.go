package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"query":"x"}`, `{"query":"x"}`},
		{"fenced", "```\n{\"query\":\"x\"}\n```", `{"query":"x"}`},
		{"fenced with language", "```json\n{\"query\":\"x\"}\n```", `{"query":"x"}`},
		{"surrounding whitespace", "  \n```json\n{\"query\":\"x\"}\n```\n ", `{"query":"x"}`},
		{"single line", "```json{\"query\":\"x\"}```", `{"query":"x"}`},
		{"unterminated", "```json\n{\"query\":\"x\"}", `{"query":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}

func TestParseSuggestion(t *testing.T) {
	q, err := ParseSuggestion("```json\n{\"query\": \"  terminal file manager language:go \"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "terminal file manager language:go", q)

	_, err = ParseSuggestion(`{"query": ""}`)
	assert.Error(t, err)

	_, err = ParseSuggestion(`sure! here is a query`)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestSuggest(t *testing.T) {
	var req chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` +
			"```json\\n{\\\"query\\\": \\\"markdown previewer\\\"}\\n```" + `"}}]}`))
	}))
	defer srv.Close()

	s := NewSuggester("sk-test", srv.URL+"/v1", "", 0, nil)
	q, err := s.Suggest(context.Background(), "preview markdown in the terminal")
	require.NoError(t, err)

	assert.Equal(t, "markdown previewer", q)
	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, DefaultAssistModel, req.Model)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "preview markdown in the terminal")
}

func TestSuggest_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"null content", http.StatusOK, `{"choices":[{"message":{"content":null}}]}`},
		{"empty query", http.StatusOK, `{"choices":[{"message":{"content":"{\"query\":\"\"}"}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewSuggester("sk-test", srv.URL, "", 0, nil).Suggest(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestSuggest_NoKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewSuggester("", srv.URL, "", 0, nil).Suggest(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.False(t, called)
}
